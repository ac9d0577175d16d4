// Package broker is the scheduling core: atomic job acquisition and
// abort, backed by the store's atomic find-one-and-update.
package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/events"
	"github.com/lichess-org/deepq/pkg/models"
)

// ErrNoJobAvailable means there is nothing queued the caller may claim,
// or the job it claimed turned out to reference a missing game. Either
// way the caller's contract is the same: respond 204, the worker may
// retry later.
var ErrNoJobAvailable = errors.New("broker: no job available")

// Broker is the job-assignment core shared by the worker HTTP surface.
type Broker struct {
	store *database.Store
	bus   *events.Bus
}

// New builds a Broker over store, publishing lifecycle events onto bus.
func New(store *database.Store, bus *events.Bus) *Broker {
	return &Broker{store: store, bus: bus}
}

// Acquire implements §4.4.1: claim the highest-precedence, oldest queued
// job the user is permitted to run, verify its game still exists, and
// return a worker-facing view. ErrNoJobAvailable covers both "nothing
// queued" and "the claimed job's game vanished"; callers map both to a
// 204 and don't need to distinguish them.
func (b *Broker) Acquire(ctx context.Context, user *models.ApiUser) (*JobView, error) {
	job, err := b.store.AcquireJob(ctx, user.Key, user.Permissions)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNoJobAvailable
		}
		if errors.Is(err, database.ErrAcquireLockTimeout) {
			// Lost the race for the one candidate job to a concurrent
			// acquirer; same contract as "nothing queued" from the
			// caller's perspective, so it retries rather than errors.
			return nil, ErrNoJobAvailable
		}
		return nil, fmt.Errorf("broker: acquire: %w", err)
	}

	game, err := b.store.FindGameByID(ctx, job.GameID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			if delErr := b.store.DeleteJob(ctx, job.ID); delErr != nil {
				return nil, fmt.Errorf("broker: delete orphaned job %s: %w", job.ID, delErr)
			}
			return nil, ErrNoJobAvailable
		}
		if _, abortErr := b.store.AbortJob(ctx, job.ID, user.Key); abortErr != nil {
			return nil, fmt.Errorf("broker: abort after fetch failure for job %s: %w (fetch error: %v)", job.ID, abortErr, err)
		}
		return nil, fmt.Errorf("broker: fetch game for job %s: %w", job.ID, err)
	}

	b.bus.Publish(events.Event{Type: events.JobAcquired, JobID: job.ID})
	view := newJobView(job, game)
	return &view, nil
}

// Abort implements §4.4.2: release ownership only if user currently
// holds job_id. A foreign or already-released abort is a silent no-op.
func (b *Broker) Abort(ctx context.Context, user *models.ApiUser, jobID string) error {
	released, err := b.store.AbortJob(ctx, jobID, user.Key)
	if err != nil {
		return fmt.Errorf("broker: abort job %s: %w", jobID, err)
	}
	if released {
		b.bus.Publish(events.Event{Type: events.JobAborted, JobID: jobID})
	}
	return nil
}
