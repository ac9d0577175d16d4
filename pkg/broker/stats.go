package broker

import (
	"context"
	"errors"
	"time"

	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/models"
)

// QueueStatus is one kind's slice of the /status response: how many
// jobs are currently acquired, how many are queued, and the age in
// seconds of the job named "oldest" by §4.2's (preserved, misleadingly
// named) sort.
type QueueStatus struct {
	Acquired uint64
	Queued   uint64
	Oldest   uint64
}

// Status computes the QueueStatus for one AnalysisKind.
//
// OldestQueued mirrors the source behavior literally: it sorts queued
// jobs of this kind by last_updated DESCENDING and takes the first,
// which returns the NEWEST queued job, not the oldest. A kind with no
// queued jobs reports Oldest: 0.
func (b *Broker) Status(ctx context.Context, kind models.AnalysisKind) (QueueStatus, error) {
	acquired, err := b.store.AcquiredCount(ctx, kind)
	if err != nil {
		return QueueStatus{}, err
	}
	queued, err := b.store.QueuedCount(ctx, kind)
	if err != nil {
		return QueueStatus{}, err
	}

	job, err := b.store.OldestQueued(ctx, kind)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return QueueStatus{Acquired: acquired, Queued: queued, Oldest: 0}, nil
		}
		return QueueStatus{}, err
	}

	return QueueStatus{
		Acquired: acquired,
		Queued:   queued,
		Oldest:   uint64(job.SecondsSinceCreated(time.Now())),
	}, nil
}
