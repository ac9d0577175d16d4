// Package sink is the analysis sink: receives per-ply engine output for
// an acquired job and, once every slot is filled, marks it complete and
// publishes JobCompleted for the aggregator.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/lichess-org/deepq/pkg/broker"
	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/events"
	"github.com/lichess-org/deepq/pkg/models"
)

// ErrJobNotFound covers both an unknown job id and one owned by someone
// else, matching §4.5 step 2's "On miss respond 404" (the two cases are
// deliberately indistinguishable to the caller).
var ErrJobNotFound = errors.New("sink: job not found")

// Submission is the body of a POST /analysis/{job_id} request, already
// authenticated by the caller. RequestedPVs/Depth/Nodes aren't carried
// on the wire — they're derived from the job's kind, the same fixed
// table the acquire reply was built from.
type Submission struct {
	Plies []*models.PlyAnalysis
}

// Sink applies Submissions to the store and completes jobs.
type Sink struct {
	store *database.Store
	bus   *events.Bus
}

// New builds a Sink over store, publishing JobCompleted onto bus.
func New(store *database.Store, bus *events.Bus) *Sink {
	return &Sink{store: store, bus: bus}
}

// Submit implements §4.5 steps 2-5. A concurrent resubmission for the
// same job overwrites the previous ply array wholesale; there is no
// per-ply merge.
func (s *Sink) Submit(ctx context.Context, user *models.ApiUser, jobID string, sub Submission) error {
	job, err := s.store.FindJobByIDAndOwner(ctx, jobID, user.Key)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("sink: fetch job %s: %w", jobID, err)
	}

	params := broker.ParamsFor(job.Kind)
	analysis := &models.GameAnalysis{
		ID:             job.ID,
		JobID:          job.ID,
		GameID:         job.GameID,
		SourceID:       userIDOrEmpty(user),
		Plies:          sub.Plies,
		RequestedPVs:   params.MultiPV,
		RequestedDepth: params.Depth,
		RequestedNodes: models.NodeBudget{Nnue: params.Nodes.Nnue, Classical: params.Nodes.Classical},
	}
	if err := s.store.UpsertGameAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("sink: upsert analysis for job %s: %w", jobID, err)
	}

	if analysis.Complete() {
		if err := s.store.MarkJobComplete(ctx, jobID); err != nil {
			return fmt.Errorf("sink: mark job %s complete: %w", jobID, err)
		}
		s.bus.Publish(events.Event{Type: events.JobCompleted, JobID: jobID})
	}
	return nil
}

func userIDOrEmpty(u *models.ApiUser) models.UserId {
	if u.User != nil {
		return *u.User
	}
	return models.UserId(u.Key)
}
