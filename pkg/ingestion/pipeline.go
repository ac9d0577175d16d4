package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lichess-org/deepq/pkg/chess"
	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/models"
)

// Pipeline runs the four ingestion steps of §4.1 against a store.
type Pipeline struct {
	store *database.Store
}

// NewPipeline builds a Pipeline over store.
func NewPipeline(store *database.Store) *Pipeline {
	return &Pipeline{store: store}
}

// Ingest normalizes every game's moves, upserts the games, then creates
// one Report and one Job per game. Step 1 fails the whole request before
// anything is persisted; steps 2-4 are not transactional across each
// other by design (§4.1) — a Report can legitimately end up with fewer
// Jobs than games if a later step errors, and the aggregator treats that
// as "not yet complete" rather than corruption.
func (p *Pipeline) Ingest(ctx context.Context, req ReviewRequest) error {
	normalized := make([]normalizedGame, 0, len(req.Games))
	for _, g := range req.Games {
		uci, err := chess.SANToUCI(g.Moves)
		if err != nil {
			return fmt.Errorf("%w: game %s: %v", ErrInvalidPosition, g.ID, err)
		}
		normalized = append(normalized, normalizedGame{input: g, uci: uci})
	}

	for _, ng := range normalized {
		game := &models.Game{
			ID:    models.NormalizeGameId(string(ng.input.ID)),
			White: ng.input.White,
			Black: ng.input.Black,
			Emts:  ng.input.Emts,
			Moves: ng.uci,
		}
		if err := p.store.UpsertGame(ctx, game); err != nil {
			return fmt.Errorf("ingestion: upsert game %s: %w", game.ID, err)
		}
	}

	gameIDs := make([]models.GameId, len(normalized))
	for i, ng := range normalized {
		gameIDs[i] = models.NormalizeGameId(string(ng.input.ID))
	}

	reportID := uuid.NewString()
	report := &models.Report{
		ID:             reportID,
		User:           models.NormalizeUserId(string(req.User)),
		RequestedAt:    time.Now(),
		Origin:         req.Origin,
		Type:           models.ReportIrwin,
		GameIDs:        gameIDs,
		SentDownstream: false,
	}
	if err := p.store.InsertReport(ctx, report); err != nil {
		return fmt.Errorf("ingestion: insert report: %w", err)
	}

	precedence := req.Origin.Precedence()
	for _, gid := range gameIDs {
		job := &models.Job{
			ID:          uuid.NewString(),
			GameID:      gid,
			ReportID:    &reportID,
			Kind:        models.Deep,
			Precedence:  precedence,
			Owner:       nil,
			LastUpdated: time.Now(),
			IsComplete:  false,
		}
		if err := p.store.InsertJob(ctx, job); err != nil {
			return fmt.Errorf("ingestion: insert job for game %s: %w", gid, err)
		}
	}
	return nil
}

type normalizedGame struct {
	input GameInput
	uci   []string
}
