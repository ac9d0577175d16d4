// Package aggregator subscribes to JobCompleted events, decides when a
// report is wholly analyzed, and ships it to the downstream receiver
// exactly once.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/events"
	"github.com/lichess-org/deepq/pkg/models"
)

// Aggregator drives §4.6: one goroutine per instance, consuming from its
// own bus subscription.
type Aggregator struct {
	store         *database.Store
	bus           *events.Bus
	httpClient    *http.Client
	downstreamURL string
	logger        *slog.Logger
}

// New builds an Aggregator that POSTs completed reports to downstreamURL.
func New(store *database.Store, bus *events.Bus, downstreamURL string) *Aggregator {
	return &Aggregator{
		store:         store,
		bus:           bus,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		downstreamURL: downstreamURL,
		logger:        slog.Default(),
	}
}

// Run subscribes to the bus and processes JobCompleted events until ctx
// is cancelled. It is meant to be run in its own goroutine.
func (a *Aggregator) Run(ctx context.Context) {
	sub := a.bus.Subscribe()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if evt.Type != events.JobCompleted {
				continue
			}
			if err := a.handleCompletion(ctx, evt.JobID); err != nil {
				a.logger.Error("aggregator: failed handling completion",
					"job_id", evt.JobID, "error", err)
			}
		}
	}
}

// handleCompletion implements §4.6 steps 1-6 for a single JobCompleted.
func (a *Aggregator) handleCompletion(ctx context.Context, jobID string) error {
	job, err := a.store.FindJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load job: %w", err)
	}
	if job.ReportID == nil {
		return nil
	}

	report, err := a.store.FindReportByID(ctx, *job.ReportID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load report: %w", err)
	}

	complete, total, err := a.store.CountJobsForReport(ctx, report.ID)
	if err != nil {
		return fmt.Errorf("count jobs for report %s: %w", report.ID, err)
	}
	if total == 0 || complete < total || total < uint64(len(report.GameIDs)) {
		a.logger.Debug("aggregator: report not yet complete",
			"report_id", report.ID, "complete", complete, "total", total)
		return nil
	}

	won, err := a.store.CompareAndSwapSentDownstream(ctx, report.ID, time.Now())
	if err != nil {
		return fmt.Errorf("cas sent_downstream for report %s: %w", report.ID, err)
	}
	if !won {
		a.logger.Debug("aggregator: report already shipped", "report_id", report.ID)
		return nil
	}

	payload, err := a.buildPayload(ctx, report)
	if err != nil {
		return fmt.Errorf("build payload for report %s: %w", report.ID, err)
	}

	if err := a.post(ctx, payload); err != nil {
		// Per §9, a failed POST does not roll back sent_downstream: the
		// report is considered shipped either way, and a retry would
		// need an out-of-band resend mechanism not specified here.
		a.logger.Error("aggregator: downstream POST failed",
			"report_id", report.ID, "error", err)
		return nil
	}
	return nil
}

// buildPayload assembles the downstream ReportPayload for every job
// bound to report, in the order the report's GameIDs list them.
func (a *Aggregator) buildPayload(ctx context.Context, report *models.Report) (*ReportPayload, error) {
	jobs, err := a.store.FindJobsByReportID(ctx, report.ID)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	jobByGame := make(map[models.GameId]*models.Job, len(jobs))
	for _, j := range jobs {
		jobByGame[j.GameID] = j
	}

	games := make([]GamePayload, 0, len(report.GameIDs))
	for _, gid := range report.GameIDs {
		job, ok := jobByGame[gid]
		if !ok {
			return nil, fmt.Errorf("%w: game %s has no job", ErrIncompleteAnalysis, gid)
		}

		game, err := a.store.FindGameByID(ctx, gid)
		if err != nil {
			return nil, fmt.Errorf("load game %s: %w", gid, err)
		}
		analysis, err := a.store.FindGameAnalysisByJobID(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("load analysis for job %s: %w", job.ID, err)
		}

		scores, err := extractGameScores(analysis.Plies)
		if err != nil {
			return nil, fmt.Errorf("game %s: %w", gid, err)
		}

		games = append(games, GamePayload{
			ID:       string(game.ID),
			White:    userOrEmpty(game.White),
			Black:    userOrEmpty(game.Black),
			Pgn:      game.Moves,
			Emts:     game.Emts,
			Analysis: scores,
			Analysed: true,
		})
	}

	return &ReportPayload{
		PlayerID:          string(report.User),
		Games:             games,
		AnalysedPositions: []int{},
	}, nil
}

func (a *Aggregator) post(ctx context.Context, payload *ReportPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.downstreamURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to %s: %w", a.downstreamURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("downstream receiver returned HTTP %d", resp.StatusCode)
	}
	return nil
}
