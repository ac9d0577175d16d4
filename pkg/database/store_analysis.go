package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lichess-org/deepq/pkg/models"
)

// UpsertGameAnalysis replaces the GameAnalysis for a job wholesale: a
// concurrent resubmission overwrites the previous ply array rather than
// merging into it, per §4.5 step 3. It is keyed on job id, since a job
// has exactly one GameAnalysis.
func (s *Store) UpsertGameAnalysis(ctx context.Context, a *models.GameAnalysis) error {
	plies, err := json.Marshal(a.Plies)
	if err != nil {
		return fmt.Errorf("database: marshal plies: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deepq_analysis (id, job_id, game_id, source_id, plies, requested_pvs, requested_depth, requested_nnue_nodes, requested_classical_nodes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			plies = EXCLUDED.plies,
			requested_pvs = EXCLUDED.requested_pvs,
			requested_depth = EXCLUDED.requested_depth,
			requested_nnue_nodes = EXCLUDED.requested_nnue_nodes,
			requested_classical_nodes = EXCLUDED.requested_classical_nodes`,
		a.JobID, a.JobID, string(a.GameID), string(a.SourceID), plies,
		a.RequestedPVs, a.RequestedDepth, a.RequestedNodes.Nnue, a.RequestedNodes.Classical,
	)
	if err != nil {
		return fmt.Errorf("database: upsert game analysis: %w", err)
	}
	return nil
}

// FindGameAnalysisByJobID fetches the GameAnalysis belonging to a job.
func (s *Store) FindGameAnalysisByJobID(ctx context.Context, jobID string) (*models.GameAnalysis, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, job_id, game_id, source_id, plies, requested_pvs, requested_depth, requested_nnue_nodes, requested_classical_nodes
		FROM deepq_analysis WHERE job_id = $1`, jobID)

	var a models.GameAnalysis
	var gameID, sourceID string
	var plies []byte
	if err := row.Scan(&a.ID, &a.JobID, &gameID, &sourceID, &plies, &a.RequestedPVs, &a.RequestedDepth, &a.RequestedNodes.Nnue, &a.RequestedNodes.Classical); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database: scan game analysis: %w", err)
	}
	a.GameID = models.GameId(gameID)
	a.SourceID = models.UserId(sourceID)
	if err := json.Unmarshal(plies, &a.Plies); err != nil {
		return nil, fmt.Errorf("database: unmarshal plies: %w", err)
	}
	return &a, nil
}

// CountJobsForReport returns (complete, total) across every Job bound to
// a report, for the aggregator's completion-ratio check.
func (s *Store) CountJobsForReport(ctx context.Context, reportID string) (complete, total uint64, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE is_complete), COUNT(*)
		FROM deepq_fishnetjobs WHERE report_id = $1`, reportID)
	if err := row.Scan(&complete, &total); err != nil {
		return 0, 0, fmt.Errorf("database: count jobs for report: %w", err)
	}
	return complete, total, nil
}
