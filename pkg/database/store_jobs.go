package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lichess-org/deepq/pkg/models"
)

// ErrAcquireLockTimeout means the atomic claim statement in AcquireJob
// didn't resolve before the Store's configured AcquireLockTimeout
// elapsed, almost always because another request holds the row lock on
// the same candidate job.
var ErrAcquireLockTimeout = errors.New("database: acquire lock timeout")

// InsertJob persists a newly created, queued Job.
func (s *Store) InsertJob(ctx context.Context, j *models.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deepq_fishnetjobs (id, game_id, report_id, kind, precedence, owner, last_updated, is_complete)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		j.ID, string(j.GameID), j.ReportID, string(j.Kind), j.Precedence, j.Owner, j.LastUpdated, j.IsComplete,
	)
	if err != nil {
		return fmt.Errorf("database: insert job: %w", err)
	}
	return nil
}

// AcquireJob is the single atomic find-one-and-update behind §4.4.1: among
// queued (owner IS NULL), permitted-kind jobs, it claims the one with the
// highest precedence, breaking ties by the oldest last_updated, and sets
// its owner in the same statement. Returns ErrNotFound if no job matches.
func (s *Store) AcquireJob(ctx context.Context, ownerKey string, kinds []models.AnalysisKind) (*models.Job, error) {
	if s.acquireLockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.acquireLockTimeout)
		defer cancel()
	}

	kindStrs := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrs[i] = string(k)
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE deepq_fishnetjobs SET owner = $1
		WHERE id = (
			SELECT id FROM deepq_fishnetjobs
			WHERE owner IS NULL AND kind = ANY($2)
			ORDER BY precedence DESC, last_updated ASC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING id, game_id, report_id, kind, precedence, owner, last_updated, is_complete`,
		ownerKey, kindStrs,
	)
	job, err := scanJob(row)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrAcquireLockTimeout
	}
	return job, err
}

// AbortJob releases ownership if and only if ownerKey currently holds the
// job; a foreign or already-released abort is a silent no-op, matching
// §4.4.2. The bool reports whether this call actually released it (used
// to decide whether to emit JobAborted).
func (s *Store) AbortJob(ctx context.Context, jobID, ownerKey string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deepq_fishnetjobs SET owner = NULL
		WHERE id = $1 AND owner = $2`,
		jobID, ownerKey,
	)
	if err != nil {
		return false, fmt.Errorf("database: abort job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("database: abort job rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteJob removes a Job outright, used when its underlying Game has
// vanished out-of-band (§ S4).
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM deepq_fishnetjobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("database: delete job: %w", err)
	}
	return nil
}

// FindJobByIDAndOwner fetches a Job that must currently be held by
// ownerKey; a mismatched or unknown id both surface as ErrNotFound so the
// caller can't distinguish "not yours" from "doesn't exist".
func (s *Store) FindJobByIDAndOwner(ctx context.Context, jobID, ownerKey string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, report_id, kind, precedence, owner, last_updated, is_complete
		FROM deepq_fishnetjobs WHERE id = $1 AND owner = $2`, jobID, ownerKey)
	return scanJob(row)
}

// FindJobByID fetches a Job regardless of owner, for the aggregator's
// event-driven lookups.
func (s *Store) FindJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, report_id, kind, precedence, owner, last_updated, is_complete
		FROM deepq_fishnetjobs WHERE id = $1`, jobID)
	return scanJob(row)
}

// MarkJobComplete sets is_complete, monotonically.
func (s *Store) MarkJobComplete(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE deepq_fishnetjobs SET is_complete = TRUE WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("database: mark job complete: %w", err)
	}
	return nil
}

// FindJobsByReportID returns every Job bound to a report, for the
// aggregator to enumerate when assembling the downstream payload.
func (s *Store) FindJobsByReportID(ctx context.Context, reportID string) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, report_id, kind, precedence, owner, last_updated, is_complete
		FROM deepq_fishnetjobs WHERE report_id = $1`, reportID)
	if err != nil {
		return nil, fmt.Errorf("database: find jobs by report: %w", err)
	}
	defer rows.Close()

	var out []*models.Job
	for rows.Next() {
		var j models.Job
		var gameID, kind string
		if err := rows.Scan(&j.ID, &gameID, &j.ReportID, &kind, &j.Precedence, &j.Owner, &j.LastUpdated, &j.IsComplete); err != nil {
			return nil, fmt.Errorf("database: scan job row: %w", err)
		}
		j.GameID = models.GameId(gameID)
		j.Kind = models.AnalysisKind(kind)
		out = append(out, &j)
	}
	return out, rows.Err()
}

// AcquiredCount returns the count of jobs with owner != NULL of the given kind.
func (s *Store) AcquiredCount(ctx context.Context, kind models.AnalysisKind) (uint64, error) {
	return s.countJobs(ctx, `owner IS NOT NULL AND kind = $1`, string(kind))
}

// QueuedCount returns the count of jobs with owner = NULL of the given kind.
func (s *Store) QueuedCount(ctx context.Context, kind models.AnalysisKind) (uint64, error) {
	return s.countJobs(ctx, `owner IS NULL AND kind = $1`, string(kind))
}

func (s *Store) countJobs(ctx context.Context, where string, arg string) (uint64, error) {
	var n uint64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deepq_fishnetjobs WHERE `+where, arg).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("database: count jobs: %w", err)
	}
	return n, nil
}

// OldestQueued returns the job named "oldest" by the source behavior this
// mirrors: it sorts by last_updated DESCENDING and takes the first match,
// which in fact returns the NEWEST queued job of the kind, not the oldest.
// See Broker.Status's doc comment, which reports this job's age as "oldest".
func (s *Store) OldestQueued(ctx context.Context, kind models.AnalysisKind) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, report_id, kind, precedence, owner, last_updated, is_complete
		FROM deepq_fishnetjobs
		WHERE owner IS NULL AND kind = $1
		ORDER BY last_updated DESC
		LIMIT 1`, string(kind))
	return scanJob(row)
}

func scanJob(row *sql.Row) (*models.Job, error) {
	var j models.Job
	var gameID, kind string
	if err := row.Scan(&j.ID, &gameID, &j.ReportID, &kind, &j.Precedence, &j.Owner, &j.LastUpdated, &j.IsComplete); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database: scan job: %w", err)
	}
	j.GameID = models.GameId(gameID)
	j.Kind = models.AnalysisKind(kind)
	return &j, nil
}
