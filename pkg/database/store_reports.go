package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lichess-org/deepq/pkg/models"
)

// InsertReport persists a new Report. GameIDs is immutable from here on.
func (s *Store) InsertReport(ctx context.Context, r *models.Report) error {
	gameIDs := make([]string, len(r.GameIDs))
	for i, g := range r.GameIDs {
		gameIDs[i] = string(g)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deepq_reports (id, user_id, requested_at, completed_at, origin, report_type, game_ids, sent_downstream)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, string(r.User), r.RequestedAt, r.CompletedAt, string(r.Origin), string(r.Type), gameIDs, r.SentDownstream,
	)
	if err != nil {
		return fmt.Errorf("database: insert report: %w", err)
	}
	return nil
}

// FindReportByID fetches one Report by its id.
func (s *Store) FindReportByID(ctx context.Context, id string) (*models.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, requested_at, completed_at, origin, report_type, game_ids, sent_downstream
		FROM deepq_reports WHERE id = $1`, id)
	return scanReport(row)
}

// FindPendingDownstreamReports returns every report that has not yet been
// shipped. The aggregator does not call it; it loads the one report bound
// to each completed job by id.
func (s *Store) FindPendingDownstreamReports(ctx context.Context) ([]*models.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, requested_at, completed_at, origin, report_type, game_ids, sent_downstream
		FROM deepq_reports WHERE sent_downstream = FALSE`)
	if err != nil {
		return nil, fmt.Errorf("database: find pending reports: %w", err)
	}
	defer rows.Close()

	var out []*models.Report
	for rows.Next() {
		r, err := scanReportRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CompareAndSwapSentDownstream flips sent_downstream false->true exactly
// once; it returns false if another caller already won the race, which
// the aggregator treats as "someone else is shipping this report".
func (s *Store) CompareAndSwapSentDownstream(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deepq_reports SET sent_downstream = TRUE, completed_at = $2
		WHERE id = $1 AND sent_downstream = FALSE`,
		id, completedAt,
	)
	if err != nil {
		return false, fmt.Errorf("database: cas sent_downstream: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("database: cas sent_downstream rows affected: %w", err)
	}
	return n == 1, nil
}

func scanReport(row *sql.Row) (*models.Report, error) {
	var r models.Report
	var origin, reportType string
	var gameIDs []string
	var completedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.User, &r.RequestedAt, &completedAt, &origin, &reportType, &gameIDs, &r.SentDownstream); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database: scan report: %w", err)
	}
	applyReportFields(&r, completedAt, origin, reportType, gameIDs)
	return &r, nil
}

func scanReportRows(rows *sql.Rows) (*models.Report, error) {
	var r models.Report
	var origin, reportType string
	var gameIDs []string
	var completedAt sql.NullTime
	if err := rows.Scan(&r.ID, &r.User, &r.RequestedAt, &completedAt, &origin, &reportType, &gameIDs, &r.SentDownstream); err != nil {
		return nil, fmt.Errorf("database: scan report row: %w", err)
	}
	applyReportFields(&r, completedAt, origin, reportType, gameIDs)
	return &r, nil
}

func applyReportFields(r *models.Report, completedAt sql.NullTime, origin, reportType string, gameIDs []string) {
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	r.Origin = models.Origin(origin)
	r.Type = models.ReportType(reportType)
	r.GameIDs = make([]models.GameId, len(gameIDs))
	for i, g := range gameIDs {
		r.GameIDs[i] = models.GameId(g)
	}
}
