package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lichess-org/deepq/pkg/models"
)

// UpsertGame inserts a Game or, if one with the same id already exists,
// leaves it untouched: content is immutable once stored, so concurrent
// ingestions of the same id converge without a write race.
func (s *Store) UpsertGame(ctx context.Context, g *models.Game) error {
	var white, black *string
	if g.White != nil {
		v := string(*g.White)
		white = &v
	}
	if g.Black != nil {
		v := string(*g.Black)
		black = &v
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deepq_games (id, white, black, emts, moves)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		string(g.ID), white, black, emtsOrEmpty(g.Emts), movesOrEmpty(g.Moves),
	)
	if err != nil {
		return fmt.Errorf("database: upsert game: %w", err)
	}
	return nil
}

// FindGameByID fetches one Game by its id.
func (s *Store) FindGameByID(ctx context.Context, id models.GameId) (*models.Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, white, black, emts, moves
		FROM deepq_games WHERE id = $1`, string(id))

	var g models.Game
	var rawID string
	var white, black sql.NullString
	if err := row.Scan(&rawID, &white, &black, &g.Emts, &g.Moves); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database: scan game: %w", err)
	}
	g.ID = models.GameId(rawID)
	if white.Valid {
		uid := models.UserId(white.String)
		g.White = &uid
	}
	if black.Valid {
		uid := models.UserId(black.String)
		g.Black = &uid
	}
	return &g, nil
}

func emtsOrEmpty(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func movesOrEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
