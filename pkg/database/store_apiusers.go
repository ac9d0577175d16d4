package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lichess-org/deepq/pkg/models"
)

// InsertApiUser persists a newly minted ApiUser. Callers are responsible
// for generating ID and Key before calling.
func (s *Store) InsertApiUser(ctx context.Context, u *models.ApiUser) error {
	var userID *string
	if u.User != nil {
		v := string(*u.User)
		userID = &v
	}
	perms := make([]string, len(u.Permissions))
	for i, p := range u.Permissions {
		perms[i] = string(p)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deepq_apiuser (id, key, user_id, name, permissions)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Key, userID, u.Name, perms,
	)
	if err != nil {
		return fmt.Errorf("database: insert api user: %w", err)
	}
	return nil
}

// FindApiUserByKey looks up the ApiUser owning a bearer key.
func (s *Store) FindApiUserByKey(ctx context.Context, key string) (*models.ApiUser, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, user_id, name, permissions
		FROM deepq_apiuser WHERE key = $1`, key)
	return scanApiUser(row)
}

func scanApiUser(row *sql.Row) (*models.ApiUser, error) {
	var u models.ApiUser
	var userID sql.NullString
	var perms []string
	if err := row.Scan(&u.ID, &u.Key, &userID, &u.Name, &perms); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database: scan api user: %w", err)
	}
	if userID.Valid {
		uid := models.UserId(userID.String)
		u.User = &uid
	}
	u.Permissions = make([]models.AnalysisKind, len(perms))
	for i, p := range perms {
		u.Permissions[i] = models.AnalysisKind(p)
	}
	return &u, nil
}
