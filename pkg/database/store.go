package database

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned by any store lookup that matches no row.
var ErrNotFound = errors.New("database: not found")

// Store is the thin boundary every other component goes through to read
// and write the five entity tables. It never leaks *sql.Rows or SQL
// strings to its callers; every method returns models or ErrNotFound.
type Store struct {
	db                 *sql.DB
	acquireLockTimeout time.Duration
}

// NewStore builds a Store over an already-migrated connection, carrying
// forward the acquire-lock timeout the Client was configured with.
func NewStore(c *Client) *Store {
	return &Store{db: c.db, acquireLockTimeout: c.acquireLockTimeout}
}
