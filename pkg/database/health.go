package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lichess-org/deepq/pkg/models"
)

// QueueDepth is the broker's own backlog signal: how many jobs of each
// analysis kind are sitting unclaimed. A generic connection-pool health
// check can't tell an operator whether fishnet workers have stopped
// showing up; this can.
type QueueDepth struct {
	Kind   models.AnalysisKind `json:"kind"`
	Queued uint64              `json:"queued"`
}

// HealthStatus reports database reachability, pool utilization, and the
// broker's queue backlog by analysis kind.
type HealthStatus struct {
	Status          string        `json:"status"`
	ResponseTime    time.Duration `json:"response_time_ms"`
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration_ms"`
	MaxOpenConns    int           `json:"max_open_conns"`
	Queues          []QueueDepth  `json:"queues,omitempty"`
}

var healthCheckKinds = []models.AnalysisKind{models.UserAnalysis, models.SystemAnalysis, models.Deep}

// Health pings the pool, reports its utilization, and — given a Store —
// appends the current unclaimed-job count per analysis kind, so a flat
// "healthy" reading can't hide a broker nobody is draining.
func Health(ctx context.Context, db *sql.DB, store *Store) (*HealthStatus, error) {
	start := time.Now()

	if err := db.PingContext(ctx); err != nil {
		return &HealthStatus{
			Status:       "unhealthy",
			ResponseTime: time.Since(start),
		}, err
	}

	stats := db.Stats()
	status := &HealthStatus{
		Status:          "healthy",
		ResponseTime:    time.Since(start),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration,
		MaxOpenConns:    stats.MaxOpenConnections,
	}

	if store == nil {
		return status, nil
	}

	queues := make([]QueueDepth, 0, len(healthCheckKinds))
	for _, kind := range healthCheckKinds {
		n, err := store.QueuedCount(ctx, kind)
		if err != nil {
			return status, fmt.Errorf("database: health: queue depth for %s: %w", kind, err)
		}
		queues = append(queues, QueueDepth{Kind: kind, Queued: n})
	}
	status.Queues = queues
	return status, nil
}
