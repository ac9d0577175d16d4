package database_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/models"
	"github.com/lichess-org/deepq/test/util"
)

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	db := util.SetupTestDatabase(t)
	return database.NewStore(database.NewClientFromDB(db))
}

func insertTestGame(t *testing.T, store *database.Store, id string) *models.Game {
	t.Helper()
	g := &models.Game{ID: models.GameId(id), Moves: []string{"e2e4", "e7e5"}}
	require.NoError(t, store.UpsertGame(context.Background(), g))
	return g
}

func TestUpsertGameIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := insertTestGame(t, store, "game-1")
	// A second upsert with different content is ignored: content is
	// immutable once stored.
	g2 := &models.Game{ID: g.ID, Moves: []string{"d2d4"}}
	require.NoError(t, store.UpsertGame(ctx, g2))

	found, err := store.FindGameByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2e4", "e7e5"}, found.Moves)
}

func TestFindGameByIDMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.FindGameByID(context.Background(), models.GameId("nope"))
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestAcquireJobIsAtomicUnderConcurrency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	insertTestGame(t, store, "game-race")

	const n = 8
	for i := 0; i < n; i++ {
		job := &models.Job{
			ID:          uuid.NewString(),
			GameID:      models.GameId("game-race"),
			Kind:        models.Deep,
			Precedence:  1,
			LastUpdated: time.Now(),
		}
		require.NoError(t, store.InsertJob(ctx, job))
	}

	var wg sync.WaitGroup
	claimed := make(chan string, n*2)
	for i := 0; i < n*2; i++ {
		wg.Add(1)
		ownerKey := uuid.NewString()
		go func(owner string) {
			defer wg.Done()
			job, err := store.AcquireJob(ctx, owner, []models.AnalysisKind{models.Deep})
			if err == nil {
				claimed <- job.ID
			}
		}(ownerKey)
	}
	wg.Wait()
	close(claimed)

	seen := make(map[string]bool)
	count := 0
	for id := range claimed {
		assert.False(t, seen[id], "job %s claimed more than once", id)
		seen[id] = true
		count++
	}
	assert.Equal(t, n, count)
}

func TestAbortJobOnlyReleasesForOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	insertTestGame(t, store, "game-abort")

	job := &models.Job{
		ID:          uuid.NewString(),
		GameID:      models.GameId("game-abort"),
		Kind:        models.Deep,
		Precedence:  1,
		LastUpdated: time.Now(),
	}
	require.NoError(t, store.InsertJob(ctx, job))

	acquired, err := store.AcquireJob(ctx, "owner-a", []models.AnalysisKind{models.Deep})
	require.NoError(t, err)

	released, err := store.AbortJob(ctx, acquired.ID, "owner-b")
	require.NoError(t, err)
	assert.False(t, released)

	released, err = store.AbortJob(ctx, acquired.ID, "owner-a")
	require.NoError(t, err)
	assert.True(t, released)

	reacquired, err := store.AcquireJob(ctx, "owner-c", []models.AnalysisKind{models.Deep})
	require.NoError(t, err)
	assert.Equal(t, acquired.ID, reacquired.ID)
}

// OldestQueued preserves the source behavior's naming bug: it sorts
// queued jobs by last_updated DESCENDING, so it returns the NEWEST
// queued job of the kind, not the oldest.
func TestOldestQueuedActuallyReturnsNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	insertTestGame(t, store, "game-oldest")

	older := &models.Job{
		ID: uuid.NewString(), GameID: models.GameId("game-oldest"),
		Kind: models.SystemAnalysis, Precedence: 1,
		LastUpdated: time.Now().Add(-time.Hour),
	}
	newer := &models.Job{
		ID: uuid.NewString(), GameID: models.GameId("game-oldest"),
		Kind: models.SystemAnalysis, Precedence: 1,
		LastUpdated: time.Now(),
	}
	require.NoError(t, store.InsertJob(ctx, older))
	require.NoError(t, store.InsertJob(ctx, newer))

	got, err := store.OldestQueued(ctx, models.SystemAnalysis)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
}

func TestCompareAndSwapSentDownstreamWinsOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	report := &models.Report{
		ID: uuid.NewString(), User: models.UserId("dave"),
		RequestedAt: time.Now(), Origin: models.OriginRandom,
		Type: models.ReportIrwin, GameIDs: []models.GameId{"g1"},
	}
	require.NoError(t, store.InsertReport(ctx, report))

	won, err := store.CompareAndSwapSentDownstream(ctx, report.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, won)

	won, err = store.CompareAndSwapSentDownstream(ctx, report.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, won)
}

func TestCountJobsForReport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	insertTestGame(t, store, "game-count")

	report := &models.Report{
		ID: uuid.NewString(), User: models.UserId("erin"),
		RequestedAt: time.Now(), Origin: models.OriginRandom,
		Type: models.ReportIrwin, GameIDs: []models.GameId{"game-count"},
	}
	require.NoError(t, store.InsertReport(ctx, report))

	job := &models.Job{
		ID: uuid.NewString(), GameID: models.GameId("game-count"),
		ReportID: &report.ID, Kind: models.Deep, Precedence: 1,
		LastUpdated: time.Now(),
	}
	require.NoError(t, store.InsertJob(ctx, job))

	complete, total, err := store.CountJobsForReport(ctx, report.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, complete)
	assert.EqualValues(t, 1, total)

	require.NoError(t, store.MarkJobComplete(ctx, job.ID))
	complete, total, err = store.CountJobsForReport(ctx, report.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, complete)
	assert.EqualValues(t, 1, total)
}
