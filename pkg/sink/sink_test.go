package sink_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/events"
	"github.com/lichess-org/deepq/pkg/models"
	"github.com/lichess-org/deepq/pkg/sink"
	"github.com/lichess-org/deepq/test/util"
)

func newTestSink(t *testing.T) (*sink.Sink, *database.Store, *events.Bus) {
	t.Helper()
	db := util.SetupTestDatabase(t)
	store := database.NewStore(database.NewClientFromDB(db))
	bus := events.NewBus()
	return sink.New(store, bus), store, bus
}

func setupAcquiredJob(t *testing.T, store *database.Store, ownerKey string) *models.Job {
	t.Helper()
	ctx := context.Background()
	game := &models.Game{ID: models.GameId("sink-game"), Moves: []string{"e2e4", "e7e5"}}
	require.NoError(t, store.UpsertGame(ctx, game))

	job := &models.Job{
		ID: uuid.NewString(), GameID: game.ID, Kind: models.Deep,
		Precedence: 1, LastUpdated: time.Now(),
	}
	require.NoError(t, store.InsertJob(ctx, job))

	acquired, err := store.AcquireJob(ctx, ownerKey, []models.AnalysisKind{models.Deep})
	require.NoError(t, err)
	return acquired
}

func TestSubmitRejectsForeignJob(t *testing.T) {
	sk, store, _ := newTestSink(t)
	job := setupAcquiredJob(t, store, "owner-key")

	stranger := &models.ApiUser{ID: uuid.NewString(), Key: "stranger-key", Name: "stranger"}
	err := sk.Submit(context.Background(), stranger, job.ID, sink.Submission{
		Plies: []*models.PlyAnalysis{},
	})
	assert.ErrorIs(t, err, sink.ErrJobNotFound)
}

func TestSubmitCompleteMarksJobAndPublishes(t *testing.T) {
	sk, store, bus := newTestSink(t)
	job := setupAcquiredJob(t, store, "owner-key")

	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	owner := &models.ApiUser{ID: uuid.NewString(), Key: "owner-key", Name: "owner"}
	p1 := models.NewBestPly([]string{"e2e4"}, 20, models.CpScore(10), 100, 1000)
	p2 := models.NewBestPly([]string{"e7e5"}, 20, models.CpScore(-5), 100, 1000)
	require.NoError(t, sk.Submit(context.Background(), owner, job.ID, sink.Submission{
		Plies: []*models.PlyAnalysis{&p1, &p2},
	}))

	stored, err := store.FindJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsComplete)

	select {
	case evt := <-sub.C:
		assert.Equal(t, events.JobCompleted, evt.Type)
		assert.Equal(t, job.ID, evt.JobID)
	case <-time.After(time.Second):
		t.Fatal("expected JobCompleted event")
	}
}

func TestSubmitIncompleteDoesNotMarkJobComplete(t *testing.T) {
	sk, store, _ := newTestSink(t)
	job := setupAcquiredJob(t, store, "owner-key")

	owner := &models.ApiUser{ID: uuid.NewString(), Key: "owner-key", Name: "owner"}
	skipped := models.NewSkippedPly()
	require.NoError(t, sk.Submit(context.Background(), owner, job.ID, sink.Submission{
		Plies: []*models.PlyAnalysis{&skipped, nil},
	}))

	stored, err := store.FindJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsComplete)
}

func TestSubmitResubmissionOverwritesWholesale(t *testing.T) {
	sk, store, _ := newTestSink(t)
	job := setupAcquiredJob(t, store, "owner-key")
	owner := &models.ApiUser{ID: uuid.NewString(), Key: "owner-key", Name: "owner"}

	first := models.NewBestPly([]string{"e2e4"}, 10, models.CpScore(1), 50, 500)
	require.NoError(t, sk.Submit(context.Background(), owner, job.ID, sink.Submission{
		Plies: []*models.PlyAnalysis{&first},
	}))

	second := models.NewBestPly([]string{"d2d4"}, 20, models.CpScore(99), 100, 1000)
	require.NoError(t, sk.Submit(context.Background(), owner, job.ID, sink.Submission{
		Plies: []*models.PlyAnalysis{&second},
	}))

	analysis, err := store.FindGameAnalysisByJobID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, analysis.Plies, 1)
	score, ok := analysis.Plies[0].TopScore()
	require.True(t, ok)
	assert.Equal(t, 99, *score.Cp)
}
