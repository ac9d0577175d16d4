package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lichess-org/deepq/pkg/broker"
	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/events"
	"github.com/lichess-org/deepq/pkg/ingestion"
	"github.com/lichess-org/deepq/pkg/models"
	"github.com/lichess-org/deepq/pkg/sink"
	"github.com/lichess-org/deepq/test/util"
)

// S1: a single-game review request, end to end. Ingest creates the
// report and job, a worker acquires and submits full analysis, and the
// aggregator ships exactly one payload to the downstream receiver.
func TestEndToEndSingleGameReportShipsOnce(t *testing.T) {
	db := util.SetupTestDatabase(t)
	store := database.NewStore(database.NewClientFromDB(db))
	bus := events.NewBus()
	b := broker.New(store, bus)
	sk := sink.New(store, bus)

	var mu sync.Mutex
	var received []ReportPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload ReportPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		mu.Lock()
		received = append(received, payload)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	agg := New(store, bus, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agg.Run(ctx)

	pipeline := ingestion.NewPipeline(store)
	require.NoError(t, pipeline.Ingest(ctx, ingestion.ReviewRequest{
		Origin: models.OriginRandom,
		User:   models.UserId("alice"),
		Games: []ingestion.GameInput{
			{ID: models.GameId("game-e2e"), White: userIDPtr("alice"), Black: userIDPtr("bob"), Moves: []string{"e4", "e5"}},
		},
	}))

	worker := &models.ApiUser{
		ID:          uuid.NewString(),
		Key:         uuid.NewString(),
		Name:        "e2e-worker",
		Permissions: []models.AnalysisKind{models.Deep},
	}
	require.NoError(t, store.InsertApiUser(ctx, worker))

	view, err := b.Acquire(ctx, worker)
	require.NoError(t, err)
	require.Equal(t, models.GameId("game-e2e"), view.GameID)
	require.Len(t, view.Moves, 2)

	plies := []*models.PlyAnalysis{
		bestPly(10),
		bestPly(-5),
	}
	require.NoError(t, sk.Submit(ctx, worker, view.JobID, sink.Submission{Plies: plies}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	payload := received[0]
	require.Equal(t, "alice", payload.PlayerID)
	require.Len(t, payload.Games, 1)
	game := payload.Games[0]
	require.Equal(t, "game-e2e", game.ID)
	require.True(t, game.Analysed)
	require.Len(t, game.Analysis, 2)
	require.Equal(t, 10, *game.Analysis[0].Cp)
	// Odd-indexed ply is sign-flipped to White's perspective.
	require.Equal(t, 5, *game.Analysis[1].Cp)

	report, err := store.FindReportByID(ctx, *mustReportID(t, ctx, store, view.JobID))
	require.NoError(t, err)
	require.True(t, report.SentDownstream)
}

func userIDPtr(s string) *models.UserId {
	id := models.NormalizeUserId(s)
	return &id
}

func mustReportID(t *testing.T, ctx context.Context, store *database.Store, jobID string) *string {
	t.Helper()
	job, err := store.FindJobByID(ctx, jobID)
	require.NoError(t, err)
	require.NotNil(t, job.ReportID)
	return job.ReportID
}
