package broker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/events"
	"github.com/lichess-org/deepq/pkg/ingestion"
	"github.com/lichess-org/deepq/pkg/models"
	"github.com/lichess-org/deepq/test/util"
)

func newTestBroker(t *testing.T) (*Broker, *database.Store, *events.Bus) {
	t.Helper()
	db := util.SetupTestDatabase(t)
	store := database.NewStore(database.NewClientFromDB(db))
	bus := events.NewBus()
	return New(store, bus), store, bus
}

func mintWorker(t *testing.T, store *database.Store, kinds ...models.AnalysisKind) *models.ApiUser {
	t.Helper()
	u := &models.ApiUser{
		ID:          uuid.NewString(),
		Key:         uuid.NewString(),
		Name:        "worker-" + uuid.NewString()[:8],
		Permissions: kinds,
	}
	require.NoError(t, store.InsertApiUser(context.Background(), u))
	return u
}

func ingestReview(t *testing.T, store *database.Store, origin models.Origin, gameID string) {
	t.Helper()
	p := ingestion.NewPipeline(store)
	req := ingestion.ReviewRequest{
		Origin: origin,
		User:   models.UserId("alice"),
		Games: []ingestion.GameInput{
			{ID: models.GameId(gameID), Moves: []string{"e4", "e5", "Nf3", "Nc6"}},
		},
	}
	require.NoError(t, p.Ingest(context.Background(), req))
}

// S2: a moderator-origin job outranks a random-origin one regardless of
// insertion order, so the higher-precedence report is claimed first.
func TestAcquirePrefersHigherPrecedence(t *testing.T) {
	b, store, _ := newTestBroker(t)
	ctx := context.Background()

	ingestReview(t, store, models.OriginRandom, "game-random")
	ingestReview(t, store, models.OriginModerator, "game-mod")

	worker := mintWorker(t, store, models.Deep)
	view, err := b.Acquire(ctx, worker)
	require.NoError(t, err)
	require.Equal(t, models.GameId("game-mod"), view.GameID)
}

// S3: aborting a job you don't own is a silent no-op; the job remains
// claimed by its actual owner.
func TestAbortByForeignUserIsNoop(t *testing.T) {
	b, store, _ := newTestBroker(t)
	ctx := context.Background()

	ingestReview(t, store, models.OriginRandom, "game-1")
	owner := mintWorker(t, store, models.Deep)
	view, err := b.Acquire(ctx, owner)
	require.NoError(t, err)

	stranger := mintWorker(t, store, models.Deep)
	require.NoError(t, b.Abort(ctx, stranger, view.JobID))

	job, err := store.FindJobByIDAndOwner(ctx, view.JobID, owner.Key)
	require.NoError(t, err)
	require.Equal(t, view.JobID, job.ID)
}

// S4: if a job's underlying game has vanished out-of-band, Acquire
// deletes the orphaned job and reports no job available rather than
// surfacing a broken view to the worker.
func TestAcquireDeletesJobWithMissingGame(t *testing.T) {
	b, store, _ := newTestBroker(t)
	ctx := context.Background()

	ingestReview(t, store, models.OriginRandom, "game-orphan")
	job := &models.Job{
		ID:          uuid.NewString(),
		GameID:      models.GameId("does-not-exist"),
		Kind:        models.Deep,
		Precedence:  models.OriginModerator.Precedence(),
		LastUpdated: time.Now(),
	}
	require.NoError(t, store.InsertJob(ctx, job))

	worker := mintWorker(t, store, models.Deep)
	_, err := b.Acquire(ctx, worker)
	require.ErrorIs(t, err, ErrNoJobAvailable)

	_, err = store.FindJobByID(ctx, job.ID)
	require.ErrorIs(t, err, database.ErrNotFound)
}

// A worker lacking the job's kind permission never sees it.
func TestAcquireRespectsPermissions(t *testing.T) {
	b, store, _ := newTestBroker(t)
	ctx := context.Background()

	ingestReview(t, store, models.OriginRandom, "game-perm")
	worker := mintWorker(t, store, models.UserAnalysis)
	_, err := b.Acquire(ctx, worker)
	require.ErrorIs(t, err, ErrNoJobAvailable)
}
