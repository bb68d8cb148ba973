package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SignalBot/internal/classify"
	"github.com/Alias1177/SignalBot/internal/storage"
	"github.com/Alias1177/SignalBot/models"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// fakeFeed returns the configured outcome or error
type fakeFeed struct {
	mu      sync.Mutex
	outcome models.RoundOutcome
	err     error
	calls   int
}

func (f *fakeFeed) FetchLatest(ctx context.Context) (models.RoundOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.RoundOutcome{}, f.err
	}
	return f.outcome, nil
}

func (f *fakeFeed) set(issue string, number int) {
	color, size, err := classify.Classify(number)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = nil
	f.outcome = models.RoundOutcome{IssueID: issue, Number: number, Color: color, Size: size, ObservedAt: testNow}
}

func (f *fakeFeed) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// flakyStore wraps a memory store and fails on demand
type flakyStore struct {
	*storage.MemoryStore
	failLoad bool
	failSave bool
}

func (s *flakyStore) Load(ctx context.Context) (models.EngineState, error) {
	if s.failLoad {
		return models.EngineState{}, models.Fail(models.ErrStoreIO, "load state", errors.New("disk gone"))
	}
	return s.MemoryStore.Load(ctx)
}

func (s *flakyStore) Save(ctx context.Context, state models.EngineState) error {
	if s.failSave {
		return models.Fail(models.ErrStoreIO, "save state", errors.New("disk full"))
	}
	return s.MemoryStore.Save(ctx, state)
}

func newTestEngine() (*Engine, *fakeFeed, *flakyStore) {
	feed := &fakeFeed{}
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	var seq atomic.Int64
	eng := New(feed, store,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string {
			return fmt.Sprintf("pred-%d", seq.Add(1))
		}),
	)
	return eng, feed, store
}

func seedState(t *testing.T, store models.StateStore, round string, pred *models.Prediction) {
	t.Helper()
	state := models.EngineState{LastPrediction: pred}
	if round != "" {
		state.RoundChecked = &round
	}
	require.NoError(t, store.Save(context.Background(), state))
}

func TestObserveFirstRoundWithoutPrediction(t *testing.T) {
	eng, feed, store := newTestEngine()
	feed.set("100", 4)

	obs, err := eng.ObserveAndResolve(context.Background())
	require.NoError(t, err)

	assert.True(t, obs.NewRound)
	assert.Nil(t, obs.Resolved)
	assert.Equal(t, "100", obs.Outcome.IssueID)

	state, _ := store.Load(context.Background())
	require.NotNil(t, state.RoundChecked)
	assert.Equal(t, "100", *state.RoundChecked)
	assert.Equal(t, models.Statistics{}, state.History)
}

func TestObserveResolvesFullWin(t *testing.T) {
	eng, feed, store := newTestEngine()
	seedState(t, store, "100", &models.Prediction{
		ID: "p", BasedOnIssueID: "100", TargetIssueID: "101",
		Number: 7, Color: models.ColorGreen, Size: models.SizeBig, Status: models.StatusPending,
	})
	feed.set("101", 7)

	obs, err := eng.ObserveAndResolve(context.Background())
	require.NoError(t, err)
	require.NotNil(t, obs.Resolved)

	assert.Equal(t, models.StatusWon, obs.Resolved.Status)
	res := obs.Resolved.Resolution
	require.NotNil(t, res)
	assert.True(t, res.NumberWin)
	assert.True(t, res.ColorWin)
	assert.True(t, res.SizeWin)
	assert.Equal(t, "101", res.IssueID)
	assert.Equal(t, models.ToMillis(testNow), res.ResolvedAt)

	stats, err := eng.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Statistics{
		Size:   models.Counter{Win: 1},
		Color:  models.Counter{Win: 1},
		Number: models.Counter{Win: 1},
	}, stats)
}

func TestObserveResolvesFullLoss(t *testing.T) {
	eng, feed, store := newTestEngine()
	seedState(t, store, "100", &models.Prediction{
		BasedOnIssueID: "100", Number: 3, Color: models.ColorGreen, Size: models.SizeSmall, Status: models.StatusPending,
	})
	feed.set("101", 8)

	obs, err := eng.ObserveAndResolve(context.Background())
	require.NoError(t, err)
	require.NotNil(t, obs.Resolved)

	assert.Equal(t, models.StatusLost, obs.Resolved.Status)
	assert.False(t, obs.Resolved.Resolution.NumberWin)
	assert.False(t, obs.Resolved.Resolution.ColorWin)
	assert.False(t, obs.Resolved.Resolution.SizeWin)

	stats, _ := eng.Statistics(context.Background())
	assert.Equal(t, models.Statistics{
		Size:   models.Counter{Loss: 1},
		Color:  models.Counter{Loss: 1},
		Number: models.Counter{Loss: 1},
	}, stats)
}

func TestObserveCountsDimensionsIndependently(t *testing.T) {
	eng, feed, store := newTestEngine()
	// predicted 2 (RED, SMALL) vs actual 4 (RED, SMALL): only number misses
	seedState(t, store, "100", &models.Prediction{
		BasedOnIssueID: "100", Number: 2, Color: models.ColorRed, Size: models.SizeSmall, Status: models.StatusPending,
	})
	feed.set("101", 4)

	obs, err := eng.ObserveAndResolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusLost, obs.Resolved.Status)

	stats, _ := eng.Statistics(context.Background())
	assert.Equal(t, models.Counter{Loss: 1}, stats.Number)
	assert.Equal(t, models.Counter{Win: 1}, stats.Color)
	assert.Equal(t, models.Counter{Win: 1}, stats.Size)
}

func TestObserveNoPartialVioletCredit(t *testing.T) {
	eng, feed, store := newTestEngine()
	// predicted 0 (RED_VIOLET) vs actual 6 (RED)
	seedState(t, store, "100", &models.Prediction{
		BasedOnIssueID: "100", Number: 0, Color: models.ColorRedViolet, Size: models.SizeSmall, Status: models.StatusPending,
	})
	feed.set("101", 6)

	obs, err := eng.ObserveAndResolve(context.Background())
	require.NoError(t, err)
	assert.False(t, obs.Resolved.Resolution.ColorWin)
}

func TestObserveIsIdempotentForSameRound(t *testing.T) {
	eng, feed, store := newTestEngine()
	seedState(t, store, "100", &models.Prediction{
		BasedOnIssueID: "100", Number: 7, Color: models.ColorGreen, Size: models.SizeBig, Status: models.StatusPending,
	})
	feed.set("101", 7)
	ctx := context.Background()

	_, err := eng.ObserveAndResolve(ctx)
	require.NoError(t, err)
	before, _ := eng.Statistics(ctx)
	saves := store.Saves()

	obs, err := eng.ObserveAndResolve(ctx)
	require.NoError(t, err)
	assert.False(t, obs.NewRound)
	assert.Nil(t, obs.Resolved)

	after, _ := eng.Statistics(ctx)
	assert.Equal(t, before, after)
	assert.Equal(t, saves, store.Saves(), "re-poll must not write")
}

func TestObserveSkipsResolvedPrediction(t *testing.T) {
	eng, feed, store := newTestEngine()
	seedState(t, store, "101", &models.Prediction{
		BasedOnIssueID: "100", Number: 7, Status: models.StatusWon,
		Resolution: &models.Resolution{IssueID: "101", ActualNumber: 7},
	})
	feed.set("102", 7)

	obs, err := eng.ObserveAndResolve(context.Background())
	require.NoError(t, err)
	assert.True(t, obs.NewRound)
	assert.Nil(t, obs.Resolved)

	stats, _ := eng.Statistics(context.Background())
	assert.Equal(t, models.Statistics{}, stats)
}

func TestObserveResolvesPredictionOnNextRound(t *testing.T) {
	eng, feed, store := newTestEngine()
	ctx := context.Background()

	feed.set("99", 1)
	_, err := eng.ObserveAndResolve(ctx)
	require.NoError(t, err)

	// predict from round 100 before it has been observed
	feed.set("100", 2)
	pred, err := eng.Predict(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", pred.BasedOnIssueID)
	assert.Equal(t, 3, pred.Number)

	obs, err := eng.ObserveAndResolve(ctx)
	require.NoError(t, err)
	assert.True(t, obs.NewRound)
	require.NotNil(t, obs.Resolved)
	assert.Equal(t, models.StatusLost, obs.Resolved.Status)
	assert.Equal(t, "100", obs.Resolved.Resolution.IssueID)
	// predicted 3 (GREEN, SMALL) vs actual 2 (RED, SMALL)
	assert.False(t, obs.Resolved.Resolution.NumberWin)
	assert.False(t, obs.Resolved.Resolution.ColorWin)
	assert.True(t, obs.Resolved.Resolution.SizeWin)

	stats, last, err := eng.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Statistics{
		Size:   models.Counter{Win: 1},
		Color:  models.Counter{Loss: 1},
		Number: models.Counter{Loss: 1},
	}, stats)
	require.NotNil(t, last)
	assert.False(t, last.IsPending())

	state, _ := store.Load(ctx)
	assert.Equal(t, "100", *state.RoundChecked)
}

func TestObserveIgnoresOlderRound(t *testing.T) {
	eng, feed, store := newTestEngine()
	seedState(t, store, "101", &models.Prediction{
		BasedOnIssueID: "101", Number: 7, Color: models.ColorGreen, Size: models.SizeBig, Status: models.StatusPending,
	})
	saves := store.Saves()
	feed.set("100", 7)

	obs, err := eng.ObserveAndResolve(context.Background())
	require.NoError(t, err)
	assert.False(t, obs.NewRound)
	assert.Nil(t, obs.Resolved)
	assert.Equal(t, saves, store.Saves())

	state, _ := store.Load(context.Background())
	assert.Equal(t, "101", *state.RoundChecked)
	assert.True(t, state.LastPrediction.IsPending())
}

func TestSnapshotReadsOneState(t *testing.T) {
	eng, _, store := newTestEngine()
	require.NoError(t, store.Save(context.Background(), models.EngineState{
		History:        models.Statistics{Number: models.Counter{Win: 4}},
		LastPrediction: &models.Prediction{ID: "p", Status: models.StatusWon},
	}))

	stats, last, err := eng.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Number.Win)
	require.NotNil(t, last)
	assert.Equal(t, "p", last.ID)

	store.failLoad = true
	_, _, err = eng.Snapshot(context.Background())
	assert.ErrorIs(t, err, models.ErrStoreIO)
}

func TestObserveFeedFailureLeavesStateUntouched(t *testing.T) {
	eng, feed, store := newTestEngine()
	feed.fail(models.Fail(models.ErrFeedUnavailable, "fetch rounds", context.DeadlineExceeded))

	_, err := eng.ObserveAndResolve(context.Background())
	assert.ErrorIs(t, err, models.ErrFeedUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, store.Saves())
}

func TestObserveStoreFailures(t *testing.T) {
	eng, feed, store := newTestEngine()
	seedState(t, store, "100", &models.Prediction{
		BasedOnIssueID: "100", Number: 7, Color: models.ColorGreen, Size: models.SizeBig, Status: models.StatusPending,
	})
	feed.set("101", 7)
	ctx := context.Background()

	store.failSave = true
	_, err := eng.ObserveAndResolve(ctx)
	assert.ErrorIs(t, err, models.ErrStoreIO)

	store.failSave = false
	state, _ := store.Load(ctx)
	assert.Equal(t, "100", *state.RoundChecked)
	assert.True(t, state.LastPrediction.IsPending())
	assert.Equal(t, models.Statistics{}, state.History)

	store.failLoad = true
	_, err = eng.ObserveAndResolve(ctx)
	assert.ErrorIs(t, err, models.ErrStoreIO)
}

func TestPredictDerivesSuccessor(t *testing.T) {
	tests := []struct {
		name   string
		issue  string
		number int
		want   models.Prediction
	}{
		{
			name: "wraps nine to zero", issue: "20261019100010123", number: 9,
			want: models.Prediction{TargetIssueID: "20261019100010124", Number: 0, Color: models.ColorRedViolet, Size: models.SizeSmall},
		},
		{
			name: "four to five", issue: "199", number: 4,
			want: models.Prediction{TargetIssueID: "200", Number: 5, Color: models.ColorGreenViolet, Size: models.SizeBig},
		},
		{
			name: "non numeric issue", issue: "R-77", number: 1,
			want: models.Prediction{TargetIssueID: "R-77_next", Number: 2, Color: models.ColorRed, Size: models.SizeSmall},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, feed, _ := newTestEngine()
			feed.set(tt.issue, tt.number)

			pred, err := eng.Predict(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.want.TargetIssueID, pred.TargetIssueID)
			assert.Equal(t, tt.want.Number, pred.Number)
			assert.Equal(t, tt.want.Color, pred.Color)
			assert.Equal(t, tt.want.Size, pred.Size)
			assert.Equal(t, tt.issue, pred.BasedOnIssueID)
			assert.Equal(t, models.StatusPending, pred.Status)
			assert.Equal(t, "pred-1", pred.ID)
			assert.Equal(t, testNow, pred.CreatedAt())
		})
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	eng, feed, _ := newTestEngine()
	feed.set("50", 9)

	first, err := eng.Predict(context.Background())
	require.NoError(t, err)
	second, err := eng.Predict(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Number, second.Number)
	assert.Equal(t, first.Color, second.Color)
	assert.Equal(t, first.Size, second.Size)
	assert.Equal(t, first.TargetIssueID, second.TargetIssueID)
}

func TestPredictOverwritesPendingPrediction(t *testing.T) {
	eng, feed, _ := newTestEngine()
	ctx := context.Background()

	feed.set("100", 2)
	_, err := eng.ObserveAndResolve(ctx)
	require.NoError(t, err)
	first, err := eng.Predict(ctx) // predicts 3 for 101
	require.NoError(t, err)

	feed.set("101", 5)
	second, err := eng.Predict(ctx) // replaces it before /live, predicts 6 for 102
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	last, _ := eng.LastPrediction(ctx)
	assert.Equal(t, second.ID, last.ID)

	// round 101 would have settled the first prediction, it is gone
	obs, err := eng.ObserveAndResolve(ctx)
	require.NoError(t, err)
	assert.Nil(t, obs.Resolved)

	feed.set("102", 6)
	obs, err = eng.ObserveAndResolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, obs.Resolved)
	assert.Equal(t, second.ID, obs.Resolved.ID)

	stats, _ := eng.Statistics(ctx)
	assert.Equal(t, 1, stats.Number.Total(), "only the surviving prediction is counted")
	assert.Equal(t, 1, stats.Color.Total())
	assert.Equal(t, 1, stats.Size.Total())
}

func TestPredictFailures(t *testing.T) {
	eng, feed, store := newTestEngine()
	ctx := context.Background()

	feed.fail(models.Fail(models.ErrFeedFormat, "parse rounds", errors.New("empty data.list")))
	_, err := eng.Predict(ctx)
	assert.ErrorIs(t, err, models.ErrFeedFormat)
	assert.Equal(t, 0, store.Saves())

	feed.set("1", 1)
	store.failSave = true
	_, err = eng.Predict(ctx)
	assert.ErrorIs(t, err, models.ErrStoreIO)

	store.failSave = false
	last, err := eng.LastPrediction(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestPredictRejectsInvalidOutcome(t *testing.T) {
	eng, feed, store := newTestEngine()
	feed.outcome = models.RoundOutcome{IssueID: "1", Number: 12}

	_, err := eng.Predict(context.Background())
	assert.ErrorIs(t, err, models.ErrInvalidNumber)
	assert.Equal(t, 0, store.Saves())
}

func TestReadsSurfaceStoreErrors(t *testing.T) {
	eng, _, store := newTestEngine()
	store.failLoad = true

	_, err := eng.Statistics(context.Background())
	assert.ErrorIs(t, err, models.ErrStoreIO)
	_, err = eng.LastPrediction(context.Background())
	assert.ErrorIs(t, err, models.ErrStoreIO)
}

func TestConcurrentOperationsAreSerialized(t *testing.T) {
	eng, feed, store := newTestEngine()
	ctx := context.Background()
	feed.set("100", 1)
	_, err := eng.ObserveAndResolve(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = eng.Predict(ctx)
		}()
		go func() {
			defer wg.Done()
			_, _ = eng.ObserveAndResolve(ctx)
		}()
	}
	wg.Wait()

	// round 100 was already observed, so only the predictions write
	assert.Equal(t, 21, store.Saves())
	stats, err := eng.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Statistics{}, stats)
}
