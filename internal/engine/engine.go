// Package engine runs the prediction lifecycle: it derives a prediction
// for the next round from the latest outcome, persists it as pending and
// resolves it once a newer round is observed.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/internal/metrics"
	"github.com/Alias1177/SignalBot/models"
)

// Observation is the result of ObserveAndResolve
type Observation struct {
	Outcome models.RoundOutcome `json:"outcome"`
	// Resolved is the prediction settled by this call, nil otherwise
	Resolved *models.Prediction `json:"resolved"`
	// NewRound is false when the outcome was already processed
	NewRound bool `json:"new_round"`
}

// Engine owns the EngineState. All read-modify-write cycles are
// serialized; feed requests happen outside the lock.
type Engine struct {
	feed   models.RoundFeed
	store  models.StateStore
	mu     sync.Mutex
	now    func() time.Time
	newID  func() string
	logger zerolog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides the prediction id generator
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// New creates an engine reading rounds from feed and state from store
func New(feed models.RoundFeed, store models.StateStore, opts ...Option) *Engine {
	e := &Engine{
		feed:   feed,
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ObserveAndResolve fetches the latest round and, if it has not been
// processed yet, resolves the pending prediction against it.
func (e *Engine) ObserveAndResolve(ctx context.Context) (Observation, error) {
	outcome, err := e.feed.FetchLatest(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Observe aborted, feed failed")
		return Observation{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := e.store.Load(ctx)
	if err != nil {
		return Observation{}, err
	}

	if checked := current.RoundChecked; checked != nil {
		if *checked == outcome.IssueID {
			e.logger.Debug().Str("issue", outcome.IssueID).Msg("Round already processed")
			return Observation{Outcome: outcome}, nil
		}
		// an overlapping call may have fetched an older snapshot
		if IssueBefore(outcome.IssueID, *checked) {
			e.logger.Debug().
				Str("issue", outcome.IssueID).
				Str("round_checked", *checked).
				Msg("Stale round ignored")
			return Observation{Outcome: outcome}, nil
		}
	}

	next := current.Clone()
	var resolved *models.Prediction
	if pred := next.LastPrediction; pred != nil && pred.IsPending() {
		Resolve(&next.History, pred, outcome, e.now())
		resolved = pred
	}
	issue := outcome.IssueID
	next.RoundChecked = &issue

	if err := e.store.Save(ctx, next); err != nil {
		return Observation{}, err
	}

	if resolved != nil {
		recordResolution(resolved)
		e.logger.Info().
			Str("prediction_id", resolved.ID).
			Str("issue", outcome.IssueID).
			Str("status", string(resolved.Status)).
			Bool("number_win", resolved.Resolution.NumberWin).
			Bool("color_win", resolved.Resolution.ColorWin).
			Bool("size_win", resolved.Resolution.SizeWin).
			Msg("Prediction resolved")
		copied := *resolved
		resolved = &copied
	}

	return Observation{Outcome: outcome, Resolved: resolved, NewRound: true}, nil
}

// Predict derives a prediction for the round after the latest one and
// stores it as pending. A still pending prediction is replaced without
// being counted.
func (e *Engine) Predict(ctx context.Context) (models.Prediction, error) {
	outcome, err := e.feed.FetchLatest(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Predict aborted, feed failed")
		return models.Prediction{}, err
	}

	pred, err := Derive(outcome, e.newID(), e.now())
	if err != nil {
		return models.Prediction{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := e.store.Load(ctx)
	if err != nil {
		return models.Prediction{}, err
	}

	next := current.Clone()
	superseded := next.LastPrediction
	next.LastPrediction = &pred

	if err := e.store.Save(ctx, next); err != nil {
		return models.Prediction{}, err
	}

	if superseded != nil && superseded.IsPending() {
		metrics.PredictionsSuperseded.Inc()
		e.logger.Warn().
			Str("prediction_id", superseded.ID).
			Str("target_issue", superseded.TargetIssueID).
			Msg("Pending prediction replaced before resolution")
	}
	metrics.PredictionsCreated.Inc()
	e.logger.Info().
		Str("prediction_id", pred.ID).
		Str("based_on", outcome.IssueID).
		Str("target_issue", pred.TargetIssueID).
		Int("number", pred.Number).
		Msg("Prediction created")

	return pred, nil
}

// Statistics returns the persisted win/loss counters
func (e *Engine) Statistics(ctx context.Context) (models.Statistics, error) {
	state, err := e.store.Load(ctx)
	if err != nil {
		return models.Statistics{}, err
	}
	return state.History, nil
}

// Snapshot returns the counters and the last prediction from a single
// load, so both reflect the same state.
func (e *Engine) Snapshot(ctx context.Context) (models.Statistics, *models.Prediction, error) {
	state, err := e.store.Load(ctx)
	if err != nil {
		return models.Statistics{}, nil, err
	}
	return state.History, state.LastPrediction, nil
}

// LastPrediction returns the current or most recently resolved prediction
func (e *Engine) LastPrediction(ctx context.Context) (*models.Prediction, error) {
	state, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return state.LastPrediction, nil
}

func recordResolution(pred *models.Prediction) {
	metrics.PredictionsResolved.WithLabelValues(string(pred.Status)).Inc()
	metrics.RecordDimension(metrics.DimensionNumber, pred.Resolution.NumberWin)
	metrics.RecordDimension(metrics.DimensionColor, pred.Resolution.ColorWin)
	metrics.RecordDimension(metrics.DimensionSize, pred.Resolution.SizeWin)
}
