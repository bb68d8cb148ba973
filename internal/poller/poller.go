// Package poller observes the feed in the background so pending
// predictions settle without anyone asking for a live result.
package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/internal/engine"
	"github.com/Alias1177/SignalBot/internal/metrics"
	"github.com/Alias1177/SignalBot/models"
)

// Observer is the engine operation the poller drives
type Observer interface {
	ObserveAndResolve(ctx context.Context) (engine.Observation, error)
}

// ResolvedFunc is called after a prediction settles
type ResolvedFunc func(ctx context.Context, pred models.Prediction)

// Poller calls ObserveAndResolve on a fixed interval
type Poller struct {
	observer   Observer
	interval   time.Duration
	onResolved ResolvedFunc
	logger     zerolog.Logger
}

// New creates a poller. onResolved may be nil.
func New(observer Observer, interval time.Duration, onResolved ResolvedFunc) *Poller {
	return &Poller{
		observer:   observer,
		interval:   interval,
		onResolved: onResolved,
		logger:     log.With().Str("component", "poller").Logger(),
	}
}

// Run ticks until ctx is cancelled
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Msg("Poller started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one observe cycle. Failures are logged and retried on the
// next tick.
func (p *Poller) Tick(ctx context.Context) {
	obs, err := p.observer.ObserveAndResolve(ctx)
	switch {
	case err != nil:
		metrics.PollerTicks.WithLabelValues(metrics.TickError).Inc()
		p.logger.Warn().Err(err).Msg("Observe cycle failed")
		return
	case obs.Resolved != nil:
		metrics.PollerTicks.WithLabelValues(metrics.TickResolved).Inc()
	case obs.NewRound:
		metrics.PollerTicks.WithLabelValues(metrics.TickNewRound).Inc()
	default:
		metrics.PollerTicks.WithLabelValues(metrics.TickUnchanged).Inc()
		return
	}

	p.logger.Debug().Str("issue", obs.Outcome.IssueID).Bool("resolved", obs.Resolved != nil).Msg("New round observed")
	if obs.Resolved != nil && p.onResolved != nil {
		p.onResolved(ctx, *obs.Resolved)
	}
}
