package models

import "context"

// RoundFeed reads concluded rounds from the result feed
type RoundFeed interface {
	FetchLatest(ctx context.Context) (RoundOutcome, error)
}

// StateStore loads and saves the whole engine state
type StateStore interface {
	Load(ctx context.Context) (EngineState, error)
	Save(ctx context.Context, state EngineState) error
}
