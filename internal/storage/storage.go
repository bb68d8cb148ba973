// Package storage persists the prediction engine state. Every backend
// loads and saves the whole aggregate as one JSON document.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Alias1177/SignalBot/models"
)

// Backend names accepted by Open
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// Backends lists every supported backend
var Backends = []string{BackendFile, BackendMemory, BackendPostgres, BackendSQLite, BackendRedis}

// Store is a state store that holds resources
type Store interface {
	models.StateStore
	io.Closer
}

// Options selects and configures a backend
type Options struct {
	Backend string

	FilePath string

	Postgres PostgresParams
	SQLite   string
	StateKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// Open creates the store for opts.Backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return NewFileStore(opts.FilePath), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.Postgres, opts.StateKey)
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.SQLite, opts.StateKey)
	case BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Key:      opts.RedisKey,
		})
	default:
		return nil, fmt.Errorf("unknown state backend %q", opts.Backend)
	}
}

func encodeState(state models.EngineState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, models.Fail(models.ErrStoreIO, "encode state", err)
	}
	return data, nil
}

// decodeState treats an empty document as a fresh state
func decodeState(data []byte) (models.EngineState, error) {
	var state models.EngineState
	if len(strings.TrimSpace(string(data))) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return models.EngineState{}, models.Fail(models.ErrStoreIO, "decode state", err)
	}
	return state, nil
}
