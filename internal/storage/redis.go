package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/models"
)

// DefaultRedisKey holds the state document when no key is configured
const DefaultRedisKey = "wingo:state"

// RedisOptions configures the redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps the state document under a single key
type RedisStore struct {
	client *redis.Client
	key    string
	logger zerolog.Logger
}

// NewRedisStore connects to redis and checks the connection
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Key == "" {
		opts.Key = DefaultRedisKey
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, models.Fail(models.ErrStoreIO, "ping redis", err)
	}
	return &RedisStore{
		client: rdb,
		key:    opts.Key,
		logger: log.With().Str("component", "redis_store").Str("key", opts.Key).Logger(),
	}, nil
}

// Load reads the state key, a missing key yields a fresh state
func (s *RedisStore) Load(ctx context.Context) (models.EngineState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.EngineState{}, nil
		}
		return models.EngineState{}, models.Fail(models.ErrStoreIO, "load state", err)
	}
	return decodeState(data)
}

// Save overwrites the state key, SET replaces the value atomically
func (s *RedisStore) Save(ctx context.Context, state models.EngineState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		s.logger.Error().Err(err).Msg("Redis SET failed")
		return models.Fail(models.ErrStoreIO, "save state", err)
	}
	return nil
}

// Close closes the redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
