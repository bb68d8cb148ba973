package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/models"
)

// DefaultStateKey is the row id used when none is configured
const DefaultStateKey = "default"

// PostgresParams holds PostgreSQL connection parameters
type PostgresParams struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns URL when set, otherwise a key/value connection string
func (p PostgresParams) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, sslMode,
	)
}

type dialect struct {
	name        string
	createTable string
	upsert      string
	selectDoc   string
}

var postgresDialect = dialect{
	name: "postgres",
	createTable: `
		CREATE TABLE IF NOT EXISTS engine_state (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
	upsert: `
		INSERT INTO engine_state (id, doc, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET
			doc = EXCLUDED.doc,
			updated_at = EXCLUDED.updated_at`,
	selectDoc: `SELECT doc FROM engine_state WHERE id = $1`,
}

var sqliteDialect = dialect{
	name: "sqlite",
	createTable: `
		CREATE TABLE IF NOT EXISTS engine_state (
			id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	upsert: `
		INSERT INTO engine_state (id, doc, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
	selectDoc: `SELECT doc FROM engine_state WHERE id = ?`,
}

// SQLStore keeps the state document in a single table row
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	key     string
	logger  zerolog.Logger
}

// NewPostgresStore connects to PostgreSQL and creates the table
func NewPostgresStore(ctx context.Context, params PostgresParams, key string) (*SQLStore, error) {
	db, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, models.Fail(models.ErrStoreIO, "open postgres", err)
	}
	return newSQLStore(ctx, db, postgresDialect, key)
}

// NewSQLiteStore opens the SQLite file at path and creates the table
func NewSQLiteStore(ctx context.Context, path string, key string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, models.Fail(models.ErrStoreIO, "open sqlite", err)
	}
	// one writer at a time keeps SQLite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sqliteDialect, key)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, key string) (*SQLStore, error) {
	if key == "" {
		key = DefaultStateKey
	}

	// Check connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, models.Fail(models.ErrStoreIO, "ping "+d.name, err)
	}

	// Create tables if they don't exist
	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		_ = db.Close()
		return nil, models.Fail(models.ErrStoreIO, "create tables", err)
	}

	return &SQLStore{
		db:      db,
		dialect: d,
		key:     key,
		logger:  log.With().Str("component", d.name+"_store").Str("key", key).Logger(),
	}, nil
}

// Load reads the state row, a missing row yields a fresh state
func (s *SQLStore) Load(ctx context.Context) (models.EngineState, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, s.dialect.selectDoc, s.key).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.EngineState{}, nil
		}
		return models.EngineState{}, models.Fail(models.ErrStoreIO, "load state", err)
	}
	return decodeState(doc)
}

// Save upserts the state row in one statement
func (s *SQLStore) Save(ctx context.Context, state models.EngineState) error {
	doc, err := encodeState(state)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.dialect.upsert, s.key, string(doc), models.ToMillis(time.Now()))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to save state")
		return models.Fail(models.ErrStoreIO, "save state", err)
	}
	return nil
}

// Close closes the database handle
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
