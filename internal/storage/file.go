package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/models"
)

// DefaultStateFile is used when no path is configured
const DefaultStateFile = "state.json"

// FileStore keeps the state in a JSON file. Writes go to a temp file in
// the same directory that is synced and renamed over the target.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore creates a file backed store
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultStateFile
	}
	return &FileStore{
		path:   path,
		logger: log.With().Str("component", "file_store").Str("path", path).Logger(),
	}
}

// Load reads the state, a missing file yields a fresh state
func (s *FileStore) Load(ctx context.Context) (models.EngineState, error) {
	if err := ctx.Err(); err != nil {
		return models.EngineState{}, models.Fail(models.ErrStoreIO, "load state", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug().Msg("State file not found, starting fresh")
			return models.EngineState{}, nil
		}
		return models.EngineState{}, models.Fail(models.ErrStoreIO, "load state", err)
	}
	return decodeState(data)
}

// Save atomically replaces the state file
func (s *FileStore) Save(ctx context.Context, state models.EngineState) error {
	if err := ctx.Err(); err != nil {
		return models.Fail(models.ErrStoreIO, "save state", err)
	}
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save state")
		return models.Fail(models.ErrStoreIO, "save state", err)
	}
	return nil
}

// Close implements io.Closer
func (s *FileStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
