// Package seed implements the insight seeding path: it submits one
// standalone test build per untested revision of a channel and reports the
// results of earlier submissions. Seeding state lives in a local JSON file;
// the promotion-gating reconciliation never reads it and recomputes test
// status live instead.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Record is one submitted seed build, keyed by the primary charm's revision.
type Record struct {
	BuildUUID string    `json:"build_uuid"`
	Channel   string    `json:"channel"`
	Base      string    `json:"base"`
	Arch      string    `json:"arch"`
	CreatedAt time.Time `json:"created_at"`
}

// State maps a primary charm revision to its submitted build.
type State map[string]Record

// Store persists the seeding state as a JSON file.
type Store struct {
	path string
	log  zerolog.Logger
}

// NewStore returns a store backed by the file at path.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log.With().Str("component", "seed").Logger()}
}

// Load reads the state file. A missing, empty or corrupt file yields an
// empty state; the seeding path must keep working after a bad write, at
// worst re-submitting a build.
func (s *Store) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.Info().Str("path", s.path).Msg("no state file found")
		return State{}
	}
	if len(data) == 0 {
		s.log.Info().Str("path", s.path).Msg("state file is empty")
		return State{}
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.log.Warn().Str("path", s.path).Msg("state file contains invalid JSON, defaulting to empty")
		return State{}
	}
	return state
}

// Save writes the state atomically via a temp file and rename, so an
// interrupted write never leaves a truncated state file behind.
func (s *Store) Save(state State) error {
	data, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode seed state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".seed-state-*")
	if err != nil {
		return fmt.Errorf("failed to create seed state temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write seed state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close seed state temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace seed state file: %w", err)
	}
	return nil
}
