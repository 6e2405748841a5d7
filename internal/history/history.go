// Package history keeps the per-conversation context log the persona feeds
// back into its prompts. The whole store is one JSON document on disk mapping
// conversation key to log text; it is loaded once at startup and rewritten
// after every appended turn.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Store struct {
	mu     sync.Mutex
	path   string
	logs   map[string]string
	logger *slog.Logger
}

// Load reads the persisted store. A missing file is an empty store; a corrupt
// file is logged and degrades to an empty store rather than failing startup.
func Load(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	store := &Store{
		path:   path,
		logs:   map[string]string{},
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("history load failed", "path", path, "error", err)
		}
		return store
	}
	if err := json.Unmarshal(data, &store.logs); err != nil {
		logger.Error("history file malformed, starting empty", "path", path, "error", err)
		store.logs = map[string]string{}
	}
	return store
}

// Get returns the log for key, empty when the conversation is new.
func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs[key]
}

// Append concatenates turn onto the log for key, then drops whole leading
// lines until the log fits maxChars. A single line longer than maxChars is
// left intact rather than cut mid-line.
func (s *Store) Append(key, turn string, maxChars int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.logs[key] + turn
	for maxChars > 0 && len(updated) > maxChars {
		lineEnd := strings.Index(updated, "\n")
		if lineEnd < 0 {
			break
		}
		updated = updated[lineEnd+1:]
	}
	s.logs[key] = updated
}

// Save writes the full store as a temp file and renames it into place so a
// concurrent loader never observes a half-written document. Failures are
// returned for the caller to log; in-memory state stays ahead of disk.
func (s *Store) Save() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.logs, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create history temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close history temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the mapping for tests and diagnostics.
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]string, len(s.logs))
	for key, log := range s.logs {
		copied[key] = log
	}
	return copied
}
