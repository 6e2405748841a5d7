// Package watcher reloads the personality file when it changes on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

type Service struct {
	path     string
	logger   *slog.Logger
	onChange func(context.Context, string)
	watcher  *fsnotify.Watcher
}

// New watches the file at path. onChange receives the path on every write.
// The parent directory is watched rather than the file itself, so editors
// that replace the file on save still trigger a reload.
func New(path string, logger *slog.Logger, onChange func(context.Context, string)) (*Service, error) {
	fileWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		path:     filepath.Clean(path),
		logger:   logger.With("component", "watcher"),
		onChange: onChange,
		watcher:  fileWatcher,
	}, nil
}

func (s *Service) Name() string {
	return "watcher"
}

func (s *Service) Start(ctx context.Context) error {
	defer s.watcher.Close()

	if err := s.watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch directory %s: %w", filepath.Dir(s.path), err)
	}
	s.logger.Info("personality watcher started", "path", s.path)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("personality watcher stopped")
			return nil
		case event := <-s.watcher.Events:
			s.handleEvent(ctx, event)
		case err := <-s.watcher.Errors:
			if err != nil {
				s.logger.Error("file watcher error", "error", err)
			}
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != s.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	s.logger.Info("personality changed", "path", event.Name, "op", event.Op.String())
	s.onChange(ctx, event.Name)
}
