// Package scheduler takes dated snapshots of the conversation history file.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const snapshotPrefix = "history-"

var snapshotCronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Service struct {
	historyPath string
	snapshotDir string
	schedule    cron.Schedule
	retainDays  int
	logger      *slog.Logger
	now         func() time.Time
}

// New builds a snapshot service. cronExpr uses the standard five-field form
// or a @descriptor; retainDays bounds how long old snapshots are kept.
func New(historyPath, snapshotDir, cronExpr string, retainDays int, logger *slog.Logger) (*Service, error) {
	expr := strings.Join(strings.Fields(strings.TrimSpace(cronExpr)), " ")
	if expr == "" {
		expr = "@midnight"
	}
	schedule, err := snapshotCronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression: %w", err)
	}
	if retainDays < 1 {
		retainDays = 14
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		historyPath: historyPath,
		snapshotDir: snapshotDir,
		schedule:    schedule,
		retainDays:  retainDays,
		logger:      logger.With("component", "scheduler"),
		now:         time.Now,
	}, nil
}

func (s *Service) Name() string {
	return "scheduler"
}

func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("snapshot scheduler started", "retain_days", s.retainDays)
	for {
		next := s.schedule.Next(s.now())
		select {
		case <-ctx.Done():
			s.logger.Info("snapshot scheduler stopped")
			return nil
		case <-time.After(time.Until(next)):
		}
		if err := s.SnapshotOnce(); err != nil {
			s.logger.Error("history snapshot failed", "error", err)
		}
	}
}

// SnapshotOnce copies the history file to a dated snapshot and prunes
// snapshots past the retention window. Missing history is not an error; there
// is simply nothing to snapshot yet.
func (s *Service) SnapshotOnce() error {
	data, err := os.ReadFile(s.historyPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	name := snapshotPrefix + s.now().Format("2006-01-02") + ".json"
	if err := os.WriteFile(filepath.Join(s.snapshotDir, name), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.Info("history snapshot written", "snapshot", name, "bytes", len(data))
	return s.prune()
}

func (s *Service) prune() error {
	entries, err := os.ReadDir(s.snapshotDir)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	cutoff := s.now().AddDate(0, 0, -s.retainDays)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), ".json")
		day, parseErr := time.Parse("2006-01-02", stamp)
		if parseErr != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(s.snapshotDir, name)); err != nil {
				s.logger.Error("prune snapshot failed", "snapshot", name, "error", err)
				continue
			}
			s.logger.Info("snapshot pruned", "snapshot", name)
		}
	}
	return nil
}
