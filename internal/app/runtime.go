// Package app wires the configured components into one runnable bot.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seagata/hinabot/internal/brief"
	"github.com/seagata/hinabot/internal/config"
	"github.com/seagata/hinabot/internal/connectors"
	"github.com/seagata/hinabot/internal/connectors/telegram"
	"github.com/seagata/hinabot/internal/dispatch"
	"github.com/seagata/hinabot/internal/history"
	"github.com/seagata/hinabot/internal/llm/gemini"
	"github.com/seagata/hinabot/internal/notify"
	"github.com/seagata/hinabot/internal/persona"
	"github.com/seagata/hinabot/internal/scheduler"
	"github.com/seagata/hinabot/internal/store"
	"github.com/seagata/hinabot/internal/transcript"
	"github.com/seagata/hinabot/internal/watcher"
)

type Runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	watcher    *watcher.Service
	scheduler  *scheduler.Service
	connectors []connectors.Connector
}

func New(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	sqlStore, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		sqlStore.Close()
		return nil, err
	}

	who := BuildPersona(cfg, logger)
	hist := history.Load(cfg.HistoryFile, logger.With("component", "history"))
	generator := gemini.New(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiAPIBase,
		Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
	}, logger.With("component", "llm-gemini"))
	transcripts := transcript.New(transcript.Config{}, logger.With("component", "transcript"))
	exporter := brief.New(brief.Config{
		Title:     "OPERATIONAL DIRECTIVE",
		Subtitle:  fmt.Sprintf("PREPARED BY %s // PERSONAL DIVISION", strings.ToUpper(who.Name)),
		FooterTag: fmt.Sprintf("FOR %s-%s ONLY", strings.ToUpper(who.Operator), strings.ToUpper(who.Honorific)),
		Author:    who.Name,
	}, logger.With("component", "brief"))
	notifier := notify.New(notify.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		To:       cfg.SMTPTo,
	}, logger.With("component", "notify"))

	dispatcher := dispatch.New(
		dispatch.Config{
			DataDir:         cfg.DataDir,
			ExportDir:       cfg.ExportDir,
			HistoryMaxChars: cfg.HistoryMaxChars,
		},
		persona.Router{Privileged: cfg.PrivilegedSender, Tag: "@" + cfg.PersonaName},
		who, hist, generator, transcripts, exporter, notifier, sqlStore,
		logger,
	)

	personaWatcher, err := watcher.New(cfg.PersonalityFile, logger, func(_ context.Context, _ string) {
		dispatcher.SetPersona(BuildPersona(cfg, logger))
	})
	if err != nil {
		sqlStore.Close()
		return nil, err
	}
	snapshots, err := scheduler.New(
		cfg.HistoryFile,
		filepath.Join(cfg.DataDir, "snapshots"),
		cfg.SnapshotCron,
		cfg.SnapshotRetainDays,
		logger,
	)
	if err != nil {
		sqlStore.Close()
		return nil, err
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		store:      sqlStore,
		dispatcher: dispatcher,
		watcher:    personaWatcher,
		scheduler:  snapshots,
		connectors: []connectors.Connector{
			telegram.New(cfg.TelegramToken, cfg.TelegramAPI, cfg.TelegramPoll, dispatcher, logger),
		},
	}, nil
}

// Dispatcher exposes the wired dispatcher for local (non-transport) callers.
func (r *Runtime) Dispatcher() *dispatch.Dispatcher {
	return r.dispatcher
}

func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// BuildPersona assembles the persona from config plus the personality file.
// A missing or empty file falls back to a neutral description so the bot can
// still run.
func BuildPersona(cfg config.Config, logger *slog.Logger) persona.Persona {
	personality := "a diligent, loyal personal secretary with a dry sense of humor"
	if data, err := os.ReadFile(cfg.PersonalityFile); err == nil {
		if text := strings.TrimSpace(string(data)); text != "" {
			personality = text
		}
	} else if !os.IsNotExist(err) {
		logger.Warn("read personality file failed", "path", cfg.PersonalityFile, "error", err)
	}
	return persona.Persona{
		Name:        cfg.PersonaName,
		Identity:    fmt.Sprintf("%s, %s's personal secretary", cfg.PersonaName, cfg.OperatorName),
		Operator:    cfg.OperatorName,
		Honorific:   cfg.Honorific,
		Personality: personality,
	}
}
