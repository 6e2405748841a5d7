package config

import (
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	names := []string{
		"HINABOT_ENV",
		"HINABOT_DATA_DIR",
		"HINABOT_DB_PATH",
		"HINABOT_EXPORT_DIR",
		"HINABOT_TELEGRAM_TOKEN",
		"HINABOT_TELEGRAM_API_BASE",
		"HINABOT_TELEGRAM_POLL_SECONDS",
		"HINABOT_GEMINI_API_KEY",
		"HINABOT_GEMINI_API_BASE",
		"HINABOT_LLM_TIMEOUT_SECONDS",
		"HINABOT_PRIVILEGED_SENDER",
		"HINABOT_PERSONA_NAME",
		"HINABOT_OPERATOR_NAME",
		"HINABOT_HONORIFIC",
		"HINABOT_PERSONALITY_FILE",
		"HINABOT_HISTORY_FILE",
		"HINABOT_HISTORY_MAX_CHARS",
		"HINABOT_SNAPSHOT_CRON",
		"HINABOT_SNAPSHOT_RETAIN_DAYS",
		"HINABOT_SMTP_HOST",
		"HINABOT_SMTP_PORT",
		"HINABOT_SMTP_USERNAME",
		"HINABOT_SMTP_PASSWORD",
		"HINABOT_SMTP_FROM",
		"HINABOT_SMTP_TO",
	}
	for _, name := range names {
		t.Setenv(name, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()
	if cfg.DataDir != "/data" {
		t.Fatalf("unexpected data dir: %s", cfg.DataDir)
	}
	if cfg.DBPath != filepath.Join("/data", "hinabot.sqlite") {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
	if cfg.HistoryFile != filepath.Join("/data", "conversation_history_hina.json") {
		t.Fatalf("unexpected history file: %s", cfg.HistoryFile)
	}
	if cfg.HistoryMaxChars != 6144 {
		t.Fatalf("unexpected history cap: %d", cfg.HistoryMaxChars)
	}
	if cfg.TelegramPoll != 25 {
		t.Fatalf("unexpected poll seconds: %d", cfg.TelegramPoll)
	}
	if cfg.GeminiAPIBase != "https://generativelanguage.googleapis.com" {
		t.Fatalf("unexpected gemini base: %s", cfg.GeminiAPIBase)
	}
	if cfg.SnapshotCron != "@midnight" || cfg.SnapshotRetainDays != 14 {
		t.Fatalf("unexpected snapshot config: %s %d", cfg.SnapshotCron, cfg.SnapshotRetainDays)
	}
	if cfg.SMTPPort != 587 {
		t.Fatalf("unexpected smtp port: %d", cfg.SMTPPort)
	}
	if cfg.PersonaName != "Hina" || cfg.OperatorName != "Seagata" {
		t.Fatalf("unexpected persona defaults: %s %s", cfg.PersonaName, cfg.OperatorName)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HINABOT_DATA_DIR", "/var/hinabot")
	t.Setenv("HINABOT_HISTORY_MAX_CHARS", "4096")
	t.Setenv("HINABOT_PRIVILEGED_SENDER", "Someone Else")
	t.Setenv("HINABOT_SMTP_HOST", "smtp.example.com")
	t.Setenv("HINABOT_SMTP_PORT", "465")

	cfg := FromEnv()
	if cfg.DataDir != "/var/hinabot" {
		t.Fatalf("unexpected data dir: %s", cfg.DataDir)
	}
	if cfg.DBPath != filepath.Join("/var/hinabot", "hinabot.sqlite") {
		t.Fatalf("db path should follow data dir: %s", cfg.DBPath)
	}
	if cfg.HistoryMaxChars != 4096 {
		t.Fatalf("unexpected history cap: %d", cfg.HistoryMaxChars)
	}
	if cfg.PrivilegedSender != "Someone Else" {
		t.Fatalf("unexpected privileged sender: %s", cfg.PrivilegedSender)
	}
	if cfg.SMTPHost != "smtp.example.com" || cfg.SMTPPort != 465 {
		t.Fatalf("unexpected smtp config: %s %d", cfg.SMTPHost, cfg.SMTPPort)
	}
}

func TestIntOrDefaultRejectsGarbage(t *testing.T) {
	t.Setenv("HINABOT_HISTORY_MAX_CHARS", "not-a-number")
	if got := intOrDefault("HINABOT_HISTORY_MAX_CHARS", 6144); got != 6144 {
		t.Fatalf("expected fallback, got %d", got)
	}
	t.Setenv("HINABOT_HISTORY_MAX_CHARS", "0")
	if got := intOrDefault("HINABOT_HISTORY_MAX_CHARS", 6144); got != 6144 {
		t.Fatalf("expected fallback for non-positive, got %d", got)
	}
}
