package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	DataDir     string
	DBPath      string
	ExportDir   string

	TelegramToken string
	TelegramAPI   string
	TelegramPoll  int

	GeminiAPIKey     string
	GeminiAPIBase    string
	LLMTimeoutSec    int
	PrivilegedSender string

	PersonaName     string
	OperatorName    string
	Honorific       string
	PersonalityFile string

	HistoryFile     string
	HistoryMaxChars int

	SnapshotCron       string
	SnapshotRetainDays int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTo       string
}

func FromEnv() Config {
	dataDir := stringOrDefault("HINABOT_DATA_DIR", "/data")

	return Config{
		Environment: stringOrDefault("HINABOT_ENV", "development"),
		DataDir:     dataDir,
		DBPath:      stringOrDefault("HINABOT_DB_PATH", filepath.Join(dataDir, "hinabot.sqlite")),
		ExportDir:   stringOrDefault("HINABOT_EXPORT_DIR", dataDir),

		TelegramToken: strings.TrimSpace(os.Getenv("HINABOT_TELEGRAM_TOKEN")),
		TelegramAPI:   stringOrDefault("HINABOT_TELEGRAM_API_BASE", "https://api.telegram.org"),
		TelegramPoll:  intOrDefault("HINABOT_TELEGRAM_POLL_SECONDS", 25),

		GeminiAPIKey:     strings.TrimSpace(os.Getenv("HINABOT_GEMINI_API_KEY")),
		GeminiAPIBase:    stringOrDefault("HINABOT_GEMINI_API_BASE", "https://generativelanguage.googleapis.com"),
		LLMTimeoutSec:    intOrDefault("HINABOT_LLM_TIMEOUT_SECONDS", 300),
		PrivilegedSender: stringOrDefault("HINABOT_PRIVILEGED_SENDER", "Seagata"),

		PersonaName:     stringOrDefault("HINABOT_PERSONA_NAME", "Hina"),
		OperatorName:    stringOrDefault("HINABOT_OPERATOR_NAME", "Seagata"),
		Honorific:       stringOrDefault("HINABOT_HONORIFIC", "Sensei"),
		PersonalityFile: stringOrDefault("HINABOT_PERSONALITY_FILE", filepath.Join(dataDir, "personality.txt")),

		HistoryFile:     stringOrDefault("HINABOT_HISTORY_FILE", filepath.Join(dataDir, "conversation_history_hina.json")),
		HistoryMaxChars: intOrDefault("HINABOT_HISTORY_MAX_CHARS", 6144),

		SnapshotCron:       stringOrDefault("HINABOT_SNAPSHOT_CRON", "@midnight"),
		SnapshotRetainDays: intOrDefault("HINABOT_SNAPSHOT_RETAIN_DAYS", 14),

		SMTPHost:     strings.TrimSpace(os.Getenv("HINABOT_SMTP_HOST")),
		SMTPPort:     intOrDefault("HINABOT_SMTP_PORT", 587),
		SMTPUsername: strings.TrimSpace(os.Getenv("HINABOT_SMTP_USERNAME")),
		SMTPPassword: strings.TrimSpace(os.Getenv("HINABOT_SMTP_PASSWORD")),
		SMTPFrom:     strings.TrimSpace(os.Getenv("HINABOT_SMTP_FROM")),
		SMTPTo:       strings.TrimSpace(os.Getenv("HINABOT_SMTP_TO")),
	}
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
