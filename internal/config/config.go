package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	HTTPAddr    string
	DataDir     string
	Timezone    string

	ChatAPI             string
	ChatToken           string
	ChatFallbackChannel string
	ChatDigestChannel   string

	BoardAPI     string
	BoardToken   string
	BoardID      string
	BoardTimeout int

	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeoutSec int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	ReminderPath         string
	ReminderIntervalSec  int
	RosterPath           string
	AuditDBPath          string
	RosterWatchEnabled   bool
	JobsEnabled          bool
	ConnectorEnabled     bool
	HealthListenDisabled bool
}

func FromEnv() Config {
	dataDir := stringOrDefault("DEALBOT_DATA_DIR", "/data")

	return Config{
		Environment: stringOrDefault("DEALBOT_ENV", "development"),
		HTTPAddr:    stringOrDefault("DEALBOT_HTTP_ADDR", ":8080"),
		DataDir:     dataDir,
		Timezone:    stringOrDefault("DEALBOT_TIMEZONE", "America/New_York"),

		ChatAPI:             stringOrDefault("DEALBOT_CHAT_API_BASE", "https://slack.com/api"),
		ChatToken:           os.Getenv("DEALBOT_CHAT_TOKEN"),
		ChatFallbackChannel: strings.TrimSpace(os.Getenv("DEALBOT_CHAT_FALLBACK_CHANNEL")),
		ChatDigestChannel:   strings.TrimSpace(os.Getenv("DEALBOT_CHAT_DIGEST_CHANNEL")),

		BoardAPI:     stringOrDefault("DEALBOT_BOARD_API_URL", "https://api.monday.com/v2"),
		BoardToken:   os.Getenv("DEALBOT_BOARD_TOKEN"),
		BoardID:      strings.TrimSpace(os.Getenv("DEALBOT_BOARD_ID")),
		BoardTimeout: intOrDefault("DEALBOT_BOARD_TIMEOUT_SECONDS", 30),

		LLMBaseURL:    stringOrDefault("DEALBOT_LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:     strings.TrimSpace(os.Getenv("DEALBOT_LLM_API_KEY")),
		LLMModel:      stringOrDefault("DEALBOT_LLM_MODEL", "gpt-4o-mini"),
		LLMTimeoutSec: intOrDefault("DEALBOT_LLM_TIMEOUT_SECONDS", 30),

		SMTPHost:     strings.TrimSpace(os.Getenv("DEALBOT_SMTP_HOST")),
		SMTPPort:     intOrDefault("DEALBOT_SMTP_PORT", 587),
		SMTPUsername: strings.TrimSpace(os.Getenv("DEALBOT_SMTP_USERNAME")),
		SMTPPassword: os.Getenv("DEALBOT_SMTP_PASSWORD"),
		SMTPFrom:     strings.TrimSpace(os.Getenv("DEALBOT_SMTP_FROM")),

		ReminderPath:         stringOrDefault("DEALBOT_REMINDER_PATH", filepath.Join(dataDir, "reminders.json")),
		ReminderIntervalSec:  intOrDefault("DEALBOT_REMINDER_INTERVAL_SECONDS", 60),
		RosterPath:           stringOrDefault("DEALBOT_ROSTER_PATH", filepath.Join(dataDir, "roster.json")),
		AuditDBPath:          stringOrDefault("DEALBOT_AUDIT_DB_PATH", filepath.Join(dataDir, "audit.sqlite")),
		RosterWatchEnabled:   boolOrDefault("DEALBOT_ROSTER_WATCH_ENABLED", true),
		JobsEnabled:          boolOrDefault("DEALBOT_JOBS_ENABLED", true),
		ConnectorEnabled:     boolOrDefault("DEALBOT_CONNECTOR_ENABLED", true),
		HealthListenDisabled: boolOrDefault("DEALBOT_HEALTH_DISABLED", false),
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

func boolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
