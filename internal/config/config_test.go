package config

import (
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DEALBOT_DATA_DIR", "")
	t.Setenv("DEALBOT_HTTP_ADDR", "")
	t.Setenv("DEALBOT_TIMEZONE", "")
	t.Setenv("DEALBOT_CHAT_API_BASE", "")
	t.Setenv("DEALBOT_BOARD_API_URL", "")
	t.Setenv("DEALBOT_BOARD_TIMEOUT_SECONDS", "")
	t.Setenv("DEALBOT_LLM_MODEL", "")
	t.Setenv("DEALBOT_SMTP_PORT", "")
	t.Setenv("DEALBOT_REMINDER_PATH", "")
	t.Setenv("DEALBOT_REMINDER_INTERVAL_SECONDS", "")
	t.Setenv("DEALBOT_JOBS_ENABLED", "")

	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Timezone != "America/New_York" {
		t.Fatalf("Timezone = %q", cfg.Timezone)
	}
	if cfg.ReminderPath != filepath.Join("/data", "reminders.json") {
		t.Fatalf("ReminderPath = %q", cfg.ReminderPath)
	}
	if cfg.ReminderIntervalSec != 60 {
		t.Fatalf("ReminderIntervalSec = %d", cfg.ReminderIntervalSec)
	}
	if !cfg.JobsEnabled {
		t.Fatal("JobsEnabled should default on")
	}
	if cfg.SMTPPort != 587 {
		t.Fatalf("SMTPPort = %d", cfg.SMTPPort)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DEALBOT_DATA_DIR", "/var/lib/dealbot")
	t.Setenv("DEALBOT_REMINDER_PATH", "")
	t.Setenv("DEALBOT_REMINDER_INTERVAL_SECONDS", "15")
	t.Setenv("DEALBOT_JOBS_ENABLED", "off")
	t.Setenv("DEALBOT_BOARD_TIMEOUT_SECONDS", "not-a-number")

	cfg := FromEnv()
	if cfg.ReminderPath != filepath.Join("/var/lib/dealbot", "reminders.json") {
		t.Fatalf("ReminderPath = %q", cfg.ReminderPath)
	}
	if cfg.ReminderIntervalSec != 15 {
		t.Fatalf("ReminderIntervalSec = %d", cfg.ReminderIntervalSec)
	}
	if cfg.JobsEnabled {
		t.Fatal("JobsEnabled should respect off")
	}
	if cfg.BoardTimeout != 30 {
		t.Fatalf("invalid int should fall back, got %d", cfg.BoardTimeout)
	}
}
