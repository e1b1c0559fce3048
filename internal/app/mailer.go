package app

import (
	"log/slog"

	"github.com/loopworks/dealbot/internal/config"
	"github.com/loopworks/dealbot/internal/mailer"
	"github.com/loopworks/dealbot/internal/reminder"
)

// newMailerFromConfig returns nil when SMTP is not configured, so the
// reminder checker skips email entirely instead of logging failures
// every tick.
func newMailerFromConfig(cfg config.Config, logger *slog.Logger) reminder.Emailer {
	m := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, logger.With("component", "mailer"))
	if !m.Enabled() {
		logger.Info("email notifications disabled, smtp not configured")
		return nil
	}
	return m
}
