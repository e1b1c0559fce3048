package mailer

import (
	"context"
	"fmt"
	"log/slog"
	gosmtp "net/smtp"
	"strconv"
	"strings"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendMailFunc func(addr string, auth gosmtp.Auth, from string, to []string, msg []byte) error

// Mailer sends fire-and-forget HTML reminder emails. A send failure is
// the caller's to log and ignore; it never blocks the reminder's other
// side effects.
type Mailer struct {
	cfg      Config
	logger   *slog.Logger
	sendMail sendMailFunc
}

func New(cfg Config, logger *slog.Logger) *Mailer {
	if cfg.Port < 1 {
		cfg.Port = 587
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, logger: logger, sendMail: gosmtp.SendMail}
}

// Enabled reports whether outbound email is configured at all.
func (m *Mailer) Enabled() bool {
	return strings.TrimSpace(m.cfg.Host) != "" && strings.TrimSpace(m.cfg.From) != ""
}

func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if !m.Enabled() {
		return fmt.Errorf("smtp is not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("recipient address is required")
	}

	from := strings.TrimSpace(m.cfg.From)
	var lines []string
	lines = append(lines, "From: "+from)
	lines = append(lines, "To: "+to)
	lines = append(lines, "Subject: "+strings.ReplaceAll(subject, "\n", " "))
	lines = append(lines, "MIME-Version: 1.0")
	lines = append(lines, `Content-Type: text/html; charset="UTF-8"`)
	lines = append(lines, "")
	lines = append(lines, htmlBody)
	message := []byte(strings.Join(lines, "\r\n"))

	var auth gosmtp.Auth
	if username := strings.TrimSpace(m.cfg.Username); username != "" {
		auth = gosmtp.PlainAuth("", username, m.cfg.Password, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	if err := m.sendMail(addr, auth, from, []string{to}, message); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
