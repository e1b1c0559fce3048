package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loopworks/dealbot/internal/board"
	"github.com/loopworks/dealbot/internal/match"
)

const defaultCheckInterval = 60 * time.Second

// Notifier delivers a reminder to its target user on the chat platform.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, text string) error
}

// Emailer sends the optional reminder email. Failures are logged and
// otherwise ignored.
type Emailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// RecordSource provides the live record set for cross-referencing.
type RecordSource interface {
	ListRecords(ctx context.Context) ([]board.Record, error)
}

// Checker polls the store and fires due reminders. A reminder is
// removed once its notification was attempted, whether or not the send
// succeeded; a reminder whose record vanished is removed without a
// notification.
type Checker struct {
	store    *Store
	records  RecordSource
	notifier Notifier
	emailer  Emailer
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
}

func NewChecker(store *Store, records RecordSource, notifier Notifier, emailer Emailer, interval time.Duration, logger *slog.Logger) *Checker {
	if interval < time.Second {
		interval = defaultCheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		store:    store,
		records:  records,
		notifier: notifier,
		emailer:  emailer,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

func (c *Checker) Start(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	c.logger.Info("reminder checker started", "interval", c.interval.String())
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("reminder checker stopped")
			return nil
		case <-ticker.C:
			c.runTick(ctx)
		}
	}
}

func (c *Checker) runTick(ctx context.Context) {
	now := c.now()
	due := c.store.Due(now)
	if len(due) == 0 {
		return
	}

	// One record fetch per tick, not one per reminder.
	records, err := c.records.ListRecords(ctx)
	if err != nil {
		c.logger.Error("reminder tick record fetch failed", "error", err, "due", len(due))
		return
	}

	fired, dropped := 0, 0
	for _, entry := range due {
		switch c.process(ctx, entry, records) {
		case outcomeFired:
			fired++
		case outcomeDropped:
			dropped++
		}
	}
	c.logger.Info("reminder tick completed", "due", len(due), "fired", fired, "dropped", dropped)
}

type outcome int

const (
	outcomeKept outcome = iota
	outcomeFired
	outcomeDropped
)

// process handles one due reminder independently, so one bad reminder
// cannot block the rest of the tick's batch.
func (c *Checker) process(ctx context.Context, entry Reminder, records []board.Record) outcome {
	record, found := resolveRecord(entry, records)
	if !found {
		// The linked record vanished: drop the reminder. There is no
		// user-facing context left to reply into, so this is log-only.
		if err := c.store.Remove(entry.ID); err != nil {
			c.logger.Error("remove unresolvable reminder failed", "reminder_id", entry.ID, "error", err)
			return outcomeKept
		}
		c.logger.Warn("reminder dropped, record no longer active",
			"reminder_id", entry.ID, "record_id", entry.RecordID, "subject", entry.Subject)
		return outcomeDropped
	}

	text := c.composeMessage(entry, record)
	if err := c.notifier.NotifyUser(ctx, entry.UserID, text); err != nil {
		// The attempt counts: removal proceeds to avoid a retry storm
		// on a single undeliverable reminder.
		c.logger.Error("reminder notification failed", "reminder_id", entry.ID, "user_id", entry.UserID, "error", err)
	}
	if email := strings.TrimSpace(entry.Email); email != "" && c.emailer != nil {
		subject := "Follow-up reminder: " + entry.Subject
		if err := c.emailer.Send(ctx, email, subject, htmlBody(entry, record)); err != nil {
			c.logger.Error("reminder email failed", "reminder_id", entry.ID, "to", email, "error", err)
		}
	}
	if err := c.store.Remove(entry.ID); err != nil {
		c.logger.Error("remove fired reminder failed", "reminder_id", entry.ID, "error", err)
		return outcomeKept
	}
	return outcomeFired
}

// resolveRecord finds the reminder's record by id first, then falls back
// to a fuzzy name match against the active set.
func resolveRecord(entry Reminder, records []board.Record) (board.Record, bool) {
	for _, record := range records {
		if record.ID == entry.RecordID {
			return record, true
		}
	}
	if strings.TrimSpace(entry.Subject) == "" {
		return board.Record{}, false
	}
	found, err := match.Resolve(entry.Subject, records)
	if err != nil || !found.Found {
		return board.Record{}, false
	}
	return found.Record, true
}

func (c *Checker) composeMessage(entry Reminder, record board.Record) string {
	status := strings.TrimSpace(record.Status)
	if status == "" {
		status = entry.Status
	}
	permalink := strings.TrimSpace(record.Permalink)
	if permalink == "" {
		permalink = entry.Permalink
	}
	text := fmt.Sprintf("Reminder: follow up with %s", entry.Subject)
	if status != "" {
		text += fmt.Sprintf(" (%s)", status)
	}
	if permalink != "" {
		text += "\n" + permalink
	}
	return text
}

func htmlBody(entry Reminder, record board.Record) string {
	status := strings.TrimSpace(record.Status)
	if status == "" {
		status = entry.Status
	}
	body := fmt.Sprintf("<p>Time to follow up with <b>%s</b>.</p>", entry.Subject)
	if status != "" {
		body += fmt.Sprintf("<p>Status: %s</p>", status)
	}
	if permalink := firstNonEmpty(record.Permalink, entry.Permalink); permalink != "" {
		body += fmt.Sprintf(`<p><a href="%s">Open on the board</a></p>`, permalink)
	}
	return body
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
