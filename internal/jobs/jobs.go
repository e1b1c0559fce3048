package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loopworks/dealbot/internal/board"
)

// Board is the record-client slice the batch jobs need.
type Board interface {
	ListRecords(ctx context.Context) ([]board.Record, error)
	SetColumns(ctx context.Context, recordID string, values map[string]any) error
	SetName(ctx context.Context, recordID, name string) error
}

// Notifier posts job output into the team channel.
type Notifier interface {
	PostMessage(ctx context.Context, channel, text string) error
}

// staleAfterDays is the global staleness floor that applies to every
// record, cadence tier or not.
const staleAfterDays = 30

// Service owns the calendar-triggered batch jobs: the daily overdue
// scan, the weekly digest, the staleness sweep, and the contact-date
// poller. All mutable job state (the poller's last-seen snapshot) lives
// here, not in package globals.
type Service struct {
	board    Board
	notifier Notifier
	channel  string
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time

	// last known contact date per record id, for change detection
	// between poller runs. Lost on restart, which only costs one
	// detection cycle. snapMu guards it: the cron chain skips
	// overlapping ticks, but the map must stay safe even if two runs
	// ever coincide.
	snapMu      sync.Mutex
	lastContact map[string]string
}

func New(b Board, notifier Notifier, channel string, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		board:       b,
		notifier:    notifier,
		channel:     channel,
		logger:      logger,
		loc:         loc,
		now:         time.Now,
		lastContact: map[string]string{},
	}
}

// Start registers the schedules and blocks until the context ends.
func (s *Service) Start(ctx context.Context) error {
	// SkipIfStillRunning keeps a long run (board backoffs can stretch a
	// poll past its 15m interval) from overlapping with the next tick;
	// the poller's snapshot map is only touched by one run at a time.
	runner := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	register := func(spec string, name string, job func(context.Context)) {
		_, err := runner.AddFunc(spec, func() { job(ctx) })
		if err != nil {
			s.logger.Error("cron registration failed", "job", name, "spec", spec, "error", err)
			return
		}
		s.logger.Info("job scheduled", "job", name, "spec", spec)
	}

	register("0 9 * * *", "overdue-scan", s.runOverdueScan)
	register("0 9 * * 1", "weekly-digest", s.runWeeklyDigest)
	register("30 7 * * *", "staleness-sweep", s.runStalenessSweep)
	register("@every 15m", "contact-poll", s.runContactPoll)

	runner.Start()
	<-ctx.Done()
	stopCtx := runner.Stop()
	<-stopCtx.Done()
	s.logger.Info("jobs stopped")
	return nil
}
