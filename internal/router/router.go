package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loopworks/dealbot/internal/board"
	"github.com/loopworks/dealbot/internal/chat"
	"github.com/loopworks/dealbot/internal/dates"
	"github.com/loopworks/dealbot/internal/identity"
	"github.com/loopworks/dealbot/internal/intent"
	"github.com/loopworks/dealbot/internal/match"
	"github.com/loopworks/dealbot/internal/reminder"
)

// Board is the slice of the record client the router needs.
type Board interface {
	ListRecords(ctx context.Context) ([]board.Record, error)
	SetColumns(ctx context.Context, recordID string, values map[string]any) error
	SetName(ctx context.Context, recordID, name string) error
	CreateRecord(ctx context.Context, name string, values map[string]any) (string, error)
}

// Replier sends text back into the channel a message arrived on.
type Replier interface {
	PostMessage(ctx context.Context, channel, text string) error
}

// Classifier turns raw message text into an Intent.
type Classifier interface {
	Classify(ctx context.Context, text string) intent.Intent
}

// Identities maps assignee references onto board persons.
type Identities interface {
	Resolve(ctx context.Context, ref identity.Ref) identity.Resolution
}

// Router consumes classified messages and drives board mutations,
// reminder scheduling, and reply composition.
type Router struct {
	classifier Classifier
	board      Board
	replier    Replier
	identities Identities
	dates      *dates.Interpreter
	reminders  *reminder.Store
	logger     *slog.Logger
	now        func() time.Time
}

func New(classifier Classifier, b Board, replier Replier, identities Identities, interp *dates.Interpreter, reminders *reminder.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		classifier: classifier,
		board:      b,
		replier:    replier,
		identities: identities,
		dates:      interp,
		reminders:  reminders,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleMessage implements chat.Handler. Every path ends in exactly one
// reply; failures are converted to user-facing text here, never leaked
// as raw errors.
func (r *Router) HandleMessage(ctx context.Context, msg chat.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	classified := r.classifier.Classify(ctx, text)
	r.logger.Info("message classified",
		"action", classified.Action,
		"confidence", classified.Confidence,
		"channel", msg.Channel,
		"user_id", msg.UserID,
	)

	reply := r.dispatch(ctx, msg, classified)
	if reply == "" {
		return
	}
	if err := r.replier.PostMessage(ctx, msg.Channel, reply); err != nil {
		r.logger.Error("reply send failed", "channel", msg.Channel, "error", err)
	}
}

func (r *Router) dispatch(ctx context.Context, msg chat.Message, in intent.Intent) string {
	if in.Action == intent.ActionUnknown || in.Confidence < intent.MinConfidence {
		return "I'm not sure what you need. You can ask me things like " +
			"\"status on Acme Capital\", \"contacted Acme today\", or \"who's overdue\"."
	}
	if slot := intent.MostImportantMissing(in.Missing); slot != "" {
		return clarifyingQuestion(in.Action, slot)
	}

	switch in.Action {
	case intent.ActionDiagnostic:
		return r.handleDiagnostic(ctx)
	case intent.ActionCheckStatus:
		return r.handleCheckStatus(ctx, in)
	case intent.ActionLogContact:
		return r.handleLogContact(ctx, in)
	case intent.ActionSchedule:
		return r.handleSchedule(ctx, msg, in)
	case intent.ActionAssign:
		return r.handleAssign(ctx, in)
	case intent.ActionListOverdue:
		return r.handleListOverdue(ctx)
	case intent.ActionListByStatus:
		return r.handleListByStatus(ctx, in)
	case intent.ActionListNotContacted:
		return r.handleListNotContacted(ctx, in)
	case intent.ActionAddRecord:
		return r.handleAddRecord(ctx, in)
	case intent.ActionContactLookup:
		return r.handleContactLookup(ctx, in)
	case intent.ActionCount:
		return r.handleCount(ctx)
	default:
		return "I'm not sure what you need. Could you rephrase?"
	}
}

func clarifyingQuestion(action intent.Action, slot string) string {
	switch slot {
	case intent.SlotSubject:
		return "Which investor is this about?"
	case intent.SlotAssignee:
		return "Who should I assign that to?"
	case intent.SlotDate:
		if action == intent.ActionSchedule {
			return "When should the follow-up happen? (e.g. \"Friday\" or \"next Tuesday at 2pm\")"
		}
		return "What date should I use?"
	default:
		return "Could you give me a bit more detail?"
	}
}

// errorReply maps the failure taxonomy onto user-facing text. Transient
// board failures have already been retried once by the record client.
func (r *Router) errorReply(err error) string {
	switch {
	case errors.Is(err, match.ErrNoRecords):
		return "The pipeline board has no records yet, so there's nothing to look up."
	case errors.Is(err, board.ErrUnavailable):
		return "The board is having trouble right now. Please try again in a minute."
	default:
		r.logger.Error("handler failed", "error", err)
		return "Something went wrong on my end. Please try again."
	}
}

// resolveSubject fetches the active record set and fuzzily resolves a
// free-text name against it. A non-empty last return is the reply to
// send instead of proceeding.
func (r *Router) resolveSubject(ctx context.Context, subject string) (match.Outcome, []board.Record, string) {
	records, err := r.board.ListRecords(ctx)
	if err != nil {
		return match.Outcome{}, nil, r.errorReply(err)
	}
	outcome, err := match.Resolve(subject, records)
	if err != nil {
		return match.Outcome{}, nil, r.errorReply(err)
	}
	if !outcome.Found {
		if len(outcome.Suggestions) > 0 {
			return match.Outcome{}, nil, fmt.Sprintf("I couldn't find %q on the board. Did you mean: %s?",
				subject, strings.Join(outcome.Suggestions, ", "))
		}
		return match.Outcome{}, nil, fmt.Sprintf("I couldn't find %q on the board.", subject)
	}
	return outcome, records, ""
}

func didYouMeanSuffix(outcome match.Outcome) string {
	if len(outcome.Alternatives) == 0 {
		return ""
	}
	return fmt.Sprintf("\n(If you meant %s instead, let me know.)", strings.Join(outcome.Alternatives, " or "))
}
