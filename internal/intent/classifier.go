package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Completer is the remote classifier boundary: message text in,
// unstructured text out. The output is untrusted even when it looks
// well-formed.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const instructionPrompt = `You route chat messages for an investor-pipeline assistant.
Classify the message into exactly one action:
schedule, assign, log_contact, check_status, list_overdue, list_by_status,
list_not_contacted, add_record, contact_lookup, count, diagnostic, unknown.

Reply with ONLY a JSON object, no prose, no markdown:
{
  "action": "<action>",
  "subject": "<investor name or null>",
  "date": "<date expression verbatim or null>",
  "assignee": "<assignee reference or null>",
  "assignee_is_tag": <true if assignee is a platform @-tag>,
  "status": "<status filter or null>",
  "days": <numeric day threshold or null>,
  "contact_field": "<email|phone or null>",
  "confidence": <0.0-1.0>,
  "missing": ["<required slots absent: subject, assignee, date>"]
}

Copy names and date expressions verbatim from the message; do not resolve
or reformat them. Use "unknown" with low confidence for chit-chat.`

// Classifier is the two-stage pipeline: deterministic rules first, the
// remote classifier only when no rule matches.
type Classifier struct {
	completer Completer
	logger    *slog.Logger
}

func NewClassifier(completer Completer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{completer: completer, logger: logger}
}

// Classify always returns a valid Intent; total classifier failure is
// the unknown action with confidence 0, never an error.
func (c *Classifier) Classify(ctx context.Context, text string) Intent {
	if parsed, ok := matchFast(text); ok {
		return parsed
	}
	if c.completer == nil {
		return Unknown()
	}
	raw, err := c.completer.Complete(ctx, instructionPrompt, strings.TrimSpace(text))
	if err != nil {
		c.logger.Error("remote classifier call failed", "error", err)
		return Unknown()
	}
	return parseClassifierOutput(raw, c.logger)
}

// rawIntent is the unvalidated intermediate shape. It is validated and
// defaulted into an Intent in exactly one place so every handler
// receives a guaranteed-complete value.
type rawIntent struct {
	Action        string    `json:"action"`
	Subject       *string   `json:"subject"`
	Date          *string   `json:"date"`
	Assignee      *string   `json:"assignee"`
	AssigneeIsTag bool      `json:"assignee_is_tag"`
	Status        *string   `json:"status"`
	Days          *float64  `json:"days"`
	ContactField  *string   `json:"contact_field"`
	Confidence    *float64  `json:"confidence"`
	Missing       []string  `json:"missing"`
}

func parseClassifierOutput(raw string, logger *slog.Logger) Intent {
	body := stripCodeFence(raw)
	if body == "" {
		return Unknown()
	}
	var parsed rawIntent
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(body)
		if repairErr != nil {
			logger.Warn("classifier output unparseable", "error", err)
			return Unknown()
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			logger.Warn("classifier output unparseable after repair", "error", err)
			return Unknown()
		}
	}
	return validate(parsed)
}

func validate(raw rawIntent) Intent {
	result := Intent{
		Action:        normalizeAction(raw.Action),
		Subject:       deref(raw.Subject),
		DateExpr:      deref(raw.Date),
		Assignee:      deref(raw.Assignee),
		AssigneeIsTag: raw.AssigneeIsTag,
		StatusFilter:  deref(raw.Status),
		ContactField:  strings.ToLower(deref(raw.ContactField)),
	}
	if raw.Days != nil && *raw.Days > 0 {
		result.DayThreshold = int(*raw.Days)
	}
	if raw.Confidence != nil {
		result.Confidence = clamp01(*raw.Confidence)
	}
	for _, slot := range raw.Missing {
		switch strings.ToLower(strings.TrimSpace(slot)) {
		case SlotSubject, SlotAssignee, SlotDate:
			result.Missing = append(result.Missing, strings.ToLower(strings.TrimSpace(slot)))
		}
	}
	return result
}

// stripCodeFence removes an accidental markdown fence around the JSON
// body, a defensive-formatting artifact some models emit.
func stripCodeFence(raw string) string {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		first := strings.TrimSpace(body[:newline])
		if first == "" || strings.EqualFold(first, "json") {
			body = body[newline+1:]
		}
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
