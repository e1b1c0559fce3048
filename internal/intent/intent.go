package intent

import "strings"

// Action is the closed set of things the bot can do with a message.
type Action string

const (
	ActionSchedule         Action = "schedule"
	ActionAssign           Action = "assign"
	ActionLogContact       Action = "log_contact"
	ActionCheckStatus      Action = "check_status"
	ActionListOverdue      Action = "list_overdue"
	ActionListByStatus     Action = "list_by_status"
	ActionListNotContacted Action = "list_not_contacted"
	ActionAddRecord        Action = "add_record"
	ActionContactLookup    Action = "contact_lookup"
	ActionCount            Action = "count"
	ActionDiagnostic       Action = "diagnostic"
	ActionUnknown          Action = "unknown"
)

// MinConfidence gates handler invocation: anything below it short-
// circuits to a clarification reply.
const MinConfidence = 0.5

// Slot names the classifier may report as missing.
const (
	SlotSubject  = "subject"
	SlotAssignee = "assignee"
	SlotDate     = "date"
)

// Intent is one classified message. It is created fresh per message,
// consumed immediately by the router, and never persisted.
type Intent struct {
	Action        Action
	Subject       string
	DateExpr      string
	Assignee      string
	AssigneeIsTag bool
	StatusFilter  string
	DayThreshold  int
	ContactField  string
	Confidence    float64
	Missing       []string
}

var knownActions = map[Action]bool{
	ActionSchedule:         true,
	ActionAssign:           true,
	ActionLogContact:       true,
	ActionCheckStatus:      true,
	ActionListOverdue:      true,
	ActionListByStatus:     true,
	ActionListNotContacted: true,
	ActionAddRecord:        true,
	ActionContactLookup:    true,
	ActionCount:            true,
	ActionDiagnostic:       true,
	ActionUnknown:          true,
}

// normalizeAction maps a raw classifier tag onto the closed action set;
// anything unrecognized becomes unknown.
func normalizeAction(raw string) Action {
	action := Action(strings.ToLower(strings.TrimSpace(raw)))
	if knownActions[action] {
		return action
	}
	return ActionUnknown
}

// MostImportantMissing picks the single slot worth a clarifying
// question, in fixed priority: subject, then assignee, then date.
func MostImportantMissing(missing []string) string {
	ranked := map[string]int{SlotSubject: 0, SlotAssignee: 1, SlotDate: 2}
	best, bestRank := "", len(ranked)
	for _, slot := range missing {
		slot = strings.ToLower(strings.TrimSpace(slot))
		if rank, ok := ranked[slot]; ok && rank < bestRank {
			best, bestRank = slot, rank
		}
	}
	return best
}

// Unknown is the uniform failure shape: the router can always proceed.
func Unknown() Intent {
	return Intent{Action: ActionUnknown, Confidence: 0}
}
