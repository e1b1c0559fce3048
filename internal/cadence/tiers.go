package cadence

import (
	"sort"
	"strings"
)

// ColdMarker is prepended to a record's display name when the staleness
// sweep decides a conversation has gone cold. It is stripped before any
// name comparison and cleared again when a contact is logged.
const ColdMarker = "❄️ "

// Tier describes the expected contact rhythm for one pipeline status.
// MinDays and MaxDays are informational bounds shown in digests;
// ColdAfterDays drives the staleness sweep and RescheduleDays is the
// offset applied to the next follow-up after a logged contact.
type Tier struct {
	Status         string
	MinDays        int
	MaxDays        int
	ColdAfterDays  int
	RescheduleDays int
}

var tiers = map[string]Tier{
	"meeting set":         {Status: "Meeting Set", MinDays: 1, MaxDays: 3, ColdAfterDays: 5, RescheduleDays: 3},
	"active conversation": {Status: "Active Conversation", MinDays: 2, MaxDays: 5, ColdAfterDays: 7, RescheduleDays: 5},
	"diligence":           {Status: "Diligence", MinDays: 2, MaxDays: 5, ColdAfterDays: 7, RescheduleDays: 5},
	"warm intro":          {Status: "Warm Intro", MinDays: 3, MaxDays: 7, ColdAfterDays: 10, RescheduleDays: 7},
	"soft commit":         {Status: "Soft Commit", MinDays: 5, MaxDays: 10, ColdAfterDays: 14, RescheduleDays: 10},
	"cold outreach":       {Status: "Cold Outreach", MinDays: 7, MaxDays: 14, ColdAfterDays: 21, RescheduleDays: 14},
}

// TierFor returns the cadence tier for a status label. Records whose
// status is missing or unrecognized are cadence-exempt: no automatic
// rescheduling, no per-tier staleness classification.
func TierFor(status string) (Tier, bool) {
	tier, ok := tiers[strings.ToLower(strings.TrimSpace(status))]
	return tier, ok
}

// Statuses returns every status label that carries a cadence tier.
func Statuses() []string {
	labels := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		labels = append(labels, tier.Status)
	}
	sort.Strings(labels)
	return labels
}

// StripCold removes the cold marker from a display name, if present.
func StripCold(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), strings.TrimSpace(ColdMarker)))
}

// MarkCold prepends the cold marker to a display name, once.
func MarkCold(name string) string {
	if IsCold(name) {
		return strings.TrimSpace(name)
	}
	return ColdMarker + strings.TrimSpace(name)
}

// IsCold reports whether a display name already carries the cold marker.
func IsCold(name string) bool {
	return strings.HasPrefix(strings.TrimSpace(name), strings.TrimSpace(ColdMarker))
}
