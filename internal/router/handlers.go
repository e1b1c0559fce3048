package router

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loopworks/dealbot/internal/board"
	"github.com/loopworks/dealbot/internal/cadence"
	"github.com/loopworks/dealbot/internal/chat"
	"github.com/loopworks/dealbot/internal/identity"
	"github.com/loopworks/dealbot/internal/intent"
	"github.com/loopworks/dealbot/internal/match"
	"github.com/loopworks/dealbot/internal/reminder"
)

func (r *Router) handleDiagnostic(ctx context.Context) string {
	records, err := r.board.ListRecords(ctx)
	if err != nil {
		return "I'm up, but the board isn't answering right now."
	}
	queued := len(r.reminders.All())
	return fmt.Sprintf("All good. Tracking %d records, %d reminders queued.", len(records), queued)
}

func (r *Router) handleCheckStatus(ctx context.Context, in intent.Intent) string {
	outcome, _, failReply := r.resolveSubject(ctx, in.Subject)
	if failReply != "" {
		return failReply
	}
	record := outcome.Record
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*", cadence.StripCold(record.Name))
	if record.Status != "" {
		fmt.Fprintf(&b, " — %s", record.Status)
	}
	if record.LastContact != nil {
		fmt.Fprintf(&b, "\nLast contact: %s", record.LastContact.Format("Jan 2, 2006"))
	} else {
		b.WriteString("\nLast contact: never")
	}
	if record.NextFollowUp != nil {
		fmt.Fprintf(&b, "\nNext follow-up: %s", record.NextFollowUp.Format("Jan 2, 2006"))
	}
	if cadence.IsCold(record.Name) {
		b.WriteString("\nThis one is marked as going cold.")
	}
	if record.Permalink != "" {
		fmt.Fprintf(&b, "\n%s", record.Permalink)
	}
	b.WriteString(didYouMeanSuffix(outcome))
	return b.String()
}

func (r *Router) handleLogContact(ctx context.Context, in intent.Intent) string {
	outcome, _, failReply := r.resolveSubject(ctx, in.Subject)
	if failReply != "" {
		return failReply
	}
	record := outcome.Record

	expr := in.DateExpr
	if strings.TrimSpace(expr) == "" {
		expr = "today"
	}
	when, ok := r.dates.Interpret(expr, r.now())
	if !ok {
		return fmt.Sprintf("I couldn't understand the date %q. Try something like \"today\" or \"last Tuesday\".", expr)
	}
	contactDate := when.Time

	values := map[string]any{
		board.ColumnLastContact: map[string]string{"date": board.DateOnly(contactDate)},
	}
	tier, hasTier := cadence.TierFor(record.Status)
	var nextFollowUp time.Time
	if hasTier {
		nextFollowUp = contactDate.AddDate(0, 0, tier.RescheduleDays)
		values[board.ColumnNextFollowUp] = map[string]string{"date": board.DateOnly(nextFollowUp)}
	}
	if err := r.board.SetColumns(ctx, record.ID, values); err != nil {
		return r.errorReply(err)
	}
	if cadence.IsCold(record.Name) {
		if err := r.board.SetName(ctx, record.ID, cadence.StripCold(record.Name)); err != nil {
			r.logger.Warn("cold marker clear failed", "record_id", record.ID, "error", err)
		}
	}

	name := cadence.StripCold(record.Name)
	if hasTier {
		return fmt.Sprintf("Logged contact with %s on %s. Next follow-up set for %s (%s cadence).%s",
			name, contactDate.Format("Jan 2"), nextFollowUp.Format("Jan 2"), strings.ToLower(record.Status),
			didYouMeanSuffix(outcome))
	}
	return fmt.Sprintf("Logged contact with %s on %s. No cadence applies to its status, so the follow-up date is unchanged.%s",
		name, contactDate.Format("Jan 2"), didYouMeanSuffix(outcome))
}

func (r *Router) handleSchedule(ctx context.Context, msg chat.Message, in intent.Intent) string {
	outcome, _, failReply := r.resolveSubject(ctx, in.Subject)
	if failReply != "" {
		return failReply
	}
	record := outcome.Record

	when, ok := r.dates.Interpret(in.DateExpr, r.now())
	if !ok {
		return fmt.Sprintf("I couldn't understand the date %q. Try something like \"Friday\" or \"next Tuesday at 2pm\".", in.DateExpr)
	}

	values := map[string]any{
		board.ColumnNextFollowUp: map[string]string{"date": board.DateOnly(when.Time)},
	}
	if err := r.board.SetColumns(ctx, record.ID, values); err != nil {
		return r.errorReply(err)
	}

	// Remind whoever asked, in their DMs, when the follow-up comes due.
	requester := r.identities.Resolve(ctx, identity.Ref{Tag: msg.UserID})
	r.enqueueReminder(record, when.Time, msg.UserID, requester.Email)

	name := cadence.StripCold(record.Name)
	timePart := when.Time.Format("Mon Jan 2")
	if when.HasExplicitTime {
		timePart = when.Time.Format("Mon Jan 2 at 3:04pm")
	}
	return fmt.Sprintf("Follow-up with %s scheduled for %s. I'll remind you then.%s",
		name, timePart, didYouMeanSuffix(outcome))
}

func (r *Router) handleAssign(ctx context.Context, in intent.Intent) string {
	outcome, _, failReply := r.resolveSubject(ctx, in.Subject)
	if failReply != "" {
		return failReply
	}
	record := outcome.Record
	name := cadence.StripCold(record.Name)

	var dateReply string
	var fireAt time.Time
	if strings.TrimSpace(in.DateExpr) != "" {
		when, ok := r.dates.Interpret(in.DateExpr, r.now())
		if !ok {
			return fmt.Sprintf("I couldn't understand the date %q.", in.DateExpr)
		}
		values := map[string]any{
			board.ColumnNextFollowUp: map[string]string{"date": board.DateOnly(when.Time)},
		}
		if err := r.board.SetColumns(ctx, record.ID, values); err != nil {
			return r.errorReply(err)
		}
		fireAt = when.Time
		dateReply = fmt.Sprintf(" Follow-up set for %s.", when.Time.Format("Mon Jan 2"))
	}

	resolved := r.identities.Resolve(ctx, identity.Ref{Tag: tagOrEmpty(in), Name: nameOrEmpty(in)})
	if resolved.PersonID != "" {
		values := map[string]any{
			board.ColumnPeople: peopleColumnValue(resolved.PersonID),
		}
		if err := r.board.SetColumns(ctx, record.ID, values); err != nil {
			return r.errorReply(err)
		}
	}

	if !fireAt.IsZero() && resolved.PlatformID != "" {
		r.enqueueReminder(record, fireAt, resolved.PlatformID, resolved.Email)
	}

	assigneeLabel := in.Assignee
	if resolved.DisplayName != "" {
		assigneeLabel = resolved.DisplayName
	}
	switch {
	case resolved.PersonID != "":
		return fmt.Sprintf("Assigned %s to %s.%s%s", name, assigneeLabel, dateReply, didYouMeanSuffix(outcome))
	case resolved.PlatformID != "":
		// Partial success: reminder lands, board assignee field does not.
		if dateReply != "" {
			return fmt.Sprintf("Updated %s.%s I'll remind %s, but I couldn't link them to a board person, so the assignee field wasn't updated.",
				name, dateReply, assigneeLabel)
		}
		return fmt.Sprintf("I found %s on the platform but couldn't link them to a board person, so the assignee field on %s wasn't updated.",
			assigneeLabel, name)
	default:
		if dateReply != "" {
			return fmt.Sprintf("Updated %s.%s But I couldn't find %q in any identity source, so nobody was assigned.",
				name, dateReply, in.Assignee)
		}
		return fmt.Sprintf("I couldn't find %q in any identity source, so nobody was assigned.", in.Assignee)
	}
}

func (r *Router) handleListOverdue(ctx context.Context) string {
	records, err := r.board.ListRecords(ctx)
	if err != nil {
		return r.errorReply(err)
	}
	today := startOfDay(r.now())
	var overdue []board.Record
	for _, record := range records {
		if record.NextFollowUp != nil && record.NextFollowUp.Before(today) {
			overdue = append(overdue, record)
		}
	}
	if len(overdue) == 0 {
		return "No overdue follow-ups. Everyone is on track."
	}
	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].NextFollowUp.Before(*overdue[j].NextFollowUp)
	})
	var b strings.Builder
	fmt.Fprintf(&b, "%d overdue follow-up(s):", len(overdue))
	for _, record := range overdue {
		days := int(today.Sub(*record.NextFollowUp).Hours() / 24)
		fmt.Fprintf(&b, "\n• %s — due %s (%d day(s) ago)",
			cadence.StripCold(record.Name), record.NextFollowUp.Format("Jan 2"), days)
	}
	return b.String()
}

func (r *Router) handleListByStatus(ctx context.Context, in intent.Intent) string {
	records, err := r.board.ListRecords(ctx)
	if err != nil {
		return r.errorReply(err)
	}
	filter := strings.ToLower(strings.TrimSpace(in.StatusFilter))
	if filter == "" {
		return "Which status should I filter by? Known statuses: " + strings.Join(cadence.Statuses(), ", ") + "."
	}
	var matched []board.Record
	for _, record := range records {
		if strings.ToLower(record.Status) == filter {
			matched = append(matched, record)
		}
	}
	if len(matched) == 0 {
		return fmt.Sprintf("No records with status %q.", in.StatusFilter)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d record(s) in %s:", len(matched), in.StatusFilter)
	for _, record := range matched {
		b.WriteString("\n• " + cadence.StripCold(record.Name))
		if record.NextFollowUp != nil {
			fmt.Fprintf(&b, " (next follow-up %s)", record.NextFollowUp.Format("Jan 2"))
		}
	}
	return b.String()
}

func (r *Router) handleListNotContacted(ctx context.Context, in intent.Intent) string {
	records, err := r.board.ListRecords(ctx)
	if err != nil {
		return r.errorReply(err)
	}
	days := in.DayThreshold
	if days <= 0 {
		days = 30
	}
	cutoff := startOfDay(r.now()).AddDate(0, 0, -days)
	var stale []board.Record
	for _, record := range records {
		if record.LastContact == nil || record.LastContact.Before(cutoff) {
			stale = append(stale, record)
		}
	}
	if len(stale) == 0 {
		return fmt.Sprintf("Everyone has been contacted within the last %d days.", days)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d record(s) not contacted in %d+ days:", len(stale), days)
	for _, record := range stale {
		if record.LastContact == nil {
			b.WriteString("\n• " + cadence.StripCold(record.Name) + " — never contacted")
			continue
		}
		fmt.Fprintf(&b, "\n• %s — last contact %s", cadence.StripCold(record.Name), record.LastContact.Format("Jan 2"))
	}
	return b.String()
}

func (r *Router) handleAddRecord(ctx context.Context, in intent.Intent) string {
	in.Subject = strings.TrimSpace(in.Subject)
	if in.Subject == "" {
		// The classifier can emit add_record without flagging the name
		// slot as missing. A nameless record must never reach the board.
		return clarifyingQuestion(in.Action, intent.SlotSubject)
	}
	records, err := r.board.ListRecords(ctx)
	if err != nil {
		return r.errorReply(err)
	}
	// Duplicate detection runs tighter than normal resolution so a
	// near-miss blocks creation even when lookup would have rejected it.
	for _, record := range records {
		if match.Distance(in.Subject, cadence.StripCold(record.Name)) <= match.DuplicateThreshold {
			return fmt.Sprintf("That looks like a duplicate of %s, so I didn't create it. Say \"add %s anyway\" if it's really new.",
				cadence.StripCold(record.Name), in.Subject)
		}
	}
	values := map[string]any{}
	if strings.TrimSpace(in.StatusFilter) != "" {
		values[board.ColumnStatus] = map[string]string{"label": in.StatusFilter}
	}
	id, err := r.board.CreateRecord(ctx, in.Subject, values)
	if err != nil {
		return r.errorReply(err)
	}
	r.logger.Info("record created", "record_id", id, "name", in.Subject)
	if in.StatusFilter != "" {
		return fmt.Sprintf("Added %s to the board with status %s.", in.Subject, in.StatusFilter)
	}
	return fmt.Sprintf("Added %s to the board.", in.Subject)
}

func (r *Router) handleContactLookup(ctx context.Context, in intent.Intent) string {
	outcome, _, failReply := r.resolveSubject(ctx, in.Subject)
	if failReply != "" {
		return failReply
	}
	record := outcome.Record
	name := cadence.StripCold(record.Name)

	field := strings.ToLower(strings.TrimSpace(in.ContactField))
	switch field {
	case "email":
		if record.Email == "" {
			return fmt.Sprintf("No email on file for %s.", name)
		}
		return fmt.Sprintf("%s: %s%s", name, record.Email, didYouMeanSuffix(outcome))
	case "phone":
		if record.Phone == "" {
			return fmt.Sprintf("No phone number on file for %s.", name)
		}
		return fmt.Sprintf("%s: %s%s", name, record.Phone, didYouMeanSuffix(outcome))
	default:
		if record.Email == "" && record.Phone == "" {
			return fmt.Sprintf("No contact details on file for %s.", name)
		}
		var parts []string
		if record.Email != "" {
			parts = append(parts, "email "+record.Email)
		}
		if record.Phone != "" {
			parts = append(parts, "phone "+record.Phone)
		}
		return fmt.Sprintf("%s: %s%s", name, strings.Join(parts, ", "), didYouMeanSuffix(outcome))
	}
}

func (r *Router) handleCount(ctx context.Context) string {
	records, err := r.board.ListRecords(ctx)
	if err != nil {
		return r.errorReply(err)
	}
	byStatus := map[string]int{}
	for _, record := range records {
		status := record.Status
		if status == "" {
			status = "no status"
		}
		byStatus[status]++
	}
	statuses := make([]string, 0, len(byStatus))
	for status := range byStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	var b strings.Builder
	fmt.Fprintf(&b, "%d record(s) on the board.", len(records))
	for _, status := range statuses {
		fmt.Fprintf(&b, "\n• %s: %d", status, byStatus[status])
	}
	return b.String()
}

func (r *Router) enqueueReminder(record board.Record, fireAt time.Time, platformID, email string) {
	entry := reminder.Reminder{
		ID:        uuid.NewString(),
		RecordID:  record.ID,
		Subject:   cadence.StripCold(record.Name),
		FireAt:    fireAt,
		UserID:    platformID,
		Email:     email,
		Status:    record.Status,
		Category:  record.Category,
		Permalink: record.Permalink,
		CreatedAt: r.now(),
	}
	if err := r.reminders.Add(entry); err != nil {
		r.logger.Error("reminder enqueue failed", "record_id", record.ID, "error", err)
	}
}

func tagOrEmpty(in intent.Intent) string {
	if in.AssigneeIsTag {
		return in.Assignee
	}
	return ""
}

func nameOrEmpty(in intent.Intent) string {
	if in.AssigneeIsTag {
		return ""
	}
	return in.Assignee
}

func peopleColumnValue(personID string) map[string]any {
	return map[string]any{
		"personsAndTeams": []map[string]any{
			{"id": personID, "kind": "person"},
		},
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
