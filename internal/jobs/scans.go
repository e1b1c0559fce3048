package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loopworks/dealbot/internal/board"
	"github.com/loopworks/dealbot/internal/cadence"
)

// runOverdueScan posts the morning list of records whose follow-up date
// has passed.
func (s *Service) runOverdueScan(ctx context.Context) {
	records, err := s.board.ListRecords(ctx)
	if err != nil {
		s.logger.Error("overdue scan failed", "error", err)
		return
	}
	today := s.startOfToday()
	var overdue []board.Record
	for _, record := range records {
		if record.NextFollowUp != nil && record.NextFollowUp.Before(today) {
			overdue = append(overdue, record)
		}
	}
	s.logger.Info("overdue scan completed", "total", len(records), "overdue", len(overdue))
	if len(overdue) == 0 {
		return
	}
	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].NextFollowUp.Before(*overdue[j].NextFollowUp)
	})
	var b strings.Builder
	fmt.Fprintf(&b, "Good morning. %d follow-up(s) are overdue:", len(overdue))
	for _, record := range overdue {
		fmt.Fprintf(&b, "\n• %s — due %s", cadence.StripCold(record.Name), record.NextFollowUp.Format("Jan 2"))
	}
	s.post(ctx, b.String())
}

// runWeeklyDigest posts a Monday summary of the pipeline by status.
func (s *Service) runWeeklyDigest(ctx context.Context) {
	records, err := s.board.ListRecords(ctx)
	if err != nil {
		s.logger.Error("weekly digest failed", "error", err)
		return
	}
	today := s.startOfToday()
	byStatus := map[string]int{}
	overdue, cold, dueThisWeek := 0, 0, 0
	weekEnd := today.AddDate(0, 0, 7)
	for _, record := range records {
		status := record.Status
		if status == "" {
			status = "no status"
		}
		byStatus[status]++
		if cadence.IsCold(record.Name) {
			cold++
		}
		if record.NextFollowUp == nil {
			continue
		}
		switch {
		case record.NextFollowUp.Before(today):
			overdue++
		case record.NextFollowUp.Before(weekEnd):
			dueThisWeek++
		}
	}

	statuses := make([]string, 0, len(byStatus))
	for status := range byStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	var b strings.Builder
	fmt.Fprintf(&b, "*Weekly pipeline digest* — %d record(s)", len(records))
	for _, status := range statuses {
		fmt.Fprintf(&b, "\n• %s: %d", status, byStatus[status])
	}
	fmt.Fprintf(&b, "\nOverdue: %d · Due this week: %d · Going cold: %d", overdue, dueThisWeek, cold)
	s.post(ctx, b.String())
	s.logger.Info("weekly digest completed", "total", len(records), "overdue", overdue)
}

// runStalenessSweep marks records as going cold. A record qualifies
// when its last contact is older than its tier's cold threshold, or
// older than the global floor when no tier applies.
func (s *Service) runStalenessSweep(ctx context.Context) {
	records, err := s.board.ListRecords(ctx)
	if err != nil {
		s.logger.Error("staleness sweep failed", "error", err)
		return
	}
	today := s.startOfToday()
	marked := 0
	for _, record := range records {
		if cadence.IsCold(record.Name) {
			continue
		}
		threshold := staleAfterDays
		if tier, ok := cadence.TierFor(record.Status); ok {
			threshold = tier.ColdAfterDays
		}
		if record.LastContact == nil {
			continue
		}
		cutoff := today.AddDate(0, 0, -threshold)
		if !record.LastContact.Before(cutoff) {
			continue
		}
		if err := s.board.SetName(ctx, record.ID, cadence.MarkCold(record.Name)); err != nil {
			s.logger.Error("cold marker apply failed", "record_id", record.ID, "error", err)
			continue
		}
		marked++
		s.logger.Info("record marked cold", "record_id", record.ID, "name", record.Name, "threshold_days", threshold)
	}
	s.logger.Info("staleness sweep completed", "total", len(records), "marked", marked)
}

func (s *Service) post(ctx context.Context, text string) {
	if s.notifier == nil || s.channel == "" {
		return
	}
	if err := s.notifier.PostMessage(ctx, s.channel, text); err != nil {
		s.logger.Error("job post failed", "channel", s.channel, "error", err)
	}
}

func (s *Service) startOfToday() time.Time {
	year, month, day := s.now().In(s.loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, s.loc)
}
