package jobs

import (
	"context"

	"github.com/loopworks/dealbot/internal/board"
	"github.com/loopworks/dealbot/internal/cadence"
)

// runContactPoll detects last-contact dates edited directly on the
// board (outside chat) and advances the follow-up date per the
// record's cadence tier, so manual edits get the same rescheduling as
// logged contacts.
func (s *Service) runContactPoll(ctx context.Context) {
	records, err := s.board.ListRecords(ctx)
	if err != nil {
		s.logger.Error("contact poll failed", "error", err)
		return
	}
	advanced := 0
	for _, record := range records {
		current := ""
		if record.LastContact != nil {
			current = board.DateOnly(*record.LastContact)
		}
		s.snapMu.Lock()
		previous, seen := s.lastContact[record.ID]
		s.lastContact[record.ID] = current
		s.snapMu.Unlock()

		// First sighting establishes the baseline without acting; a
		// cleared date is not a contact.
		if !seen || current == "" || current == previous {
			continue
		}
		tier, ok := cadence.TierFor(record.Status)
		if !ok {
			continue
		}
		next := record.LastContact.AddDate(0, 0, tier.RescheduleDays)
		values := map[string]any{
			board.ColumnNextFollowUp: map[string]string{"date": board.DateOnly(next)},
		}
		if err := s.board.SetColumns(ctx, record.ID, values); err != nil {
			s.logger.Error("follow-up advance failed", "record_id", record.ID, "error", err)
			continue
		}
		advanced++
		s.logger.Info("follow-up advanced after contact edit",
			"record_id", record.ID,
			"last_contact", current,
			"next_followup", board.DateOnly(next),
		)
	}
	s.pruneSnapshot(records)
	s.logger.Info("contact poll completed", "total", len(records), "advanced", advanced)
}

// pruneSnapshot drops snapshot entries for records no longer on the
// board so the map cannot grow without bound.
func (s *Service) pruneSnapshot(records []board.Record) {
	live := make(map[string]bool, len(records))
	for _, record := range records {
		live[record.ID] = true
	}
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	for id := range s.lastContact {
		if !live[id] {
			delete(s.lastContact, id)
		}
	}
}
