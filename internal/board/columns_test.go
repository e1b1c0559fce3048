package board

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeItemStructuredColumns(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	item := itemPayload{
		ID:   "rec-1",
		Name: "Jalin Moore",
		URL:  "https://board/rec-1",
		ColumnValues: []columnValue{
			{ID: ColumnStatus, Type: "status", Text: "Active Conversation", Value: json.RawMessage(`{"label":"Active Conversation"}`)},
			{ID: ColumnEmail, Type: "email", Text: "jalin@fund.example", Value: json.RawMessage(`{"email":"jalin@fund.example"}`)},
			{ID: ColumnPhone, Type: "phone", Text: "+1 555 0100", Value: json.RawMessage(`{"phone":"+15550100"}`)},
			{ID: ColumnPeople, Type: "people", Text: "", Value: json.RawMessage(`{"personsAndTeams":[{"id":41,"kind":"person"},{"id":"52","kind":"person"}]}`)},
			{ID: ColumnLastContact, Type: "date", Text: "2026-08-20", Value: json.RawMessage(`{"date":"2026-08-20","time":"14:30:00"}`)},
			{ID: ColumnNextFollowUp, Type: "date", Text: "2026-09-01", Value: json.RawMessage(`{"date":"2026-09-01"}`)},
			{ID: ColumnNotes, Type: "long_text", Text: "", Value: json.RawMessage(`{"text":"met at demo day"}`)},
		},
	}

	record := decodeItem(item, loc)
	if record.Status != "Active Conversation" {
		t.Fatalf("status: %q", record.Status)
	}
	if record.Email != "jalin@fund.example" || record.Phone != "+15550100" {
		t.Fatalf("contact fields: %q / %q", record.Email, record.Phone)
	}
	if len(record.PersonIDs) != 2 || record.PersonIDs[0] != "41" || record.PersonIDs[1] != "52" {
		t.Fatalf("person ids: %v", record.PersonIDs)
	}
	if record.LastContact == nil || record.LastContact.Hour() != 14 || record.LastContact.Location() != loc {
		t.Fatalf("last contact: %v", record.LastContact)
	}
	if record.NextFollowUp == nil || record.NextFollowUp.Format("2006-01-02") != "2026-09-01" {
		t.Fatalf("next follow-up: %v", record.NextFollowUp)
	}
	if record.Notes != "met at demo day" {
		t.Fatalf("notes: %q", record.Notes)
	}
}

func TestDecodeItemFallsBackToText(t *testing.T) {
	item := itemPayload{
		ID: "rec-2",
		ColumnValues: []columnValue{
			{ID: ColumnStatus, Type: "status", Text: "Warm Intro", Value: nil},
			{ID: ColumnEmail, Type: "email", Text: "plain@fund.example", Value: json.RawMessage(`null`)},
			{ID: ColumnPeople, Type: "people", Text: "61, 62", Value: json.RawMessage(`not-json`)},
			{ID: ColumnLastContact, Type: "date", Text: "2026-08-01", Value: json.RawMessage(`{"broken":`)},
		},
	}

	record := decodeItem(item, time.UTC)
	if record.Status != "Warm Intro" {
		t.Fatalf("status fallback: %q", record.Status)
	}
	if record.Email != "plain@fund.example" {
		t.Fatalf("email fallback: %q", record.Email)
	}
	if len(record.PersonIDs) != 2 || record.PersonIDs[1] != "62" {
		t.Fatalf("people fallback: %v", record.PersonIDs)
	}
	if record.LastContact == nil || record.LastContact.Format("2006-01-02") != "2026-08-01" {
		t.Fatalf("date fallback: %v", record.LastContact)
	}
}

func TestDecodeItemAbsentColumnsStayZero(t *testing.T) {
	record := decodeItem(itemPayload{ID: "rec-3", Name: "Empty Row"}, time.UTC)
	if record.Status != "" || record.LastContact != nil || record.NextFollowUp != nil || record.PersonIDs != nil {
		t.Fatalf("expected zero values for absent columns: %+v", record)
	}
}
