package match

import (
	"errors"
	"testing"

	"github.com/loopworks/dealbot/internal/board"
)

func pipeline(names ...string) []board.Record {
	records := make([]board.Record, 0, len(names))
	for i, name := range names {
		records = append(records, board.Record{ID: string(rune('a' + i)), Name: name})
	}
	return records
}

func TestResolveExactAndNearNames(t *testing.T) {
	records := pipeline("Jalin Moore", "Wyatt Heavy", "Ada Chen")

	outcome, err := Resolve("Jalin Moore", records)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !outcome.Found || outcome.Record.Name != "Jalin Moore" {
		t.Fatalf("expected exact match, got %+v", outcome)
	}
	if outcome.Distance != 0 {
		t.Fatalf("exact match distance should be 0, got %v", outcome.Distance)
	}

	outcome, err = Resolve("jalin more", records)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !outcome.Found || outcome.Record.Name != "Jalin Moore" {
		t.Fatalf("expected typo to resolve, got %+v", outcome)
	}
}

func TestLeadingPrepositionIsStripped(t *testing.T) {
	records := pipeline("Wyatt Heavy", "Jalin Moore")

	plain, err := Resolve("Wyatt Heavy", records)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	prefixed, err := Resolve("with Wyatt Heavy", records)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !prefixed.Found || prefixed.Record.ID != plain.Record.ID {
		t.Fatalf("expected identical resolution, got %+v vs %+v", prefixed, plain)
	}
}

func TestColdMarkerIgnoredDuringComparison(t *testing.T) {
	records := pipeline("❄️ Wyatt Heavy")

	outcome, err := Resolve("Wyatt Heavy", records)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !outcome.Found || outcome.Distance != 0 {
		t.Fatalf("expected cold-marked record to match exactly, got %+v", outcome)
	}
}

func TestUnrelatedNameReturnsSuggestionsNotFalsePositive(t *testing.T) {
	records := pipeline("Jalin Moore", "Wyatt Heavy", "Ada Chen", "Harlan Grove")

	outcome, err := Resolve("Zzyzx Quux", records)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Found {
		t.Fatalf("expected no match for unrelated name, got %+v", outcome)
	}
	if len(outcome.Suggestions) == 0 || len(outcome.Suggestions) > 3 {
		t.Fatalf("expected up to 3 disambiguation suggestions, got %v", outcome.Suggestions)
	}
}

func TestCloseRunnerUpSurfacesAsAlternative(t *testing.T) {
	records := pipeline("Dana Moore", "Dane Moore")

	outcome, err := Resolve("Dana Moore", records)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !outcome.Found {
		t.Fatalf("expected primary match, got %+v", outcome)
	}
	if len(outcome.Alternatives) != 1 || outcome.Alternatives[0] != "Dane Moore" {
		t.Fatalf("expected did-you-mean alternative, got %v", outcome.Alternatives)
	}
}

func TestEmptyRecordSetIsDistinctError(t *testing.T) {
	_, err := Resolve("Jalin Moore", nil)
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
}

func TestFirstNameOnlyQueryResolves(t *testing.T) {
	records := pipeline("Jalin Moore", "Wyatt Heavy")

	outcome, err := Resolve("jalin", records)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !outcome.Found || outcome.Record.Name != "Jalin Moore" {
		t.Fatalf("expected first-name query to resolve, got %+v", outcome)
	}
}
