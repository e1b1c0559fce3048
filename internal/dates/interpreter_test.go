package dates

import (
	"testing"
	"time"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestExplicitTimeRoundTrips(t *testing.T) {
	loc := newYork(t)
	interpreter := NewInterpreter(loc)
	now := time.Date(2026, time.August, 26, 10, 0, 0, 0, loc) // a Wednesday

	result, ok := interpreter.Interpret("Friday at 2pm", now)
	if !ok {
		t.Fatal("expected expression to parse")
	}
	if !result.HasExplicitTime {
		t.Fatal("expected explicit time flag")
	}
	if result.Time.Weekday() != time.Friday {
		t.Fatalf("expected a Friday, got %v", result.Time)
	}
	if result.Time.Hour() != 14 {
		t.Fatalf("expected 14:00 local, got %v", result.Time)
	}
	if !result.Time.After(now) {
		t.Fatalf("ambiguous weekday must resolve to the future, got %v", result.Time)
	}
}

func TestMissingTimeDefaultsToNineLocal(t *testing.T) {
	loc := newYork(t)
	interpreter := NewInterpreter(loc)
	now := time.Date(2026, time.August, 26, 10, 0, 0, 0, loc)

	result, ok := interpreter.Interpret("next Tuesday", now)
	if !ok {
		t.Fatal("expected expression to parse")
	}
	if result.HasExplicitTime {
		t.Fatal("expected defaulted time flag")
	}
	if result.Time.Hour() != DefaultHour || result.Time.Minute() != 0 {
		t.Fatalf("expected %02d:00 local default, got %v", DefaultHour, result.Time)
	}
	if result.Time.Location() != loc {
		t.Fatalf("expected configured location, got %v", result.Time.Location())
	}
}

func TestDefaultHourStaysStableAcrossDSTBoundary(t *testing.T) {
	loc := newYork(t)
	interpreter := NewInterpreter(loc)
	// Eastern time falls back on 2026-11-01; "in 3 days" from Oct 30
	// lands on the other side of the transition.
	now := time.Date(2026, time.October, 30, 12, 0, 0, 0, loc)

	result, ok := interpreter.Interpret("in 3 days", now)
	if !ok {
		t.Fatal("expected expression to parse")
	}
	if result.Time.Hour() != DefaultHour {
		t.Fatalf("expected %02d:00 local across DST boundary, got %v", DefaultHour, result.Time)
	}
	_, offsetBefore := now.Zone()
	_, offsetAfter := result.Time.Zone()
	if offsetBefore == offsetAfter {
		t.Fatalf("test expects a DST transition between %v and %v", now, result.Time)
	}
}

func TestBareFragmentsParseViaPrefixRetry(t *testing.T) {
	interpreter := NewInterpreter(time.UTC)
	now := time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)

	if _, ok := interpreter.Interpret("tomorrow", now); !ok {
		t.Fatal("expected 'tomorrow' to parse")
	}
	if _, ok := interpreter.Interpret("the 14th", now); !ok {
		t.Fatal("expected bare day fragment to parse via prefix retry")
	}
}

func TestTotalParseFailureReturnsNotOK(t *testing.T) {
	interpreter := NewInterpreter(time.UTC)
	now := time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)

	if _, ok := interpreter.Interpret("the purple elephant", now); ok {
		t.Fatal("expected unparseable expression to fail")
	}
	if _, ok := interpreter.Interpret("", now); ok {
		t.Fatal("expected empty expression to fail")
	}
}
