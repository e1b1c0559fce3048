package cadence

import "testing"

func TestTierForIsCaseInsensitive(t *testing.T) {
	tier, ok := TierFor("  Active Conversation ")
	if !ok {
		t.Fatal("expected tier for recognized status")
	}
	if tier.RescheduleDays != 5 {
		t.Fatalf("unexpected reschedule offset: %d", tier.RescheduleDays)
	}
	if _, ok := TierFor("Passed"); ok {
		t.Fatal("expected no tier for unrecognized status")
	}
	if _, ok := TierFor(""); ok {
		t.Fatal("expected no tier for empty status")
	}
}

func TestColdMarkerRoundTrip(t *testing.T) {
	marked := MarkCold("Wyatt Heavy")
	if !IsCold(marked) {
		t.Fatalf("expected marked name to read as cold: %q", marked)
	}
	if MarkCold(marked) != marked {
		t.Fatal("expected marking to be idempotent")
	}
	if got := StripCold(marked); got != "Wyatt Heavy" {
		t.Fatalf("expected marker stripped, got %q", got)
	}
	if got := StripCold("Wyatt Heavy"); got != "Wyatt Heavy" {
		t.Fatalf("expected unmarked name unchanged, got %q", got)
	}
}
