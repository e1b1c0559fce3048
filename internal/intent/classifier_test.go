package intent

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(context.Context, string, string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestFastPathSkipsRemoteClassifier(t *testing.T) {
	stub := &stubCompleter{}
	classifier := NewClassifier(stub, slog.Default())

	cases := []struct {
		text    string
		action  Action
		subject string
	}{
		{"ping", ActionDiagnostic, ""},
		{"who's overdue?", ActionListOverdue, ""},
		{"status on Jalin Moore", ActionCheckStatus, "Jalin Moore"},
		{"contacted Wyatt Heavy today", ActionLogContact, "Wyatt Heavy"},
	}
	for _, tc := range cases {
		result := classifier.Classify(context.Background(), tc.text)
		if result.Action != tc.action {
			t.Fatalf("%q: expected %s, got %s", tc.text, tc.action, result.Action)
		}
		if result.Subject != tc.subject {
			t.Fatalf("%q: expected subject %q, got %q", tc.text, tc.subject, result.Subject)
		}
		if result.Confidence != 1 {
			t.Fatalf("%q: fast path confidence must be 1, got %v", tc.text, result.Confidence)
		}
	}
	if stub.calls != 0 {
		t.Fatalf("fast path must not call the remote classifier, got %d calls", stub.calls)
	}
}

func TestContactedWithoutDateDefaultsToToday(t *testing.T) {
	classifier := NewClassifier(nil, slog.Default())
	result := classifier.Classify(context.Background(), "contacted Jalin Moore")
	if result.Action != ActionLogContact || result.DateExpr != "today" {
		t.Fatalf("expected log_contact with today default, got %+v", result)
	}
}

func TestClassifyIsIdempotentForSameText(t *testing.T) {
	classifier := NewClassifier(nil, slog.Default())
	first := classifier.Classify(context.Background(), "status on Ada Chen")
	second := classifier.Classify(context.Background(), "status on Ada Chen")
	if first.Action != second.Action || first.Subject != second.Subject {
		t.Fatalf("expected identical classification, got %+v vs %+v", first, second)
	}
}

func TestFallbackParsesFencedJSON(t *testing.T) {
	stub := &stubCompleter{reply: "```json\n{\"action\":\"schedule\",\"subject\":\"Jalin Moore\",\"date\":\"next friday\",\"confidence\":0.92,\"missing\":[]}\n```"}
	classifier := NewClassifier(stub, slog.Default())

	result := classifier.Classify(context.Background(), "put something on the books with jalin for next week sometime")
	if result.Action != ActionSchedule {
		t.Fatalf("expected schedule, got %s", result.Action)
	}
	if result.Subject != "Jalin Moore" || result.DateExpr != "next friday" {
		t.Fatalf("unexpected slots: %+v", result)
	}
	if result.Confidence != 0.92 {
		t.Fatalf("unexpected confidence: %v", result.Confidence)
	}
	if stub.calls != 1 {
		t.Fatalf("expected one remote call, got %d", stub.calls)
	}
}

func TestFallbackRepairsSloppyJSON(t *testing.T) {
	stub := &stubCompleter{reply: `{action: "assign", subject: "Wyatt Heavy", assignee: "dana", confidence: 0.8,}`}
	classifier := NewClassifier(stub, slog.Default())

	result := classifier.Classify(context.Background(), "hand wyatt over to dana please")
	if result.Action != ActionAssign || result.Assignee != "dana" {
		t.Fatalf("expected repaired assign intent, got %+v", result)
	}
}

func TestFallbackFailuresNeverError(t *testing.T) {
	for _, stub := range []*stubCompleter{
		{err: errors.New("boom")},
		{reply: ""},
		{reply: "sorry, I can't help with that"},
		{reply: `{"action":"launch_missiles","confidence":9}`},
	} {
		classifier := NewClassifier(stub, slog.Default())
		result := classifier.Classify(context.Background(), "completely novel phrasing here")
		if result.Action == "" {
			t.Fatalf("expected a valid intent shape, got %+v", result)
		}
		if result.Action != ActionUnknown && result.Confidence > 1 {
			t.Fatalf("confidence must be clamped: %+v", result)
		}
	}

	stub := &stubCompleter{err: errors.New("timeout")}
	result := NewClassifier(stub, slog.Default()).Classify(context.Background(), "novel text")
	if result.Action != ActionUnknown || result.Confidence != 0 {
		t.Fatalf("classifier failure must yield unknown/0, got %+v", result)
	}
}

func TestMissingSlotFilteringAndPriority(t *testing.T) {
	stub := &stubCompleter{reply: `{"action":"schedule","confidence":0.9,"missing":["date","subject","favorite_color"]}`}
	result := NewClassifier(stub, slog.Default()).Classify(context.Background(), "set something up")
	if len(result.Missing) != 2 {
		t.Fatalf("expected unknown slots filtered, got %v", result.Missing)
	}
	if MostImportantMissing(result.Missing) != SlotSubject {
		t.Fatalf("expected subject to outrank date, got %q", MostImportantMissing(result.Missing))
	}
	if MostImportantMissing([]string{"date", "assignee"}) != SlotAssignee {
		t.Fatal("expected assignee to outrank date")
	}
	if MostImportantMissing(nil) != "" {
		t.Fatal("expected empty result for no missing slots")
	}
}
