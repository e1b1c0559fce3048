package mailer

import (
	"context"
	"log/slog"
	gosmtp "net/smtp"
	"strings"
	"testing"
)

func TestSendComposesHTMLMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	mailer := New(Config{Host: "smtp.example", Port: 2525, From: "bot@fund.example"}, slog.Default())
	mailer.sendMail = func(addr string, _ gosmtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := mailer.Send(context.Background(), "founder@startup.example", "Follow-up reminder: Jalin Moore", "<p>hi</p>")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "smtp.example:2525" || gotFrom != "bot@fund.example" {
		t.Fatalf("unexpected smtp target: %s from %s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "founder@startup.example" {
		t.Fatalf("unexpected recipients: %v", gotTo)
	}
	message := string(gotMsg)
	if !strings.Contains(message, "Content-Type: text/html") || !strings.Contains(message, "<p>hi</p>") {
		t.Fatalf("expected HTML message, got %q", message)
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	mailer := New(Config{}, slog.Default())
	if mailer.Enabled() {
		t.Fatal("expected unconfigured mailer to report disabled")
	}
	if err := mailer.Send(context.Background(), "a@b.example", "s", "<p></p>"); err == nil {
		t.Fatal("expected error when smtp is not configured")
	}
}
