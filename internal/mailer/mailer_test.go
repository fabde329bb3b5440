package mailer

import (
	"context"
	"strings"
	"testing"
)

func TestNewFallsBackToDevMailer(t *testing.T) {
	if _, ok := New("", "Foodhub", "noreply@example.com").(DevMailer); !ok {
		t.Fatal("expected DevMailer without api key")
	}
	if _, ok := New("key", "Foodhub", "").(DevMailer); !ok {
		t.Fatal("expected DevMailer without sender address")
	}
	if _, ok := New("key", "Foodhub", "noreply@example.com").(*MailerSend); !ok {
		t.Fatal("expected MailerSend when configured")
	}
}

func TestVerificationMessageContainsLink(t *testing.T) {
	msg := VerificationMessage("Ann", "ann@example.com", "http://localhost/verify?token=abc")
	if msg.ToEmail != "ann@example.com" {
		t.Fatalf("unexpected recipient %q", msg.ToEmail)
	}
	if !strings.Contains(msg.Text, "token=abc") || !strings.Contains(msg.HTML, "token=abc") {
		t.Fatal("expected link in both bodies")
	}
	if err := (DevMailer{}).Send(context.Background(), msg); err != nil {
		t.Fatalf("DevMailer.Send: %v", err)
	}
}
