package mailer

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestBuild(t *testing.T) {
	m := New("smtp.example.com", 587, "bot@example.com", "secret", "")

	msg := m.build("a@x.io", "Suspicious Login Activity", "<p>locked</p>")

	if got := msg.GetHeader("From"); len(got) != 1 || got[0] != "bot@example.com" {
		t.Errorf("From = %v, want username as sender", got)
	}
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "a@x.io" {
		t.Errorf("To = %v", got)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Suspicious Login Activity" {
		t.Errorf("Subject = %v", got)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if !strings.Contains(buf.String(), "text/html") {
		t.Error("body must be sent as text/html")
	}
}

func TestSend_NoRecipient(t *testing.T) {
	m := New("smtp.example.com", 587, "bot@example.com", "secret", "noreply@example.com")

	if err := m.Send("", "s", "b"); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("Send() error = %v, want ErrNoRecipient", err)
	}
}
