package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

type recordingSender struct {
	to, subject, body string
	err               error
}

func (s *recordingSender) Send(to, subject, htmlBody string) error {
	s.to, s.subject, s.body = to, subject, htmlBody

	return s.err
}

func TestHandleMessage(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		body    string
		sendErr error
		wantErr bool
		wantTo  string
	}{
		{
			name:   "lockout notice",
			body:   `{"to":"a@x.io","subject":"Suspicious Login Activity","body":"<p>locked</p>","purpose":"lockout"}`,
			wantTo: "a@x.io",
		},
		{name: "malformed", body: `{"to":`, wantErr: true},
		{name: "no recipient", body: `{"subject":"s"}`, wantErr: true},
		{
			name:    "smtp failure",
			body:    `{"to":"a@x.io","subject":"s","body":"b"}`,
			sendErr: errors.New("dial tcp: refused"),
			wantErr: true,
			wantTo:  "a@x.io",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &recordingSender{err: tt.sendErr}

			err := handleMessage(log, s)([]byte(tt.body))

			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if s.to != tt.wantTo {
				t.Errorf("to = %q, want %q", s.to, tt.wantTo)
			}
			if tt.name == "lockout notice" && s.subject != "Suspicious Login Activity" {
				t.Errorf("subject = %q", s.subject)
			}
		})
	}
}
