package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"social_auth/internal/lib/autherr"
	"social_auth/internal/models"
)

type stubRefresher struct {
	valid  string
	rotate bool
}

func (s stubRefresher) Refresh(_ context.Context, token string) (models.TokenPair, error) {
	if token == "" {
		return models.TokenPair{}, autherr.NoToken()
	}
	if token != s.valid {
		return models.TokenPair{}, autherr.InvalidToken(errors.New("revoked"))
	}

	pair := models.TokenPair{AccessToken: "new-access"}
	if s.rotate {
		pair.RefreshToken = "new-refresh"
	}

	return pair, nil
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name    string
		rotate  bool
		body    string
		status  int
		message string
		refresh bool
	}{
		{name: "valid", body: `{"token":"good"}`, status: http.StatusOK},
		{name: "valid with rotation", rotate: true, body: `{"token":"good"}`, status: http.StatusOK, refresh: true},
		{name: "missing", body: `{}`, status: http.StatusBadRequest, message: "No Refresh Token Provided"},
		{name: "revoked", body: `{"token":"bad"}`, status: http.StatusBadRequest, message: "Invalid Refresh Token"},
		{name: "malformed", body: `token`, status: http.StatusBadRequest, message: "Failed to decode request"},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(log, stubRefresher{valid: "good", rotate: tt.rotate})

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}

			var res Response
			if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
				t.Fatalf("decode: %v", err)
			}

			if tt.status != http.StatusOK {
				if res.Message != tt.message {
					t.Errorf("message = %q, want %q", res.Message, tt.message)
				}

				return
			}

			if res.AccessToken != "new-access" {
				t.Errorf("access token = %q", res.AccessToken)
			}
			if (res.RefreshToken != "") != tt.refresh {
				t.Errorf("refresh token = %q, rotation %v", res.RefreshToken, tt.refresh)
			}
		})
	}
}
