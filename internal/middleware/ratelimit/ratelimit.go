package rateLimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

// * Все лимиты считаются по IP клиента. limit <= 0 или window <= 0 берут значения по умолчанию

func Global(limit int, window time.Duration) func(http.Handler) http.Handler {
	return limitByIP(orDefault(limit, 100), orDefaultWindow(window, time.Minute))
}

func Login(limit int, window time.Duration) func(http.Handler) http.Handler {
	return limitByIP(orDefault(limit, 10), orDefaultWindow(window, 5*time.Minute))
}

func Register(limit int, window time.Duration) func(http.Handler) http.Handler {
	return limitByIP(orDefault(limit, 5), orDefaultWindow(window, time.Hour))
}

func Refresh(limit int, window time.Duration) func(http.Handler) http.Handler {
	return limitByIP(orDefault(limit, 30), orDefaultWindow(window, 10*time.Minute))
}

func Logout(limit int, window time.Duration) func(http.Handler) http.Handler {
	return limitByIP(orDefault(limit, 20), orDefaultWindow(window, 10*time.Minute))
}

func OAuth(limit int, window time.Duration) func(http.Handler) http.Handler {
	return limitByIP(orDefault(limit, 20), orDefaultWindow(window, 10*time.Minute))
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"message":"Too many requests"}`))
		}),
	)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}

	return v
}

func orDefaultWindow(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}

	return v
}
