package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sl "social_auth/internal/lib/logger/sl"

	"github.com/go-chi/render"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// * New проверяет зависимости, при любой ошибке отвечает 503
func New(log *slog.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.health.New"

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		res := Response{Status: "ok", Checks: make(map[string]string, len(deps))}

		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				log.Warn("dependency is unhealthy", slog.String("op", op), slog.String("dep", name), sl.Err(err))

				res.Status = "unavailable"
				res.Checks[name] = "down"

				continue
			}

			res.Checks[name] = "up"
		}

		if res.Status != "ok" {
			render.Status(r, http.StatusServiceUnavailable)
		}

		render.JSON(w, r, res)
	}
}
