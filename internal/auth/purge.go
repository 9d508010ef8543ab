package auth

import (
	"context"
	"log/slog"
	"time"

	sl "social_auth/internal/lib/logger/sl"
)

type TokenPurger interface {
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// * RunTokenPurge периодически удаляет истекшие refresh токены, пока не отменен ctx
func RunTokenPurge(ctx context.Context, log *slog.Logger, purger TokenPurger, interval time.Duration) {
	const op = "auth.RunTokenPurge"

	log = log.With(slog.String("op", op))

	if interval <= 0 {
		log.Info("refresh token purge disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.DeleteExpiredRefreshTokens(ctx, time.Now())
			if err != nil {
				log.Error("failed to purge expired refresh tokens", sl.Err(err))
				continue
			}

			if n > 0 {
				log.Info("expired refresh tokens purged", slog.Int64("count", n))
			}
		}
	}
}
