package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "social_auth/internal/lib/api/response"
	sl "social_auth/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ctxKey struct{}

type AccessTokenParser interface {
	ParseAccessToken(token string) (string, error)
}

// * New пропускает запрос дальше только с валидным access токеном в заголовке Authorization
func New(log *slog.Logger, parser AccessTokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				log.Info("missing bearer token")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))

				return
			}

			accountID, err := parser.ParseAccessToken(token)
			if err != nil {
				log.Info("access token rejected", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))

				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, accountID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// * AccountID id аккаунта, положенный в контекст middleware
func AccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)

	return id, ok && id != ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
