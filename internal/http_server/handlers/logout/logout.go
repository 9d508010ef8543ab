package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "social_auth/internal/lib/api/response"
	sl "social_auth/internal/lib/logger/sl"
	"social_auth/internal/middleware/authn"
	"social_auth/internal/observability"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Request struct {
	Token string `json:"token"`
}

type Response struct {
	resp.Response
}

type Revoker interface {
	Logout(ctx context.Context, refreshToken string) error
}

// New godoc
// @Summary      Выход из системы
// @Description  Удаляет refresh токен из allow-list. Уже удаленный токен не ошибка.
// @Description  Требует access токен в заголовке Authorization.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body  Request  true  "Refresh токен для отзыва"
// @Success      200  {object}  Response
// @Failure      401  {object}  resp.Response  "Нет или невалиден access токен"
// @Failure      500  {object}  resp.Response  "Внутренняя ошибка сервера"
// @Router       /auth/logout [post]
func New(
	log *slog.Logger,
	revoker Revoker,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if uid, ok := authn.AccountID(r.Context()); ok {
			log = log.With(slog.String("uid", uid))
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := revoker.Logout(ctx, req.Token); err != nil {
			if status := resp.RenderError(w, r, err); status >= http.StatusInternalServerError {
				log.Error("failed to logout user", sl.Err(err))
				observability.CaptureError(r, err)
			}

			return
		}

		log.Info("user logged out successfully")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
