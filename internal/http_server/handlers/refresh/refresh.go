package refresh

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "social_auth/internal/lib/api/response"
	sl "social_auth/internal/lib/logger/sl"
	"social_auth/internal/models"
	"social_auth/internal/observability"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// Token не помечен required: пустой токен отдает сервис с сообщением "No Refresh Token Provided"
type Request struct {
	Token string `json:"token"`
}

type Response struct {
	resp.Response
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// New godoc
// @Summary      Обновление access токена
// @Description  Принимает refresh токен из allow-list и выдает новый access токен.
// @Description  При включенной ротации в ответе также приходит новый refresh токен.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body  Request  true  "Refresh токен"
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response  "Токен не передан или невалиден"
// @Router       /auth/token [post]
func New(
	log *slog.Logger,
	refresher Refresher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		pair, err := refresher.Refresh(ctx, req.Token)
		if err != nil {
			if status := resp.RenderError(w, r, err); status >= http.StatusInternalServerError {
				log.Error("failed to refresh token", sl.Err(err))
				observability.CaptureError(r, err)
			} else {
				log.Info("refresh rejected", sl.Err(err))
			}

			return
		}

		log.Info("token refreshed")

		render.JSON(w, r, Response{
			Response:     resp.OK(),
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}
