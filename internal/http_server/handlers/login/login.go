package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "social_auth/internal/lib/api/response"
	sl "social_auth/internal/lib/logger/sl"
	"social_auth/internal/models"
	"social_auth/internal/observability"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Text string `json:"text" validate:"required,max=254"`
	Pass string `json:"password" validate:"required"`
}

type Response struct {
	resp.Response
	User         models.Account `json:"user"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}

type Authenticator interface {
	Login(ctx context.Context, text, pass string) (models.Account, models.TokenPair, error)
}

// New godoc
// @Summary      Вход по паролю
// @Description  text это email или username. После 3 неудачных попыток аккаунт блокируется на 15 минут.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body  Request  true  "Учетные данные"
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response  "Неверный пароль, в message остаток попыток"
// @Failure      401  {object}  resp.Response  "Пользователь не найден"
// @Failure      423  {object}  resp.Response  "Аккаунт заблокирован, см. Retry-After"
// @Router       /auth/login [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	authenticator Authenticator,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if !errors.As(err, &validateErr) {
				log.Error("Failed to validate request", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))

				return
			}

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		acc, pair, err := authenticator.Login(ctx, req.Text, req.Pass)
		if err != nil {
			if status := resp.RenderError(w, r, err); status >= http.StatusInternalServerError {
				log.Error("failed to login user", sl.Err(err))
				observability.CaptureError(r, err)
			} else {
				log.Info("login rejected", sl.Err(err))
			}

			return
		}

		log.Info("User logged in successfully", slog.String("uid", acc.ID))

		ResponseOK(w, r, acc, pair)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, acc models.Account, pair models.TokenPair) {
	render.JSON(w, r, Response{
		Response:     resp.OK(),
		User:         acc,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
