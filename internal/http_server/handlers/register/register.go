package register

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"social_auth/internal/auth"
	resp "social_auth/internal/lib/api/response"
	sl "social_auth/internal/lib/logger/sl"
	"social_auth/internal/models"
	"social_auth/internal/observability"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Username        string `json:"username" validate:"required,max=32"`
	Name            string `json:"name" validate:"max=64"`
	Pass            string `json:"password" validate:"required,password_policy"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Pass"`
}

type Response struct {
	resp.Response
	User         models.Account `json:"user"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}

type Registrar interface {
	Register(ctx context.Context, in auth.RegisterInput) (models.Account, models.TokenPair, error)
}

// New godoc
// @Summary      Регистрация пользователя
// @Description  Создает аккаунт с паролем и сразу возвращает пару токенов.
// @Description  Пароль: от 8 символов, строчная и заглавная буква, цифра и спецсимвол.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body  Request  true  "Данные нового пользователя"
// @Success      201  {object}  Response
// @Failure      400  {object}  resp.Response  "Ошибка валидации или пользователь уже существует"
// @Failure      500  {object}  resp.Response  "Внутренняя ошибка сервера"
// @Router       /auth/register [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	registrar Registrar,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

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

		log.Info("Request body decoded")

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

		acc, pair, err := registrar.Register(ctx, auth.RegisterInput{
			Email:    req.Email,
			Username: req.Username,
			Name:     req.Name,
			Password: req.Pass,
		})
		if err != nil {
			if status := resp.RenderError(w, r, err); status >= http.StatusInternalServerError {
				log.Error("failed to register user", sl.Err(err))
				observability.CaptureError(r, err)
			} else {
				log.Info("registration rejected", sl.Err(err))
			}

			return
		}

		log.Info("user registered", slog.String("uid", acc.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response:     resp.OK(),
			User:         acc,
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}
