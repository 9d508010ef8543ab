package oauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	resp "social_auth/internal/lib/api/response"
	"social_auth/internal/lib/autherr"
	sl "social_auth/internal/lib/logger/sl"
	"social_auth/internal/metrics"
	"social_auth/internal/models"
	"social_auth/internal/observability"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (models.FederatedIdentity, error)
}

type StateIssuer interface {
	NewOAuthState(ctx context.Context) (string, error)
	ConsumeOAuthState(ctx context.Context, state string) error
}

type FederatedLogin interface {
	LoginFederated(ctx context.Context, identity models.FederatedIdentity) (models.Account, models.TokenPair, error)
	IssueHandoff(ctx context.Context, accountID string, pair models.TokenPair) (string, error)
}

type HandoffRedeemer interface {
	RedeemHandoff(ctx context.Context, code string) (models.Handoff, error)
}

// Start godoc
// @Summary      Начало входа через Google
// @Description  Сохраняет CSRF state и перенаправляет на страницу согласия Google.
// @Tags         oauth
// @Success      302
// @Failure      500  {object}  resp.Response
// @Router       /auth/google/start [get]
func Start(log *slog.Logger, states StateIssuer, provider Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.oauth.Start"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		state, err := states.NewOAuthState(r.Context())
		if err != nil {
			log.Error("failed to create oauth state", sl.Err(err))
			observability.CaptureError(r, err)
			resp.RenderError(w, r, err)

			return
		}

		http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
	}
}

// Callback godoc
// @Summary      Callback Google OAuth
// @Description  Меняет code на профиль, находит или создает аккаунт и перенаправляет
// @Description  на {CLIENT_URL}/oauth/redirect?uid&code, где code одноразовый и живет 60 секунд.
// @Tags         oauth
// @Param        code   query  string  true  "Код авторизации"
// @Param        state  query  string  true  "CSRF state"
// @Success      302
// @Failure      400  {object}  resp.Response  "Нет кода или невалидный state"
// @Failure      502  {object}  resp.Response  "Ошибка провайдера"
// @Router       /auth/google [get]
func Callback(
	log *slog.Logger,
	states StateIssuer,
	provider Provider,
	federated FederatedLogin,
	clientURL string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.oauth.Callback"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()

		if providerErr := q.Get("error"); providerErr != "" {
			log.Warn("provider returned error", slog.String("error", providerErr))
			metrics.OAuthLogins.WithLabelValues(metrics.ProviderGoogle, "denied").Inc()
			resp.RenderError(w, r, autherr.Upstream(errors.New(providerErr)))

			return
		}

		code := strings.TrimSpace(q.Get("code"))
		if code == "" {
			resp.RenderError(w, r, autherr.Validation(autherr.FieldError{Field: "code", Message: "code is required"}))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()

		if err := states.ConsumeOAuthState(ctx, q.Get("state")); err != nil {
			log.Warn("oauth state rejected", sl.Err(err))
			if status := resp.RenderError(w, r, err); status >= http.StatusInternalServerError {
				observability.CaptureError(r, err)
			}

			return
		}

		identity, err := provider.Exchange(ctx, code)
		if err != nil {
			log.Error("failed to exchange oauth code", sl.Err(err))
			metrics.OAuthLogins.WithLabelValues(metrics.ProviderGoogle, "upstream_error").Inc()
			observability.CaptureError(r, err)
			resp.RenderError(w, r, autherr.Upstream(err))

			return
		}

		acc, pair, err := federated.LoginFederated(ctx, identity)
		if err != nil {
			if status := resp.RenderError(w, r, err); status >= http.StatusInternalServerError {
				log.Error("failed to login with provider", sl.Err(err))
				observability.CaptureError(r, err)
			}

			return
		}

		handoff, err := federated.IssueHandoff(ctx, acc.ID, pair)
		if err != nil {
			log.Error("failed to issue handoff code", sl.Err(err))
			observability.CaptureError(r, err)
			resp.RenderError(w, r, err)

			return
		}

		log.Info("oauth login complete", slog.String("uid", acc.ID))

		http.Redirect(w, r, RedirectURL(clientURL, acc.ID, handoff), http.StatusFound)
	}
}

// * RedirectURL адрес клиента, куда уходит браузер после входа через провайдера
func RedirectURL(clientURL, accountID, code string) string {
	q := url.Values{}
	q.Set("uid", accountID)
	q.Set("code", code)

	return strings.TrimRight(clientURL, "/") + "/oauth/redirect?" + q.Encode()
}

type ExchangeRequest struct {
	Code string `json:"code"`
}

type ExchangeResponse struct {
	resp.Response
	AccountID    string `json:"uid"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Exchange godoc
// @Summary      Обмен одноразового кода на токены
// @Tags         oauth
// @Accept       json
// @Produce      json
// @Param        request  body  ExchangeRequest  true  "Код из редиректа"
// @Success      200  {object}  ExchangeResponse
// @Failure      400  {object}  resp.Response  "Код невалиден или уже использован"
// @Router       /auth/oauth/exchange [post]
func Exchange(log *slog.Logger, redeemer HandoffRedeemer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.oauth.Exchange"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req ExchangeRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		h, err := redeemer.RedeemHandoff(ctx, req.Code)
		if err != nil {
			if status := resp.RenderError(w, r, err); status >= http.StatusInternalServerError {
				log.Error("failed to redeem handoff code", sl.Err(err))
				observability.CaptureError(r, err)
			} else {
				log.Info("handoff code rejected", sl.Err(err))
			}

			return
		}

		render.JSON(w, r, ExchangeResponse{
			Response:     resp.OK(),
			AccountID:    h.AccountID,
			AccessToken:  h.AccessToken,
			RefreshToken: h.RefreshToken,
		})
	}
}
