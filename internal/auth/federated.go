package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"social_auth/internal/lib/autherr"
	sl "social_auth/internal/lib/logger/sl"
	"social_auth/internal/lib/sanitize"
	"social_auth/internal/metrics"
	"social_auth/internal/models"
	"social_auth/internal/storage"
)

const (
	defaultHandoffTTL = time.Minute
	stateTTL          = 10 * time.Minute

	handoffKeyPrefix = "oauth:handoff:"
	stateKeyPrefix   = "oauth:state:"
)

var ErrHandoffUnavailable = errors.New("handoff store is not configured")

type HandoffStore interface {
	PutOnce(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Take(ctx context.Context, key string) ([]byte, error)
}

// * LoginFederated находит аккаунт по email от провайдера или создает новый без пароля.
// Блокировка по паролю на этот путь не влияет.
func (a *Auth) LoginFederated(ctx context.Context, identity models.FederatedIdentity) (models.Account, models.TokenPair, error) {
	const op = "auth.LoginFederated"

	log := a.log.With(slog.String("op", op))

	email := strings.ToLower(sanitize.String(identity.Email))
	if email == "" {
		metrics.OAuthLogins.WithLabelValues(metrics.ProviderGoogle, "no_email").Inc()

		return models.Account{}, models.TokenPair{}, autherr.Upstream(errors.New("provider returned no email"))
	}

	acc, err := a.resolveOrProvision(ctx, log, email, sanitize.String(identity.Name), avatarURL(identity.Avatar))
	if err != nil {
		metrics.OAuthLogins.WithLabelValues(metrics.ProviderGoogle, "error").Inc()

		return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	pair, err := a.issueTokenPair(ctx, acc.ID)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		metrics.OAuthLogins.WithLabelValues(metrics.ProviderGoogle, "error").Inc()

		return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	metrics.OAuthLogins.WithLabelValues(metrics.ProviderGoogle, "success").Inc()
	log.Info("federated login", slog.String("uid", acc.ID))

	acc.PassHash = ""

	return acc, pair, nil
}

// * resolveOrProvision при гонке двух первых входов второй получает ErrUserExists
// от уникального индекса и перечитывает аккаунт
func (a *Auth) resolveOrProvision(ctx context.Context, log *slog.Logger, email, name, avatar string) (models.Account, error) {
	acc, err := a.accProvider.AccountByEmail(ctx, email)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to look up user", sl.Err(err))

		return models.Account{}, err
	}

	base := usernameFor(name, email)
	username := base
	if name == "" {
		name = base
	}

	for attempt := 0; attempt < 3; attempt++ {
		acc, err = a.newAccount(email, username, name, avatar, "")
		if err != nil {
			return models.Account{}, err
		}

		err = a.accSaver.SaveAccount(ctx, acc)
		if err == nil {
			log.Info("provisioned account from provider", slog.String("uid", acc.ID))

			return acc, nil
		}
		if !errors.Is(err, storage.ErrUserExists) {
			log.Error("failed to save user", sl.Err(err))

			return models.Account{}, err
		}

		existing, lookupErr := a.accProvider.AccountByEmail(ctx, email)
		if lookupErr == nil {
			return existing, nil
		}
		if !errors.Is(lookupErr, storage.ErrUserNotFound) {
			return models.Account{}, lookupErr
		}

		// email свободен, значит занят username
		suffix, sErr := randomHex(2)
		if sErr != nil {
			return models.Account{}, sErr
		}
		username = base + "_" + suffix
	}

	return models.Account{}, fmt.Errorf("provision %s: %w", email, storage.ErrUserExists)
}

// * IssueHandoff кладет токены под одноразовый код, который уходит клиенту в редиректе
func (a *Auth) IssueHandoff(ctx context.Context, accountID string, pair models.TokenPair) (string, error) {
	const op = "auth.IssueHandoff"

	if a.handoff == nil {
		return "", autherr.Internal(fmt.Errorf("%s: %w", op, ErrHandoffUnavailable))
	}

	payload, err := json.Marshal(models.Handoff{
		AccountID:    accountID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	if err != nil {
		return "", autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	code, err := randomHex(32)
	if err != nil {
		return "", autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if err := a.handoff.PutOnce(ctx, handoffKeyPrefix+code, payload, a.handoffTTL); err != nil {
		a.log.Error("failed to store handoff", slog.String("op", op), sl.Err(err))

		return "", autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	return code, nil
}

// * RedeemHandoff возвращает токены по коду, повторное использование кода невозможно
func (a *Auth) RedeemHandoff(ctx context.Context, code string) (models.Handoff, error) {
	const op = "auth.RedeemHandoff"

	code = strings.TrimSpace(code)
	if code == "" {
		return models.Handoff{}, autherr.Validation(autherr.FieldError{Field: "Code", Message: "Code is required"})
	}

	if a.handoff == nil {
		return models.Handoff{}, autherr.Internal(fmt.Errorf("%s: %w", op, ErrHandoffUnavailable))
	}

	payload, err := a.handoff.Take(ctx, handoffKeyPrefix+code)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return models.Handoff{}, autherr.InvalidCode(err)
		}

		return models.Handoff{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	var h models.Handoff
	if err := json.Unmarshal(payload, &h); err != nil {
		return models.Handoff{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	return h, nil
}

// * NewOAuthState создает CSRF state для редиректа к провайдеру
func (a *Auth) NewOAuthState(ctx context.Context) (string, error) {
	const op = "auth.NewOAuthState"

	if a.handoff == nil {
		return "", autherr.Internal(fmt.Errorf("%s: %w", op, ErrHandoffUnavailable))
	}

	state, err := randomHex(16)
	if err != nil {
		return "", autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if err := a.handoff.PutOnce(ctx, stateKeyPrefix+state, []byte("1"), stateTTL); err != nil {
		return "", autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	return state, nil
}

func (a *Auth) ConsumeOAuthState(ctx context.Context, state string) error {
	const op = "auth.ConsumeOAuthState"

	if state == "" {
		return autherr.InvalidCode(errors.New("missing oauth state"))
	}

	if a.handoff == nil {
		return autherr.Internal(fmt.Errorf("%s: %w", op, ErrHandoffUnavailable))
	}

	if _, err := a.handoff.Take(ctx, stateKeyPrefix+state); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return autherr.InvalidCode(err)
		}

		return autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

// * avatarURL принимает только абсолютные http(s) ссылки
func avatarURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return ""
	}

	return u.String()
}

// * usernameFor отображаемое имя без пробелов, если его нет, то локальная часть email
func usernameFor(name, email string) string {
	if u := sanitize.Username(name); u != "" {
		return u
	}

	local, _, _ := strings.Cut(email, "@")
	local = sanitize.Username(local)
	if local == "" {
		return "user"
	}

	return local
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
