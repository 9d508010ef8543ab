package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"social_auth/internal/lib/autherr"
	sl "social_auth/internal/lib/logger/sl"
	"social_auth/internal/lib/password"
	"social_auth/internal/lib/sanitize"
	"social_auth/internal/metrics"
	"social_auth/internal/models"
	"social_auth/internal/storage"

	"github.com/google/uuid"
)

const lockoutMailSubject = "Suspicious Login Activity"

type Auth struct {
	log           *slog.Logger
	accSaver      AccountSaver
	accProvider   AccountProvider
	tokenStore    TokenStore
	hasher        PasswordHasher
	issuer        TokenIssuer
	publisher     Publisher
	handoff       HandoffStore
	handoffTTL    time.Duration
	lockout       Lockout
	rotateRefresh bool
	now           func() time.Time
}

type AccountSaver interface {
	SaveAccount(ctx context.Context, acc models.Account) error
	UpdateLockout(ctx context.Context, accountID string, failedAttempts int, lockedUntil *time.Time) error
}

type AccountProvider interface {
	AccountByLogin(ctx context.Context, text string) (models.Account, error)
	AccountByEmail(ctx context.Context, email string) (models.Account, error)
}

type TokenStore interface {
	SaveRefreshToken(ctx context.Context, rt models.RefreshToken) error
	RefreshToken(ctx context.Context, token string) (models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, digest string) (bool, error)
}

type TokenIssuer interface {
	NewAccessToken(accountID string) (string, error)
	NewRefreshToken(accountID string) (string, time.Time, error)
	ParseRefreshToken(token string) (string, error)
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type Option func(*Auth)

func WithLockout(l Lockout) Option {
	return func(a *Auth) {
		a.lockout = l
	}
}

// * WithRefreshRotation включает выпуск нового refresh токена при каждом обновлении
func WithRefreshRotation(enabled bool) Option {
	return func(a *Auth) {
		a.rotateRefresh = enabled
	}
}

func WithHandoffStore(store HandoffStore, ttl time.Duration) Option {
	return func(a *Auth) {
		a.handoff = store
		if ttl > 0 {
			a.handoffTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

func New(
	log *slog.Logger,
	accountSaver AccountSaver,
	accountProvider AccountProvider,
	tokenStore TokenStore,
	hasher PasswordHasher,
	issuer TokenIssuer,
	publisher Publisher,
	opts ...Option,
) *Auth {
	a := &Auth{
		log:         log,
		accSaver:    accountSaver,
		accProvider: accountProvider,
		tokenStore:  tokenStore,
		hasher:      hasher,
		issuer:      issuer,
		publisher:   publisher,
		handoffTTL:  defaultHandoffTTL,
		lockout:     NewLockout(DefaultMaxAttempts, DefaultLockDuration),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type RegisterInput struct {
	Email    string
	Username string
	Name     string
	Password string
}

// * Register создает аккаунт с паролем и сразу выдает пару токенов
func (a *Auth) Register(ctx context.Context, in RegisterInput) (models.Account, models.TokenPair, error) {
	const op = "auth.Register"

	log := a.log.With(
		slog.String("op", op),
	)

	in.Email = strings.ToLower(sanitize.String(in.Email))
	in.Username = sanitize.String(in.Username)
	in.Name = sanitize.String(in.Name)

	var fields []autherr.FieldError
	if in.Email == "" {
		fields = append(fields, autherr.FieldError{Field: "Email", Message: "Please provide a valid email"})
	}
	if in.Username == "" {
		fields = append(fields, autherr.FieldError{Field: "Username", Message: "Username is required"})
	}
	if err := password.CheckPolicy(in.Password); err != nil {
		fields = append(fields, autherr.FieldError{Field: "Password", Message: err.Error()})
	}
	if len(fields) > 0 {
		return models.Account{}, models.TokenPair{}, autherr.Validation(fields...)
	}

	log.Info("Registering new user")

	_, err := a.accProvider.AccountByEmail(ctx, in.Email)
	switch {
	case err == nil:
		log.Warn("User already exists")

		return models.Account{}, models.TokenPair{}, autherr.Conflict()
	case !errors.Is(err, storage.ErrUserNotFound):
		log.Error("failed to look up user", sl.Err(err))

		return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	passHash, err := a.hasher.Hash(ctx, in.Password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	acc, err := a.newAccount(in.Email, in.Username, in.Name, "", passHash)
	if err != nil {
		return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if err := a.accSaver.SaveAccount(ctx, acc); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("User already exists")

			return models.Account{}, models.TokenPair{}, autherr.Conflict()
		}

		log.Error("Failed to save user", sl.Err(err))

		return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	pair, err := a.issueTokenPair(ctx, acc.ID)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))

		return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	log.Info("User registered", slog.String("uid", acc.ID))

	acc.PassHash = ""

	return acc, pair, nil
}

// * Login проверяет учетные данные с учетом блокировки и возвращает пару токенов.
// Состояние блокировки читается до сравнения пароля.
func (a *Auth) Login(ctx context.Context, text, pass string) (models.Account, models.TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	text = sanitize.String(text)
	if text == "" || pass == "" {
		var fields []autherr.FieldError
		if text == "" {
			fields = append(fields, autherr.FieldError{Field: "Text", Message: "Email or username is required"})
		}
		if pass == "" {
			fields = append(fields, autherr.FieldError{Field: "Password", Message: "Password is required"})
		}

		return models.Account{}, models.TokenPair{}, autherr.Validation(fields...)
	}

	acc, err := a.accProvider.AccountByLogin(ctx, text)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			metrics.LoginAttempts.WithLabelValues("unknown").Inc()

			return models.Account{}, models.TokenPair{}, autherr.UnknownAccount()
		}

		log.Error("failed to get user", sl.Err(err))

		return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	log = log.With(slog.String("uid", acc.ID))
	now := a.now()

	locked, remaining, reset := a.lockout.Check(&acc, now)
	if locked {
		log.Info("login rejected, account locked", slog.Duration("remaining", remaining))
		metrics.LoginAttempts.WithLabelValues("locked").Inc()

		return models.Account{}, models.TokenPair{}, autherr.Locked(remaining)
	}
	if reset {
		if err := a.accSaver.UpdateLockout(ctx, acc.ID, acc.FailedAttempts, acc.LockedUntil); err != nil {
			log.Error("failed to reset expired lock", sl.Err(err))

			return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
		}

		log.Info("expired lock cleared")
	}

	if !acc.HasPassword() {
		log.Info("password login for oauth-only account")
		metrics.LoginAttempts.WithLabelValues("passwordless").Inc()

		return models.Account{}, models.TokenPair{}, autherr.PasswordlessAccount()
	}

	ok, err := a.hasher.Verify(ctx, pass, acc.PassHash)
	if err != nil {
		log.Error("failed to verify password", sl.Err(err))

		return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if !ok {
		return models.Account{}, models.TokenPair{}, a.loginFailed(ctx, log, &acc, now)
	}

	if a.lockout.RegisterSuccess(&acc) {
		if err := a.accSaver.UpdateLockout(ctx, acc.ID, acc.FailedAttempts, acc.LockedUntil); err != nil {
			log.Error("failed to reset login attempts", sl.Err(err))

			return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
		}
	}

	pair, err := a.issueTokenPair(ctx, acc.ID)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))

		return models.Account{}, models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	log.Info("user logged in successfully")

	acc.PassHash = ""

	return acc, pair, nil
}

func (a *Auth) loginFailed(ctx context.Context, log *slog.Logger, acc *models.Account, now time.Time) error {
	const op = "auth.loginFailed"

	locked, attemptsLeft := a.lockout.RegisterFailure(acc, now)

	if err := a.accSaver.UpdateLockout(ctx, acc.ID, acc.FailedAttempts, acc.LockedUntil); err != nil {
		log.Error("failed to save login attempt", sl.Err(err))

		return autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if !locked {
		log.Info("invalid credentials", slog.Int("attempts_left", attemptsLeft))
		metrics.LoginAttempts.WithLabelValues("bad_credentials").Inc()

		return autherr.BadCredentials(attemptsLeft)
	}

	log.Warn("account locked after failed attempts", slog.Time("locked_until", *acc.LockedUntil))
	metrics.LoginAttempts.WithLabelValues("bad_credentials").Inc()
	metrics.Lockouts.Inc()

	a.notifyLocked(ctx, log, acc.Email)

	return autherr.JustLocked(a.lockout.Duration)
}

// * notifyLocked отправляет письмо о блокировке, ошибка только логируется
func (a *Auth) notifyLocked(ctx context.Context, log *slog.Logger, email string) {
	if a.publisher == nil {
		return
	}

	minutes := int(a.lockout.Duration / time.Minute)

	msg := models.Message{
		Email:   email,
		Subject: lockoutMailSubject,
		Body: fmt.Sprintf(
			"<p>Dear User,</p>"+
				"<p>There have been multiple failed login attempts on your account. "+
				"Your account has been locked for %d minutes as a security measure.</p>"+
				"<p>If this was not you, please reset your password immediately.</p>",
			minutes,
		),
		Purpose: "lockout",
	}

	if err := a.publisher.SendMessage(ctx, msg); err != nil {
		log.Error("failed to publish lockout notification", sl.Err(err))
	}
}

// * Refresh выпускает новый access токен по refresh токену из allow-list.
// При включенной ротации старый refresh удаляется и выдается новый.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "auth.Refresh"

	log := a.log.With(
		slog.String("op", op),
	)

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return models.TokenPair{}, autherr.NoToken()
	}

	rt, err := a.tokenStore.RefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			log.Warn("refresh token not found")

			return models.TokenPair{}, autherr.InvalidToken(err)
		}

		log.Error("failed to load refresh token", sl.Err(err))

		return models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	subject, err := a.issuer.ParseRefreshToken(refreshToken)
	if err != nil {
		log.Warn("refresh token rejected", sl.Err(err))

		return models.TokenPair{}, autherr.InvalidToken(err)
	}

	if subject != rt.AccountID {
		log.Warn("refresh token subject mismatch", slog.String("uid", rt.AccountID))

		return models.TokenPair{}, autherr.InvalidToken(errors.New("subject mismatch"))
	}

	accessToken, err := a.issuer.NewAccessToken(subject)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))

		return models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	metrics.TokensIssued.WithLabelValues("access").Inc()

	if !a.rotateRefresh {
		log.Info("access token refreshed", slog.String("uid", subject))

		return models.TokenPair{AccessToken: accessToken}, nil
	}

	newRefresh, err := a.saveRefreshToken(ctx, subject)
	if err != nil {
		log.Error("failed to rotate refresh token", sl.Err(err))

		return models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if err := a.tokenStore.DeleteRefreshToken(ctx, refreshToken); err != nil &&
		!errors.Is(err, storage.ErrRefreshTokenNotFound) {
		log.Error("failed to delete rotated refresh token", sl.Err(err))

		return models.TokenPair{}, autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	log.Info("refresh successful", slog.String("uid", subject))

	return models.TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// * Logout удаляет refresh токен из allow-list, отсутствие токена не ошибка
func (a *Auth) Logout(ctx context.Context, refreshToken string) error {
	const op = "auth.Logout"

	log := a.log.With(
		slog.String("op", op),
	)

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		log.Info("logout without token")

		return nil
	}

	err := a.tokenStore.DeleteRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			log.Info("refresh token already revoked")

			return nil
		}

		log.Error("failed to delete refresh token", sl.Err(err))

		return autherr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	log.Info("logout successful")

	return nil
}

func (a *Auth) issueTokenPair(ctx context.Context, accountID string) (models.TokenPair, error) {
	const op = "auth.issueTokenPair"

	accessToken, err := a.issuer.NewAccessToken(accountID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.TokensIssued.WithLabelValues("access").Inc()

	refreshToken, err := a.saveRefreshToken(ctx, accountID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// * saveRefreshToken выпускает refresh токен и сразу кладет его в allow-list
func (a *Auth) saveRefreshToken(ctx context.Context, accountID string) (string, error) {
	const op = "auth.saveRefreshToken"

	token, expiresAt, err := a.issuer.NewRefreshToken(accountID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	err = a.tokenStore.SaveRefreshToken(ctx, models.RefreshToken{
		Token:     token,
		AccountID: accountID,
		IssuedAt:  a.now(),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	metrics.TokensIssued.WithLabelValues("refresh").Inc()

	return token, nil
}

func (a *Auth) newAccount(email, username, name, avatar, passHash string) (models.Account, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return models.Account{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := a.now().UTC()

	return models.Account{
		ID:        id.String(),
		Email:     email,
		Username:  username,
		Name:      name,
		Avatar:    avatar,
		PassHash:  passHash,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
