package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"social_auth/internal/lib/autherr"
	"social_auth/internal/lib/jwt"
	"social_auth/internal/models"
	"social_auth/internal/storage"
)

const alicePassword = "Passw0rd!"

type testEnv struct {
	svc       *Auth
	accounts  *fakeAccounts
	tokens    *fakeTokens
	hasher    *spyHasher
	publisher *fakePublisher
	kv        *fakeKV
	clock     *fakeClock
	issuer    *jwt.Issuer
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		accounts:  newFakeAccounts(),
		tokens:    newFakeTokens(),
		hasher:    &spyHasher{},
		publisher: &fakePublisher{},
		kv:        newFakeKV(),
		clock:     &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	env.issuer = jwt.NewIssuer("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour).
		WithClock(env.clock.Now)

	base := []Option{
		WithClock(env.clock.Now),
		WithHandoffStore(env.kv, time.Minute),
	}

	env.svc = New(
		discardLogger(),
		env.accounts,
		env.accounts,
		env.tokens,
		env.hasher,
		env.issuer,
		env.publisher,
		append(base, opts...)...,
	)

	return env
}

func (e *testEnv) registerAlice(t *testing.T) models.Account {
	t.Helper()

	acc, _, err := e.svc.Register(context.Background(), RegisterInput{
		Email:    "a@x.io",
		Username: "alice",
		Name:     "Alice",
		Password: alicePassword,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	return acc
}

func requireKind(t *testing.T, err error, want autherr.Kind) *autherr.Error {
	t.Helper()

	var ae *autherr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want *autherr.Error of kind %s", err, want)
	}
	if ae.Kind != want {
		t.Fatalf("kind = %s, want %s (err: %v)", ae.Kind, want, err)
	}

	return ae
}

func TestRegister_IssuesTokensAndStoresRefresh(t *testing.T) {
	env := newTestEnv(t)

	acc, pair, err := env.svc.Register(context.Background(), RegisterInput{
		Email:    "a@x.io",
		Username: "alice",
		Name:     "Alice",
		Password: alicePassword,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if acc.ID == "" {
		t.Fatal("account id is empty")
	}
	if acc.PassHash != "" {
		t.Error("returned account must not carry the password hash")
	}

	stored := env.accounts.get(acc.ID)
	if stored.PassHash == "" || stored.PassHash == alicePassword {
		t.Errorf("stored hash = %q, want a digest", stored.PassHash)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("pair = %+v, want both tokens", pair)
	}
	if !env.tokens.has(pair.RefreshToken) {
		t.Error("refresh token is not in the allow-list")
	}

	sub, err := env.issuer.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	if sub != acc.ID {
		t.Errorf("access token subject = %q, want %q", sub, acc.ID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerAlice(t)

	_, _, err := env.svc.Register(context.Background(), RegisterInput{
		Email:    "A@X.io",
		Username: "alice2",
		Name:     "Alice",
		Password: alicePassword,
	})

	ae := requireKind(t, err, autherr.KindConflict)
	if ae.Message != "User already exists" {
		t.Errorf("message = %q", ae.Message)
	}
}

func TestRegister_UsernameTakenByStore(t *testing.T) {
	env := newTestEnv(t)
	env.registerAlice(t)

	_, _, err := env.svc.Register(context.Background(), RegisterInput{
		Email:    "other@x.io",
		Username: "alice",
		Name:     "Other",
		Password: alicePassword,
	})

	requireKind(t, err, autherr.KindConflict)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{
			name:  "weak password",
			in:    RegisterInput{Email: "a@x.io", Username: "alice", Password: "password"},
			field: "Password",
		},
		{
			name:  "password over bcrypt limit",
			in:    RegisterInput{Email: "a@x.io", Username: "alice", Password: "Aa1!" + strings.Repeat("x", 80)},
			field: "Password",
		},
		{
			name:  "empty email",
			in:    RegisterInput{Email: "  ", Username: "alice", Password: alicePassword},
			field: "Email",
		},
		{
			name:  "username is markup only",
			in:    RegisterInput{Email: "a@x.io", Username: "<b></b>", Password: alicePassword},
			field: "Username",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, _, err := env.svc.Register(context.Background(), tt.in)
			ae := requireKind(t, err, autherr.KindValidation)

			found := false
			for _, f := range ae.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("fields = %+v, want entry for %s", ae.Fields, tt.field)
			}
			if len(env.accounts.byID) != 0 {
				t.Error("no account should be stored on validation failure")
			}
		})
	}
}

func TestRegister_StoresPlainTextVerbatim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acc, _, err := env.svc.Register(ctx, RegisterInput{
		Email:    "O'Neil@x.io",
		Username: "oneil",
		Name:     "Tom & Jerry",
		Password: alicePassword,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	stored := env.accounts.get(acc.ID)
	if stored.Email != "o'neil@x.io" {
		t.Errorf("stored email = %q, want %q", stored.Email, "o'neil@x.io")
	}
	if stored.Name != "Tom & Jerry" {
		t.Errorf("stored name = %q, want %q", stored.Name, "Tom & Jerry")
	}

	if _, _, err := env.svc.Login(ctx, "o'neil@x.io", alicePassword); err != nil {
		t.Fatalf("Login() by email error = %v", err)
	}

	for i := 0; i < DefaultMaxAttempts; i++ {
		_, _, _ = env.svc.Login(ctx, "oneil", "wrong")
	}

	sent := env.publisher.sent()
	if len(sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sent))
	}
	if sent[0].Email != "o'neil@x.io" {
		t.Errorf("notification sent to %q, want %q", sent[0].Email, "o'neil@x.io")
	}
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.saveErr = errors.New("connection reset")

	_, _, err := env.svc.Register(context.Background(), RegisterInput{
		Email: "a@x.io", Username: "alice", Name: "Alice", Password: alicePassword,
	})

	requireKind(t, err, autherr.KindInternal)
}

func TestLogin_ByEmailAndUsername(t *testing.T) {
	for _, text := range []string{"a@x.io", "alice"} {
		t.Run(text, func(t *testing.T) {
			env := newTestEnv(t)
			registered := env.registerAlice(t)

			acc, pair, err := env.svc.Login(context.Background(), text, alicePassword)
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if acc.ID != registered.ID {
				t.Errorf("id = %q, want %q", acc.ID, registered.ID)
			}
			if !env.tokens.has(pair.RefreshToken) {
				t.Error("refresh token is not in the allow-list")
			}
		})
	}
}

func TestLogin_UnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.Login(context.Background(), "ghost", alicePassword)

	ae := requireKind(t, err, autherr.KindUnknownAccount)
	if ae.Message != "User doesn't exist" {
		t.Errorf("message = %q", ae.Message)
	}
}

func TestLogin_EmptyFields(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.Login(context.Background(), "", "")

	ae := requireKind(t, err, autherr.KindValidation)
	if len(ae.Fields) != 2 {
		t.Errorf("fields = %+v, want 2", ae.Fields)
	}
}

// Три неверных пароля подряд, затем верный пароль внутри окна блокировки.
func TestLogin_LockoutScenario(t *testing.T) {
	env := newTestEnv(t)
	acc := env.registerAlice(t)
	ctx := context.Background()

	for i, wantLeft := range []int{2, 1} {
		_, _, err := env.svc.Login(ctx, "alice", "wrong")
		ae := requireKind(t, err, autherr.KindBadCredentials)
		if ae.AttemptsLeft != wantLeft {
			t.Fatalf("attempt %d: attempts left = %d, want %d", i+1, ae.AttemptsLeft, wantLeft)
		}
		if !strings.Contains(ae.Message, "attempt(s) left") {
			t.Errorf("attempt %d: message = %q", i+1, ae.Message)
		}
	}

	_, _, err := env.svc.Login(ctx, "alice", "wrong")
	ae := requireKind(t, err, autherr.KindLocked)
	if !strings.Contains(ae.Message, "locked for 15 minutes") {
		t.Errorf("message = %q", ae.Message)
	}

	stored := env.accounts.get(acc.ID)
	if stored.FailedAttempts != 3 {
		t.Errorf("failed attempts = %d, want 3", stored.FailedAttempts)
	}
	if stored.LockedUntil == nil || !stored.LockedUntil.Equal(env.clock.Now().Add(15*time.Minute)) {
		t.Errorf("locked until = %v, want now+15m", stored.LockedUntil)
	}

	sent := env.publisher.sent()
	if len(sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sent))
	}
	if sent[0].Email != "a@x.io" || sent[0].Subject != "Suspicious Login Activity" {
		t.Errorf("notification = %+v", sent[0])
	}

	verifies := env.hasher.calls()

	env.clock.Advance(time.Minute)
	_, _, err = env.svc.Login(ctx, "alice", alicePassword)
	ae = requireKind(t, err, autherr.KindLocked)
	if !strings.Contains(ae.Message, "Try again in 14 minutes") {
		t.Errorf("message = %q", ae.Message)
	}
	if ae.RetryAfter != 14*time.Minute {
		t.Errorf("retry after = %v, want 14m", ae.RetryAfter)
	}
	if env.hasher.calls() != verifies {
		t.Error("password must not be verified while the account is locked")
	}
}

func TestLogin_ExpiredLockIsCleared(t *testing.T) {
	env := newTestEnv(t)
	acc := env.registerAlice(t)
	ctx := context.Background()

	until := env.clock.Now().Add(-time.Second)
	stored := env.accounts.get(acc.ID)
	stored.FailedAttempts = 3
	stored.LockedUntil = &until
	env.accounts.put(stored)

	_, _, err := env.svc.Login(ctx, "alice", "wrong")
	ae := requireKind(t, err, autherr.KindBadCredentials)
	if ae.AttemptsLeft != 2 {
		t.Errorf("attempts left = %d, want 2 after lock expiry", ae.AttemptsLeft)
	}

	stored = env.accounts.get(acc.ID)
	if stored.FailedAttempts != 1 || stored.LockedUntil != nil {
		t.Errorf("state = (%d, %v), want (1, nil)", stored.FailedAttempts, stored.LockedUntil)
	}
}

func TestLogin_SuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	acc := env.registerAlice(t)
	ctx := context.Background()

	if _, _, err := env.svc.Login(ctx, "alice", "wrong"); err == nil {
		t.Fatal("expected failure")
	}
	if got := env.accounts.get(acc.ID).FailedAttempts; got != 1 {
		t.Fatalf("failed attempts = %d, want 1", got)
	}

	if _, _, err := env.svc.Login(ctx, "alice", alicePassword); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	stored := env.accounts.get(acc.ID)
	if stored.FailedAttempts != 0 || stored.LockedUntil != nil {
		t.Errorf("state = (%d, %v), want (0, nil)", stored.FailedAttempts, stored.LockedUntil)
	}
}

func TestLogin_PublishFailureStillLocks(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker down")
	env.registerAlice(t)
	ctx := context.Background()

	var err error
	for i := 0; i < 3; i++ {
		_, _, err = env.svc.Login(ctx, "alice", "wrong")
	}

	requireKind(t, err, autherr.KindLocked)
}

func TestLogin_PasswordlessAccount(t *testing.T) {
	env := newTestEnv(t)

	acc, _, err := env.svc.LoginFederated(context.Background(), models.FederatedIdentity{
		Email: "g@x.io", Name: "G",
	})
	if err != nil {
		t.Fatalf("LoginFederated() error = %v", err)
	}

	_, _, err = env.svc.Login(context.Background(), "g@x.io", "anything")
	requireKind(t, err, autherr.KindBadCredentials)

	if got := env.accounts.get(acc.ID).FailedAttempts; got != 0 {
		t.Errorf("failed attempts = %d, want 0", got)
	}
	if env.hasher.calls() != 0 {
		t.Error("verify must not run for an account without a password")
	}
}

func TestLogin_CustomThreshold(t *testing.T) {
	env := newTestEnv(t, WithLockout(NewLockout(5, time.Hour)))
	env.registerAlice(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _, err := env.svc.Login(ctx, "alice", "wrong")
		requireKind(t, err, autherr.KindBadCredentials)
	}

	_, _, err := env.svc.Login(ctx, "alice", "wrong")
	ae := requireKind(t, err, autherr.KindLocked)
	if ae.RetryAfter != time.Hour {
		t.Errorf("retry after = %v, want 1h", ae.RetryAfter)
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.registerAlice(t)
	ctx := context.Background()

	_, pair, err := env.svc.Login(ctx, "alice", alicePassword)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	got, err := env.svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got.AccessToken == "" {
		t.Error("access token is empty")
	}
	if got.RefreshToken != "" {
		t.Error("refresh token must not be rotated by default")
	}
	if !env.tokens.has(pair.RefreshToken) {
		t.Error("refresh token must stay in the allow-list")
	}

	if err := env.svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	requireKind(t, err, autherr.KindInvalidToken)
}

func TestRefresh_Errors(t *testing.T) {
	env := newTestEnv(t)
	acc := env.registerAlice(t)
	ctx := context.Background()

	// валидная подпись, но записи в allow-list нет
	orphan, _, err := env.issuer.NewRefreshToken(acc.ID)
	if err != nil {
		t.Fatalf("NewRefreshToken() error = %v", err)
	}

	// запись есть, но подпись чужая
	forged := "not.a.jwt"
	env.tokens.records[forged] = models.RefreshToken{Token: forged, AccountID: acc.ID}

	// запись есть, но токен истек
	expired, _, err := jwt.NewIssuer("access-secret", "refresh-secret", time.Hour, time.Minute).
		WithClock(func() time.Time { return env.clock.Now().Add(-time.Hour) }).
		NewRefreshToken(acc.ID)
	if err != nil {
		t.Fatalf("NewRefreshToken() error = %v", err)
	}
	env.tokens.records[expired] = models.RefreshToken{Token: expired, AccountID: acc.ID}

	// access токен не принимается как refresh
	access, err := env.issuer.NewAccessToken(acc.ID)
	if err != nil {
		t.Fatalf("NewAccessToken() error = %v", err)
	}
	env.tokens.records[access] = models.RefreshToken{Token: access, AccountID: acc.ID}

	tests := []struct {
		name  string
		token string
		want  autherr.Kind
	}{
		{name: "empty", token: "", want: autherr.KindNoToken},
		{name: "whitespace", token: "   ", want: autherr.KindNoToken},
		{name: "not in allow-list", token: orphan, want: autherr.KindInvalidToken},
		{name: "bad signature", token: forged, want: autherr.KindInvalidToken},
		{name: "expired", token: expired, want: autherr.KindInvalidToken},
		{name: "access token", token: access, want: autherr.KindInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Refresh(ctx, tt.token)
			requireKind(t, err, tt.want)
		})
	}
}

func TestRefresh_Rotation(t *testing.T) {
	env := newTestEnv(t, WithRefreshRotation(true))
	env.registerAlice(t)
	ctx := context.Background()

	_, pair, err := env.svc.Login(ctx, "alice", alicePassword)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	got, err := env.svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got.RefreshToken == "" || got.RefreshToken == pair.RefreshToken {
		t.Fatalf("refresh token = %q, want a new token", got.RefreshToken)
	}
	if env.tokens.has(pair.RefreshToken) {
		t.Error("old refresh token must be revoked")
	}
	if !env.tokens.has(got.RefreshToken) {
		t.Error("new refresh token must be stored")
	}

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	requireKind(t, err, autherr.KindInvalidToken)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.svc.Logout(ctx, "never-issued"); err != nil {
		t.Errorf("Logout(unknown) error = %v, want nil", err)
	}
	if err := env.svc.Logout(ctx, ""); err != nil {
		t.Errorf("Logout(empty) error = %v, want nil", err)
	}

	env.tokens.deleteErr = errors.New("db down")
	err := env.svc.Logout(ctx, "some-token")
	requireKind(t, err, autherr.KindInternal)
}

func TestLoginFederated_ProvisionsAndReuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, pair, err := env.svc.LoginFederated(ctx, models.FederatedIdentity{
		Email: "G@X.io", Name: "Go Pher", Avatar: "https://img/1.png",
	})
	if err != nil {
		t.Fatalf("LoginFederated() error = %v", err)
	}
	if first.Email != "g@x.io" || first.Username != "GoPher" || first.Avatar != "https://img/1.png" {
		t.Errorf("account = %+v", first)
	}
	if env.accounts.get(first.ID).PassHash != "" {
		t.Error("provisioned account must have no password")
	}
	if !env.tokens.has(pair.RefreshToken) {
		t.Error("refresh token is not in the allow-list")
	}

	second, _, err := env.svc.LoginFederated(ctx, models.FederatedIdentity{Email: "g@x.io"})
	if err != nil {
		t.Fatalf("LoginFederated() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second login id = %q, want %q", second.ID, first.ID)
	}
	if len(env.accounts.byID) != 1 {
		t.Errorf("accounts = %d, want 1", len(env.accounts.byID))
	}
}

func TestLoginFederated_StoresPlainTextVerbatim(t *testing.T) {
	env := newTestEnv(t)

	acc, _, err := env.svc.LoginFederated(context.Background(), models.FederatedIdentity{
		Email: "o'neil@x.io", Name: "Tom & Jerry",
	})
	if err != nil {
		t.Fatalf("LoginFederated() error = %v", err)
	}

	stored := env.accounts.get(acc.ID)
	if stored.Email != "o'neil@x.io" || stored.Name != "Tom & Jerry" || stored.Username != "Tom&Jerry" {
		t.Errorf("stored = %q / %q / %q", stored.Email, stored.Name, stored.Username)
	}
}

func TestLoginFederated_IgnoresLockout(t *testing.T) {
	env := newTestEnv(t)
	acc := env.registerAlice(t)

	until := env.clock.Now().Add(time.Hour)
	stored := env.accounts.get(acc.ID)
	stored.FailedAttempts = 3
	stored.LockedUntil = &until
	env.accounts.put(stored)

	got, _, err := env.svc.LoginFederated(context.Background(), models.FederatedIdentity{Email: "a@x.io"})
	if err != nil {
		t.Fatalf("LoginFederated() error = %v", err)
	}
	if got.ID != acc.ID {
		t.Errorf("id = %q, want %q", got.ID, acc.ID)
	}
}

func TestLoginFederated_UsernameCollision(t *testing.T) {
	env := newTestEnv(t)
	env.registerAlice(t)

	acc, _, err := env.svc.LoginFederated(context.Background(), models.FederatedIdentity{
		Email: "alice@other.io", Name: "al ice",
	})
	if err != nil {
		t.Fatalf("LoginFederated() error = %v", err)
	}
	if acc.Username == "alice" || !strings.HasPrefix(acc.Username, "alice_") {
		t.Errorf("username = %q, want alice_<suffix>", acc.Username)
	}
}

func TestLoginFederated_ConcurrentProvisionRace(t *testing.T) {
	env := newTestEnv(t)

	// другой запрос успевает создать аккаунт между чтением и вставкой
	raced := false
	env.accounts.saveHook = func(acc models.Account) error {
		if raced {
			return nil
		}
		raced = true
		env.accounts.byID["winner"] = models.Account{ID: "winner", Email: acc.Email, Username: "winner"}

		return storage.ErrUserExists
	}

	acc, _, err := env.svc.LoginFederated(context.Background(), models.FederatedIdentity{Email: "race@x.io"})
	if err != nil {
		t.Fatalf("LoginFederated() error = %v", err)
	}
	if acc.ID != "winner" {
		t.Errorf("id = %q, want the concurrently created account", acc.ID)
	}
}

func TestLoginFederated_NoEmail(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.LoginFederated(context.Background(), models.FederatedIdentity{Name: "x"})
	requireKind(t, err, autherr.KindUpstream)
}

func TestHandoff_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair := models.TokenPair{AccessToken: "a", RefreshToken: "r"}
	code, err := env.svc.IssueHandoff(ctx, "uid-1", pair)
	if err != nil {
		t.Fatalf("IssueHandoff() error = %v", err)
	}
	if len(code) != 64 {
		t.Errorf("code length = %d, want 64", len(code))
	}

	h, err := env.svc.RedeemHandoff(ctx, code)
	if err != nil {
		t.Fatalf("RedeemHandoff() error = %v", err)
	}
	if h.AccountID != "uid-1" || h.AccessToken != "a" || h.RefreshToken != "r" {
		t.Errorf("handoff = %+v", h)
	}

	_, err = env.svc.RedeemHandoff(ctx, code)
	requireKind(t, err, autherr.KindInvalidToken)

	_, err = env.svc.RedeemHandoff(ctx, "")
	requireKind(t, err, autherr.KindValidation)
}

func TestOAuthState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	state, err := env.svc.NewOAuthState(ctx)
	if err != nil {
		t.Fatalf("NewOAuthState() error = %v", err)
	}

	if err := env.svc.ConsumeOAuthState(ctx, state); err != nil {
		t.Fatalf("ConsumeOAuthState() error = %v", err)
	}

	requireKind(t, env.svc.ConsumeOAuthState(ctx, state), autherr.KindInvalidToken)
	requireKind(t, env.svc.ConsumeOAuthState(ctx, ""), autherr.KindInvalidToken)

	env.kv.err = errors.New("redis down")
	requireKind(t, env.svc.ConsumeOAuthState(ctx, "x"), autherr.KindInternal)
}

func TestAvatarURL(t *testing.T) {
	tests := map[string]string{
		"https://lh3.googleusercontent.com/a/x?sz=96&v=2": "https://lh3.googleusercontent.com/a/x?sz=96&v=2",
		"javascript:alert(1)":                             "",
		"/relative.png":                                   "",
		"":                                                "",
	}

	for in, want := range tests {
		if got := avatarURL(in); got != want {
			t.Errorf("avatarURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUsernameFor(t *testing.T) {
	tests := []struct {
		name, display, email, want string
	}{
		{name: "display name", display: "Jane Doe", email: "j@x.io", want: "JaneDoe"},
		{name: "markup stripped", display: "<b>Jane</b> D", email: "j@x.io", want: "JaneD"},
		{name: "email fallback", display: "  ", email: "jane.d@x.io", want: "jane.d"},
		{name: "nothing usable", display: "", email: "@x.io", want: "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := usernameFor(tt.display, tt.email); got != tt.want {
				t.Errorf("usernameFor(%q, %q) = %q, want %q", tt.display, tt.email, got, tt.want)
			}
		})
	}
}
