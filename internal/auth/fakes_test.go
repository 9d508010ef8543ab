package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"social_auth/internal/models"
	"social_auth/internal/storage"
)

type fakeAccounts struct {
	mu       sync.Mutex
	byID     map[string]models.Account
	saveErr  error
	findErr  error
	updates  int
	saveHook func(acc models.Account) error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[string]models.Account{}}
}

func (f *fakeAccounts) SaveAccount(_ context.Context, acc models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saveHook != nil {
		if err := f.saveHook(acc); err != nil {
			return err
		}
	}

	for _, existing := range f.byID {
		if existing.Email == acc.Email || existing.Username == acc.Username {
			return storage.ErrUserExists
		}
	}

	f.byID[acc.ID] = acc

	return nil
}

func (f *fakeAccounts) UpdateLockout(_ context.Context, accountID string, failedAttempts int, lockedUntil *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	acc, ok := f.byID[accountID]
	if !ok {
		return storage.ErrUserNotFound
	}

	acc.FailedAttempts = failedAttempts
	acc.LockedUntil = lockedUntil
	f.byID[accountID] = acc
	f.updates++

	return nil
}

func (f *fakeAccounts) AccountByLogin(_ context.Context, text string) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return models.Account{}, f.findErr
	}

	for _, acc := range f.byID {
		if strings.EqualFold(acc.Email, text) || acc.Username == text {
			return acc, nil
		}
	}

	return models.Account{}, storage.ErrUserNotFound
}

func (f *fakeAccounts) AccountByEmail(_ context.Context, email string) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return models.Account{}, f.findErr
	}

	for _, acc := range f.byID {
		if strings.EqualFold(acc.Email, email) {
			return acc, nil
		}
	}

	return models.Account{}, storage.ErrUserNotFound
}

func (f *fakeAccounts) get(id string) models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.byID[id]
}

func (f *fakeAccounts) put(acc models.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.byID[acc.ID] = acc
}

type fakeTokens struct {
	mu        sync.Mutex
	records   map[string]models.RefreshToken
	saveErr   error
	deleteErr error
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{records: map[string]models.RefreshToken{}}
}

func (f *fakeTokens) SaveRefreshToken(_ context.Context, rt models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}

	f.records[rt.Token] = rt

	return nil
}

func (f *fakeTokens) RefreshToken(_ context.Context, token string) (models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rt, ok := f.records[token]
	if !ok {
		return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
	}

	return rt, nil
}

func (f *fakeTokens) DeleteRefreshToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}

	if _, ok := f.records[token]; !ok {
		return storage.ErrRefreshTokenNotFound
	}

	delete(f.records, token)

	return nil
}

func (f *fakeTokens) has(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.records[token]

	return ok
}

// spyHasher хранит пароль как "hashed:<pw>" и считает вызовы Verify
type spyHasher struct {
	mu          sync.Mutex
	verifyCalls int
	hashErr     error
}

func (h *spyHasher) Hash(_ context.Context, plaintext string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}

	return "hashed:" + plaintext, nil
}

func (h *spyHasher) Verify(_ context.Context, plaintext, digest string) (bool, error) {
	h.mu.Lock()
	h.verifyCalls++
	h.mu.Unlock()

	return digest == "hashed:"+plaintext, nil
}

func (h *spyHasher) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.verifyCalls
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []models.Message
	err      error
}

func (p *fakePublisher) SendMessage(_ context.Context, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.messages = append(p.messages, msg)

	return nil
}

func (p *fakePublisher) sent() []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]models.Message(nil), p.messages...)
}

type fakeKV struct {
	mu     sync.Mutex
	values map[string][]byte
	err    error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string][]byte{}}
}

func (f *fakeKV) PutOnce(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	if _, ok := f.values[key]; ok {
		return storage.ErrKeyExists
	}

	f.values[key] = value

	return nil
}

func (f *fakeKV) Take(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	v, ok := f.values[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	delete(f.values, key)

	return v, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
