package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultCost = 10
	MinLength   = 8
	MaxBytes    = 72
	PolicyTag   = "password_policy"
)

var (
	ErrWeakPassword    = errors.New("password does not satisfy complexity policy")
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
)

// * Hasher bcrypt с ограничением числа одновременных хеширований,
// чтобы всплеск логинов не занимал все ядра
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewHasher(cost int, maxConcurrent int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}

	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	const op = "password.Hash"

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer h.sem.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(digest), nil
}

// * Verify возвращает false при несовпадении, ошибку только для битого хеша
func (h *Hasher) Verify(ctx context.Context, plaintext, digest string) (bool, error) {
	const op = "password.Verify"

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", op, err)
	}
}

// * CheckPolicy единая политика сложности пароля: >= 8 символов,
// строчная, заглавная, цифра и спецсимвол. bcrypt не принимает больше 72 байт
func CheckPolicy(plaintext string) error {
	if len(plaintext) > MaxBytes {
		return ErrPasswordTooLong
	}
	if utf8.RuneCountInString(plaintext) < MinLength {
		return ErrWeakPassword
	}

	var lower, upper, digit, symbol bool
	for _, r := range plaintext {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			symbol = true
		}
	}

	if !lower || !upper || !digit || !symbol {
		return ErrWeakPassword
	}

	return nil
}

// * RegisterValidation регистрирует тег password_policy в валидаторе
func RegisterValidation(v *validator.Validate) error {
	return v.RegisterValidation(PolicyTag, func(fl validator.FieldLevel) bool {
		return CheckPolicy(fl.Field().String()) == nil
	})
}
