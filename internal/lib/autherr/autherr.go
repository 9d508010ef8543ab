package autherr

import (
	"fmt"
	"time"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnknownAccount
	KindBadCredentials
	KindLocked
	KindConflict
	KindNoToken
	KindInvalidToken
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnknownAccount:
		return "unknown_account"
	case KindBadCredentials:
		return "bad_credentials"
	case KindLocked:
		return "locked"
	case KindConflict:
		return "conflict"
	case KindNoToken:
		return "no_token"
	case KindInvalidToken:
		return "invalid_token"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// * Error единственный тип доменной ошибки на границе auth.
// Kind определяет HTTP статус, Message безопасно показывать клиенту.
type Error struct {
	Kind         Kind
	Message      string
	Fields       []FieldError
	AttemptsLeft int
	RetryAfter   time.Duration
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

func UnknownAccount() *Error {
	return &Error{Kind: KindUnknownAccount, Message: "User doesn't exist"}
}

func BadCredentials(attemptsLeft int) *Error {
	return &Error{
		Kind:         KindBadCredentials,
		Message:      fmt.Sprintf("Invalid credentials. %d attempt(s) left.", attemptsLeft),
		AttemptsLeft: attemptsLeft,
	}
}

func PasswordlessAccount() *Error {
	return &Error{Kind: KindBadCredentials, Message: "This account signs in with Google"}
}

// * Locked блокировка, уже действующая на момент попытки входа
func Locked(remaining time.Duration) *Error {
	return &Error{
		Kind:       KindLocked,
		Message:    fmt.Sprintf("Account is temporarily locked. Try again in %d minutes.", roundMinutes(remaining)),
		RetryAfter: remaining,
	}
}

// * JustLocked блокировка, наступившая из-за текущей попытки
func JustLocked(duration time.Duration) *Error {
	return &Error{
		Kind: KindLocked,
		Message: fmt.Sprintf(
			"Too many failed login attempts. Your account has been locked for %d minutes.",
			roundMinutes(duration),
		),
		RetryAfter: duration,
	}
}

func Conflict() *Error {
	return &Error{Kind: KindConflict, Message: "User already exists"}
}

func NoToken() *Error {
	return &Error{Kind: KindNoToken, Message: "No Refresh Token Provided"}
}

func InvalidToken(err error) *Error {
	return &Error{Kind: KindInvalidToken, Message: "Invalid Refresh Token", Err: err}
}

// * InvalidCode одноразовый OAuth state или код обмена не найден или уже использован
func InvalidCode(err error) *Error {
	return &Error{Kind: KindInvalidToken, Message: "Invalid or expired code", Err: err}
}

func Upstream(err error) *Error {
	return &Error{Kind: KindUpstream, Message: "Something unexpected happened.", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal error", Err: err}
}

func roundMinutes(d time.Duration) int {
	return int(d.Round(time.Minute) / time.Minute)
}
