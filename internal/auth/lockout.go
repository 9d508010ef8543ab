package auth

import (
	"time"

	"social_auth/internal/models"
)

const (
	DefaultMaxAttempts  = 3
	DefaultLockDuration = 15 * time.Minute
)

// * Lockout конечный автомат блокировки: ACTIVE (failedAttempts < max) и LOCKED.
// Методы мутируют аккаунт в памяти, сохранение делает вызывающий код.
type Lockout struct {
	MaxAttempts int
	Duration    time.Duration
}

func NewLockout(maxAttempts int, duration time.Duration) Lockout {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if duration <= 0 {
		duration = DefaultLockDuration
	}

	return Lockout{MaxAttempts: maxAttempts, Duration: duration}
}

// * Check читает состояние блокировки до проверки пароля.
// locked=true: блокировка действует, remaining сколько осталось.
// reset=true: блокировка истекла, аккаунт переведен в ACTIVE и его нужно сохранить.
func (l Lockout) Check(acc *models.Account, now time.Time) (locked bool, remaining time.Duration, reset bool) {
	if acc.LockedUntil == nil {
		return false, 0, false
	}

	if now.Before(*acc.LockedUntil) {
		return true, acc.LockedUntil.Sub(now), false
	}

	acc.FailedAttempts = 0
	acc.LockedUntil = nil

	return false, 0, true
}

// * RegisterFailure учитывает неудачную попытку. При достижении порога
// аккаунт переходит в LOCKED до now + Duration.
func (l Lockout) RegisterFailure(acc *models.Account, now time.Time) (locked bool, attemptsLeft int) {
	acc.FailedAttempts++

	if acc.FailedAttempts >= l.MaxAttempts {
		until := now.Add(l.Duration)
		acc.LockedUntil = &until

		return true, 0
	}

	return false, l.MaxAttempts - acc.FailedAttempts
}

// * RegisterSuccess сбрасывает счетчики, changed=false если сохранять нечего
func (l Lockout) RegisterSuccess(acc *models.Account) (changed bool) {
	if acc.FailedAttempts == 0 && acc.LockedUntil == nil {
		return false
	}

	acc.FailedAttempts = 0
	acc.LockedUntil = nil

	return true
}
