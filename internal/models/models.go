package models

import "time"

type Account struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Avatar         string     `json:"avatar,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	PassHash       string     `json:"-"`
	FailedAttempts int        `json:"-"`
	LockedUntil    *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// * HasPassword сообщает, может ли аккаунт входить по паролю (OAuth-only аккаунты без хеша)
func (a *Account) HasPassword() bool {
	return a.PassHash != ""
}

type RefreshToken struct {
	Token     string
	AccountID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type FederatedIdentity struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"picture"`
}

// * Handoff то, во что разворачивается одноразовый OAuth-код
type Handoff struct {
	AccountID    string `json:"uid"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Message struct {
	Email   string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Purpose string `json:"purpose"`
}
