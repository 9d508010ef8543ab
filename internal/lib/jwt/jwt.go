package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

type Claims struct {
	Type string `json:"typ"`
	jwtlib.RegisteredClaims
}

// * Issuer подписывает access и refresh токены разными секретами
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// * WithClock подменяет источник времени (для тестов)
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) NewAccessToken(accountID string) (string, error) {
	token, _, err := i.sign(accountID, TypeAccess, i.accessTTL, i.accessSecret)
	return token, err
}

// * NewRefreshToken возвращает токен и момент его истечения для записи в allow-list
func (i *Issuer) NewRefreshToken(accountID string) (string, time.Time, error) {
	return i.sign(accountID, TypeRefresh, i.refreshTTL, i.refreshSecret)
}

func (i *Issuer) ParseAccessToken(tokenStr string) (string, error) {
	return i.parse(tokenStr, TypeAccess, i.accessSecret)
}

func (i *Issuer) ParseRefreshToken(tokenStr string) (string, error) {
	return i.parse(tokenStr, TypeRefresh, i.refreshSecret)
}

func (i *Issuer) sign(accountID, typ string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	const op = "jwt.sign"

	jti, err := uuid.NewRandom()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	now := i.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		Type: typ,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			ID:        jti.String(),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, expiresAt, nil
}

func (i *Issuer) parse(tokenStr, typ string, secret []byte) (string, error) {
	const op = "jwt.parse"

	var claims Claims

	token, err := jwtlib.ParseWithClaims(tokenStr, &claims, func(t *jwtlib.Token) (interface{}, error) {
		return secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.Type != typ {
		return "", fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%s: %w: missing sub claim", op, ErrInvalidToken)
	}

	return claims.Subject, nil
}
