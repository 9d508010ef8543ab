package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"social_auth/internal/models"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

	userInfoAttempts = 3
)

var (
	ErrExchange         = errors.New("failed to exchange authorization code")
	ErrUserInfo         = errors.New("failed to fetch user info")
	ErrEmailNotVerified = errors.New("provider email is not verified")
)

type Google struct {
	cfg         *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

type Option func(*Google)

// * WithEndpoint подменяет адреса авторизации и обмена кода
func WithEndpoint(authURL, tokenURL string) Option {
	return func(g *Google) {
		g.cfg.Endpoint = oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}
}

func WithUserInfoURL(url string) Option {
	return func(g *Google) {
		g.userInfoURL = url
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(g *Google) {
		g.httpClient = c
	}
}

func NewGoogle(clientID, clientSecret, redirectURL string, opts ...Option) *Google {
	g := &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: DefaultUserInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// * AuthCodeURL адрес согласия у провайдера, state проверяется на callback
func (g *Google) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type userInfo struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// * Exchange меняет код на токен провайдера и получает профиль пользователя
func (g *Google) Exchange(ctx context.Context, code string) (models.FederatedIdentity, error) {
	const op = "oauth.Google.Exchange"

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)

	token, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return models.FederatedIdentity{}, fmt.Errorf("%s: %w: %w", op, ErrExchange, err)
	}

	client := g.cfg.Client(ctx, token)

	info, err := backoff.Retry(ctx, func() (userInfo, error) {
		return g.fetchUserInfo(ctx, client)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(userInfoAttempts),
	)
	if err != nil {
		return models.FederatedIdentity{}, fmt.Errorf("%s: %w: %w", op, ErrUserInfo, err)
	}

	if info.EmailVerified != nil && !*info.EmailVerified {
		return models.FederatedIdentity{}, fmt.Errorf("%s: %w", op, ErrEmailNotVerified)
	}

	return models.FederatedIdentity{
		Email:  info.Email,
		Name:   info.Name,
		Avatar: info.Picture,
	}, nil
}

func (g *Google) fetchUserInfo(ctx context.Context, client *http.Client) (userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return userInfo{}, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return userInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		return userInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return userInfo{}, backoff.Permanent(fmt.Errorf("userinfo status %d", resp.StatusCode))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return userInfo{}, backoff.Permanent(err)
	}

	return info, nil
}
