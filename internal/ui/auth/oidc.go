// oidc.go: вход пользователей Content UI через Keycloak.
// Authorization Code Flow с PKCE (RFC 7636), public client без секрета.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/content-module/internal/httpclient"
)

// CallbackPath: адрес возврата из Keycloak, на нём живёт cookie попытки входа.
const CallbackPath = "/callback"

// loginScope: группы нужны для маппинга роли power.
const loginScope = "openid profile email groups"

// LoginAttempt: одна попытка входа между /login и /callback.
type LoginAttempt struct {
	// State: CSRF-параметр, возвращается Keycloak без изменений.
	State string `json:"state"`
	// CodeVerifier: секрет PKCE, в Keycloak уходит только его хеш.
	CodeVerifier string `json:"code_verifier"`
}

// NewLoginAttempt создаёт попытку входа со случайными state и code_verifier.
func NewLoginAttempt() (*LoginAttempt, error) {
	state, err := randomToken(16)
	if err != nil {
		return nil, fmt.Errorf("генерация state: %w", err)
	}
	// 32 байта дают 43 символа base64url: минимум RFC 7636.
	verifier, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("генерация code_verifier: %w", err)
	}
	return &LoginAttempt{State: state, CodeVerifier: verifier}, nil
}

// CodeChallenge: base64url(SHA-256(code_verifier)), метод S256.
func (a *LoginAttempt) CodeChallenge() string {
	sum := sha256.Sum256([]byte(a.CodeVerifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Matches сравнивает state из callback за постоянное время.
func (a *LoginAttempt) Matches(state string) bool {
	return a.State != "" && subtle.ConstantTimeCompare([]byte(a.State), []byte(state)) == 1
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// realmEndpoints: адреса OIDC realm. Браузер ходит на внешний адрес Keycloak,
// обмен токенов идёт по внутреннему.
type realmEndpoints struct {
	authorize string
	token     string
	logout    string
}

func newRealmEndpoints(backendURL, browserURL, realm string) realmEndpoints {
	if browserURL == "" {
		browserURL = backendURL
	}
	oidcBase := func(base string) string {
		return strings.TrimRight(base, "/") + "/realms/" + url.PathEscape(realm) + "/protocol/openid-connect"
	}
	return realmEndpoints{
		authorize: oidcBase(browserURL) + "/auth",
		token:     oidcBase(backendURL) + "/token",
		logout:    oidcBase(browserURL) + "/logout",
	}
}

// OIDCConfig: параметры OIDC-клиента.
type OIDCConfig struct {
	// KeycloakURL: адрес Keycloak для token endpoint.
	KeycloakURL string
	// BrowserKeycloakURL: адрес Keycloak для redirect браузера (пусто: KeycloakURL).
	BrowserKeycloakURL string
	Realm              string
	ClientID           string
	// HTTPClient: готовый клиент; Timeout и CACertPath тогда не используются.
	HTTPClient *http.Client
	Timeout    time.Duration
	CACertPath string
}

// OIDCClient: клиент Keycloak для входа, обновления токенов и выхода.
type OIDCClient struct {
	clientID   string
	endpoints  realmEndpoints
	httpClient *http.Client
}

// NewOIDCClient создаёт OIDC-клиент.
func NewOIDCClient(cfg OIDCConfig) (*OIDCClient, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = httpclient.New(httpclient.Options{Timeout: cfg.Timeout, CACertPath: cfg.CACertPath})
		if err != nil {
			return nil, fmt.Errorf("HTTP-клиент Keycloak: %w", err)
		}
	}

	return &OIDCClient{
		clientID:   cfg.ClientID,
		endpoints:  newRealmEndpoints(cfg.KeycloakURL, cfg.BrowserKeycloakURL, cfg.Realm),
		httpClient: httpClient,
	}, nil
}

// AuthorizeURL: страница входа Keycloak для попытки attempt.
func (c *OIDCClient) AuthorizeURL(redirectURI string, attempt *LoginAttempt) string {
	params := url.Values{
		"client_id":             {c.clientID},
		"response_type":         {"code"},
		"redirect_uri":          {redirectURI},
		"state":                 {attempt.State},
		"scope":                 {loginScope},
		"code_challenge":        {attempt.CodeChallenge()},
		"code_challenge_method": {"S256"},
	}
	return c.endpoints.authorize + "?" + params.Encode()
}

// LogoutURL: выход из Keycloak с возвратом на postLogoutRedirectURI.
func (c *OIDCClient) LogoutURL(idTokenHint, postLogoutRedirectURI string) string {
	params := url.Values{
		"client_id":                {c.clientID},
		"post_logout_redirect_uri": {postLogoutRedirectURI},
	}
	if idTokenHint != "" {
		params.Set("id_token_hint", idTokenHint)
	}
	return c.endpoints.logout + "?" + params.Encode()
}

// TokenResponse: ответ token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  //nolint:gosec // G117: структура токена OAuth2
	RefreshToken string `json:"refresh_token"` //nolint:gosec // G117: структура токена OAuth2
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	IDToken      string `json:"id_token"`
}

// expiresAt: момент истечения access token. Без expires_in берётся fallback.
func (t *TokenResponse) expiresAt(now, fallback time.Time) time.Time {
	if t.ExpiresIn > 0 || fallback.IsZero() {
		return now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return fallback
}

// TokenEndpointError: отказ token endpoint (RFC 6749, раздел 5.2).
type TokenEndpointError struct {
	StatusCode  int
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *TokenEndpointError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("token endpoint: статус %d", e.StatusCode)
	}
	return fmt.Sprintf("token endpoint: %s: %s", e.Code, e.Description)
}

// IsInvalidGrant: code или refresh token истёк, отозван или уже использован.
// Это исход для пользователя, а не сбой Keycloak.
func (e *TokenEndpointError) IsInvalidGrant() bool {
	return e.Code == "invalid_grant"
}

// IsInvalidGrant проверяет err на *TokenEndpointError с invalid_grant.
func IsInvalidGrant(err error) bool {
	var tokenErr *TokenEndpointError
	return errors.As(err, &tokenErr) && tokenErr.IsInvalidGrant()
}

// ExchangeCode обменивает authorization code попытки attempt на токены.
func (c *OIDCClient) ExchangeCode(ctx context.Context, code, redirectURI string, attempt *LoginAttempt) (*TokenResponse, error) {
	return c.tokenRequest(ctx, "authorization_code", url.Values{
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {attempt.CodeVerifier},
	})
}

// RefreshTokens получает новую пару токенов по refresh token.
func (c *OIDCClient) RefreshTokens(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.tokenRequest(ctx, "refresh_token", url.Values{
		"refresh_token": {refreshToken},
	})
}

func (c *OIDCClient) tokenRequest(ctx context.Context, grantType string, form url.Values) (*TokenResponse, error) {
	form.Set("grant_type", grantType)
	form.Set("client_id", c.clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.token, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("запрос %s: %w", grantType, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL из конфигурации OIDC
	if err != nil {
		return nil, fmt.Errorf("token endpoint (%s): %w", grantType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("чтение ответа token endpoint: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		tokenErr := &TokenEndpointError{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, tokenErr) != nil || tokenErr.Code == "" {
			tokenErr.Description = strings.TrimSpace(string(body))
		}
		return nil, tokenErr
	}

	var tokens TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("разбор ответа token endpoint: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, errors.New("token endpoint не вернул access_token")
	}
	return &tokens, nil
}
