// auth.go: аутентификация JSON API Content Module.
// Принимает сессию UI (cookie уже загружен SessionLoader) или Bearer token,
// проверенный через JWKS Keycloak. Авторизация: роль power.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/bigkaa/goartstore/content-module/internal/api/errors"
	"github.com/bigkaa/goartstore/content-module/internal/domain/rbac"
	"github.com/bigkaa/goartstore/content-module/internal/httpclient"
	"github.com/bigkaa/goartstore/content-module/internal/ui/auth"
	uimiddleware "github.com/bigkaa/goartstore/content-module/internal/ui/middleware"
)

// contextKey: тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyPrincipal: аутентифицированный субъект API-запроса.
const ContextKeyPrincipal contextKey = "api_principal"

// AuthSource: откуда получена аутентификация.
type AuthSource string

const (
	// AuthSourceSession: session cookie UI.
	AuthSourceSession AuthSource = "session"
	// AuthSourceBearer: заголовок Authorization: Bearer.
	AuthSourceBearer AuthSource = "bearer"
)

// Principal: субъект API-запроса.
type Principal struct {
	Username string
	Role     string
	Source   AuthSource
}

// IsPower: может ли субъект загружать контент.
func (p *Principal) IsPower() bool {
	return p != nil && rbac.IsPower(p.Role)
}

// TokenVerifier: проверка Bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// APIAuth: middleware аутентификации JSON API.
type APIAuth struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewAPIAuth создаёт middleware. verifier может быть nil:
// тогда принимаются только сессии UI.
func NewAPIAuth(verifier TokenVerifier, logger *slog.Logger) *APIAuth {
	return &APIAuth{
		verifier: verifier,
		logger:   logger.With(slog.String("component", "api_auth")),
	}
}

// Middleware возвращает HTTP middleware аутентификации.
// Bearer token имеет приоритет над cookie. Проверенный токен кладётся
// в контекст как сессия, чтобы клиент Content API передал его дальше.
func (a *APIAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if header := r.Header.Get("Authorization"); header != "" {
				session, ok := a.bearerSession(w, r, header)
				if !ok {
					return
				}
				ctx = uimiddleware.WithSession(ctx, session)
			}

			session := uimiddleware.SessionFromContext(ctx)
			if session == nil {
				apierrors.Unauthorized(w, "Требуется аутентификация")
				return
			}

			source := AuthSourceSession
			if r.Header.Get("Authorization") != "" {
				source = AuthSourceBearer
			}
			principal := &Principal{Username: session.Username, Role: session.Role, Source: source}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

// bearerSession проверяет Bearer token. При ошибке ответ уже записан.
func (a *APIAuth) bearerSession(w http.ResponseWriter, r *http.Request, header string) (*auth.SessionData, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
		return nil, false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		apierrors.Unauthorized(w, "Пустой Bearer token")
		return nil, false
	}

	if a.verifier == nil {
		apierrors.Unauthorized(w, "Bearer token не поддерживается")
		return nil, false
	}

	identity, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		a.logger.Debug("JWT валидация не пройдена",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr),
		)
		apierrors.Unauthorized(w, "Невалидный или просроченный токен")
		return nil, false
	}

	return &auth.SessionData{
		AccessToken: token,
		ExpiresAt:   identity.ExpiresAt.Unix(),
		Username:    identity.Username,
		Email:       identity.Email,
		Role:        identity.Role,
		Groups:      identity.Groups,
	}, true
}

// RequirePower возвращает middleware, пропускающий только роль power.
// Должен использоваться ПОСЛЕ APIAuth.Middleware().
func RequirePower() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				apierrors.Unauthorized(w, "Отсутствует субъект в контексте")
				return
			}
			if !principal.IsPower() {
				apierrors.Forbidden(w, fmt.Sprintf("Недостаточно прав: требуется роль %s", rbac.RolePower))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal кладёт субъект в контекст.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// PrincipalFromContext извлекает Principal из контекста запроса.
// Возвращает nil, если запрос не аутентифицирован.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ContextKeyPrincipal).(*Principal)
	return p
}

// --- ReadinessChecker для Keycloak ---

// KeycloakReadinessChecker: проверка доступности Keycloak через JWKS.
type KeycloakReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewKeycloakReadinessChecker создаёт checker доступности Keycloak.
func NewKeycloakReadinessChecker(jwksURL, caCertPath string, timeout time.Duration) (*KeycloakReadinessChecker, error) {
	client, err := httpclient.New(httpclient.Options{Timeout: timeout, CACertPath: caCertPath})
	if err != nil {
		return nil, fmt.Errorf("HTTP-клиент readiness checker: %w", err)
	}

	return &KeycloakReadinessChecker{
		jwksURL: jwksURL,
		client:  client,
	}, nil
}

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// CheckReady проверяет доступность JWKS endpoint Keycloak.
func (k *KeycloakReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req) //nolint:gosec // G704: URL из конфигурации Keycloak
	if err != nil {
		return statusFail, fmt.Sprintf("Keycloak JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("Keycloak JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return statusDegraded, fmt.Sprintf("Keycloak JWKS: невалидный JSON: %v", err)
	}

	if len(jwksResp.Keys) == 0 {
		return statusDegraded, "Keycloak JWKS: нет ключей"
	}

	return statusOK, fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
