// verifier.go: проверка Keycloak access token через JWKS.
// Используется на callback и для Bearer-запросов к JSON API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/goartstore/content-module/internal/domain/rbac"
	"github.com/bigkaa/goartstore/content-module/internal/httpclient"
)

// ErrMissingSubject: в токене нет claim sub.
var ErrMissingSubject = errors.New("отсутствует sub в токене")

// Identity: проверенные данные пользователя из access token.
type Identity struct {
	Subject    string
	Username   string
	Email      string
	Groups     []string
	RealmRoles []string
	// Role: effective роль (user, power или "").
	Role      string
	ExpiresAt time.Time
}

// keycloakClaims: raw claims Keycloak JWT.
type keycloakClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string       `json:"preferred_username"`
	Email             string       `json:"email"`
	RealmAccess       *realmAccess `json:"realm_access,omitempty"`
	Groups            []string     `json:"groups,omitempty"`
}

// realmAccess: блок realm_access из Keycloak JWT.
type realmAccess struct {
	Roles []string `json:"roles"`
}

// VerifierConfig: параметры TokenVerifier.
type VerifierConfig struct {
	// JWKSURL: JWKS endpoint Keycloak.
	JWKSURL string
	// CACertPath: CA-сертификат для TLS к Keycloak (опционально).
	CACertPath string
	// Issuer: ожидаемый iss; пусто: не проверяется.
	Issuer string
	// Leeway: допустимое расхождение часов.
	Leeway time.Duration
	// RefreshInterval: период обновления ключей JWKS.
	RefreshInterval time.Duration
	// PowerGroups, UserGroups: группы Keycloak для маппинга ролей.
	PowerGroups []string
	UserGroups  []string
}

// TokenVerifier проверяет подпись RS256 и срок действия токена.
type TokenVerifier struct {
	jwks        keyfunc.Keyfunc
	issuer      string
	leeway      time.Duration
	powerGroups []string
	userGroups  []string
	logger      *slog.Logger
}

// NewTokenVerifier создаёт верификатор с фоновым обновлением JWKS.
// Первый запрос JWKS не блокирует старт: Keycloak может быть ещё недоступен.
func NewTokenVerifier(ctx context.Context, cfg VerifierConfig, logger *slog.Logger) (*TokenVerifier, error) {
	httpClient, err := httpclient.New(httpclient.Options{CACertPath: cfg.CACertPath})
	if err != nil {
		return nil, fmt.Errorf("HTTP-клиент JWKS: %w", err)
	}

	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		Ctx:                       ctx,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", cfg.JWKSURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Ctx:     ctx,
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	v := NewTokenVerifierWithKeyfunc(k, cfg.Issuer, cfg.Leeway, cfg.PowerGroups, cfg.UserGroups, logger)
	return v, nil
}

// NewTokenVerifierWithKeyfunc создаёт верификатор с готовой keyfunc.
// Используется в тестах для подстановки статического JWKS.
func NewTokenVerifierWithKeyfunc(
	kf keyfunc.Keyfunc,
	issuer string,
	leeway time.Duration,
	powerGroups, userGroups []string,
	logger *slog.Logger,
) *TokenVerifier {
	return &TokenVerifier{
		jwks:        kf,
		issuer:      issuer,
		leeway:      leeway,
		powerGroups: powerGroups,
		userGroups:  userGroups,
		logger:      logger.With(slog.String("component", "token_verifier")),
	}
}

// Verify проверяет токен и возвращает данные пользователя.
func (v *TokenVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	raw := &keycloakClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, raw, v.jwks.KeyfuncCtx(ctx), opts...)
	if err != nil {
		v.logger.Debug("JWT валидация не пройдена", slog.String("error", err.Error()))
		return nil, fmt.Errorf("невалидный токен: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("невалидный токен")
	}
	if raw.Subject == "" {
		return nil, ErrMissingSubject
	}

	id := &Identity{
		Subject:  raw.Subject,
		Username: raw.PreferredUsername,
		Email:    raw.Email,
		Groups:   raw.Groups,
	}
	if raw.RealmAccess != nil {
		id.RealmRoles = raw.RealmAccess.Roles
	}
	if raw.ExpiresAt != nil {
		id.ExpiresAt = raw.ExpiresAt.Time
	}
	id.Role = rbac.RoleFromClaims(id.Groups, id.RealmRoles, v.powerGroups, v.userGroups)
	return id, nil
}
