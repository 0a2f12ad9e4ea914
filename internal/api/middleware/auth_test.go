package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/goartstore/content-module/internal/ui/auth"
	uimiddleware "github.com/bigkaa/goartstore/content-module/internal/ui/middleware"
)

// testKeyID: идентификатор ключа для тестов.
const testKeyID = "test-key-cm"

const testIssuer = "https://keycloak.test/realms/artstore"

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(jwks)
	return data
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAPIAuth создаёт APIAuth с настоящим TokenVerifier поверх тестового ключа.
func newTestAPIAuth(t *testing.T, key *rsa.PrivateKey) *APIAuth {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	verifier := auth.NewTokenVerifierWithKeyfunc(
		kf, testIssuer, 0,
		[]string{"content-power-users"}, []string{"content-users"},
		testLogger(),
	)
	return NewAPIAuth(verifier, testLogger())
}

// generateToken генерирует JWT пользователя с группами.
func generateToken(t *testing.T, key *rsa.PrivateKey, username string, groups []string, expired bool) string {
	t.Helper()

	exp := time.Now().Add(time.Hour)
	if expired {
		exp = time.Now().Add(-time.Hour)
	}

	claims := jwt.MapClaims{
		"sub":                "sub-" + username,
		"preferred_username": username,
		"iss":                testIssuer,
		"exp":                jwt.NewNumericDate(exp),
		"iat":                jwt.NewNumericDate(time.Now()),
		"groups":             groups,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return tokenStr
}

// captureHandler запоминает Principal и access token из контекста.
type captureHandler struct {
	principal   *Principal
	accessToken string
	called      bool
}

func (c *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.called = true
	c.principal = PrincipalFromContext(r.Context())
	c.accessToken, _ = uimiddleware.AccessTokenFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func TestAPIAuth_Bearer(t *testing.T) {
	key := generateTestKey(t)
	a := newTestAPIAuth(t, key)
	token := generateToken(t, key, "alice", []string{"content-power-users"}, false)

	next := &captureHandler{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/verify-name", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.Middleware()(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", rec.Code)
	}
	if next.principal == nil || next.principal.Username != "alice" || !next.principal.IsPower() {
		t.Errorf("principal = %+v", next.principal)
	}
	if next.principal.Source != AuthSourceBearer {
		t.Errorf("Source = %q, ожидается bearer", next.principal.Source)
	}
	if next.accessToken != token {
		t.Error("Bearer token не передан в контекст для Content API")
	}
}

func TestAPIAuth_Session(t *testing.T) {
	a := NewAPIAuth(nil, testLogger())

	next := &captureHandler{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/verify-name", nil)
	req = req.WithContext(uimiddleware.WithSession(req.Context(), &auth.SessionData{
		Username:    "bob",
		Role:        "user",
		AccessToken: "session-token",
	}))
	rec := httptest.NewRecorder()
	a.Middleware()(next).ServeHTTP(rec, req)

	if !next.called {
		t.Fatal("сессия UI должна проходить аутентификацию")
	}
	if next.principal.Source != AuthSourceSession || next.principal.IsPower() {
		t.Errorf("principal = %+v", next.principal)
	}
	if next.accessToken != "session-token" {
		t.Errorf("accessToken = %q", next.accessToken)
	}
}

func TestAPIAuth_Rejected(t *testing.T) {
	key := generateTestKey(t)
	otherKey := generateTestKey(t)

	tests := []struct {
		name   string
		header string
	}{
		{"нет аутентификации", ""},
		{"не Bearer", "Basic dXNlcjpwYXNz"},
		{"пустой токен", "Bearer "},
		{"просроченный", "Bearer " + generateToken(t, key, "alice", nil, true)},
		{"чужой ключ", "Bearer " + generateToken(t, otherKey, "alice", nil, false)},
		{"мусор", "Bearer not-a-jwt"},
	}

	a := newTestAPIAuth(t, key)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &captureHandler{}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/content/verify-name", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			a.Middleware()(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("статус = %d, ожидается 401", rec.Code)
			}
			if next.called {
				t.Error("следующий обработчик не должен вызываться")
			}
		})
	}
}

func TestAPIAuth_BearerWithoutVerifier(t *testing.T) {
	a := NewAPIAuth(nil, testLogger())
	next := &captureHandler{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	a.Middleware()(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized || next.called {
		t.Errorf("статус = %d, called = %v", rec.Code, next.called)
	}
}

func TestRequirePower(t *testing.T) {
	tests := []struct {
		name      string
		principal *Principal
		status    int
	}{
		{"power", &Principal{Username: "alice", Role: "power"}, http.StatusOK},
		{"user", &Principal{Username: "bob", Role: "user"}, http.StatusForbidden},
		{"без роли", &Principal{Username: "eve"}, http.StatusForbidden},
		{"нет субъекта", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &captureHandler{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tt.principal))
			}
			rec := httptest.NewRecorder()
			RequirePower()(next).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("статус = %d, ожидается %d", rec.Code, tt.status)
			}
		})
	}
}

func TestKeycloakReadinessChecker(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"ключи есть", http.StatusOK, `{"keys":[{"kid":"a"}]}`, "ok"},
		{"нет ключей", http.StatusOK, `{"keys":[]}`, "degraded"},
		{"невалидный JSON", http.StatusOK, `{`, "degraded"},
		{"ошибка сервера", http.StatusInternalServerError, ``, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			checker, err := NewKeycloakReadinessChecker(srv.URL, "", time.Second)
			if err != nil {
				t.Fatal(err)
			}
			if status, msg := checker.CheckReady(); status != tt.want {
				t.Errorf("CheckReady() = %q (%s), ожидается %q", status, msg, tt.want)
			}
		})
	}
}

func TestKeycloakReadinessChecker_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	checker, _ := NewKeycloakReadinessChecker(url, "", time.Second)
	if status, _ := checker.CheckReady(); status != "fail" {
		t.Errorf("CheckReady() = %q, ожидается fail", status)
	}
}
