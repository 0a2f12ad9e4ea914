package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/content-module/internal/ui/auth"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockRefresher struct {
	resp  *auth.TokenResponse
	err   error
	calls int
}

func (m *mockRefresher) RefreshTokens(_ context.Context, _ string) (*auth.TokenResponse, error) {
	m.calls++
	return m.resp, m.err
}

// captureSession возвращает handler, запоминающий сессию из контекста.
func captureSession(got **auth.SessionData, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*got = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

// requestWithSession создаёт запрос с зашифрованным session cookie.
func requestWithSession(t *testing.T, sm *auth.SessionManager, data *auth.SessionData) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.SetSessionCookie(rec, data); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionLoader_NoCookie(t *testing.T) {
	sm, _ := auth.NewSessionManager("test-key", false)
	loader := NewSessionLoader(sm, &mockRefresher{}, testLogger())

	var got *auth.SessionData
	called := false
	rec := httptest.NewRecorder()
	loader.Middleware()(captureSession(&got, &called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload", nil))

	if !called {
		t.Fatal("handler не вызван: анонимный запрос должен проходить")
	}
	if got != nil {
		t.Error("сессия должна отсутствовать")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("статус = %d, ожидается 200", rec.Code)
	}
}

func TestSessionLoader_ValidSession(t *testing.T) {
	sm, _ := auth.NewSessionManager("test-key", false)
	refresher := &mockRefresher{}
	loader := NewSessionLoader(sm, refresher, testLogger())

	req := requestWithSession(t, sm, &auth.SessionData{
		AccessToken: "access",
		Username:    "alice",
		Role:        "power",
		ExpiresAt:   time.Now().Add(10 * time.Minute).Unix(),
	})

	var got *auth.SessionData
	called := false
	loader.Middleware()(captureSession(&got, &called)).ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.Username != "alice" || !got.IsPower() {
		t.Fatalf("сессия = %+v", got)
	}
	if refresher.calls != 0 {
		t.Error("refresh не должен вызываться для свежей сессии")
	}
}

func TestSessionLoader_CorruptCookie(t *testing.T) {
	sm, _ := auth.NewSessionManager("test-key", false)
	loader := NewSessionLoader(sm, &mockRefresher{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "garbage"})

	var got *auth.SessionData
	called := false
	rec := httptest.NewRecorder()
	loader.Middleware()(captureSession(&got, &called)).ServeHTTP(rec, req)

	if !called || got != nil {
		t.Fatal("повреждённая сессия должна давать анонимный запрос")
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("повреждённый cookie должен очищаться")
	}
}

func TestSessionLoader_RefreshExpired(t *testing.T) {
	sm, _ := auth.NewSessionManager("test-key", false)
	refresher := &mockRefresher{resp: &auth.TokenResponse{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresIn:    300,
	}}
	loader := NewSessionLoader(sm, refresher, testLogger())

	req := requestWithSession(t, sm, &auth.SessionData{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		IDToken:      "id-token",
		Username:     "alice",
		Role:         "power",
		ExpiresAt:    time.Now().Add(-time.Minute).Unix(),
	})

	var got *auth.SessionData
	called := false
	rec := httptest.NewRecorder()
	loader.Middleware()(captureSession(&got, &called)).ServeHTTP(rec, req)

	if got == nil || got.AccessToken != "new-access" {
		t.Fatalf("сессия не обновлена: %+v", got)
	}
	if got.IDToken != "id-token" || got.Role != "power" {
		t.Errorf("данные пользователя потеряны: %+v", got)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("обновлённый cookie не установлен")
	}
}

func TestSessionLoader_RefreshFails(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"refresh token отозван", &auth.TokenEndpointError{StatusCode: http.StatusBadRequest, Code: "invalid_grant"}},
		{"Keycloak недоступен", errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, _ := auth.NewSessionManager("test-key", false)
			loader := NewSessionLoader(sm, &mockRefresher{err: tt.err}, testLogger())

			req := requestWithSession(t, sm, &auth.SessionData{
				Username:  "alice",
				Role:      "power",
				ExpiresAt: time.Now().Add(-time.Minute).Unix(),
			})

			var got *auth.SessionData
			called := false
			rec := httptest.NewRecorder()
			loader.Middleware()(captureSession(&got, &called)).ServeHTTP(rec, req)

			if !called {
				t.Fatal("handler не вызван")
			}
			if got != nil {
				t.Error("необновлённая сессия должна сбрасываться")
			}
			cleared := false
			for _, c := range rec.Result().Cookies() {
				if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
					cleared = true
				}
			}
			if !cleared {
				t.Error("session cookie должен очищаться")
			}
		})
	}
}

func TestAccessTokenFromContext(t *testing.T) {
	token, err := AccessTokenFromContext(context.Background())
	if err != nil || token != "" {
		t.Errorf("анонимный контекст: token=%q err=%v", token, err)
	}

	ctx := WithSession(context.Background(), &auth.SessionData{AccessToken: "abc"})
	token, err = AccessTokenFromContext(ctx)
	if err != nil || token != "abc" {
		t.Errorf("token=%q err=%v, ожидается abc", token, err)
	}
}
