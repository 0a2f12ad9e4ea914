// auth.go: вход через Keycloak OIDC (Authorization Code + PKCE).
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/content-module/internal/ui/auth"
	uimiddleware "github.com/bigkaa/goartstore/content-module/internal/ui/middleware"
)

// afterLogin: куда попадает пользователь после входа и выхода.
const afterLogin = "/"

// OIDCProvider: операции OIDC-клиента, нужные обработчикам.
type OIDCProvider interface {
	AuthorizeURL(redirectURI string, attempt *auth.LoginAttempt) string
	ExchangeCode(ctx context.Context, code, redirectURI string, attempt *auth.LoginAttempt) (*auth.TokenResponse, error)
	LogoutURL(idTokenHint, postLogoutRedirectURI string) string
}

// TokenVerifier: проверка access token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// AuthHandler: обработчики аутентификации.
type AuthHandler struct {
	oidc           OIDCProvider
	verifier       TokenVerifier
	sessionManager *auth.SessionManager
	logger         *slog.Logger
}

// NewAuthHandler создаёт новый AuthHandler.
func NewAuthHandler(
	oidc OIDCProvider,
	verifier TokenVerifier,
	sessionManager *auth.SessionManager,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		oidc:           oidc,
		verifier:       verifier,
		sessionManager: sessionManager,
		logger:         logger.With(slog.String("component", "ui_auth")),
	}
}

// HandleLogin: GET /login
// Создаёт попытку входа (state + PKCE), прячет её в зашифрованный cookie
// и отправляет браузер на страницу входа Keycloak.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	attempt, err := auth.NewLoginAttempt()
	if err == nil {
		err = h.sessionManager.SetLoginCookie(w, attempt)
	}
	if err != nil {
		h.logger.Error("Ошибка подготовки входа", slog.String("error", err.Error()))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	authorizeURL := h.oidc.AuthorizeURL(h.buildBaseURL(r)+auth.CallbackPath, attempt)
	h.logger.Debug("Redirect на Keycloak login", slog.String("authorize_url", authorizeURL))

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// HandleCallback: GET /callback
// Обменивает authorization code на tokens, проверяет access token,
// создаёт session cookie, redirect на главную.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if errCode := r.URL.Query().Get("error"); errCode != "" {
		errDesc := r.URL.Query().Get("error_description")
		h.logger.Warn("Keycloak вернул ошибку авторизации",
			slog.String("error", errCode),
			slog.String("description", errDesc),
		)
		http.Error(w, fmt.Sprintf("Ошибка авторизации: %s: %s", errCode, errDesc), http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Error(w, "Отсутствует code или state", http.StatusBadRequest)
		return
	}

	attempt, err := h.sessionManager.TakeLoginAttempt(w, r)
	if err != nil {
		h.logger.Warn("Нет попытки входа для callback", slog.String("error", err.Error()))
		http.Error(w, "Сессия авторизации истекла, попробуйте ещё раз", http.StatusBadRequest)
		return
	}
	if !attempt.Matches(state) {
		h.logger.Warn("State не совпадает (возможная CSRF атака)")
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	tokenResp, err := h.oidc.ExchangeCode(r.Context(), code, h.buildBaseURL(r)+auth.CallbackPath, attempt)
	if err != nil {
		if auth.IsInvalidGrant(err) {
			// code истёк или уже использован (повторный callback, кнопка "назад").
			h.logger.Info("Keycloak отклонил authorization code", slog.String("error", err.Error()))
			http.Error(w, "Сессия авторизации истекла, попробуйте ещё раз", http.StatusBadRequest)
			return
		}
		h.logger.Error("Ошибка обмена code на tokens", slog.String("error", err.Error()))
		http.Error(w, "Ошибка аутентификации", http.StatusBadGateway)
		return
	}

	identity, err := h.verifier.Verify(r.Context(), tokenResp.AccessToken)
	if err != nil {
		h.logger.Error("Access token не прошёл проверку", slog.String("error", err.Error()))
		http.Error(w, "Ошибка обработки токена", http.StatusUnauthorized)
		return
	}

	sessionData := auth.NewSession(tokenResp, identity, time.Now())
	if err := h.sessionManager.SetSessionCookie(w, sessionData); err != nil {
		h.logger.Error("Ошибка установки session cookie", slog.String("error", err.Error()))
		http.Error(w, "Ошибка создания сессии", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Пользователь аутентифицирован",
		slog.String("username", sessionData.Username),
		slog.String("role", sessionData.Role),
	)

	http.Redirect(w, r, afterLogin, http.StatusFound)
}

// HandleLogout: POST /logout
// Очищает session cookie, redirect на Keycloak logout endpoint.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var idTokenHint string
	if session := uimiddleware.SessionFromContext(r.Context()); session != nil {
		idTokenHint = session.IDToken
		h.logger.Info("Пользователь выполняет logout", slog.String("username", session.Username))
	}

	h.sessionManager.ClearSessionCookie(w)

	logoutURL := h.oidc.LogoutURL(idTokenHint, h.buildBaseURL(r)+afterLogin)
	http.Redirect(w, r, logoutURL, http.StatusFound)
}

// buildBaseURL формирует базовый URL (scheme + host) из заголовков запроса.
// Учитывает X-Forwarded-* заголовки от reverse proxy / API Gateway.
func (h *AuthHandler) buildBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	host := r.Host
	if fwdHost := r.Header.Get("X-Forwarded-Host"); fwdHost != "" {
		host = fwdHost
	}

	return scheme + "://" + host
}
