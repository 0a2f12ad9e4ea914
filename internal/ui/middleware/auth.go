// Пакет middleware: HTTP middleware Content UI.
// auth.go: загрузка UI-сессии из cookie, авто-refresh токенов.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/content-module/internal/ui/auth"
)

// contextKey: тип для ключей контекста UI (избегаем коллизий с API middleware).
type contextKey string

const (
	// ContextKeyUISession: данные UI-сессии в контексте запроса.
	ContextKeyUISession contextKey = "ui_session"
)

// TokenRefresher: обновление токенов по refresh token.
type TokenRefresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (*auth.TokenResponse, error)
}

// SessionLoader кладёт сессию в контекст, если она есть.
// Отсутствующая, повреждённая или не обновлённая сессия не ошибка:
// запрос идёт дальше анонимным, страницы сами решают, что показать.
type SessionLoader struct {
	sessionManager *auth.SessionManager
	refresher      TokenRefresher
	logger         *slog.Logger
}

// NewSessionLoader создаёт middleware загрузки сессии.
func NewSessionLoader(
	sessionManager *auth.SessionManager,
	refresher TokenRefresher,
	logger *slog.Logger,
) *SessionLoader {
	return &SessionLoader{
		sessionManager: sessionManager,
		refresher:      refresher,
		logger:         logger.With(slog.String("component", "ui_session_loader")),
	}
}

// Middleware возвращает HTTP middleware загрузки сессии.
func (sl *SessionLoader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sl.load(w, r)
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// load читает cookie и при необходимости обновляет токены.
// Возвращает nil для анонимного запроса.
func (sl *SessionLoader) load(w http.ResponseWriter, r *http.Request) *auth.SessionData {
	session, err := sl.sessionManager.SessionFromRequest(r)
	if err != nil {
		sl.logger.Debug("Ошибка чтения UI-сессии",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr),
		)
		sl.sessionManager.ClearSessionCookie(w)
		return nil
	}
	if session == nil || !session.NeedsRefresh(time.Now()) {
		return session
	}

	tokens, err := sl.refresher.RefreshTokens(r.Context(), session.RefreshToken)
	if err != nil {
		// invalid_grant: refresh token истёк или отозван, это обычный выход из сессии.
		level := slog.LevelWarn
		if auth.IsInvalidGrant(err) {
			level = slog.LevelInfo
		}
		sl.logger.Log(r.Context(), level, "Не удалось обновить сессию",
			slog.String("username", session.Username),
			slog.String("error", err.Error()),
		)
		sl.sessionManager.ClearSessionCookie(w)
		return nil
	}
	refreshed := session.Refreshed(tokens, time.Now())

	if err := sl.sessionManager.SetSessionCookie(w, refreshed); err != nil {
		sl.logger.Error("Ошибка обновления session cookie",
			slog.String("error", err.Error()),
		)
		sl.sessionManager.ClearSessionCookie(w)
		return nil
	}

	sl.logger.Debug("Сессия обновлена через refresh token",
		slog.String("username", refreshed.Username),
	)
	return refreshed
}

// WithSession кладёт сессию в контекст.
func WithSession(ctx context.Context, session *auth.SessionData) context.Context {
	return context.WithValue(ctx, ContextKeyUISession, session)
}

// SessionFromContext извлекает SessionData из контекста запроса.
// Возвращает nil для анонимного запроса.
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, _ := ctx.Value(ContextKeyUISession).(*auth.SessionData)
	return session
}

// AccessTokenFromContext: TokenProvider для клиента Content API.
// Для анонимного запроса возвращает пустой токен.
func AccessTokenFromContext(ctx context.Context) (string, error) {
	session := SessionFromContext(ctx)
	if session == nil {
		return "", nil
	}
	return session.AccessToken, nil
}
