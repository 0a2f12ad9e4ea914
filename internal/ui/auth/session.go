// Пакет auth: аутентификация Content UI.
// Зашифрованные cookie (сессия и попытка входа), OIDC-клиент Keycloak,
// проверка access token через JWKS.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/content-module/internal/domain/rbac"
)

// Cookie сессии: видна всем страницам, живёт сутки.
const (
	SessionCookieName   = "content_session"
	SessionCookieMaxAge = 24 * 60 * 60
)

// Cookie попытки входа: только для /callback, 5 минут на логин в Keycloak.
const (
	LoginCookieName   = "content_login"
	LoginCookieMaxAge = 5 * 60
)

// refreshMargin: токен обновляется заранее, чтобы не истечь посреди загрузки.
const refreshMargin = 30 * time.Second

// ErrNoLoginAttempt: callback пришёл без cookie попытки входа.
var ErrNoLoginAttempt = errors.New("нет активной попытки входа")

// SessionData: пользователь UI и его токены Keycloak.
type SessionData struct {
	// AccessToken передаётся в Content API.
	AccessToken  string `json:"access_token"`  //nolint:gosec // G117: поле сессии
	RefreshToken string `json:"refresh_token"` //nolint:gosec // G117: поле сессии
	// IDToken: id_token_hint при выходе.
	IDToken string `json:"id_token,omitempty"`
	// ExpiresAt: истечение access token (Unix).
	ExpiresAt int64    `json:"expires_at"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	Groups    []string `json:"groups,omitempty"`
}

// NewSession собирает сессию после входа: токены от Keycloak,
// пользователь и роль из проверенного access token.
func NewSession(tokens *TokenResponse, id *Identity, now time.Time) *SessionData {
	return &SessionData{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		IDToken:      tokens.IDToken,
		ExpiresAt:    tokens.expiresAt(now, id.ExpiresAt).Unix(),
		Username:     id.Username,
		Email:        id.Email,
		Role:         id.Role,
		Groups:       id.Groups,
	}
}

// Refreshed возвращает копию сессии с новыми токенами.
// Пользователь и роль сохраняются до следующего входа.
func (s *SessionData) Refreshed(tokens *TokenResponse, now time.Time) *SessionData {
	next := *s
	next.AccessToken = tokens.AccessToken
	next.RefreshToken = tokens.RefreshToken
	if tokens.IDToken != "" {
		next.IDToken = tokens.IDToken
	}
	next.ExpiresAt = tokens.expiresAt(now, time.Time{}).Unix()
	return &next
}

// NeedsRefresh: access token истёк или истечёт в пределах refreshMargin.
func (s *SessionData) NeedsRefresh(now time.Time) bool {
	return now.Add(refreshMargin).Unix() >= s.ExpiresAt
}

// IsPower: может ли пользователь загружать контент. Для nil: false.
func (s *SessionData) IsPower() bool {
	if s == nil {
		return false
	}
	return rbac.IsPower(s.Role)
}

// Name: имя пользователя, под которым публикуется контент. Для nil: "".
func (s *SessionData) Name() string {
	if s == nil {
		return ""
	}
	return s.Username
}

// cookieSpec: атрибуты одного зашифрованного cookie.
type cookieSpec struct {
	name   string
	path   string
	maxAge int
}

var (
	sessionCookie = cookieSpec{name: SessionCookieName, path: "/", maxAge: SessionCookieMaxAge}
	loginCookie   = cookieSpec{name: LoginCookieName, path: CallbackPath, maxAge: LoginCookieMaxAge}
)

// SessionManager хранит сессию и попытку входа в cookie,
// зашифрованных AES-256-GCM. Подделанный cookie не расшифровывается.
type SessionManager struct {
	aead   cipher.AEAD
	secure bool
}

// NewSessionManager создаёт менеджер cookie.
// key: base64 от 32 байт или произвольная строка (берётся её SHA-256).
// Пустой key: случайный ключ, сессии не переживают рестарт.
func NewSessionManager(key string, secure bool) (*SessionManager, error) {
	keyBytes, err := sessionKey(key)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("GCM: %w", err)
	}
	return &SessionManager{aead: aead, secure: secure}, nil
}

func sessionKey(key string) ([]byte, error) {
	if key == "" {
		b := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, b); err != nil {
			return nil, fmt.Errorf("генерация ключа сессии: %w", err)
		}
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == 32 {
		return b, nil
	}
	sum := sha256.Sum256([]byte(key))
	return sum[:], nil
}

// seal: JSON, затем nonce || AES-GCM, затем base64url.
func (sm *SessionManager) seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("сериализация cookie: %w", err)
	}
	nonce := make([]byte, sm.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("генерация nonce: %w", err)
	}
	return base64.URLEncoding.EncodeToString(sm.aead.Seal(nonce, nonce, plaintext, nil)), nil
}

func (sm *SessionManager) open(value string, v any) error {
	raw, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("декодирование cookie: %w", err)
	}
	n := sm.aead.NonceSize()
	if len(raw) < n {
		return errors.New("cookie слишком короткий")
	}
	plaintext, err := sm.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return fmt.Errorf("расшифровка cookie: %w", err)
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("разбор cookie: %w", err)
	}
	return nil
}

func (sm *SessionManager) write(w http.ResponseWriter, spec cookieSpec, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     spec.name,
		Value:    value,
		Path:     spec.path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (sm *SessionManager) set(w http.ResponseWriter, spec cookieSpec, v any) error {
	value, err := sm.seal(v)
	if err != nil {
		return err
	}
	sm.write(w, spec, value, spec.maxAge)
	return nil
}

// SealSession шифрует сессию в значение cookie.
func (sm *SessionManager) SealSession(s *SessionData) (string, error) {
	return sm.seal(s)
}

// OpenSession расшифровывает значение cookie сессии.
func (sm *SessionManager) OpenSession(value string) (*SessionData, error) {
	var s SessionData
	if err := sm.open(value, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetSessionCookie записывает сессию в ответ.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, s *SessionData) error {
	return sm.set(w, sessionCookie, s)
}

// SessionFromRequest читает сессию. Без cookie: nil, nil.
func (sm *SessionManager) SessionFromRequest(r *http.Request) (*SessionData, error) {
	c, err := r.Cookie(SessionCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sm.OpenSession(c.Value)
}

// ClearSessionCookie удаляет сессию (выход, повреждённый cookie).
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	sm.write(w, sessionCookie, "", -1)
}

// SetLoginCookie сохраняет попытку входа до возврата на /callback.
func (sm *SessionManager) SetLoginCookie(w http.ResponseWriter, attempt *LoginAttempt) error {
	return sm.set(w, loginCookie, attempt)
}

// TakeLoginAttempt читает попытку входа и удаляет cookie: state одноразовый.
func (sm *SessionManager) TakeLoginAttempt(w http.ResponseWriter, r *http.Request) (*LoginAttempt, error) {
	c, err := r.Cookie(LoginCookieName)
	if err != nil {
		return nil, ErrNoLoginAttempt
	}
	sm.write(w, loginCookie, "", -1)

	var attempt LoginAttempt
	if err := sm.open(c.Value, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}
