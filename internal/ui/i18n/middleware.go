// middleware.go: определение языка пользователя.
package i18n

import (
	"net/http"
)

// LangCookieName: имя cookie для хранения выбранного языка.
const LangCookieName = "lang"

// Middleware кладёт в контекст Bundle и язык запроса.
func Middleware(b *Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithBundle(r.Context(), b)
			ctx = WithLang(ctx, b.DetectLanguage(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DetectLanguage: cookie "lang" → Accept-Language → язык по умолчанию.
func (b *Bundle) DetectLanguage(r *http.Request) string {
	if cookie, err := r.Cookie(LangCookieName); err == nil && b.Supports(cookie.Value) {
		return cookie.Value
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return b.MatchLanguage(accept)
	}
	return DefaultLang
}
