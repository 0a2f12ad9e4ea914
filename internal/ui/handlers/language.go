// language.go: переключение языка UI.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/content-module/internal/ui/i18n"
)

// HandleSetLanguage обрабатывает POST /set-language.
// Сохраняет язык в cookie "lang" и возвращает на страницу из поля redirect
// (только локальные пути), иначе на главную.
func HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("lang")
	if b := i18n.BundleFromContext(r.Context()); b == nil || !b.Supports(lang) {
		lang = i18n.DefaultLang
	}

	http.SetCookie(w, &http.Cookie{
		Name:     i18n.LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: false, // JS может читать для UI-логики
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})

	target := r.FormValue("redirect")
	if !isLocalPath(target) {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
