// Пакет handlers: HTTP-обработчики Content UI.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/bigkaa/goartstore/content-module/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/goartstore/content-module/internal/ui/middleware"
	"github.com/bigkaa/goartstore/content-module/internal/ui/pages"
)

// isHTMX: запрос пришёл от htmx (или совместимого скрипта).
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirectTo отправляет браузер на path. Для HTMX-запроса: через HX-Redirect,
// иначе 303 See Other.
func redirectTo(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// navigator: form.Navigator поверх HTTP-ответа. Запоминает цель,
// редирект выполняет обработчик после работы контроллера.
type navigator struct {
	target string
}

func (n *navigator) NavigateTo(path string) {
	n.target = path
}

// navigated: был ли запрошен переход.
func (n *navigator) navigated() bool {
	return n.target != ""
}

// layoutData собирает данные шапки из сессии и языка запроса.
func layoutData(r *http.Request) pages.LayoutData {
	session := uimiddleware.SessionFromContext(r.Context())
	data := pages.LayoutData{
		LoggedIn:    session != nil,
		Username:    session.Name(),
		IsPower:     session.IsPower(),
		Languages:   []string{i18n.DefaultLang},
		CurrentPath: r.URL.Path,
	}
	if b := i18n.BundleFromContext(r.Context()); b != nil {
		data.Languages = b.Languages()
	}
	return data
}

// renderPage пишет HTML-компонент со статусом status.
func renderPage(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := c.Render(r.Context(), w); err != nil {
		// Заголовки уже отправлены, остаётся только залогировать.
		logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// isLocalPath: путь внутри приложения (защита от open redirect).
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
