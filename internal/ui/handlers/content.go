package handlers

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/content-module/internal/domain/model"
	"github.com/bigkaa/goartstore/content-module/internal/ui/pages"
)

// uploadedCookieName: одноразовая отметка об успешной загрузке,
// чтобы страница контента показала подтверждение.
const uploadedCookieName = "content_uploaded"

// ContentHandler: страница загруженного контента.
type ContentHandler struct {
	logger *slog.Logger
}

// NewContentHandler создаёт новый ContentHandler.
func NewContentHandler(logger *slog.Logger) *ContentHandler {
	return &ContentHandler{
		logger: logger.With(slog.String("component", "ui.content")),
	}
}

// HandleContent обрабатывает GET /{owner}/{name}.
func (h *ContentHandler) HandleContent(w http.ResponseWriter, r *http.Request) {
	owner := pathParam(r, "owner")
	name := pathParam(r, "name")

	justUploaded := false
	if c, err := r.Cookie(uploadedCookieName); err == nil {
		justUploaded = c.Value == model.ContentPath(owner, name)
		http.SetCookie(w, &http.Cookie{
			Name:     uploadedCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	renderPage(w, r, h.logger, http.StatusOK, pages.Content(pages.ContentData{
		LayoutData:   layoutData(r),
		Owner:        owner,
		Name:         name,
		JustUploaded: justUploaded,
	}))
}

// pathParam возвращает декодированный сегмент пути.
// chi берёт параметры из RawPath, если он задан (например, для %2F).
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// markUploaded ставит отметку для страницы контента.
func markUploaded(w http.ResponseWriter, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     uploadedCookieName,
		Value:    path,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
