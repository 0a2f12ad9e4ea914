package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/content-module/internal/ui/pages"
)

// HomeHandler: главная страница и страница 404.
type HomeHandler struct {
	logger *slog.Logger
}

// NewHomeHandler создаёт новый HomeHandler.
func NewHomeHandler(logger *slog.Logger) *HomeHandler {
	return &HomeHandler{
		logger: logger.With(slog.String("component", "ui.home")),
	}
}

// HandleHome обрабатывает GET /.
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.logger, http.StatusOK, pages.Home(pages.HomeData{LayoutData: layoutData(r)}))
}

// HandleNotFound отдаёт HTML-страницу 404.
func (h *HomeHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.logger, http.StatusNotFound, pages.NotFound(layoutData(r)))
}
