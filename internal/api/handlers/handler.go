// handler.go: обработчик JSON API Content Module.
// Объединяет health endpoints и операции с контентом.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/content-module/internal/contentapi"
)

// NameVerifier: проверка имени контента в Content API.
type NameVerifier interface {
	VerifyName(ctx context.Context, owner, name string) (*contentapi.VerifyNameResponse, error)
}

// APIHandler: обработчик JSON API.
type APIHandler struct {
	health  *HealthHandler
	content NameVerifier
	logger  *slog.Logger
}

// NewAPIHandler создаёт обработчик API.
func NewAPIHandler(health *HealthHandler, content NameVerifier, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health:  health,
		content: content,
		logger:  logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive: liveness-проверка (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady: readiness-проверка (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics: Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
