// content.go: обработчики /api/v1/content и /api/v1/auth.
// GET /api/v1/content/verify-name: проверка имени контента.
// GET /api/v1/auth/me: текущий пользователь.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/goartstore/content-module/internal/api/errors"
	"github.com/bigkaa/goartstore/content-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/content-module/internal/contentapi"
)

// VerifyNameResponse: ответ GET /api/v1/content/verify-name.
type VerifyNameResponse struct {
	Owner   string `json:"owner"`
	Name    string `json:"name"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// CurrentUserResponse: ответ GET /api/v1/auth/me.
type CurrentUserResponse struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	CanUpload bool   `json:"can_upload"`
	Source    string `json:"source"`
}

// VerifyName: GET /api/v1/content/verify-name?owner=&name=.
// owner по умолчанию: текущий пользователь; загружать можно только от своего имени.
// Доступ: роль power.
func (h *APIHandler) VerifyName(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if owner == "" {
		owner = principal.Username
	}
	if name == "" {
		apierrors.ValidationError(w, "Параметр name обязателен")
		return
	}
	if owner != principal.Username {
		apierrors.Forbidden(w, "Владелец контента должен совпадать с текущим пользователем")
		return
	}

	resp, err := h.content.VerifyName(r.Context(), owner, name)
	if err != nil {
		h.writeContentAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, VerifyNameResponse{
		Owner:   owner,
		Name:    name,
		Valid:   resp.Valid,
		Message: resp.Message,
	})
}

// GetCurrentUser: GET /api/v1/auth/me.
// Доступ: любой аутентифицированный пользователь.
func (h *APIHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	writeJSON(w, http.StatusOK, CurrentUserResponse{
		Username:  principal.Username,
		Role:      principal.Role,
		CanUpload: principal.IsPower(),
		Source:    string(principal.Source),
	})
}

// writeContentAPIError преобразует ошибку Content API в ответ API.
// 401 от Content API: токен пользователя не принят; остальное: 502.
func (h *APIHandler) writeContentAPIError(w http.ResponseWriter, err error) {
	var statusErr *contentapi.StatusCodeError
	if errors.As(err, &statusErr) {
		if statusErr.IsUnauthorized() {
			apierrors.Unauthorized(w, "Content API отклонил токен")
			return
		}
		message := statusErr.Error()
		if statusErr.Content != nil && statusErr.Content.Message != "" {
			message = statusErr.Content.Message
		}
		apierrors.ContentAPIUnavailable(w, message)
		return
	}

	h.logger.Error("Ошибка обращения к Content API", slog.String("error", err.Error()))
	apierrors.ContentAPIUnavailable(w, "Content API недоступен")
}
