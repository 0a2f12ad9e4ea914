// upload.go: страница загрузки контента.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/bigkaa/goartstore/content-module/internal/domain/model"
	"github.com/bigkaa/goartstore/content-module/internal/ui/form"
	uimiddleware "github.com/bigkaa/goartstore/content-module/internal/ui/middleware"
	"github.com/bigkaa/goartstore/content-module/internal/ui/pages"
)

// multipartMemory: сколько байт формы держать в памяти, остальное во временных файлах.
const multipartMemory = 1 << 20

// UploadHandler: обработчики формы загрузки.
type UploadHandler struct {
	client form.ContentClient
	limits form.Limits
	// maxBody: предел тела multipart-запроса.
	maxBody int64
	logger  *slog.Logger
}

// NewUploadHandler создаёт новый UploadHandler.
func NewUploadHandler(client form.ContentClient, limits form.Limits, maxBody int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		client:  client,
		limits:  limits,
		maxBody: maxBody,
		logger:  logger.With(slog.String("component", "ui.upload")),
	}
}

// newPage создаёт контроллер для текущего пользователя и выполняет Initialize.
// При false переход на главную уже выполнен.
func (h *UploadHandler) newPage(w http.ResponseWriter, r *http.Request) (*form.UploadPage, *navigator, bool) {
	session := uimiddleware.SessionFromContext(r.Context())
	nav := &navigator{}
	page := form.NewUploadPage(session, h.client, nav, h.limits, h.logger)

	if !page.Initialize() {
		redirectTo(w, r, nav.target)
		return nil, nil, false
	}
	return page, nav, true
}

// HandleUploadPage обрабатывает GET /upload.
func (h *UploadHandler) HandleUploadPage(w http.ResponseWriter, r *http.Request) {
	page, _, ok := h.newPage(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, page)
}

// HandleVerifyName обрабатывает POST /upload/verify-name и отдаёт HTMX-фрагмент.
func (h *UploadHandler) HandleVerifyName(w http.ResponseWriter, r *http.Request) {
	page, _, ok := h.newPage(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Некорректные данные формы", http.StatusBadRequest)
		return
	}

	page.SetOwner(r.PostFormValue("owner"))
	page.Form.Name = strings.TrimSpace(r.PostFormValue("name"))
	if page.Form.Name != "" {
		page.ValidateName(r.Context())
	}

	renderPage(w, r, h.logger, http.StatusOK, pages.NameValidation(pages.NameValidationFromForm(page.Form)))
}

// HandleSubmit обрабатывает POST /upload (multipart/form-data).
// Успех: переход на страницу контента, ошибка: форма с сообщением (422).
func (h *UploadHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	page, nav, ok := h.newPage(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		status, msg := h.parseErrorResponse(err)
		h.logger.Info("Некорректная форма загрузки",
			slog.String("username", page.Form.Owner),
			slog.String("error", err.Error()),
		)
		page.Form.ValidationMessage = msg
		h.renderForm(w, r, status, page)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	if msg := h.bindForm(page, r); msg != "" {
		page.Form.ValidationMessage = msg
		h.renderForm(w, r, http.StatusUnprocessableEntity, page)
		return
	}

	if !page.Submit(r.Context()) || !nav.navigated() {
		h.renderForm(w, r, http.StatusUnprocessableEntity, page)
		return
	}

	markUploaded(w, nav.target)
	redirectTo(w, r, nav.target)
}

// bindForm переносит поля запроса в форму. Возвращает сообщение об ошибке или "".
func (h *UploadHandler) bindForm(page *form.UploadPage, r *http.Request) string {
	page.SetOwner(r.FormValue("owner"))
	page.Form.Name = strings.TrimSpace(r.FormValue("name"))
	page.Form.Description = strings.TrimSpace(r.FormValue("description"))

	if raw := r.FormValue("visibility"); raw != "" {
		v, err := model.ParseVisibility(raw)
		if err != nil {
			return fmt.Sprintf("Unknown visibility %q.", raw)
		}
		page.Form.Visibility = v
	}

	page.Form.File = form.NewMultipartFile(firstFile(r.MultipartForm, "file"))
	page.Form.Image = form.NewMultipartFile(firstFile(r.MultipartForm, "image"))
	return ""
}

// parseErrorResponse: статус и сообщение для ошибки разбора multipart.
func (h *UploadHandler) parseErrorResponse(err error) (int, string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge,
			fmt.Sprintf("The upload exceeds the maximum request size of %d bytes.", maxErr.Limit)
	}
	return http.StatusBadRequest, "The upload form could not be read."
}

// renderForm рендерит страницу загрузки с текущим состоянием формы.
func (h *UploadHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, page *form.UploadPage) {
	data := pages.NewUploadData(layoutData(r), page.Form, h.limits)
	renderPage(w, r, h.logger, status, pages.Upload(data))
}

// firstFile возвращает первый файл поля или nil.
func firstFile(mf *multipart.Form, field string) *multipart.FileHeader {
	if mf == nil || len(mf.File[field]) == 0 {
		return nil
	}
	return mf.File[field][0]
}
