// Пакет form: состояние и логика формы загрузки контента.
// UploadPage не зависит от HTTP: сессия, Content API и навигация
// передаются интерфейсами, обработчики подставляют реализации.
package form

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"

	"github.com/bigkaa/goartstore/content-module/internal/contentapi"
	"github.com/bigkaa/goartstore/content-module/internal/domain/model"
)

// Фиксированные тексты формы.
const (
	// HomePath: куда уходит пользователь без прав загрузки.
	HomePath = "/"
	// DefaultSubmitButtonText: надпись кнопки отправки.
	DefaultSubmitButtonText = "Upload"
	// MessageMissingFiles: не выбран файл или изображение.
	MessageMissingFiles = "You must upload a file and image."
	// MessageNotLoggedIn: Content API ответил 401.
	MessageNotLoggedIn = "You must be logged in to upload content."
)

// Authorizer: сведения о текущем пользователе.
type Authorizer interface {
	IsPower() bool
	Name() string
}

// ContentClient: операции Content API, нужные форме.
type ContentClient interface {
	VerifyName(ctx context.Context, owner, name string) (*contentapi.VerifyNameResponse, error)
	Upload(ctx context.Context, req *contentapi.UploadRequest) (*contentapi.UploadResponse, error)
}

// Navigator: переход на другую страницу.
type Navigator interface {
	NavigateTo(path string)
}

// SelectedFile: файл, выбранный пользователем в форме.
type SelectedFile interface {
	Name() string
	Size() int64
	// OpenReadStream открывает поток, чтение сверх max завершается ошибкой.
	OpenReadStream(max int64) (io.ReadCloser, error)
}

// Limits: максимальные размеры загружаемых файлов.
type Limits struct {
	MaxFileSize  int64
	MaxImageSize int64
}

// DefaultLimits: 8 MiB на файл, 4 MiB на изображение.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:  8 << 20,
		MaxImageSize: 4 << 20,
	}
}

// UploadForm: состояние формы на время жизни страницы.
type UploadForm struct {
	AvailableOwners []string
	Owner           string
	Name            string
	Description     string
	Visibility      model.Visibility
	File            SelectedFile
	Image           SelectedFile

	NameIsValid           bool
	NameValidationMessage string
	ValidationMessage     string
	SubmitButtonText      string
}

// UploadPage: контроллер страницы загрузки.
type UploadPage struct {
	Form UploadForm

	auth   Authorizer
	client ContentClient
	nav    Navigator
	limits Limits
	logger *slog.Logger
}

// NewUploadPage создаёт контроллер страницы.
func NewUploadPage(
	auth Authorizer,
	client ContentClient,
	nav Navigator,
	limits Limits,
	logger *slog.Logger,
) *UploadPage {
	return &UploadPage{
		auth:   auth,
		client: client,
		nav:    nav,
		limits: limits,
		logger: logger.With(slog.String("component", "upload_form")),
	}
}

// Initialize готовит форму при загрузке страницы.
// Пользователь без роли power перенаправляется на главную, форма не
// заполняется и false сигнализирует, что рендерить нечего.
func (p *UploadPage) Initialize() bool {
	if p.auth == nil || !p.auth.IsPower() {
		p.nav.NavigateTo(HomePath)
		return false
	}

	name := p.auth.Name()
	p.Form.AvailableOwners = []string{name}
	p.Form.Owner = name
	p.Form.Visibility = model.VisibilityPublic
	p.Form.SubmitButtonText = DefaultSubmitButtonText
	return true
}

// SetOwner выбирает владельца из списка доступных.
// Неизвестный владелец игнорируется.
func (p *UploadPage) SetOwner(owner string) bool {
	if !slices.Contains(p.Form.AvailableOwners, owner) {
		return false
	}
	p.Form.Owner = owner
	return true
}

// ValidateName проверяет имя через Content API и обновляет флаг и сообщение.
func (p *UploadPage) ValidateName(ctx context.Context) {
	resp, err := p.client.VerifyName(ctx, p.Form.Owner, p.Form.Name)
	if err != nil {
		p.logger.Warn("Ошибка проверки имени",
			slog.String("owner", p.Form.Owner),
			slog.String("name", p.Form.Name),
			slog.String("error", err.Error()),
		)
		p.Form.NameIsValid = false
		p.Form.NameValidationMessage = err.Error()
		return
	}

	if resp.Valid {
		p.Form.NameIsValid = true
		p.Form.NameValidationMessage = ""
		return
	}
	p.Form.NameIsValid = false
	p.Form.NameValidationMessage = resp.Message
}

// Submit отправляет форму в Content API.
// Возвращает true, если загрузка удалась и выполнен переход на страницу контента.
// В остальных случаях причина записана в Form.ValidationMessage.
func (p *UploadPage) Submit(ctx context.Context) bool {
	if p.Form.File == nil || p.Form.Image == nil {
		p.Form.ValidationMessage = MessageMissingFiles
		return false
	}

	resp, err := p.upload(ctx)
	if err != nil {
		p.Form.ValidationMessage = submitErrorMessage(err)
		p.logger.Info("Загрузка отклонена",
			slog.String("owner", p.Form.Owner),
			slog.String("name", p.Form.Name),
			slog.String("error", err.Error()),
		)
		return false
	}

	p.Form.ValidationMessage = ""
	p.nav.NavigateTo(model.ContentPath(resp.Owner, resp.Name))
	return true
}

// upload открывает потоки файлов и выполняет запрос.
// Открытые потоки закрываются в любом случае.
func (p *UploadPage) upload(ctx context.Context) (*contentapi.UploadResponse, error) {
	file, err := p.Form.File.OpenReadStream(p.limits.MaxFileSize)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	image, err := p.Form.Image.OpenReadStream(p.limits.MaxImageSize)
	if err != nil {
		return nil, err
	}
	defer image.Close()

	return p.client.Upload(ctx, &contentapi.UploadRequest{
		Owner:         p.Form.Owner,
		Name:          p.Form.Name,
		Description:   p.Form.Description,
		Visibility:    p.Form.Visibility,
		File:          file,
		FileName:      p.Form.File.Name(),
		Image:         image,
		ImageFileName: p.Form.Image.Name(),
	})
}

// submitErrorMessage превращает ошибку загрузки в текст для пользователя.
func submitErrorMessage(err error) string {
	var statusErr *contentapi.StatusCodeError
	if errors.As(err, &statusErr) {
		if statusErr.IsUnauthorized() {
			return MessageNotLoggedIn
		}
		return statusErr.Content.Message
	}
	return err.Error()
}
