package pages

import (
	"github.com/a-h/templ"

	"github.com/bigkaa/goartstore/content-module/internal/domain/model"
	"github.com/bigkaa/goartstore/content-module/internal/ui/form"
)

// LayoutData: общие данные шапки страницы.
type LayoutData struct {
	// TitleKey: ключ перевода заголовка страницы.
	TitleKey  string
	Username  string
	LoggedIn  bool
	IsPower   bool
	Languages []string
	// CurrentPath: куда вернуться после смены языка.
	CurrentPath string
}

// HomeData: данные главной страницы.
type HomeData struct {
	LayoutData
}

// Home: главная страница.
func Home(data HomeData) templ.Component {
	data.TitleKey = "home.heading"
	return page(pageHome, data)
}

// VisibilityOption: пункт списка видимости.
type VisibilityOption struct {
	Value    string
	LabelKey string
	Selected bool
}

// UploadData: данные страницы загрузки.
type UploadData struct {
	LayoutData
	Form         form.UploadForm
	NameCheck    NameValidationData
	Visibilities []VisibilityOption
	MaxFileSize  int64
	MaxImageSize int64
}

// NewUploadData собирает данные страницы из состояния формы.
func NewUploadData(layout LayoutData, f form.UploadForm, limits form.Limits) UploadData {
	opts := make([]VisibilityOption, 0, len(model.AllVisibilities()))
	for _, v := range model.AllVisibilities() {
		opts = append(opts, VisibilityOption{
			Value:    v.String(),
			LabelKey: "visibility." + v.String(),
			Selected: v == f.Visibility,
		})
	}
	return UploadData{
		LayoutData:   layout,
		Form:         f,
		NameCheck:    NameValidationFromForm(f),
		Visibilities: opts,
		MaxFileSize:  limits.MaxFileSize,
		MaxImageSize: limits.MaxImageSize,
	}
}

// Upload: страница формы загрузки.
func Upload(data UploadData) templ.Component {
	data.TitleKey = "upload.heading"
	return page(pageUpload, data)
}

// NameValidationData: результат проверки имени.
type NameValidationData struct {
	Checked bool
	Valid   bool
	Message string
}

// NameValidationFromForm отражает результат последней проверки имени.
// Проверка считается выполненной, если есть сообщение или имя признано свободным.
func NameValidationFromForm(f form.UploadForm) NameValidationData {
	return NameValidationData{
		Checked: f.NameIsValid || f.NameValidationMessage != "",
		Valid:   f.NameIsValid,
		Message: f.NameValidationMessage,
	}
}

// NameValidation: HTMX-фрагмент с результатом проверки имени.
func NameValidation(data NameValidationData) templ.Component {
	return partial(partialNameValidation, data)
}

// ContentData: данные страницы контента.
type ContentData struct {
	LayoutData
	Owner        string
	Name         string
	JustUploaded bool
}

// Content: страница загруженного контента.
func Content(data ContentData) templ.Component {
	data.TitleKey = "content.heading"
	return page(pageContent, data)
}

// NotFound: страница 404.
func NotFound(layout LayoutData) templ.Component {
	layout.TitleKey = "error.not_found"
	return page(pageNotFound, layout)
}
