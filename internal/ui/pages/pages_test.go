package pages

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/bigkaa/goartstore/content-module/internal/domain/model"
	"github.com/bigkaa/goartstore/content-module/internal/ui/form"
	"github.com/bigkaa/goartstore/content-module/internal/ui/i18n"
)

// renderToString рендерит компонент с каталогами переводов в контексте.
func renderToString(t *testing.T, lang string, c templ.Component) string {
	t.Helper()
	bundle, err := i18n.Load(i18n.LocaleFS, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		t.Fatal(err)
	}
	ctx := i18n.WithLang(i18n.WithBundle(context.Background(), bundle), lang)

	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func layout() LayoutData {
	return LayoutData{
		Username:    "alice",
		LoggedIn:    true,
		IsPower:     true,
		Languages:   []string{"en", "ru"},
		CurrentPath: "/upload",
	}
}

func TestUpload_RendersForm(t *testing.T) {
	f := form.UploadForm{
		AvailableOwners:   []string{"alice"},
		Owner:             "alice",
		Name:              "coaster1",
		Visibility:        model.VisibilityUnlisted,
		SubmitButtonText:  "Upload",
		ValidationMessage: "You must upload a file and image.",
	}
	html := renderToString(t, "en", Upload(NewUploadData(layout(), f, form.DefaultLimits())))

	for _, want := range []string{
		`<html lang="en">`,
		`<option value="alice" selected>alice</option>`,
		`value="coaster1"`,
		`<option value="unlisted" selected>Unlisted</option>`,
		`You must upload a file and image.`,
		`>Upload</button>`,
		`8 MiB`,
		`4 MiB`,
		`enctype="multipart/form-data"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("в странице нет %q", want)
		}
	}
}

func TestUpload_EscapesUserInput(t *testing.T) {
	f := form.UploadForm{
		Owner:            "alice",
		Name:             `<script>alert(1)</script>`,
		SubmitButtonText: "Upload",
	}
	html := renderToString(t, "en", Upload(NewUploadData(layout(), f, form.DefaultLimits())))

	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("пользовательский ввод не экранирован")
	}
}

func TestUpload_Russian(t *testing.T) {
	f := form.UploadForm{Owner: "alice", SubmitButtonText: "Upload", Visibility: model.VisibilityPublic}
	html := renderToString(t, "ru", Upload(NewUploadData(layout(), f, form.DefaultLimits())))

	if !strings.Contains(html, "Загрузка контента") {
		t.Error("заголовок не переведён")
	}
	if !strings.Contains(html, `<option value="public" selected>Публичный</option>`) {
		t.Error("видимость не переведена")
	}
}

func TestNameValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    NameValidationData
		want    string
		notWant string
	}{
		{"не проверялось", NameValidationData{}, "", "validation"},
		{"свободно", NameValidationData{Checked: true, Valid: true}, "Name is available.", "error"},
		{"занято", NameValidationData{Checked: true, Message: "Name already taken"}, "Name already taken", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := renderToString(t, "en", NameValidation(tt.data))
			if tt.want != "" && !strings.Contains(html, tt.want) {
				t.Errorf("фрагмент %q не содержит %q", html, tt.want)
			}
			if strings.Contains(html, tt.notWant) {
				t.Errorf("фрагмент %q содержит %q", html, tt.notWant)
			}
		})
	}
}

func TestNameValidationFromForm(t *testing.T) {
	if NameValidationFromForm(form.UploadForm{}).Checked {
		t.Error("пустая форма не должна считаться проверенной")
	}
	got := NameValidationFromForm(form.UploadForm{NameValidationMessage: "taken"})
	if !got.Checked || got.Valid || got.Message != "taken" {
		t.Errorf("NameValidationFromForm = %+v", got)
	}
}

func TestHome(t *testing.T) {
	power := renderToString(t, "en", Home(HomeData{LayoutData: layout()}))
	if !strings.Contains(power, `href="/upload"`) {
		t.Error("power-пользователю нужна ссылка на загрузку")
	}

	anon := renderToString(t, "en", Home(HomeData{LayoutData: LayoutData{Languages: []string{"en"}}}))
	if strings.Contains(anon, `href="/upload"`) {
		t.Error("анониму не нужна ссылка на загрузку")
	}
	if !strings.Contains(anon, `href="/login"`) {
		t.Error("анониму нужна ссылка на вход")
	}
}

func TestContent(t *testing.T) {
	html := renderToString(t, "en", Content(ContentData{
		LayoutData:   layout(),
		Owner:        "alice",
		Name:         "coaster1",
		JustUploaded: true,
	}))
	for _, want := range []string{"<h1>coaster1</h1>", "<dd>alice</dd>", "Content uploaded."} {
		if !strings.Contains(html, want) {
			t.Errorf("в странице нет %q", want)
		}
	}
}

func TestNotFound(t *testing.T) {
	html := renderToString(t, "en", NotFound(layout()))
	if !strings.Contains(html, "Page not found") {
		t.Error("нет заголовка 404")
	}
}
