// Пакет pages: страницы Content UI как templ.Component.
// Разметка: html/template из templates/, каждая страница собирается
// поверх layout.html; частичные шаблоны рендерятся без layout.
package pages

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/bigkaa/goartstore/content-module/internal/ui/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

// Файлы страниц, рендерящихся внутри layout.
const (
	pageHome     = "home.html"
	pageUpload   = "upload.html"
	pageContent  = "content.html"
	pageNotFound = "not_found.html"
)

// Частичные шаблоны (HTMX-фрагменты).
const (
	partialNameValidation = "name_validation.html"
)

// baseFuncs: функции шаблонов. "t" и "lang" подменяются при рендеринге
// значениями из контекста запроса.
var baseFuncs = template.FuncMap{
	"t":    func(key string) string { return key },
	"lang": func() string { return i18n.DefaultLang },
	"mib":  func(n int64) string { return fmt.Sprintf("%.0f MiB", float64(n)/(1<<20)) },
}

var (
	pageTemplates    = mustParsePages(pageHome, pageUpload, pageContent, pageNotFound)
	partialTemplates = mustParsePartials(partialNameValidation)
)

func mustParsePages(names ...string) map[string]*template.Template {
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(
			template.New(name).Funcs(baseFuncs).ParseFS(templateFS,
				"templates/layout.html", "templates/"+partialNameValidation, "templates/"+name),
		)
	}
	return out
}

func mustParsePartials(names ...string) map[string]*template.Template {
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(
			template.New(name).Funcs(baseFuncs).ParseFS(templateFS, "templates/"+name),
		)
	}
	return out
}

// render возвращает компонент, исполняющий шаблон entry из набора tmpl
// с функциями перевода, привязанными к контексту рендеринга.
func render(tmpl *template.Template, entry string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := tmpl.Clone()
		if err != nil {
			return fmt.Errorf("клонирование шаблона %s: %w", tmpl.Name(), err)
		}
		t.Funcs(template.FuncMap{
			"t":    func(key string) string { return i18n.T(ctx, key) },
			"lang": func() string { return i18n.LangFromContext(ctx) },
		})

		entryTmpl := t.Lookup(entry)
		if entryTmpl == nil {
			return fmt.Errorf("шаблон %s не найден в %s", entry, tmpl.Name())
		}
		return templ.FromGoHTML(entryTmpl, data).Render(ctx, w)
	})
}

func page(name string, data any) templ.Component {
	return render(pageTemplates[name], "layout", data)
}

func partial(name string, data any) templ.Component {
	return render(partialTemplates[name], name, data)
}
