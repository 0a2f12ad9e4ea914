// Пакет i18n: переводы Content UI.
// Каталоги: плоские JSON (key → текст) в locales/, по файлу на язык.
// Язык запроса: cookie "lang" → Accept-Language → язык по умолчанию.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLang: язык, на который откатывается перевод.
const DefaultLang = "en"

// contextKey: тип ключа для контекста (избегаем коллизий).
type contextKey string

const (
	contextKeyLang   contextKey = "i18n_lang"
	contextKeyBundle contextKey = "i18n_bundle"
)

// Bundle: неизменяемый после загрузки набор каталогов.
type Bundle struct {
	catalogs map[string]map[string]string
	langs    []string
	matcher  language.Matcher
}

// Load читает все locales/*.json из fsys. Имя файла: код языка.
// Каталог языка по умолчанию обязателен.
func Load(fsys fs.FS, logger *slog.Logger) (*Bundle, error) {
	files, err := fs.Glob(fsys, "locales/*.json")
	if err != nil {
		return nil, fmt.Errorf("i18n: поиск каталогов: %w", err)
	}

	b := &Bundle{catalogs: make(map[string]map[string]string, len(files))}
	for _, file := range files {
		lang := strings.TrimSuffix(path.Base(file), ".json")
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("i18n: не удалось прочитать %s: %w", file, err)
		}

		var messages map[string]string
		if err := json.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("i18n: ошибка парсинга каталога %s: %w", lang, err)
		}
		b.catalogs[lang] = messages
		logger.Debug("i18n каталог загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}

	if _, ok := b.catalogs[DefaultLang]; !ok {
		return nil, fmt.Errorf("i18n: нет каталога языка по умолчанию %q", DefaultLang)
	}

	// Язык по умолчанию первым: matcher возвращает его при отсутствии совпадений.
	b.langs = append(b.langs, DefaultLang)
	for lang := range b.catalogs {
		if lang != DefaultLang {
			b.langs = append(b.langs, lang)
		}
	}
	slices.Sort(b.langs[1:])

	tags := make([]language.Tag, 0, len(b.langs))
	for _, lang := range b.langs {
		tags = append(tags, language.Make(lang))
	}
	b.matcher = language.NewMatcher(tags)

	logger.Info("i18n каталоги загружены", slog.Any("languages", b.langs))
	return b, nil
}

// Languages возвращает коды загруженных языков, язык по умолчанию первый.
func (b *Bundle) Languages() []string {
	return slices.Clone(b.langs)
}

// Supports сообщает, есть ли каталог для языка.
func (b *Bundle) Supports(lang string) bool {
	_, ok := b.catalogs[lang]
	return ok
}

// Translate возвращает перевод. Отсутствующий ключ ищется в каталоге
// по умолчанию, затем возвращается сам ключ.
func (b *Bundle) Translate(lang, key string) string {
	if msg, ok := b.catalogs[lang][key]; ok {
		return msg
	}
	if msg, ok := b.catalogs[DefaultLang][key]; ok {
		return msg
	}
	return key
}

// MatchLanguage выбирает лучший язык по заголовку Accept-Language.
func (b *Bundle) MatchLanguage(acceptLanguage string) string {
	_, idx, conf := b.matcher.Match(parseAcceptLanguage(acceptLanguage)...)
	if conf == language.No {
		return DefaultLang
	}
	return b.langs[idx]
}

// parseAcceptLanguage разбирает заголовок; некорректный: пустой список.
func parseAcceptLanguage(header string) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	return tags
}

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKeyLang, lang)
}

// WithBundle помещает каталоги в контекст.
func WithBundle(ctx context.Context, b *Bundle) context.Context {
	return context.WithValue(ctx, contextKeyBundle, b)
}

// LangFromContext извлекает язык из контекста. По умолчанию "en".
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKeyLang).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// T переводит ключ на язык запроса. Без Bundle в контексте возвращает ключ.
func T(ctx context.Context, key string) string {
	b := BundleFromContext(ctx)
	if b == nil {
		return key
	}
	return b.Translate(LangFromContext(ctx), key)
}

// BundleFromContext возвращает каталоги из контекста или nil.
func BundleFromContext(ctx context.Context) *Bundle {
	b, _ := ctx.Value(contextKeyBundle).(*Bundle)
	return b
}
