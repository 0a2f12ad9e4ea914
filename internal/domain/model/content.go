// Пакет model: доменные типы Content Module.
package model

import (
	"fmt"
	"net/url"
	"strings"
)

// Visibility: уровень доступа к загруженному контенту.
type Visibility string

const (
	// VisibilityPublic: контент виден всем и попадает в списки.
	VisibilityPublic Visibility = "public"
	// VisibilityUnlisted: контент доступен по прямой ссылке, но не попадает в списки.
	VisibilityUnlisted Visibility = "unlisted"
	// VisibilityPrivate: контент виден только владельцу.
	VisibilityPrivate Visibility = "private"
)

// AllVisibilities возвращает допустимые значения в порядке отображения в форме.
func AllVisibilities() []Visibility {
	return []Visibility{VisibilityPublic, VisibilityUnlisted, VisibilityPrivate}
}

// ParseVisibility разбирает строковое значение (без учёта регистра).
func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllVisibilities() {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("недопустимое значение видимости %q, допустимые: public, unlisted, private", s)
}

// String реализует fmt.Stringer.
func (v Visibility) String() string {
	return string(v)
}

// ContentPath возвращает путь страницы контента: /{owner}/{name}.
// Сегменты экранируются. Без владельца или имени путь ведёт на главную,
// иначе получился бы protocol-relative URL вида //name.
func ContentPath(owner, name string) string {
	if owner == "" || name == "" {
		return "/"
	}
	return "/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
}
