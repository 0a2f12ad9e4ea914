// errors.go: ошибки Content API.
package contentapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Операции клиента (лейблы метрик и контекст ошибок).
const (
	opVerifyName = "verify_name"
	opUpload     = "upload"
)

// ErrorContent: тело ответа об ошибке Content API.
type ErrorContent struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

// StatusCodeError: API ответил статусом вне 2xx.
// Content всегда не nil. Тело не JSON: Message содержит текст тела.
// Пустое сообщение заменяется стандартным описанием статуса.
type StatusCodeError struct {
	Operation  string
	StatusCode int
	Content    *ErrorContent
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("Content API %s: статус %d: %s", e.Operation, e.StatusCode, e.Content.Message)
}

// IsUnauthorized сообщает, что запрос отклонён из-за отсутствия аутентификации.
func (e *StatusCodeError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// newStatusCodeError разбирает тело ответа об ошибке.
func newStatusCodeError(op string, statusCode int, body []byte) *StatusCodeError {
	content := &ErrorContent{}
	if err := json.Unmarshal(body, content); err != nil {
		// Не JSON: сообщением служит текст тела.
		content = &ErrorContent{Message: strings.TrimSpace(string(body))}
	}
	if content.Message == "" {
		content.Message = http.StatusText(statusCode)
	}
	return &StatusCodeError{
		Operation:  op,
		StatusCode: statusCode,
		Content:    content,
	}
}
