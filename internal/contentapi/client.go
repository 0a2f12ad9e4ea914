// Пакет contentapi: HTTP-клиент удалённого Content API.
// Поддерживает TLS с кастомным CA (CM_CA_CERT_PATH).
// Операции: VerifyName (GET /content/verify-name), Upload (POST /content/upload, multipart).
package contentapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/content-module/internal/domain/model"
	"github.com/bigkaa/goartstore/content-module/internal/httpclient"
)

// TokenProvider: функция, возвращающая access token пользователя для запросов к API.
// Пустая строка без ошибки: запрос уходит без Authorization.
type TokenProvider func(ctx context.Context) (string, error)

// API: операции Content API, используемые формой загрузки.
type API interface {
	VerifyName(ctx context.Context, owner, name string) (*VerifyNameResponse, error)
	Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error)
}

// VerifyNameResponse: ответ GET /content/verify-name.
type VerifyNameResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// UploadRequest: параметры загрузки контента.
type UploadRequest struct {
	Owner       string
	Name        string
	Description string
	Visibility  model.Visibility
	// File: поток файла контента (уже ограниченный по размеру).
	File     io.Reader
	FileName string
	// Image: поток превью-изображения (уже ограниченный по размеру).
	Image         io.Reader
	ImageFileName string
}

// UploadResponse: ответ POST /content/upload.
type UploadResponse struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// Config: параметры подключения к Content API.
type Config struct {
	// BaseURL: базовый URL API (без trailing slash).
	BaseURL string
	// CACertPath: путь к CA-сертификату (пусто: системный пул).
	CACertPath string
	// Timeout: таймаут одного HTTP-запроса.
	Timeout time.Duration
	// HTTPClient: готовый HTTP-клиент (для тестов); CACertPath и Timeout тогда игнорируются.
	HTTPClient *http.Client
}

// Client: HTTP-клиент Content API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokenProvider TokenProvider
	logger        *slog.Logger
}

// maxErrorBody: сколько байт тела ошибки читается для сообщения.
const maxErrorBody = 64 << 10

// New создаёт клиент Content API.
func New(cfg Config, tokenProvider TokenProvider, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("не задан базовый URL Content API")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		var err error
		httpClient, err = httpclient.New(httpclient.Options{Timeout: timeout, CACertPath: cfg.CACertPath})
		if err != nil {
			return nil, fmt.Errorf("HTTP-клиент Content API: %w", err)
		}
		if cfg.CACertPath != "" {
			logger.Info("CA-сертификат Content API добавлен в пул доверия",
				slog.String("ca_cert", cfg.CACertPath),
			)
		}
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    httpClient,
		tokenProvider: tokenProvider,
		logger:        logger.With(slog.String("component", "content_api_client")),
	}, nil
}

// VerifyName проверяет, свободно ли имя контента у владельца.
// GET /content/verify-name?owner=...&name=...
func (c *Client) VerifyName(ctx context.Context, owner, name string) (*VerifyNameResponse, error) {
	q := url.Values{
		"owner": {owner},
		"name":  {name},
	}
	reqURL := c.baseURL + "/content/verify-name?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса VerifyName: %w", err)
	}

	var result VerifyNameResponse
	if err := c.do(ctx, opVerifyName, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Upload загружает контент multipart-запросом.
// POST /content/upload: поля owner, name, description, visibility и части file, image.
// Тело формируется потоково через io.Pipe, файлы не буферизуются целиком.
func (c *Client) Upload(ctx context.Context, upload *UploadRequest) (*UploadResponse, error) {
	if upload.File == nil || upload.Image == nil {
		return nil, fmt.Errorf("Upload: требуются файл и изображение")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	// Writer читает потоки вызывающего: Upload не возвращается,
	// пока горутина не завершилась.
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(writeUploadForm(mw, upload))
	}()
	finish := func() {
		// Разблокирует writer, если транспорт не дочитал тело.
		pr.Close()
		<-done
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/content/upload", pr)
	if err != nil {
		finish()
		return nil, fmt.Errorf("создание запроса Upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResponse
	err = c.do(ctx, opUpload, req, &result)
	finish()
	if err != nil {
		return nil, err
	}

	c.logger.Info("Контент загружен",
		slog.String("owner", result.Owner),
		slog.String("name", result.Name),
	)
	return &result, nil
}

// writeUploadForm пишет все части multipart-формы и закрывает writer.
func writeUploadForm(mw *multipart.Writer, upload *UploadRequest) error {
	fields := []struct{ name, value string }{
		{"owner", upload.Owner},
		{"name", upload.Name},
		{"description", upload.Description},
		{"visibility", upload.Visibility.String()},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("запись поля %s: %w", f.name, err)
		}
	}

	if err := writeFilePart(mw, "file", upload.FileName, upload.File); err != nil {
		return err
	}
	if err := writeFilePart(mw, "image", upload.ImageFileName, upload.Image); err != nil {
		return err
	}

	return mw.Close()
}

// writeFilePart копирует поток в файловую часть формы.
func writeFilePart(mw *multipart.Writer, field, filename string, r io.Reader) error {
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("создание части %s: %w", field, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("запись части %s: %w", field, err)
	}
	return nil
}

// do выполняет запрос: авторизация, X-Request-ID, метрики, разбор ответа.
// Ответ вне 2xx превращается в *StatusCodeError.
func (c *Client) do(ctx context.Context, op string, req *http.Request, out any) error {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")

	if c.tokenProvider != nil {
		token, err := c.tokenProvider(ctx)
		if err != nil {
			return fmt.Errorf("получение токена для Content API: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:gosec // URL из конфигурации
	if err != nil {
		observeRequest(op, "error", time.Since(start))
		c.logger.Warn("Ошибка запроса к Content API",
			slog.String("operation", op),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("запрос %s к Content API: %w", op, err)
	}
	defer resp.Body.Close()
	observeRequest(op, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("Content API вернул ошибку",
			slog.String("operation", op),
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode),
		)
		return newStatusCodeError(op, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("декодирование ответа %s: %w", op, err)
	}
	return nil
}

// CheckReady проверяет доступность Content API для readiness-проверки.
// Любой ответ, кроме 5xx, считается признаком доступности.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return "fail", err.Error()
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL из конфигурации
	if err != nil {
		return "fail", "Content API недоступен: " + err.Error()
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode >= 500 {
		return "fail", fmt.Sprintf("Content API вернул статус %d", resp.StatusCode)
	}
	return "ok", ""
}
