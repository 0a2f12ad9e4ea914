// dephealth.go: интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Content Module мониторит две зависимости:
//   - Content API: HTTP checker к health endpoint (critical)
//   - Keycloak: HTTP checker к JWKS endpoint (critical)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health: состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds: задержка проверки
//   - app_dependency_status: категория статуса
//   - app_dependency_status_detail: детальный статус
package service

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker
	"github.com/prometheus/client_golang/prometheus"
)

// Имена зависимостей в метриках.
const (
	DepContentAPI   = "content-api"
	DepKeycloakJWKS = "keycloak-jwks"
)

// DephealthConfig: параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID: имя вершины графа текущего приложения.
	ServiceID string
	// Group: имя группы в метриках (CM_DEPHEALTH_GROUP).
	Group string
	// ContentAPIURL: базовый URL Content API.
	ContentAPIURL string
	// ContentAPIHealthPath: путь health endpoint Content API.
	ContentAPIHealthPath string
	// KeycloakJWKSURL: URL JWKS endpoint Keycloak.
	KeycloakJWKSURL string
	// CheckInterval: интервал проверки (CM_DEPHEALTH_CHECK_INTERVAL).
	CheckInterval time.Duration
}

// DephealthService: сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	cfg DephealthConfig,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService: внутренний конструктор.
func newDephealthService(cfg DephealthConfig, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	// Health endpoint Keycloak доступен только на management порту.
	// Проверяем путь самого JWKS URL: это подтверждает доступность realm.
	kcHealthPath := "/health"
	if parsed, err := url.Parse(cfg.KeycloakJWKSURL); err == nil && parsed.Path != "" {
		kcHealthPath = parsed.Path
	}

	contentHealthPath := cfg.ContentAPIHealthPath
	if parsed, err := url.Parse(cfg.ContentAPIURL); err == nil && parsed.Path != "" {
		contentHealthPath = parsed.Path + contentHealthPath
	}

	opts := make([]dephealth.Option, 0, 3+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.HTTP(DepContentAPI, httpDepOptions(cfg.ContentAPIURL, contentHealthPath, cfg.CheckInterval)...),
		dephealth.HTTP(DepKeycloakJWKS, httpDepOptions(cfg.KeycloakJWKSURL, kcHealthPath, cfg.CheckInterval)...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// httpDepOptions: опции HTTP-зависимости. Для https проверяется сертификат.
func httpDepOptions(rawURL, healthPath string, interval time.Duration) []dephealth.DependencyOption {
	opts := []dephealth.DependencyOption{
		dephealth.FromURL(rawURL),
		dephealth.WithHTTPHealthPath(healthPath),
		dephealth.CheckInterval(interval),
		dephealth.Critical(true),
	}
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Scheme == "https" {
		opts = append(opts, dephealth.WithHTTPTLSSkipVerify(false))
	}
	return opts
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (Content API + Keycloak)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ: имя зависимости, значение: true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
