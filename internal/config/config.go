// Пакет config: загрузка и валидация конфигурации Content Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Лимиты загрузки по умолчанию.
const (
	// DefaultMaxFileSize: максимальный размер файла контента (8 MiB).
	DefaultMaxFileSize int64 = 8 * 1024 * 1024
	// DefaultMaxImageSize: максимальный размер превью-изображения (4 MiB).
	DefaultMaxImageSize int64 = 4 * 1024 * 1024
)

// Config содержит все параметры конфигурации Content Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8010-8019)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Content API ---

	// Базовый URL удалённого Content API
	ContentAPIURL string
	// Таймаут HTTP-запросов к Content API
	ContentAPITimeout time.Duration
	// Путь к CA-сертификату для TLS-соединений (опционально)
	CACertPath string

	// --- Keycloak / OIDC ---

	// URL Keycloak для backend-запросов (token exchange, JWKS)
	KeycloakURL string
	// Внешний URL Keycloak для browser redirects (пусто: KeycloakURL)
	KeycloakBrowserURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Client ID публичного OIDC-клиента UI
	OIDCClientID string
	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Допустимое отклонение часов при проверке JWT
	JWTLeeway time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration

	// --- Маппинг групп → ролей ---

	// Группы Keycloak, дающие роль power (через запятую)
	RolePowerGroups []string
	// Группы Keycloak, дающие роль user (через запятую)
	RoleUserGroups []string

	// --- UI ---

	// Ключ шифрования UI-сессий (пусто: случайный ключ на время жизни процесса)
	SessionSecret string
	// Максимальный размер файла контента в байтах
	MaxFileSize int64
	// Максимальный размер изображения в байтах
	MaxImageSize int64
	// TTL кэша проверки имени (0: кэш выключен)
	NameCheckCacheTTL time.Duration
	// Максимальное количество записей кэша проверки имени
	NameCheckCacheSize int

	// --- topologymetrics ---

	// Группа в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Путь health endpoint Content API для проверки зависимости
	ContentAPIHealthPath string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CM_PORT: порт HTTP-сервера (по умолчанию 8010)
	cfg.Port, err = getEnvInt("CM_PORT", 8010)
	if err != nil {
		return nil, fmt.Errorf("CM_PORT: %w", err)
	}
	if cfg.Port < 8010 || cfg.Port > 8019 {
		return nil, fmt.Errorf("CM_PORT: значение %d вне допустимого диапазона 8010-8019", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CM_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("CM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Content API ---

	// CM_CONTENT_API_URL: обязательный
	cfg.ContentAPIURL, err = getEnvRequired("CM_CONTENT_API_URL")
	if err != nil {
		return nil, err
	}
	cfg.ContentAPIURL = strings.TrimRight(cfg.ContentAPIURL, "/")

	cfg.ContentAPITimeout, err = getEnvDuration("CM_CONTENT_API_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_CONTENT_API_TIMEOUT: %w", err)
	}

	cfg.CACertPath = getEnvDefault("CM_CA_CERT_PATH", "")

	// --- Keycloak / OIDC ---

	// CM_KEYCLOAK_URL: обязательный
	cfg.KeycloakURL, err = getEnvRequired("CM_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")
	cfg.KeycloakBrowserURL = strings.TrimRight(getEnvDefault("CM_KEYCLOAK_BROWSER_URL", ""), "/")

	cfg.KeycloakRealm = getEnvDefault("CM_KEYCLOAK_REALM", "artstore")
	cfg.OIDCClientID = getEnvDefault("CM_OIDC_CLIENT_ID", "artstore-content-ui")

	cfg.JWTIssuer = getEnvDefault("CM_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))
	cfg.JWTJWKSURL = getEnvDefault("CM_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.JWTLeeway, err = getEnvDuration("CM_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_JWT_LEEWAY: %w", err)
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("CM_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- Маппинг групп → ролей ---

	cfg.RolePowerGroups = parseCSV(getEnvDefault("CM_ROLE_POWER_GROUPS", "content-power-users"))
	cfg.RoleUserGroups = parseCSV(getEnvDefault("CM_ROLE_USER_GROUPS", "content-users"))
	if len(cfg.RolePowerGroups) == 0 {
		return nil, fmt.Errorf("CM_ROLE_POWER_GROUPS: список групп не может быть пустым")
	}

	// --- UI ---

	cfg.SessionSecret = getEnvDefault("CM_SESSION_SECRET", "")

	cfg.MaxFileSize, err = getEnvInt64("CM_MAX_FILE_SIZE", DefaultMaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("CM_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("CM_MAX_FILE_SIZE: значение должно быть положительным, получено %d", cfg.MaxFileSize)
	}

	cfg.MaxImageSize, err = getEnvInt64("CM_MAX_IMAGE_SIZE", DefaultMaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("CM_MAX_IMAGE_SIZE: %w", err)
	}
	if cfg.MaxImageSize <= 0 {
		return nil, fmt.Errorf("CM_MAX_IMAGE_SIZE: значение должно быть положительным, получено %d", cfg.MaxImageSize)
	}

	// CM_NAME_CHECK_CACHE_TTL: 0 выключает кэш
	cfg.NameCheckCacheTTL, err = getEnvDuration("CM_NAME_CHECK_CACHE_TTL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_NAME_CHECK_CACHE_TTL: %w", err)
	}
	if cfg.NameCheckCacheTTL < 0 {
		return nil, fmt.Errorf("CM_NAME_CHECK_CACHE_TTL: отрицательная длительность %s", cfg.NameCheckCacheTTL)
	}

	cfg.NameCheckCacheSize, err = getEnvInt("CM_NAME_CHECK_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("CM_NAME_CHECK_CACHE_SIZE: %w", err)
	}
	if cfg.NameCheckCacheSize < 1 || cfg.NameCheckCacheSize > 100000 {
		return nil, fmt.Errorf("CM_NAME_CHECK_CACHE_SIZE: значение %d вне допустимого диапазона 1-100000", cfg.NameCheckCacheSize)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("CM_DEPHEALTH_GROUP", "artstore")
	cfg.DephealthCheckInterval, err = getEnvDuration("CM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.ContentAPIHealthPath = getEnvDefault("CM_CONTENT_API_HEALTH_PATH", "/health")
	if !strings.HasPrefix(cfg.ContentAPIHealthPath, "/") {
		return nil, fmt.Errorf("CM_CONTENT_API_HEALTH_PATH: путь должен начинаться с /, получено %q", cfg.ContentAPIHealthPath)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("CM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// MaxUploadBodySize возвращает предельный размер тела multipart-запроса загрузки:
// файл + изображение + запас на текстовые поля и заголовки частей.
func (c *Config) MaxUploadBodySize() int64 {
	return c.MaxFileSize + c.MaxImageSize + 1<<20
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64: как getEnvInt, для размеров в байтах.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
