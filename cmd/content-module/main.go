// Content Module: веб-форма загрузки контента в Artstore.
// Точка входа: загрузка конфигурации, инициализация клиентов Content API
// и Keycloak, запуск HTTP-сервера с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/bigkaa/goartstore/content-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/content-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/content-module/internal/config"
	"github.com/bigkaa/goartstore/content-module/internal/contentapi"
	"github.com/bigkaa/goartstore/content-module/internal/server"
	"github.com/bigkaa/goartstore/content-module/internal/service"
	"github.com/bigkaa/goartstore/content-module/internal/ui/auth"
	"github.com/bigkaa/goartstore/content-module/internal/ui/form"
	uihandlers "github.com/bigkaa/goartstore/content-module/internal/ui/handlers"
	"github.com/bigkaa/goartstore/content-module/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/goartstore/content-module/internal/ui/middleware"
)

func main() {
	// 1. Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Content Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("CM_DEPHEALTH_GROUP") == "" {
		logger.Warn("CM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Клиент Content API. Токен берётся из сессии запроса.
	apiClient, err := contentapi.New(contentapi.Config{
		BaseURL:    cfg.ContentAPIURL,
		CACertPath: cfg.CACertPath,
		Timeout:    cfg.ContentAPITimeout,
	}, uimiddleware.AccessTokenFromContext, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента Content API", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var contentClient contentapi.API = apiClient
	if cfg.NameCheckCacheTTL > 0 {
		contentClient = contentapi.NewCachingClient(apiClient, cfg.NameCheckCacheSize, cfg.NameCheckCacheTTL)
		logger.Info("Кэш проверки имён включён",
			slog.Int("size", cfg.NameCheckCacheSize),
			slog.String("ttl", cfg.NameCheckCacheTTL.String()),
		)
	}
	logger.Info("Клиент Content API создан", slog.String("url", cfg.ContentAPIURL))

	// 4. Keycloak: OIDC-клиент и проверка access token через JWKS
	oidcClient, err := auth.NewOIDCClient(auth.OIDCConfig{
		KeycloakURL:        cfg.KeycloakURL,
		BrowserKeycloakURL: cfg.KeycloakBrowserURL,
		Realm:              cfg.KeycloakRealm,
		ClientID:           cfg.OIDCClientID,
		CACertPath:         cfg.CACertPath,
	})
	if err != nil {
		logger.Error("Ошибка создания OIDC-клиента", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tokenVerifier, err := auth.NewTokenVerifier(ctx, auth.VerifierConfig{
		JWKSURL:         cfg.JWTJWKSURL,
		CACertPath:      cfg.CACertPath,
		Issuer:          cfg.JWTIssuer,
		Leeway:          cfg.JWTLeeway,
		RefreshInterval: cfg.JWKSRefreshInterval,
		PowerGroups:     cfg.RolePowerGroups,
		UserGroups:      cfg.RoleUserGroups,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания проверки JWT", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Проверка JWT инициализирована",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 5. Сессии UI
	secureCookie := strings.HasPrefix(cfg.KeycloakURL, "https") ||
		strings.HasPrefix(cfg.KeycloakBrowserURL, "https")

	sessionMgr, err := auth.NewSessionManager(cfg.SessionSecret, secureCookie)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("CM_SESSION_SECRET не задан, сессии не сохраняются между рестартами")
	}

	bundle, err := i18n.Load(i18n.LocaleFS, logger)
	if err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Health и JSON API
	kcChecker, err := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, cfg.CACertPath, cfg.ContentAPITimeout)
	if err != nil {
		logger.Error("Ошибка создания Keycloak readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(apiClient, kcChecker)
	apiHandler := handlers.NewAPIHandler(healthHandler, contentClient, logger)

	// 7. topologymetrics. Ошибка не фатальна.
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:            "content-module",
		Group:                cfg.DephealthGroup,
		ContentAPIURL:        cfg.ContentAPIURL,
		ContentAPIHealthPath: cfg.ContentAPIHealthPath,
		KeycloakJWKSURL:      cfg.JWTJWKSURL,
		CheckInterval:        cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 8. Веб-интерфейс
	limits := form.Limits{MaxFileSize: cfg.MaxFileSize, MaxImageSize: cfg.MaxImageSize}
	ui := &server.UIComponents{
		Bundle:         bundle,
		SessionLoader:  uimiddleware.NewSessionLoader(sessionMgr, oidcClient, logger),
		AuthHandler:    uihandlers.NewAuthHandler(oidcClient, tokenVerifier, sessionMgr, logger),
		HomeHandler:    uihandlers.NewHomeHandler(logger),
		UploadHandler:  uihandlers.NewUploadHandler(contentClient, limits, cfg.MaxUploadBodySize(), logger),
		ContentHandler: uihandlers.NewContentHandler(logger),
	}
	logger.Info("Content UI инициализирован",
		slog.String("oidc_client_id", cfg.OIDCClientID),
		slog.Bool("secure_cookie", secureCookie),
		slog.Int64("max_file_size", cfg.MaxFileSize),
		slog.Int64("max_image_size", cfg.MaxImageSize),
	)

	// 9. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler, middleware.NewAPIAuth(tokenVerifier, logger), ui)
	runErr := srv.Run()

	// 10. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	cancel()

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("Content Module остановлен")
}
