// Пакет server: HTTP-сервер Content Module с graceful shutdown.
// Без TLS: HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/content-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/content-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/content-module/internal/config"
	uihandlers "github.com/bigkaa/goartstore/content-module/internal/ui/handlers"
	"github.com/bigkaa/goartstore/content-module/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/goartstore/content-module/internal/ui/middleware"
	"github.com/bigkaa/goartstore/content-module/internal/ui/static"
)

// UIComponents: компоненты веб-интерфейса для регистрации маршрутов.
type UIComponents struct {
	Bundle         *i18n.Bundle
	SessionLoader  *uimiddleware.SessionLoader
	AuthHandler    *uihandlers.AuthHandler
	HomeHandler    *uihandlers.HomeHandler
	UploadHandler  *uihandlers.UploadHandler
	ContentHandler *uihandlers.ContentHandler
}

// Server: HTTP-сервер Content Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	api *handlers.APIHandler,
	apiAuth *middleware.APIAuth,
	ui *UIComponents,
) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(logger, api, apiAuth, ui),
		ReadHeaderTimeout: 10 * time.Second,
		// Загрузка файла: чтение тела и ответ Content API.
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: cfg.ContentAPITimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-router со всеми маршрутами.
func NewRouter(
	logger *slog.Logger,
	api *handlers.APIHandler,
	apiAuth *middleware.APIAuth,
	ui *UIComponents,
) chi.Router {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую, без сессии.
	router.Get("/health/live", api.HealthLive)
	router.Get("/health/ready", api.HealthReady)
	router.Get("/metrics", api.GetMetrics)

	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware(ui.Bundle))
		r.Use(ui.SessionLoader.Middleware())

		// JSON API: сессия UI или Bearer token.
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(apiAuth.Middleware())
			r.Get("/auth/me", api.GetCurrentUser)
			r.With(middleware.RequirePower()).Get("/content/verify-name", api.VerifyName)
		})

		r.Get("/login", ui.AuthHandler.HandleLogin)
		r.Get("/callback", ui.AuthHandler.HandleCallback)
		r.Post("/logout", ui.AuthHandler.HandleLogout)
		r.Post("/set-language", uihandlers.HandleSetLanguage)

		r.Get("/", ui.HomeHandler.HandleHome)
		r.Get("/upload", ui.UploadHandler.HandleUploadPage)
		r.Post("/upload", ui.UploadHandler.HandleSubmit)
		r.Post("/upload/verify-name", ui.UploadHandler.HandleVerifyName)
		r.Get("/{owner}/{name}", ui.ContentHandler.HandleContent)

		r.NotFound(ui.HomeHandler.HandleNotFound)
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
