// Package server собирает HTTP сервер заметок: хранилище, маршруты, middleware и push.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/gennotes/internal/server/config"
	"github.com/iudanet/gennotes/internal/server/handlers"
	"github.com/iudanet/gennotes/internal/server/jwt"
	"github.com/iudanet/gennotes/internal/server/middleware"
	"github.com/iudanet/gennotes/internal/server/push"
	"github.com/iudanet/gennotes/internal/server/storage/sqlite"
)

// Server HTTP сервер с его зависимостями
type Server struct {
	logger      *slog.Logger
	storage     *sqlite.Storage
	hub         *push.Hub
	scheduler   *push.Scheduler
	limiter     *middleware.RateLimiter
	authLimiter *middleware.RateLimiter
	httpServer  *http.Server
	cfg         config.Config
}

// New открывает хранилище и собирает маршруты; запуск через Run
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, version string) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}

	storage, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	hub := push.NewHub(logger)
	scheduler, err := push.NewScheduler(hub, cfg.DailySyncSpec, logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		storage:     storage,
		hub:         hub,
		scheduler:   scheduler,
		limiter:     middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, logger),
		authLimiter: middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.RateWindow, logger),
	}

	manager := jwt.NewManager([]byte(cfg.JWTSecret), cfg.AccessTokenTTL)
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(manager, version),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Hub returns the push hub
func (s *Server) Hub() *push.Hub {
	return s.hub
}

func (s *Server) routes(manager *jwt.Manager, version string) http.Handler {
	authHandler := handlers.NewAuthHandler(s.logger, s.storage, manager)
	notesHandler := handlers.NewNotesHandler(s.logger, s.storage)
	pushHandler := handlers.NewPushHandler(s.logger, s.storage, s.hub)
	healthHandler := handlers.NewHealthHandler(s.logger, s.storage, version)

	r := mux.NewRouter()
	r.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingWithSkip(s.logger, []string{"/api/v1/health"}),
	)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	// Отдельный, более строгий лимит на подбор паролей
	auth := api.PathPrefix("/auth").Subrouter()
	auth.Use(middleware.RateLimitMiddleware(s.authLimiter, s.logger))
	auth.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(
		middleware.RateLimitMiddleware(s.limiter, s.logger),
		middleware.AuthMiddleware(s.logger, manager),
	)

	protected.HandleFunc("/notes", notesHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/notes", notesHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/notes/{id}", notesHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/notes/{id}", notesHandler.Update).Methods(http.MethodPut)
	protected.HandleFunc("/notes/{id}", notesHandler.Delete).Methods(http.MethodDelete)

	protected.HandleFunc("/push/subscriptions", pushHandler.Subscribe).Methods(http.MethodPost)
	protected.HandleFunc("/push/subscriptions/{device}", pushHandler.Unsubscribe).Methods(http.MethodDelete)
	protected.HandleFunc("/push/reminders", pushHandler.Remind).Methods(http.MethodPost)
	protected.HandleFunc("/push/ws", pushHandler.Connect).Methods(http.MethodGet)

	return r
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливается
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.close()
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve как Run, но на готовом listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", slog.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.close()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	// websocket соединения перехвачены и Shutdown их не ждет
	s.hub.Close()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.close()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) close() {
	s.scheduler.Stop()
	s.limiter.Stop()
	s.authLimiter.Stop()
	s.hub.Close()
	if err := s.storage.Close(); err != nil {
		s.logger.Error("failed to close storage", slog.Any("error", err))
	}
}
