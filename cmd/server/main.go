// Dev Mud site server: static site, contact relay and chat widget.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devmud/devmud-site/internal/api"
	"github.com/devmud/devmud-site/internal/config"
	"github.com/devmud/devmud-site/internal/contact"
	"github.com/devmud/devmud-site/internal/identity"
	"github.com/devmud/devmud-site/internal/llm"
	"github.com/devmud/devmud-site/internal/middleware"
	"github.com/devmud/devmud-site/internal/retention"
	"github.com/devmud/devmud-site/internal/store"
	"github.com/devmud/devmud-site/internal/widget"
	"github.com/devmud/devmud-site/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.Log)
	defer func() {
		if closeErr := closeLog(); closeErr != nil {
			slog.Error("Failed to close log file", "error", closeErr)
		}
	}()
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	creds := config.EnvCredential{Var: cfg.Completion.CredentialVar}
	if _, ok := creds.Credential(); !ok {
		slog.Warn("Completion credential not set, chat replies will report a configuration error",
			"variable", creds.Name())
	}

	completer := llm.NewGroqClient(llm.Options{
		BaseURL:    cfg.Completion.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Completion.Timeout},
		Logger:     logger,
	})
	relay := contact.NewRelay(cfg.Contact.RelayURL, cfg.Contact.Timeout, logger)

	// Initialize handlers.
	wsHandler := widget.NewHandler(widget.Config{
		Credentials:    creds,
		Completer:      completer,
		Recorder:       repo,
		AllowedOrigins: cfg.WidgetOrigins(),
		IsDev:          cfg.IsDevelopment(),
		Logger:         logger,
	})
	baseHandler := api.NewHandler(repo, relay, creds, wsHandler.Registry())
	healthHandler := api.NewHealthHandler(baseHandler)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	baseHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// No WriteTimeout: widget websockets are long-lived.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retention.NewWorker(repo, cfg.Retention.MaxAge, cfg.Retention.Interval, logger).Start(ctx)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...", "active_widgets", wsHandler.Registry().Count())
	wsHandler.Registry().CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
