package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"inventory-sales-service/internal/api"
	"inventory-sales-service/internal/auth"
	"inventory-sales-service/internal/config"
	"inventory-sales-service/internal/database"
	"inventory-sales-service/internal/logger"
	"inventory-sales-service/internal/store"
	"inventory-sales-service/internal/uploads"
)

const (
	defaultAppName = "InventorySalesService" // App name for logger
	requestTimeout = 60 * time.Second
	formOverhead   = 1 << 20 // non-file fields of a product form
)

func main() {
	if err := godotenv.Load(); err != nil {
		// The application can still proceed if environment variables are set in other ways.
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Error loading configuration: %v", err)
	}

	zl := logger.New(logger.Config{
		Development: cfg.IsDevelopment(),
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		File:        cfg.Log.File,
	}).With(zap.String("app", defaultAppName))
	defer zl.Sync() //nolint:errcheck
	zl.Info("Configuration loaded",
		zap.String("app_env", cfg.AppEnv),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Location().String()))

	// --- Database Connection ---
	db, err := database.NewConnection(&cfg.Postgres)
	if err != nil {
		zl.Fatal("Failed to initialize database connection", zap.Error(err))
	}
	zl.Info("Database connection established")

	if cfg.Postgres.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		applied, err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			zl.Fatal("Failed to apply migrations", zap.Error(err))
		}
		zl.Info("Migrations applied", zap.Strings("versions", applied))
	}

	dbStore := store.NewPostgresStore(db, zl.Named("store"))

	// --- Authentication & Sessions ---
	verifier, err := auth.NewStaticVerifier(cfg.Auth.Email, cfg.Auth.Password, cfg.Auth.Name)
	if err != nil {
		zl.Fatal("Failed to configure credentials", zap.Error(err))
	}
	sessions := auth.NewSessionManager(auth.NewCookieStore(cfg.Session))

	images := uploads.NewStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes, zl.Named("uploads"))

	// --- Initialize API Handlers ---
	httpAPIHandler, err := api.NewHTTPHandler(api.Deps{
		Products:       dbStore, // dbStore implements both interfaces
		Sales:          dbStore,
		Verifier:       verifier,
		Sessions:       sessions,
		Images:         images,
		DB:             dbStore,
		UploadsDir:     images.Dir(),
		MaxUploadBytes: images.MaxBytes(),
		Location:       cfg.Location(),
		Logger:         zl.Named("http"),
	})
	if err != nil {
		zl.Fatal("Failed to initialize HTTP handler", zap.Error(err))
	}

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, zl, cfg)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		zl.Info("HTTP server listening", zap.String("port", cfg.HttpServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("HTTP server ListenAndServe error", zap.Error(err))
		}
		zl.Info("HTTP server has stopped")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(zl, httpServer, dbStore, shutdownComplete)

	<-shutdownComplete // Block until graceful shutdown is complete
	zl.Info("Service shutdown sequence finished")
}

func setupBaseMiddleware(router *chi.Mux, zl *zap.Logger, cfg *config.Config) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.RequestLogger(zl.Named("access")))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))
	// csrf.Protect parses form bodies, so the size cap has to come first.
	if cfg.Uploads.MaxBytes > 0 {
		limit := cfg.Uploads.MaxBytes + formOverhead
		router.Use(rejectDeclaredOversize(limit))
		router.Use(middleware.RequestSize(limit))
	}
	router.Use(csrf.Protect(
		[]byte(cfg.Session.CSRFKey),
		csrf.Secure(cfg.Session.CookieSecure),
		csrf.Path("/"),
		csrf.FieldName("__RequestVerificationToken"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			zl.Warn("Rejected request with invalid CSRF token",
				zap.String("path", r.URL.Path),
				zap.Error(csrf.FailureReason(r)))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})),
	))
	zl.Info("Base HTTP middleware registered")
}

// rejectDeclaredOversize answers 413 when Content-Length already exceeds limit.
// Streamed bodies are capped by middleware.RequestSize instead.
func rejectDeclaredOversize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func waitForShutdown(
	zl *zap.Logger,
	httpServer *http.Server,
	dbStore *store.PostgresStore,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete) // Ensure channel is closed when function exits

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	receivedSignal := <-sigChan
	zl.Info("Received signal, starting graceful shutdown", zap.String("signal", receivedSignal.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// httpServer.Shutdown() gracefully shuts down the server without interrupting active connections.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zl.Warn("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		zl.Info("HTTP server gracefully shut down")
	}

	if err := dbStore.Close(); err != nil {
		zl.Warn("Error closing database connection", zap.Error(err))
	}

	zl.Info("Graceful shutdown sequence completed")
}
