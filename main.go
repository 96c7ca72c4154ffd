package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/bideshstudy/admission-api/app/db"
	appLogger "github.com/bideshstudy/admission-api/app/logger"
	"github.com/bideshstudy/admission-api/app/mail"
	"github.com/bideshstudy/admission-api/app/observability/metrics"
	"github.com/bideshstudy/admission-api/app/storage"
	"github.com/bideshstudy/admission-api/app/tracer"
	"github.com/bideshstudy/admission-api/config"
	"github.com/bideshstudy/admission-api/internal/api/academic"
	"github.com/bideshstudy/admission-api/internal/api/admin"
	"github.com/bideshstudy/admission-api/internal/api/auth"
	"github.com/bideshstudy/admission-api/internal/api/completion"
	"github.com/bideshstudy/admission-api/internal/api/profile"
	"github.com/bideshstudy/admission-api/internal/router"
	"github.com/bideshstudy/admission-api/internal/types"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracer.InitTracingAndMetrics(cfg.Server.ObservabilityPort)
	metrics.InitAppMetrics()

	// --- Database ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- External services ---
	mailer := mail.NewSMTPSender(cfg, logger)

	store, err := storage.NewS3Store(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize object storage", slog.Any("error", err))
		os.Exit(1)
	}

	issuer, err := auth.NewTokenIssuer(cfg.JWT.SecretKey, cfg.JWT.Issuer,
		time.Duration(cfg.JWT.ExpirationDays)*24*time.Hour)
	if err != nil {
		logger.Error("Failed to initialize token issuer", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Dependency injection ---
	otpWindow := time.Duration(cfg.OTP.ExpiryMinutes) * time.Minute

	userRepo := auth.NewPostgresUserRepo(pool, logger)
	profileRepo := profile.NewPostgresProfileRepo(pool, logger)
	academicRepo := academic.NewPostgresAcademicRepo(pool, logger)
	adminRepo := admin.NewPostgresAdminRepo(pool, logger)
	calculator := completion.NewCalculator(pool, logger)

	authService := auth.NewAuthService(userRepo, mailer, issuer, otpWindow, logger)
	profileService := profile.NewProfileService(profileRepo, store, calculator, logger)
	academicService := academic.NewAcademicService(academicRepo, store, calculator, logger)
	adminService := admin.NewAdminService(userRepo, adminRepo, profileRepo, academicRepo, calculator, issuer, logger)

	routerConfig := &router.Config{
		AuthHandler:     auth.NewHandlerImpl(authService, logger),
		ProfileHandler:  profile.NewHandlerImpl(profileService, logger),
		AcademicHandler: academic.NewHandlerImpl(academicService, logger),
		AdminHandler:    admin.NewHandlerImpl(adminService, logger),
		Authenticate:    auth.Authenticate(logger, issuer, userRepo),
		RequireRole: func(allowed ...types.Role) func(http.Handler) http.Handler {
			return auth.RequireRole(logger, allowed...)
		},
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
	}
	apiRouter := router.SetupRouter(routerConfig)

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(cfg.Server.Timeout))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Use(httprate.LimitByIP(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	mux.Mount("/", apiRouter)

	// --- HTTP server ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger(mode string) *slog.Logger {
	var logger *slog.Logger

	if mode == "development" || mode == "" {
		// Colored logs for development.
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production or other environments.
		jsonOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
