// Command create-super-admin seeds the super-admin account. Safe to run
// repeatedly: an existing account with the configured email is left alone.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	database "github.com/bideshstudy/admission-api/app/db"
	"github.com/bideshstudy/admission-api/config"
	"github.com/bideshstudy/admission-api/internal/api/auth"
	"github.com/bideshstudy/admission-api/internal/types"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := context.Background()

	if cfg.SuperAdmin.Email == "" || cfg.SuperAdmin.Password == "" {
		logger.Error("Super admin credentials not configured (set superAdmin.email and ADMISSION_SUPERADMIN_PASSWORD)")
		os.Exit(1)
	}

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

	repo := auth.NewPostgresUserRepo(pool, logger)

	existing, err := repo.GetUserByEmail(ctx, cfg.SuperAdmin.Email)
	switch {
	case err == nil:
		logger.Info("Super admin already exists, nothing to do",
			slog.String("user_id", existing.ID),
			slog.String("email", existing.Email),
		)
		return
	case errors.Is(err, types.ErrNotFound):
		// Fall through and create it.
	default:
		logger.Error("Failed to check for existing super admin", slog.Any("error", err))
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SuperAdmin.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Failed to hash super admin password", slog.Any("error", err))
		os.Exit(1)
	}

	user, err := repo.CreateUser(ctx, cfg.SuperAdmin.Email, string(hash), types.RoleSuperAdmin, true, nil)
	if err != nil {
		logger.Error("Failed to create super admin", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Super admin created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
}
