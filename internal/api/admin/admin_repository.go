package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/bideshstudy/admission-api/internal/types"
)

var _ AdminRepo = (*PostgresAdminRepo)(nil)

// AdminRepo covers the read queries the admin panel needs beyond the
// per-user lookups the auth store already provides.
type AdminRepo interface {
	ListStudents(ctx context.Context, limit, offset int) ([]types.User, error)
	CountStudents(ctx context.Context) (int, error)
}

type PostgresAdminRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresAdminRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresAdminRepo {
	return &PostgresAdminRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// ListStudents returns a page of student accounts, newest first. Password
// hashes and OTP state are never selected.
func (r *PostgresAdminRepo) ListStudents(ctx context.Context, limit, offset int) ([]types.User, error) {
	ctx, span := otel.Tracer("AdminRepo").Start(ctx, "ListStudents", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
		SELECT id, email, role, is_verified, created_at, updated_at
		FROM users
		WHERE role = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		string(types.RoleStudent), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []types.User
	for rows.Next() {
		var u types.User
		var roleStr string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&u.ID, &u.Email, &roleStr, &u.IsVerified, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		role, ok := types.ParseRole(roleStr)
		if !ok {
			return nil, fmt.Errorf("user %s has unknown role %q", u.ID, roleStr)
		}
		u.Role = role
		u.CreatedAt = createdAt
		u.UpdatedAt = updatedAt
		students = append(students, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}
	return students, nil
}

func (r *PostgresAdminRepo) CountStudents(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("AdminRepo").Start(ctx, "CountStudents", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	var total int
	err := r.pgpool.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE role = $1`, string(types.RoleStudent)).
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return total, nil
}
