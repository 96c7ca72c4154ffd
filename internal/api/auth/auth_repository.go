package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/bideshstudy/admission-api/internal/types"
)

const uniqueViolation = "23505"

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo is the credential store contract. Email lookups are
// case-insensitive; creation fails with types.ErrConflict on a duplicate.
type UserRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByID(ctx context.Context, userID string) (*types.User, error)
	CreateUser(ctx context.Context, email, passwordHash string, role types.Role, isVerified bool, otp *types.OTPChallenge) (*types.User, error)
	SetVerificationOTP(ctx context.Context, userID string, otp *types.OTPChallenge) error
	MarkVerified(ctx context.Context, userID string) error
	SetPasswordResetOTP(ctx context.Context, userID string, otp *types.OTPChallenge) error
	UpdatePasswordAndClearResetOTP(ctx context.Context, userID, passwordHash string) error
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresUserRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, email, password_hash, role, is_verified,
	otp_code, otp_expires_at, reset_otp_code, reset_otp_expires_at,
	created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	var roleStr string
	var otpCode, resetCode *string
	var otpExpires, resetExpires *time.Time

	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &roleStr, &u.IsVerified,
		&otpCode, &otpExpires, &resetCode, &resetExpires,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	role, ok := types.ParseRole(roleStr)
	if !ok {
		return nil, fmt.Errorf("user %s has unknown role %q", u.ID, roleStr)
	}
	u.Role = role

	if otpCode != nil && otpExpires != nil {
		u.OTP = &types.OTPChallenge{Code: *otpCode, ExpiresAt: *otpExpires}
	}
	if resetCode != nil && resetExpires != nil {
		u.ResetOTP = &types.OTPChallenge{Code: *resetCode, ExpiresAt: *resetExpires}
	}
	return &u, nil
}

func (r *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	row := r.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	row := r.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (r *PostgresUserRepo) CreateUser(ctx context.Context, email, passwordHash string, role types.Role, isVerified bool, otp *types.OTPChallenge) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	var otpCode *string
	var otpExpires *time.Time
	if otp != nil {
		otpCode = &otp.Code
		otpExpires = &otp.ExpiresAt
	}

	row := r.pgpool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role, is_verified, otp_code, otp_expires_at)
		VALUES (lower($1), $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		email, passwordHash, string(role), isVerified, otpCode, otpExpires)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, types.ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// SetVerificationOTP overwrites the email-verification challenge; nil clears
// it. The password-reset challenge is untouched.
func (r *PostgresUserRepo) SetVerificationOTP(ctx context.Context, userID string, otp *types.OTPChallenge) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "SetVerificationOTP", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	var code *string
	var expires *time.Time
	if otp != nil {
		code = &otp.Code
		expires = &otp.ExpiresAt
	}

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET otp_code = $1, otp_expires_at = $2, updated_at = now() WHERE id = $3`,
		code, expires, userID)
	if err != nil {
		return fmt.Errorf("failed to set verification OTP: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// MarkVerified flips is_verified and clears the verification challenge in
// one statement.
func (r *PostgresUserRepo) MarkVerified(ctx context.Context, userID string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "MarkVerified", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET is_verified = TRUE, otp_code = NULL, otp_expires_at = NULL, updated_at = now() WHERE id = $1`,
		userID)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// SetPasswordResetOTP overwrites the reset challenge; nil clears it. The
// verification challenge is untouched.
func (r *PostgresUserRepo) SetPasswordResetOTP(ctx context.Context, userID string, otp *types.OTPChallenge) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "SetPasswordResetOTP", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	var code *string
	var expires *time.Time
	if otp != nil {
		code = &otp.Code
		expires = &otp.ExpiresAt
	}

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET reset_otp_code = $1, reset_otp_expires_at = $2, updated_at = now() WHERE id = $3`,
		code, expires, userID)
	if err != nil {
		return fmt.Errorf("failed to set password reset OTP: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// UpdatePasswordAndClearResetOTP installs a new password hash and consumes
// the reset challenge atomically.
func (r *PostgresUserRepo) UpdatePasswordAndClearResetOTP(ctx context.Context, userID, passwordHash string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdatePasswordAndClearResetOTP", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET password_hash = $1, reset_otp_code = NULL, reset_otp_expires_at = NULL, updated_at = now() WHERE id = $2`,
		passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
