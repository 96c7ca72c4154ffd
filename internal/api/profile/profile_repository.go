package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/bideshstudy/admission-api/internal/types"
)

var _ ProfileRepo = (*PostgresProfileRepo)(nil)

// ProfileRepo stores one profile row per user.
type ProfileRepo interface {
	GetByUserID(ctx context.Context, userID string) (*types.Profile, error)
	Upsert(ctx context.Context, userID string, params types.UpdateProfileParams) (*types.Profile, error)
	SetImage(ctx context.Context, userID string, image *types.StoredImage) (*types.Profile, error)
}

type PostgresProfileRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresProfileRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresProfileRepo {
	return &PostgresProfileRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const profileColumns = `id, user_id, name, phone, address, email, image_url, image_key, updated_at`

func scanProfile(row pgx.Row) (*types.Profile, error) {
	var p types.Profile
	var name, phone, address, email, imageURL, imageKey *string

	err := row.Scan(&p.ID, &p.UserID, &name, &phone, &address, &email, &imageURL, &imageKey, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	if name != nil {
		p.Name = *name
	}
	if phone != nil {
		p.Phone = *phone
	}
	if address != nil {
		p.Address = *address
	}
	if email != nil {
		p.Email = *email
	}
	if imageURL != nil {
		p.Image = &types.StoredImage{URL: *imageURL}
		if imageKey != nil {
			p.Image.Key = *imageKey
		}
	}
	return &p, nil
}

func (r *PostgresProfileRepo) GetByUserID(ctx context.Context, userID string) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "GetByUserID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "profiles"),
	))
	defer span.End()

	row := r.pgpool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	return scanProfile(row)
}

// Upsert creates the profile row on first write. Nil params leave the stored
// value untouched.
func (r *PostgresProfileRepo) Upsert(ctx context.Context, userID string, params types.UpdateProfileParams) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "Upsert", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "profiles"),
	))
	defer span.End()

	row := r.pgpool.QueryRow(ctx, `
		INSERT INTO profiles (user_id, name, phone, address, email)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, profiles.name),
			phone = COALESCE(EXCLUDED.phone, profiles.phone),
			address = COALESCE(EXCLUDED.address, profiles.address),
			email = COALESCE(EXCLUDED.email, profiles.email),
			updated_at = now()
		RETURNING `+profileColumns,
		userID, params.Name, params.Phone, params.Address, params.Email)
	return scanProfile(row)
}

// SetImage stores the uploaded photo's URL and key, creating the profile row
// if the user never saved one.
func (r *PostgresProfileRepo) SetImage(ctx context.Context, userID string, image *types.StoredImage) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "SetImage", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "profiles"),
	))
	defer span.End()

	var url, key *string
	if image != nil {
		url = &image.URL
		key = &image.Key
	}

	row := r.pgpool.QueryRow(ctx, `
		INSERT INTO profiles (user_id, image_url, image_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			image_url = EXCLUDED.image_url,
			image_key = EXCLUDED.image_key,
			updated_at = now()
		RETURNING `+profileColumns,
		userID, url, key)
	return scanProfile(row)
}
