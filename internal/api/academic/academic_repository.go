package academic

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

var _ AcademicRepo = (*PostgresAcademicRepo)(nil)

// AcademicRepo stores at most one certificate per (user, slot).
type AcademicRepo interface {
	GetByUserID(ctx context.Context, userID string) (*types.AcademicInfo, error)
	GetCertificate(ctx context.Context, userID string, certType types.CertificateType) (*types.Certificate, error)
	UpsertCertificate(ctx context.Context, userID string, cert *types.Certificate) error
	DeleteCertificate(ctx context.Context, userID string, certType types.CertificateType) error
}

type PostgresAcademicRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresAcademicRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresAcademicRepo {
	return &PostgresAcademicRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresAcademicRepo) GetByUserID(ctx context.Context, userID string) (*types.AcademicInfo, error) {
	ctx, span := otel.Tracer("AcademicRepo").Start(ctx, "GetByUserID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "academic_certificates"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
		SELECT certificate_type, url, object_key, uploaded_at
		FROM academic_certificates WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query certificates: %w", err)
	}
	defer rows.Close()

	info := &types.AcademicInfo{
		UserID:       userID,
		Certificates: make(map[types.CertificateType]*types.Certificate),
	}
	for rows.Next() {
		var cert types.Certificate
		var certType string
		if err := rows.Scan(&certType, &cert.URL, &cert.ObjectKey, &cert.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		cert.Type = types.CertificateType(certType)
		info.Certificates[cert.Type] = &cert
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate certificates: %w", err)
	}
	return info, nil
}

func (r *PostgresAcademicRepo) GetCertificate(ctx context.Context, userID string, certType types.CertificateType) (*types.Certificate, error) {
	ctx, span := otel.Tracer("AcademicRepo").Start(ctx, "GetCertificate", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "academic_certificates"),
	))
	defer span.End()

	var cert types.Certificate
	err := r.pgpool.QueryRow(ctx, `
		SELECT certificate_type, url, object_key, uploaded_at
		FROM academic_certificates WHERE user_id = $1 AND certificate_type = $2`,
		userID, string(certType)).
		Scan(&cert.Type, &cert.URL, &cert.ObjectKey, &cert.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch certificate: %w", err)
	}
	return &cert, nil
}

// UpsertCertificate replaces the slot's row if it already exists.
func (r *PostgresAcademicRepo) UpsertCertificate(ctx context.Context, userID string, cert *types.Certificate) error {
	ctx, span := otel.Tracer("AcademicRepo").Start(ctx, "UpsertCertificate", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "academic_certificates"),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx, `
		INSERT INTO academic_certificates (user_id, certificate_type, url, object_key, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, certificate_type) DO UPDATE SET
			url = EXCLUDED.url,
			object_key = EXCLUDED.object_key,
			uploaded_at = EXCLUDED.uploaded_at`,
		userID, string(cert.Type), cert.URL, cert.ObjectKey, cert.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert certificate: %w", err)
	}
	return nil
}

func (r *PostgresAcademicRepo) DeleteCertificate(ctx context.Context, userID string, certType types.CertificateType) error {
	ctx, span := otel.Tracer("AcademicRepo").Start(ctx, "DeleteCertificate", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "academic_certificates"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `
		DELETE FROM academic_certificates WHERE user_id = $1 AND certificate_type = $2`,
		userID, string(certType))
	if err != nil {
		return fmt.Errorf("failed to delete certificate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
