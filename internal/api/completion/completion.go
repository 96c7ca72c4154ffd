// Package completion computes how much of the admission application a
// student has filled in.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/bideshstudy/admission-api/internal/types"
)

// The tracked fields: five profile fields plus the five certificate slots.
const totalFields = 10

const cacheTTL = 30 * time.Second

// Provider is what the feature services depend on.
type Provider interface {
	Percentage(ctx context.Context, userID string) (int, error)
	Invalidate(userID string)
}

// DB is the slice of pgxpool.Pool the calculator needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Provider = (*Calculator)(nil)

// Calculator derives the application completion percentage from the
// profile and certificate tables. Results are cached briefly since the
// percentage is polled by dashboards far more often than it changes.
type Calculator struct {
	logger *slog.Logger
	db     DB
	cache  *cache.Cache
}

func NewCalculator(db DB, logger *slog.Logger) *Calculator {
	return &Calculator{
		logger: logger,
		db:     db,
		cache:  cache.New(cacheTTL, 2*cacheTTL),
	}
}

// Percentage returns the rounded-down completion percentage for the user.
// A user with no profile row scores only their uploaded certificates.
func (c *Calculator) Percentage(ctx context.Context, userID string) (int, error) {
	if cached, found := c.cache.Get(userID); found {
		return cached.(int), nil
	}

	ctx, span := otel.Tracer("CompletionCalculator").Start(ctx, "Percentage", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
	))
	defer span.End()

	filled := 0

	var name, phone, address, email, imageURL *string
	err := c.db.QueryRow(ctx, `
		SELECT name, phone, address, email, image_url
		FROM profiles WHERE user_id = $1`, userID).
		Scan(&name, &phone, &address, &email, &imageURL)
	switch {
	case err == nil:
		for _, field := range []*string{name, phone, address, email, imageURL} {
			if field != nil && *field != "" {
				filled++
			}
		}
	case errors.Is(err, pgx.ErrNoRows):
		// No profile yet; nothing to count.
	default:
		return 0, fmt.Errorf("failed to load profile for completion: %w", err)
	}

	rows, err := c.db.Query(ctx,
		`SELECT certificate_type FROM academic_certificates WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load certificates for completion: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var certType string
		if err := rows.Scan(&certType); err != nil {
			return 0, fmt.Errorf("failed to scan certificate type: %w", err)
		}
		if types.CertificateType(certType).Valid() {
			filled++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate certificates: %w", err)
	}

	pct := filled * 100 / totalFields
	c.cache.Set(userID, pct, cache.DefaultExpiration)
	return pct, nil
}

// Invalidate drops the cached percentage after a profile or certificate
// mutation.
func (c *Calculator) Invalidate(userID string) {
	c.cache.Delete(userID)
}
