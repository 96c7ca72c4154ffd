package academic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bideshstudy/admission-api/app/storage"
	"github.com/bideshstudy/admission-api/internal/api/completion"
	"github.com/bideshstudy/admission-api/internal/types"
)

var _ AcademicService = (*AcademicServiceImpl)(nil)

// CertificateUpload is an incoming certificate document.
type CertificateUpload struct {
	Type        types.CertificateType
	ContentType string
	Body        io.Reader
}

// AcademicService manages the per-slot certificate uploads.
type AcademicService interface {
	// GetAcademicInfo returns all uploaded certificates for the user.
	GetAcademicInfo(ctx context.Context, userID string) (*types.AcademicInfo, error)

	// UploadCertificate stores the document and records it under its slot.
	// An existing document in the slot is replaced and its object removed.
	UploadCertificate(ctx context.Context, userID string, upload CertificateUpload) (*types.Certificate, error)

	// DeleteCertificate removes the slot's document and its stored object.
	// Returns types.ErrNotFound when the slot is empty.
	DeleteCertificate(ctx context.Context, userID string, certType types.CertificateType) error
}

type AcademicServiceImpl struct {
	logger     *slog.Logger
	repo       AcademicRepo
	store      storage.ObjectStore
	completion completion.Provider
	now        func() time.Time
}

func NewAcademicService(repo AcademicRepo, store storage.ObjectStore, calc completion.Provider, logger *slog.Logger) *AcademicServiceImpl {
	return &AcademicServiceImpl{
		logger:     logger,
		repo:       repo,
		store:      store,
		completion: calc,
		now:        time.Now,
	}
}

func (s *AcademicServiceImpl) GetAcademicInfo(ctx context.Context, userID string) (*types.AcademicInfo, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *AcademicServiceImpl) UploadCertificate(ctx context.Context, userID string, upload CertificateUpload) (*types.Certificate, error) {
	l := s.logger.With(slog.String("method", "UploadCertificate"), slog.String("user_id", userID))

	var oldKey string
	existing, err := s.repo.GetCertificate(ctx, userID, upload.Type)
	switch {
	case err == nil:
		oldKey = existing.ObjectKey
	case errors.Is(err, types.ErrNotFound):
		// First upload into this slot.
	default:
		return nil, fmt.Errorf("error checking existing certificate: %w", err)
	}

	key := storage.ObjectKey("admission/academic/" + string(upload.Type))
	url, err := s.store.Upload(ctx, key, upload.ContentType, upload.Body)
	if err != nil {
		return nil, fmt.Errorf("error uploading certificate: %w", err)
	}

	cert := &types.Certificate{
		Type:       upload.Type,
		URL:        url,
		ObjectKey:  key,
		UploadedAt: s.now(),
	}
	if err := s.repo.UpsertCertificate(ctx, userID, cert); err != nil {
		return nil, fmt.Errorf("error recording certificate: %w", err)
	}

	if oldKey != "" {
		if err := s.store.Delete(ctx, oldKey); err != nil {
			l.WarnContext(ctx, "Failed to delete replaced certificate object", slog.String("key", oldKey), slog.Any("error", err))
		}
	}

	s.completion.Invalidate(userID)
	l.InfoContext(ctx, "Certificate uploaded", slog.String("certificate_type", string(upload.Type)))
	return cert, nil
}

func (s *AcademicServiceImpl) DeleteCertificate(ctx context.Context, userID string, certType types.CertificateType) error {
	l := s.logger.With(slog.String("method", "DeleteCertificate"), slog.String("user_id", userID))

	cert, err := s.repo.GetCertificate(ctx, userID, certType)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.ErrNotFound
		}
		return fmt.Errorf("error fetching certificate: %w", err)
	}

	if err := s.repo.DeleteCertificate(ctx, userID, certType); err != nil {
		return fmt.Errorf("error deleting certificate: %w", err)
	}

	if cert.ObjectKey != "" {
		if err := s.store.Delete(ctx, cert.ObjectKey); err != nil {
			l.WarnContext(ctx, "Failed to delete certificate object", slog.String("key", cert.ObjectKey), slog.Any("error", err))
		}
	}

	s.completion.Invalidate(userID)
	return nil
}
