package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bideshstudy/admission-api/app/storage"
	"github.com/bideshstudy/admission-api/internal/api/completion"
	"github.com/bideshstudy/admission-api/internal/types"
)

var _ ProfileService = (*ProfileServiceImpl)(nil)

// ImageUpload is an incoming profile photo.
type ImageUpload struct {
	ContentType string
	Body        io.Reader
}

// ProfileService manages the student's contact profile and application
// completion state.
type ProfileService interface {
	// GetProfile returns the stored profile, or an empty one when the user
	// has not saved anything yet.
	GetProfile(ctx context.Context, userID string) (*types.Profile, error)

	// UpdateProfile applies the given fields and, when an image is supplied,
	// replaces the profile photo. The previous photo is removed from storage.
	UpdateProfile(ctx context.Context, userID string, params types.UpdateProfileParams, image *ImageUpload) (*types.Profile, error)

	// CompletionPercentage reports how much of the application is filled in.
	CompletionPercentage(ctx context.Context, userID string) (int, error)
}

type ProfileServiceImpl struct {
	logger     *slog.Logger
	repo       ProfileRepo
	store      storage.ObjectStore
	completion completion.Provider
}

func NewProfileService(repo ProfileRepo, store storage.ObjectStore, calc completion.Provider, logger *slog.Logger) *ProfileServiceImpl {
	return &ProfileServiceImpl{
		logger:     logger,
		repo:       repo,
		store:      store,
		completion: calc,
	}
}

func (s *ProfileServiceImpl) GetProfile(ctx context.Context, userID string) (*types.Profile, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return &types.Profile{UserID: userID}, nil
		}
		return nil, fmt.Errorf("error fetching profile: %w", err)
	}
	return p, nil
}

func (s *ProfileServiceImpl) UpdateProfile(ctx context.Context, userID string, params types.UpdateProfileParams, image *ImageUpload) (*types.Profile, error) {
	l := s.logger.With(slog.String("method", "UpdateProfile"), slog.String("user_id", userID))

	updated, err := s.repo.Upsert(ctx, userID, params)
	if err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	if image != nil {
		var oldKey string
		if updated.Image != nil {
			oldKey = updated.Image.Key
		}

		key := storage.ObjectKey("admission/profile")
		url, err := s.store.Upload(ctx, key, image.ContentType, image.Body)
		if err != nil {
			return nil, fmt.Errorf("error uploading profile image: %w", err)
		}

		updated, err = s.repo.SetImage(ctx, userID, &types.StoredImage{URL: url, Key: key})
		if err != nil {
			return nil, fmt.Errorf("error storing profile image: %w", err)
		}

		// Replaced photos are removed best-effort; a leaked object is
		// preferable to failing the update after the row already changed.
		if oldKey != "" {
			if err := s.store.Delete(ctx, oldKey); err != nil {
				l.WarnContext(ctx, "Failed to delete replaced profile image", slog.String("key", oldKey), slog.Any("error", err))
			}
		}
	}

	s.completion.Invalidate(userID)
	return updated, nil
}

func (s *ProfileServiceImpl) CompletionPercentage(ctx context.Context, userID string) (int, error) {
	return s.completion.Percentage(ctx, userID)
}
