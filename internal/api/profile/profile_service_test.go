package profile

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bideshstudy/admission-api/internal/types"
)

// MockProfileRepo is a mock implementation of ProfileRepo.
type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) GetByUserID(ctx context.Context, userID string) (*types.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Profile), args.Error(1)
}

func (m *MockProfileRepo) Upsert(ctx context.Context, userID string, params types.UpdateProfileParams) (*types.Profile, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Profile), args.Error(1)
}

func (m *MockProfileRepo) SetImage(ctx context.Context, userID string, image *types.StoredImage) (*types.Profile, error) {
	args := m.Called(ctx, userID, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Profile), args.Error(1)
}

// MockObjectStore is a mock implementation of storage.ObjectStore.
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockCompletion is a mock implementation of completion.Provider.
type MockCompletion struct {
	mock.Mock
}

func (m *MockCompletion) Percentage(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockCompletion) Invalidate(userID string) {
	m.Called(userID)
}

func setupProfileServiceTest(t *testing.T) (*ProfileServiceImpl, *MockProfileRepo, *MockObjectStore, *MockCompletion) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockProfileRepo)
	mockStore := new(MockObjectStore)
	mockCompletion := new(MockCompletion)
	service := NewProfileService(mockRepo, mockStore, mockCompletion, logger)
	return service, mockRepo, mockStore, mockCompletion
}

func strPtr(s string) *string { return &s }

func TestProfileService_GetProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("existing profile", func(t *testing.T) {
		service, mockRepo, _, _ := setupProfileServiceTest(t)
		stored := &types.Profile{ID: "p-1", UserID: "user-1", Name: "Rahim"}
		mockRepo.On("GetByUserID", ctx, "user-1").Return(stored, nil).Once()

		p, err := service.GetProfile(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, stored, p)
	})

	t.Run("no profile yet returns an empty one", func(t *testing.T) {
		service, mockRepo, _, _ := setupProfileServiceTest(t)
		mockRepo.On("GetByUserID", ctx, "user-1").Return(nil, types.ErrNotFound).Once()

		p, err := service.GetProfile(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", p.UserID)
		assert.Empty(t, p.Name)
	})
}

func TestProfileService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("text-only update", func(t *testing.T) {
		service, mockRepo, mockStore, mockCompletion := setupProfileServiceTest(t)
		params := types.UpdateProfileParams{Name: strPtr("Rahim"), Phone: strPtr("+8801700000000")}
		updated := &types.Profile{ID: "p-1", UserID: "user-1", Name: "Rahim", Phone: "+8801700000000"}

		mockRepo.On("Upsert", ctx, "user-1", params).Return(updated, nil).Once()
		mockCompletion.On("Invalidate", "user-1").Once()

		p, err := service.UpdateProfile(ctx, "user-1", params, nil)
		require.NoError(t, err)
		assert.Equal(t, "Rahim", p.Name)
		mockStore.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockCompletion.AssertExpectations(t)
	})

	t.Run("image upload replaces the previous photo", func(t *testing.T) {
		service, mockRepo, mockStore, mockCompletion := setupProfileServiceTest(t)
		body := strings.NewReader("fake-jpeg-bytes")
		withOldImage := &types.Profile{
			ID: "p-1", UserID: "user-1",
			Image: &types.StoredImage{URL: "https://cdn/old.jpg", Key: "admission/profile/old"},
		}
		withNewImage := &types.Profile{
			ID: "p-1", UserID: "user-1",
			Image: &types.StoredImage{URL: "https://cdn/new.jpg", Key: "admission/profile/new"},
		}

		mockRepo.On("Upsert", ctx, "user-1", types.UpdateProfileParams{}).Return(withOldImage, nil).Once()
		mockStore.On("Upload", ctx, mock.AnythingOfType("string"), "image/jpeg", body).
			Return("https://cdn/new.jpg", nil).Once()
		mockRepo.On("SetImage", ctx, "user-1", mock.AnythingOfType("*types.StoredImage")).Return(withNewImage, nil).Once()
		mockStore.On("Delete", ctx, "admission/profile/old").Return(nil).Once()
		mockCompletion.On("Invalidate", "user-1").Once()

		p, err := service.UpdateProfile(ctx, "user-1", types.UpdateProfileParams{}, &ImageUpload{
			ContentType: "image/jpeg",
			Body:        body,
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/new.jpg", p.Image.URL)
		mockStore.AssertExpectations(t)
	})

	t.Run("old-object delete failure does not fail the update", func(t *testing.T) {
		service, mockRepo, mockStore, mockCompletion := setupProfileServiceTest(t)
		body := strings.NewReader("fake-jpeg-bytes")
		withOldImage := &types.Profile{
			ID: "p-1", UserID: "user-1",
			Image: &types.StoredImage{URL: "https://cdn/old.jpg", Key: "admission/profile/old"},
		}

		mockRepo.On("Upsert", ctx, "user-1", types.UpdateProfileParams{}).Return(withOldImage, nil).Once()
		mockStore.On("Upload", ctx, mock.AnythingOfType("string"), "image/jpeg", body).
			Return("https://cdn/new.jpg", nil).Once()
		mockRepo.On("SetImage", ctx, "user-1", mock.AnythingOfType("*types.StoredImage")).Return(withOldImage, nil).Once()
		mockStore.On("Delete", ctx, "admission/profile/old").Return(assert.AnError).Once()
		mockCompletion.On("Invalidate", "user-1").Once()

		_, err := service.UpdateProfile(ctx, "user-1", types.UpdateProfileParams{}, &ImageUpload{
			ContentType: "image/jpeg",
			Body:        body,
		})
		assert.NoError(t, err)
	})
}

func TestProfileService_CompletionPercentage(t *testing.T) {
	ctx := context.Background()
	service, _, _, mockCompletion := setupProfileServiceTest(t)

	mockCompletion.On("Percentage", ctx, "user-1").Return(70, nil).Once()

	pct, err := service.CompletionPercentage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 70, pct)
}
