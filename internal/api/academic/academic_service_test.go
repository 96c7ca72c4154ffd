package academic

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bideshstudy/admission-api/internal/types"
)

// MockAcademicRepo is a mock implementation of AcademicRepo.
type MockAcademicRepo struct {
	mock.Mock
}

func (m *MockAcademicRepo) GetByUserID(ctx context.Context, userID string) (*types.AcademicInfo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AcademicInfo), args.Error(1)
}

func (m *MockAcademicRepo) GetCertificate(ctx context.Context, userID string, certType types.CertificateType) (*types.Certificate, error) {
	args := m.Called(ctx, userID, certType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Certificate), args.Error(1)
}

func (m *MockAcademicRepo) UpsertCertificate(ctx context.Context, userID string, cert *types.Certificate) error {
	args := m.Called(ctx, userID, cert)
	return args.Error(0)
}

func (m *MockAcademicRepo) DeleteCertificate(ctx context.Context, userID string, certType types.CertificateType) error {
	args := m.Called(ctx, userID, certType)
	return args.Error(0)
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

func setupAcademicServiceTest(t *testing.T) (*AcademicServiceImpl, *MockAcademicRepo, *MockObjectStore, *MockCompletion) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockAcademicRepo)
	mockStore := new(MockObjectStore)
	mockCompletion := new(MockCompletion)

	service := NewAcademicService(mockRepo, mockStore, mockCompletion, logger)
	service.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return service, mockRepo, mockStore, mockCompletion
}

func TestAcademicService_UploadCertificate(t *testing.T) {
	ctx := context.Background()

	t.Run("first upload into an empty slot", func(t *testing.T) {
		service, mockRepo, mockStore, mockCompletion := setupAcademicServiceTest(t)
		body := strings.NewReader("%PDF-1.4")

		mockRepo.On("GetCertificate", ctx, "user-1", types.CertificateBSC).Return(nil, types.ErrNotFound).Once()
		mockStore.On("Upload", ctx, mock.AnythingOfType("string"), "application/pdf", body).
			Return("https://cdn/bsc.pdf", nil).Once()
		mockRepo.On("UpsertCertificate", ctx, "user-1", mock.AnythingOfType("*types.Certificate")).Return(nil).Once()
		mockCompletion.On("Invalidate", "user-1").Once()

		cert, err := service.UploadCertificate(ctx, "user-1", CertificateUpload{
			Type:        types.CertificateBSC,
			ContentType: "application/pdf",
			Body:        body,
		})
		require.NoError(t, err)
		assert.Equal(t, types.CertificateBSC, cert.Type)
		assert.Equal(t, "https://cdn/bsc.pdf", cert.URL)
		assert.Contains(t, cert.ObjectKey, "admission/academic/bsc/")
		mockStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("re-upload replaces the old object", func(t *testing.T) {
		service, mockRepo, mockStore, mockCompletion := setupAcademicServiceTest(t)
		body := strings.NewReader("%PDF-1.4")
		existing := &types.Certificate{Type: types.CertificateHSC, URL: "https://cdn/old.pdf", ObjectKey: "admission/academic/hsc/old"}

		mockRepo.On("GetCertificate", ctx, "user-1", types.CertificateHSC).Return(existing, nil).Once()
		mockStore.On("Upload", ctx, mock.AnythingOfType("string"), "application/pdf", body).
			Return("https://cdn/new.pdf", nil).Once()
		mockRepo.On("UpsertCertificate", ctx, "user-1", mock.AnythingOfType("*types.Certificate")).Return(nil).Once()
		mockStore.On("Delete", ctx, "admission/academic/hsc/old").Return(nil).Once()
		mockCompletion.On("Invalidate", "user-1").Once()

		cert, err := service.UploadCertificate(ctx, "user-1", CertificateUpload{
			Type:        types.CertificateHSC,
			ContentType: "application/pdf",
			Body:        body,
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/new.pdf", cert.URL)
		mockStore.AssertExpectations(t)
	})

	t.Run("upload failure leaves the slot untouched", func(t *testing.T) {
		service, mockRepo, mockStore, mockCompletion := setupAcademicServiceTest(t)
		body := strings.NewReader("%PDF-1.4")

		mockRepo.On("GetCertificate", ctx, "user-1", types.CertificateSSC).Return(nil, types.ErrNotFound).Once()
		mockStore.On("Upload", ctx, mock.AnythingOfType("string"), "application/pdf", body).
			Return("", assert.AnError).Once()

		_, err := service.UploadCertificate(ctx, "user-1", CertificateUpload{
			Type:        types.CertificateSSC,
			ContentType: "application/pdf",
			Body:        body,
		})
		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "UpsertCertificate", mock.Anything, mock.Anything, mock.Anything)
		mockCompletion.AssertNotCalled(t, "Invalidate", mock.Anything)
	})
}

func TestAcademicService_DeleteCertificate(t *testing.T) {
	ctx := context.Background()

	t.Run("removes row and stored object", func(t *testing.T) {
		service, mockRepo, mockStore, mockCompletion := setupAcademicServiceTest(t)
		existing := &types.Certificate{Type: types.CertificateIELTS, ObjectKey: "admission/academic/ielts/key"}

		mockRepo.On("GetCertificate", ctx, "user-1", types.CertificateIELTS).Return(existing, nil).Once()
		mockRepo.On("DeleteCertificate", ctx, "user-1", types.CertificateIELTS).Return(nil).Once()
		mockStore.On("Delete", ctx, "admission/academic/ielts/key").Return(nil).Once()
		mockCompletion.On("Invalidate", "user-1").Once()

		require.NoError(t, service.DeleteCertificate(ctx, "user-1", types.CertificateIELTS))
		mockRepo.AssertExpectations(t)
		mockStore.AssertExpectations(t)
	})

	t.Run("empty slot reports not found", func(t *testing.T) {
		service, mockRepo, mockStore, _ := setupAcademicServiceTest(t)

		mockRepo.On("GetCertificate", ctx, "user-1", types.CertificateMSC).Return(nil, types.ErrNotFound).Once()

		err := service.DeleteCertificate(ctx, "user-1", types.CertificateMSC)
		assert.ErrorIs(t, err, types.ErrNotFound)
		mockStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
