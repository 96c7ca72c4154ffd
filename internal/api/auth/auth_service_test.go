package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bideshstudy/admission-api/internal/types"
)

// MockUserRepo is a mock implementation of UserRepo.
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepo) GetUserByID(ctx context.Context, userID string) (*types.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepo) CreateUser(ctx context.Context, email, passwordHash string, role types.Role, isVerified bool, otp *types.OTPChallenge) (*types.User, error) {
	args := m.Called(ctx, email, passwordHash, role, isVerified, otp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepo) SetVerificationOTP(ctx context.Context, userID string, otp *types.OTPChallenge) error {
	args := m.Called(ctx, userID, otp)
	return args.Error(0)
}

func (m *MockUserRepo) MarkVerified(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepo) SetPasswordResetOTP(ctx context.Context, userID string, otp *types.OTPChallenge) error {
	args := m.Called(ctx, userID, otp)
	return args.Error(0)
}

func (m *MockUserRepo) UpdatePasswordAndClearResetOTP(ctx context.Context, userID, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

// MockMailSender is a mock implementation of mail.Sender.
type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) SendVerificationOTP(ctx context.Context, to, otp string) error {
	args := m.Called(ctx, to, otp)
	return args.Error(0)
}

func (m *MockMailSender) SendPasswordResetOTP(ctx context.Context, to, otp string) error {
	args := m.Called(ctx, to, otp)
	return args.Error(0)
}

var serviceNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupAuthServiceTest(t *testing.T) (*AuthServiceImpl, *MockUserRepo, *MockMailSender) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockUserRepo)
	mockMailer := new(MockMailSender)
	issuer, err := NewTokenIssuer(testSecret, "bideshstudy", 7*24*time.Hour)
	require.NoError(t, err)

	service := NewAuthService(mockRepo, mockMailer, issuer, 10*time.Minute, logger)
	service.now = func() time.Time { return serviceNow }
	return service, mockRepo, mockMailer
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func pendingStudent(t *testing.T, code string) *types.User {
	t.Helper()
	return &types.User{
		ID:           "user-1",
		Email:        "student@example.com",
		PasswordHash: hashFor(t, "correct-horse"),
		Role:         types.RoleStudent,
		IsVerified:   false,
		OTP:          &types.OTPChallenge{Code: code, ExpiresAt: serviceNow.Add(10 * time.Minute)},
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mockRepo, mockMailer := setupAuthServiceTest(t)
		created := pendingStudent(t, "1234")

		mockRepo.On("GetUserByEmail", ctx, "student@example.com").Return(nil, types.ErrNotFound).Once()
		mockRepo.On("CreateUser", ctx, "student@example.com", mock.AnythingOfType("string"),
			types.RoleStudent, false, mock.AnythingOfType("*types.OTPChallenge")).Return(created, nil).Once()
		mockMailer.On("SendVerificationOTP", ctx, "student@example.com", mock.AnythingOfType("string")).Return(nil).Once()

		err := service.Register(ctx, "student@example.com", "correct-horse")
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockMailer.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		mockRepo.On("GetUserByEmail", ctx, "student@example.com").Return(pendingStudent(t, "1234"), nil).Once()

		err := service.Register(ctx, "student@example.com", "correct-horse")
		assert.ErrorIs(t, err, types.ErrConflict)
		mockRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mail failure keeps pending account", func(t *testing.T) {
		service, mockRepo, mockMailer := setupAuthServiceTest(t)
		created := pendingStudent(t, "1234")

		mockRepo.On("GetUserByEmail", ctx, "student@example.com").Return(nil, types.ErrNotFound).Once()
		mockRepo.On("CreateUser", ctx, "student@example.com", mock.AnythingOfType("string"),
			types.RoleStudent, false, mock.AnythingOfType("*types.OTPChallenge")).Return(created, nil).Once()
		mockMailer.On("SendVerificationOTP", ctx, "student@example.com", mock.AnythingOfType("string")).
			Return(types.ErrMailDelivery).Once()

		err := service.Register(ctx, "student@example.com", "correct-horse")
		assert.ErrorIs(t, err, types.ErrMailDelivery)
		// The account was created before the send; a later resend can recover.
		mockRepo.AssertExpectations(t)
	})

	t.Run("hashes the password before storing", func(t *testing.T) {
		service, mockRepo, mockMailer := setupAuthServiceTest(t)
		created := pendingStudent(t, "1234")
		var storedHash string

		mockRepo.On("GetUserByEmail", ctx, "student@example.com").Return(nil, types.ErrNotFound).Once()
		mockRepo.On("CreateUser", ctx, "student@example.com", mock.AnythingOfType("string"),
			types.RoleStudent, false, mock.AnythingOfType("*types.OTPChallenge")).
			Run(func(args mock.Arguments) { storedHash = args.String(2) }).
			Return(created, nil).Once()
		mockMailer.On("SendVerificationOTP", ctx, "student@example.com", mock.AnythingOfType("string")).Return(nil).Once()

		require.NoError(t, service.Register(ctx, "student@example.com", "correct-horse"))
		assert.NotEqual(t, "correct-horse", storedHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("correct-horse")))
	})
}

func TestAuthService_VerifyOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues a token and marks verified", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()
		mockRepo.On("MarkVerified", ctx, user.ID).Return(nil).Once()

		result, err := service.VerifyOTP(ctx, user.Email, "1234")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, user.ID, result.User.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		mockRepo.On("GetUserByEmail", ctx, "nobody@example.com").Return(nil, types.ErrNotFound).Once()

		_, err := service.VerifyOTP(ctx, "nobody@example.com", "1234")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("already verified", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		user.IsVerified = true

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		_, err := service.VerifyOTP(ctx, user.Email, "1234")
		assert.ErrorIs(t, err, types.ErrAlreadyVerified)
	})

	t.Run("wrong code", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		_, err := service.VerifyOTP(ctx, user.Email, "5678")
		assert.ErrorIs(t, err, types.ErrInvalidOTP)
		mockRepo.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
	})

	t.Run("expired code", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		user.OTP.ExpiresAt = serviceNow.Add(-time.Second)

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		_, err := service.VerifyOTP(ctx, user.Email, "1234")
		assert.ErrorIs(t, err, types.ErrOTPExpired)
	})
}

func TestAuthService_ResendOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a fresh code", func(t *testing.T) {
		service, mockRepo, mockMailer := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		var stored *types.OTPChallenge
		var mailed string

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()
		mockRepo.On("SetVerificationOTP", ctx, user.ID, mock.AnythingOfType("*types.OTPChallenge")).
			Run(func(args mock.Arguments) { stored = args.Get(2).(*types.OTPChallenge) }).
			Return(nil).Once()
		mockMailer.On("SendVerificationOTP", ctx, user.Email, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { mailed = args.String(2) }).
			Return(nil).Once()

		require.NoError(t, service.ResendOTP(ctx, user.Email))
		require.NotNil(t, stored)
		assert.Equal(t, stored.Code, mailed)
		assert.Equal(t, serviceNow.Add(10*time.Minute), stored.ExpiresAt)
		mockRepo.AssertExpectations(t)
	})

	t.Run("already verified", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		user.IsVerified = true

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		err := service.ResendOTP(ctx, user.Email)
		assert.ErrorIs(t, err, types.ErrAlreadyVerified)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		user.IsVerified = true
		user.OTP = nil

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		result, err := service.Login(ctx, user.Email, "correct-horse")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, user.Email, result.User.Email)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		user.IsVerified = true

		mockRepo.On("GetUserByEmail", ctx, "nobody@example.com").Return(nil, types.ErrNotFound).Once()
		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		_, errUnknown := service.Login(ctx, "nobody@example.com", "whatever")
		_, errWrongPw := service.Login(ctx, user.Email, "wrong-password")

		assert.ErrorIs(t, errUnknown, types.ErrInvalidCredentials)
		assert.ErrorIs(t, errWrongPw, types.ErrInvalidCredentials)
		assert.Equal(t, errUnknown, errWrongPw)
	})

	t.Run("unverified account with correct password", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		_, err := service.Login(ctx, user.Email, "correct-horse")
		assert.ErrorIs(t, err, types.ErrEmailNotVerified)
	})
}

func TestAuthService_ForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and mails a reset code", func(t *testing.T) {
		service, mockRepo, mockMailer := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		user.IsVerified = true

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()
		mockRepo.On("SetPasswordResetOTP", ctx, user.ID, mock.AnythingOfType("*types.OTPChallenge")).Return(nil).Once()
		mockMailer.On("SendPasswordResetOTP", ctx, user.Email, mock.AnythingOfType("string")).Return(nil).Once()

		require.NoError(t, service.ForgotPassword(ctx, user.Email))
		mockRepo.AssertExpectations(t)
		mockMailer.AssertExpectations(t)
	})

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		service, mockRepo, mockMailer := setupAuthServiceTest(t)
		mockRepo.On("GetUserByEmail", ctx, "nobody@example.com").Return(nil, types.ErrNotFound).Once()

		require.NoError(t, service.ForgotPassword(ctx, "nobody@example.com"))
		mockMailer.AssertNotCalled(t, "SendPasswordResetOTP", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unverified account", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		err := service.ForgotPassword(ctx, user.Email)
		assert.ErrorIs(t, err, types.ErrEmailNotVerified)
	})
}

func TestAuthService_VerifyPasswordResetOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("valid code leaves the challenge in place", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		user.IsVerified = true
		user.ResetOTP = &types.OTPChallenge{Code: "5678", ExpiresAt: serviceNow.Add(10 * time.Minute)}

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		require.NoError(t, service.VerifyPasswordResetOTP(ctx, user.Email, "5678"))
		// No mutation: the same code must still work for ResetPassword.
		mockRepo.AssertNotCalled(t, "SetPasswordResetOTP", mock.Anything, mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "UpdatePasswordAndClearResetOTP", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no reset pending", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		user.IsVerified = true

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		err := service.VerifyPasswordResetOTP(ctx, user.Email, "5678")
		assert.ErrorIs(t, err, types.ErrNoChallenge)
	})
}

func TestAuthService_ResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("installs the new password and consumes the code", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		user.IsVerified = true
		user.ResetOTP = &types.OTPChallenge{Code: "5678", ExpiresAt: serviceNow.Add(10 * time.Minute)}
		var newHash string

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()
		mockRepo.On("UpdatePasswordAndClearResetOTP", ctx, user.ID, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { newHash = args.String(2) }).
			Return(nil).Once()

		require.NoError(t, service.ResetPassword(ctx, user.Email, "5678", "new-password"))
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("new-password")))
		assert.Error(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("correct-horse")))
	})

	t.Run("expired code", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest(t)
		user := pendingStudent(t, "1234")
		user.IsVerified = true
		user.ResetOTP = &types.OTPChallenge{Code: "5678", ExpiresAt: serviceNow.Add(-time.Minute)}

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		err := service.ResetPassword(ctx, user.Email, "5678", "new-password")
		assert.ErrorIs(t, err, types.ErrOTPExpired)
		mockRepo.AssertNotCalled(t, "UpdatePasswordAndClearResetOTP", mock.Anything, mock.Anything, mock.Anything)
	})
}
