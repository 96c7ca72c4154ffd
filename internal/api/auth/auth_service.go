package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bideshstudy/admission-api/app/mail"
	"github.com/bideshstudy/admission-api/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService drives the registration, verification, login, and
// password-reset flows.
type AuthService interface {
	// Register creates a pending student account and mails a verification
	// OTP. The account persists even when mail delivery fails.
	Register(ctx context.Context, email, password string) error

	// VerifyOTP confirms the email-verification challenge. Success marks the
	// account verified and doubles as first login: it returns a token.
	VerifyOTP(ctx context.Context, email, code string) (*TokenResult, error)

	// ResendOTP replaces the pending verification challenge with a fresh
	// one. The previous code is invalid the moment the new one is stored.
	ResendOTP(ctx context.Context, email string) error

	// Login authenticates a verified user and returns a token.
	Login(ctx context.Context, email, password string) (*TokenResult, error)

	// ForgotPassword issues a password-reset OTP. An unknown email returns
	// nil without sending anything so callers can answer identically either
	// way.
	ForgotPassword(ctx context.Context, email string) error

	// VerifyPasswordResetOTP checks the reset challenge without consuming
	// it; ResetPassword re-validates authoritatively.
	VerifyPasswordResetOTP(ctx context.Context, email, code string) error

	// ResetPassword re-validates the reset challenge, installs the new
	// password, and clears the challenge. It does not log the user in.
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type AuthServiceImpl struct {
	logger    *slog.Logger
	repo      UserRepo
	mailer    mail.Sender
	issuer    *TokenIssuer
	otpWindow time.Duration
	now       func() time.Time
}

func NewAuthService(repo UserRepo, mailer mail.Sender, issuer *TokenIssuer, otpWindow time.Duration, logger *slog.Logger) *AuthServiceImpl {
	if otpWindow <= 0 {
		otpWindow = DefaultOTPWindow
	}
	return &AuthServiceImpl{
		logger:    logger,
		repo:      repo,
		mailer:    mailer,
		issuer:    issuer,
		otpWindow: otpWindow,
		now:       time.Now,
	}
}

func hashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthServiceImpl) Register(ctx context.Context, email, password string) error {
	l := s.logger.With(slog.String("method", "Register"))

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return types.ErrConflict
	} else if !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("error checking existing user: %w", err)
	}

	challenge, err := NewChallenge(s.now(), s.otpWindow)
	if err != nil {
		return err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return err
	}

	user, err := s.repo.CreateUser(ctx, email, passwordHash, types.RoleStudent, false, challenge)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			return types.ErrConflict
		}
		return fmt.Errorf("error creating user: %w", err)
	}

	// The record stays in pending state when delivery fails; the client can
	// request a resend.
	if err := s.mailer.SendVerificationOTP(ctx, user.Email, challenge.Code); err != nil {
		l.ErrorContext(ctx, "Verification OTP delivery failed", slog.String("email", user.Email), slog.Any("error", err))
		return err
	}

	l.InfoContext(ctx, "User registered, verification OTP sent", slog.String("user_id", user.ID))
	return nil
}

func (s *AuthServiceImpl) VerifyOTP(ctx context.Context, email, code string) (*TokenResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	if user.IsVerified {
		return nil, types.ErrAlreadyVerified
	}

	if err := ValidateChallenge(user.OTP, code, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("error marking user verified: %w", err)
	}

	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Email verified", slog.String("user_id", user.ID))
	return &TokenResult{Token: token, User: user.Public()}, nil
}

func (s *AuthServiceImpl) ResendOTP(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.ErrNotFound
		}
		return fmt.Errorf("error fetching user: %w", err)
	}

	if user.IsVerified {
		return types.ErrAlreadyVerified
	}

	challenge, err := NewChallenge(s.now(), s.otpWindow)
	if err != nil {
		return err
	}

	// Overwriting the stored challenge permanently invalidates the previous
	// code, expired or not.
	if err := s.repo.SetVerificationOTP(ctx, user.ID, challenge); err != nil {
		return fmt.Errorf("error storing new OTP: %w", err)
	}

	if err := s.mailer.SendVerificationOTP(ctx, user.Email, challenge.Code); err != nil {
		s.logger.ErrorContext(ctx, "OTP resend delivery failed", slog.String("email", user.Email), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*TokenResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// Same error as a wrong password so callers cannot probe for
			// registered addresses.
			return nil, types.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, types.ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, types.ErrEmailNotVerified
	}

	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Login successful", slog.String("user_id", user.ID))
	return &TokenResult{Token: token, User: user.Public()}, nil
}

func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// Unknown address: report success, send nothing.
			return nil
		}
		return fmt.Errorf("error fetching user: %w", err)
	}

	if !user.IsVerified {
		return types.ErrEmailNotVerified
	}

	challenge, err := NewChallenge(s.now(), s.otpWindow)
	if err != nil {
		return err
	}

	if err := s.repo.SetPasswordResetOTP(ctx, user.ID, challenge); err != nil {
		return fmt.Errorf("error storing reset OTP: %w", err)
	}

	if err := s.mailer.SendPasswordResetOTP(ctx, user.Email, challenge.Code); err != nil {
		s.logger.ErrorContext(ctx, "Reset OTP delivery failed", slog.String("email", user.Email), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *AuthServiceImpl) VerifyPasswordResetOTP(ctx context.Context, email, code string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.ErrNotFound
		}
		return fmt.Errorf("error fetching user: %w", err)
	}

	// Check only; the challenge stays in place until ResetPassword consumes
	// it.
	return ValidateChallenge(user.ResetOTP, code, s.now())
}

func (s *AuthServiceImpl) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.ErrNotFound
		}
		return fmt.Errorf("error fetching user: %w", err)
	}

	if err := ValidateChallenge(user.ResetOTP, code, s.now()); err != nil {
		return err
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePasswordAndClearResetOTP(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	s.logger.InfoContext(ctx, "Password reset completed", slog.String("user_id", user.ID))
	return nil
}
