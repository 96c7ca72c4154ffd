package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/bideshstudy/admission-api/internal/types"
)

const (
	otpMin = 1000
	otpMax = 9999

	// DefaultOTPWindow is how long a freshly issued code stays valid.
	DefaultOTPWindow = 10 * time.Minute
)

// GenerateOTP returns a 4-digit code in [1000, 9999] (first digit never
// zero) drawn from a cryptographically strong source.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return strconv.Itoa(otpMin + int(n.Int64())), nil
}

// NewChallenge issues a fresh OTP challenge expiring window from now.
func NewChallenge(now time.Time, window time.Duration) (*types.OTPChallenge, error) {
	code, err := GenerateOTP()
	if err != nil {
		return nil, err
	}
	return &types.OTPChallenge{Code: code, ExpiresAt: now.Add(window)}, nil
}

// ValidateChallenge checks a supplied code against a stored challenge.
// Pure over its inputs; the caller persists or clears the challenge.
//
// A missing challenge is a distinct failure from a wrong code, and expiry
// is strict: a code supplied exactly at its expiry instant still passes.
func ValidateChallenge(ch *types.OTPChallenge, code string, now time.Time) error {
	if ch == nil || ch.Code == "" {
		return types.ErrNoChallenge
	}
	if ch.Code != code {
		return types.ErrInvalidOTP
	}
	if now.After(ch.ExpiresAt) {
		return types.ErrOTPExpired
	}
	return nil
}
