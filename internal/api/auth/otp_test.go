package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bideshstudy/admission-api/internal/types"
)

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 4)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
	}
}

func TestNewChallenge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ch, err := NewChallenge(now, 10*time.Minute)
	require.NoError(t, err)
	assert.Len(t, ch.Code, 4)
	assert.Equal(t, now.Add(10*time.Minute), ch.ExpiresAt)
}

func TestValidateChallenge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	challenge := &types.OTPChallenge{Code: "4321", ExpiresAt: now.Add(10 * time.Minute)}

	t.Run("matching code within window", func(t *testing.T) {
		assert.NoError(t, ValidateChallenge(challenge, "4321", now))
	})

	t.Run("missing challenge", func(t *testing.T) {
		err := ValidateChallenge(nil, "4321", now)
		assert.ErrorIs(t, err, types.ErrNoChallenge)
	})

	t.Run("empty stored code", func(t *testing.T) {
		err := ValidateChallenge(&types.OTPChallenge{}, "4321", now)
		assert.ErrorIs(t, err, types.ErrNoChallenge)
	})

	t.Run("wrong code", func(t *testing.T) {
		err := ValidateChallenge(challenge, "9999", now)
		assert.ErrorIs(t, err, types.ErrInvalidOTP)
	})

	t.Run("valid exactly at expiry instant", func(t *testing.T) {
		assert.NoError(t, ValidateChallenge(challenge, "4321", challenge.ExpiresAt))
	})

	t.Run("expired one second past the window", func(t *testing.T) {
		err := ValidateChallenge(challenge, "4321", challenge.ExpiresAt.Add(time.Second))
		assert.ErrorIs(t, err, types.ErrOTPExpired)
	})

	t.Run("wrong code reported before expiry", func(t *testing.T) {
		// A stale AND wrong code is a mismatch, not an expiry.
		err := ValidateChallenge(challenge, "0000", challenge.ExpiresAt.Add(time.Hour))
		assert.ErrorIs(t, err, types.ErrInvalidOTP)
	})
}
