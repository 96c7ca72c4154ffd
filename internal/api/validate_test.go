package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrors(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		var v ValidationErrors
		v = v.CheckEmail("student@example.com")
		v = v.CheckPassword("password", "longenough")
		v = v.CheckOTP("1234")
		assert.True(t, v.OK())
	})

	t.Run("bad email", func(t *testing.T) {
		var v ValidationErrors
		v = v.CheckEmail("not-an-email")
		assert.False(t, v.OK())
		assert.Contains(t, v.Error(), "valid email")
	})

	t.Run("short password names the field", func(t *testing.T) {
		var v ValidationErrors
		v = v.CheckPassword("new password", "abc")
		assert.False(t, v.OK())
		assert.Contains(t, v.Error(), "new password must be at least 6 characters")
	})

	t.Run("OTP shape", func(t *testing.T) {
		for _, bad := range []string{"", "123", "12345", "12a4", "abcd"} {
			var v ValidationErrors
			v = v.CheckOTP(bad)
			assert.False(t, v.OK(), "expected %q to be rejected", bad)
		}
	})

	t.Run("errors accumulate", func(t *testing.T) {
		var v ValidationErrors
		v = v.CheckEmail("nope")
		v = v.CheckPassword("password", "ab")
		assert.Len(t, v, 2)
	})
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "student@example.com", NormalizeEmail("  Student@Example.COM "))
}
