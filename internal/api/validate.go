package api

import (
	"fmt"
	"net/mail"
	"strings"
)

const minPasswordLength = 6

// ValidationErrors collects field-level problems; empty means valid.
type ValidationErrors []string

func (v ValidationErrors) OK() bool { return len(v) == 0 }

func (v ValidationErrors) Error() string {
	return strings.Join(v, "; ")
}

// CheckEmail appends an error unless s parses as an address.
func (v ValidationErrors) CheckEmail(s string) ValidationErrors {
	if _, err := mail.ParseAddress(s); err != nil {
		return append(v, "please provide a valid email")
	}
	return v
}

// CheckPassword enforces the minimum password length.
func (v ValidationErrors) CheckPassword(field, s string) ValidationErrors {
	if len(s) < minPasswordLength {
		return append(v, fmt.Sprintf("%s must be at least %d characters long", field, minPasswordLength))
	}
	return v
}

// CheckOTP requires exactly four digits.
func (v ValidationErrors) CheckOTP(s string) ValidationErrors {
	if len(s) != 4 {
		return append(v, "OTP must be a 4-digit number")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return append(v, "OTP must be a 4-digit number")
		}
	}
	return v
}

// NormalizeEmail lowercases and trims a login email before any lookup.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
