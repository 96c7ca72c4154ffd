package types

import "time"

// Role is the closed set of user roles. Authorization sites compare against
// these constants only; raw strings from the wire go through ParseRole.
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// ParseRole converts a stored or transmitted role string into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// OTPChallenge is a short-lived one-time code with an absolute expiry.
// The same value type backs both the email-verification and the
// password-reset challenge; the two are stored and cleared independently.
type OTPChallenge struct {
	Code      string
	ExpiresAt time.Time
}

// User is the identity record. Password hash and OTP material never leave
// the server.
type User struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	IsVerified   bool          `json:"is_verified"`
	OTP          *OTPChallenge `json:"-"`
	ResetOTP     *OTPChallenge `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// PublicUser is the caller-facing projection returned by auth endpoints.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Public strips everything the client has no business seeing.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Role: u.Role}
}
