package types

import "errors"

// Sentinel errors shared across feature packages. Services wrap these with
// context via fmt.Errorf("...: %w", err); handlers map them to HTTP statuses.
var (
	ErrNotFound           = errors.New("requested item not found")
	ErrConflict           = errors.New("item already exists or conflict")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidOTP         = errors.New("invalid OTP")
	ErrOTPExpired         = errors.New("OTP has expired")
	ErrNoChallenge        = errors.New("no OTP challenge pending")
	ErrMailDelivery       = errors.New("failed to send email")
	ErrUnauthenticated    = errors.New("authentication required or invalid credentials")
	ErrForbidden          = errors.New("action forbidden")
	ErrValidation         = errors.New("validation failed")
)
