package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bideshstudy/admission-api/internal/types"
)

// Claims is the JWT payload: identity and role, nothing else. Everything the
// server trusts at request time is re-read from the store, not the token.
type Claims struct {
	UserID string     `json:"user_id"`
	Role   types.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HMAC-signed session tokens. The signing key
// is process-wide configuration; construction fails without one.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	validity time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secretKey, issuer string, validity time.Duration) (*TokenIssuer, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("token signing key must not be empty")
	}
	return &TokenIssuer{
		secret:   []byte(secretKey),
		issuer:   issuer,
		validity: validity,
		now:      time.Now,
	}, nil
}

// Issue returns a signed token embedding the user's ID and role.
func (t *TokenIssuer) Issue(userID string, role types.Role) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.validity)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims. Callers can
// distinguish failure modes via errors.Is against jwt.ErrTokenMalformed,
// jwt.ErrTokenExpired, and jwt.ErrTokenSignatureInvalid.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	if claims.Issuer != t.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", jwt.ErrTokenInvalidIssuer)
	}
	if _, ok := types.ParseRole(string(claims.Role)); !ok {
		return nil, fmt.Errorf("token carries unknown role %q", claims.Role)
	}
	return claims, nil
}
