package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Token purposes. A token minted for one purpose is never accepted where
// another purpose is expected; the purpose claim is part of the signed
// payload and is checked on every verification.
const (
	PurposeAccess     = "access"     // short-lived bearer credential
	PurposeActivation = "activation" // single-window account activation link
	PurposeReset      = "reset"      // single-window password reset link
)

// Verification failure kinds. Handlers collapse these into generic
// user-facing responses; the distinction exists for logging and tests.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongPurpose   = errors.New("wrong token purpose")
)

// Claims is the signed payload of every token the service issues. Subject
// carries the user id for access tokens and the email address for
// activation/reset tokens. Role is set only on access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Purpose string `json:"pur"`
	Role    string `json:"role,omitempty"`
}

// IssueToken builds and signs an HS256 token for the given subject and
// purpose. Expiry is now + ttl; issued-at is now. Signing is CPU-bound and
// has no side effects.
func IssueToken(secret, subject, purpose, role string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Purpose: purpose,
		Role:    role,
	})
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyToken parses and validates a token string, then checks the purpose
// tag against expectedPurpose. Verification is stateless: signature and
// expiry are enough, no store lookup happens here. A token presented at or
// after its expiry instant fails with ErrTokenExpired even when the
// signature is valid; the purpose is only consulted after signature and
// expiry pass.
func VerifyToken(secret, raw, expectedPurpose string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrMalformedToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrMalformedToken
	}
	if !tok.Valid {
		return nil, ErrMalformedToken
	}
	if claims.Purpose != expectedPurpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
