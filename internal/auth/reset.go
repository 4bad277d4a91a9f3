package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = 30 * time.Minute

var (
	// ErrInvalidResetToken is the single error callers show to users.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	// ErrResetTokenExpired is wrapped alongside ErrInvalidResetToken when the
	// token was genuine but is past its expiry.
	ErrResetTokenExpired = errors.New("reset token expired")
)

// ResetClaims is the payload of a reset token.
type ResetClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// ResetTokens issues and verifies signed, time-limited reset tokens.
// Tokens are not stored and can be used any number of times until they expire.
type ResetTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewResetTokens creates a token service signing with secret. A nil clock
// means time.Now.
func NewResetTokens(secret string, now func() time.Time) *ResetTokens {
	if now == nil {
		now = time.Now
	}
	return &ResetTokens{secret: []byte(secret), ttl: ResetTokenTTL, now: now}
}

// Issue returns a token for userID valid for ResetTokenTTL.
func (r *ResetTokens) Issue(userID int64) (string, error) {
	now := r.now()
	claims := ResetClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return token, nil
}

// Verify returns the user ID a token was issued for. Every failure wraps
// ErrInvalidResetToken; the underlying reason is kept for logging.
func (r *ResetTokens) Verify(token string) (int64, error) {
	var claims ResetClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return r.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, fmt.Errorf("%w: %w", ErrInvalidResetToken, ErrResetTokenExpired)
	default:
		return 0, fmt.Errorf("%w: %w", ErrInvalidResetToken, err)
	}

	if claims.UserID <= 0 {
		return 0, fmt.Errorf("%w: missing user id", ErrInvalidResetToken)
	}
	return claims.UserID, nil
}

// Reason gives a short log-friendly cause for a Verify error.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrResetTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
