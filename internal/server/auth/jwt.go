// Package auth issues and verifies the signed tokens that carry every
// verification step and the session itself.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload. UserID is set for login, reset and session
// tokens; Username for registration tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Purpose  string `json:"purpose"`
}

// Issuer signs and verifies HS256 tokens with one process-wide secret.
// It holds no state besides the key and is safe for concurrent use.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithClock replaces the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret string, opts ...IssuerOption) *Issuer {
	i := &Issuer{secret: []byte(secret), now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Issue signs payload. A positive ttl embeds an absolute expiry; ttl == 0
// yields a token without one.
func (i *Issuer) Issue(payload Claims, ttl time.Duration) (string, error) {
	now := i.now()
	payload.IssuedAt = jwt.NewNumericDate(now)
	payload.ExpiresAt = nil
	if ttl > 0 {
		payload.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	s, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Verify checks signature, algorithm and expiry. Every failure matches
// common.ErrInvalidToken; an expired token also matches common.ErrTokenExpired.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Join(common.ErrInvalidToken, common.ErrTokenExpired)
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
