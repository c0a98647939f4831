package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abefas/EmberTracker/models"
)

// TokenSigner issues and verifies HS256 session tokens.
type TokenSigner struct {
	key []byte
}

func NewTokenSigner(key string) *TokenSigner {
	return &TokenSigner{key: []byte(key)}
}

// Sign returns a token bound to the given session.
func (s *TokenSigner) Sign(sess models.Session) (string, error) {
	if len(s.key) == 0 {
		return "", ErrMissingKey
	}
	claims := &models.Claims{
		Email: sess.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.UserID,
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates the token and returns its claims. Any signature, format or
// expiry problem is reported as ErrInvalidToken.
func (s *TokenSigner) Parse(tokenString string, now time.Time) (*models.Claims, error) {
	if len(s.key) == 0 {
		return nil, ErrMissingKey
	}
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, fmt.Errorf("%w: bad signature", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
