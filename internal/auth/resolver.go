// Package auth issues and verifies resolver credentials.
//
// Resolution of a play session is privileged: the random value must come
// from the backend the game trusts. Instead of an ambient signer set, the
// resolver presents a signed capability token scoped to one game, and the
// game service verifies it before accepting the random value.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCredential = errors.New("invalid resolver credential")

const resolverRole = "resolver"

type resolverClaims struct {
	Role   string `json:"role"`
	GameID uint64 `json:"game_id"`
	jwt.RegisteredClaims
}

// ResolverAuthority signs and verifies resolver capability tokens with a
// shared secret.
type ResolverAuthority struct {
	secret []byte
	issuer string
}

// NewResolverAuthority creates an authority from the shared secret.
func NewResolverAuthority(secret, issuer string) *ResolverAuthority {
	return &ResolverAuthority{secret: []byte(secret), issuer: issuer}
}

// IssueResolver mints a credential permitting resolution of the given game's
// sessions until the TTL lapses.
func (a *ResolverAuthority) IssueResolver(gameID uint64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := resolverClaims{
		Role:   resolverRole,
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign resolver credential: %w", err)
	}
	return signed, nil
}

// VerifyResolver checks that the credential is validly signed, unexpired,
// and scoped to the given game.
func (a *ResolverAuthority) VerifyResolver(credential string, gameID uint64) error {
	var claims resolverClaims
	token, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return ErrInvalidCredential
	}
	if claims.Role != resolverRole {
		return fmt.Errorf("%w: wrong role", ErrInvalidCredential)
	}
	if claims.GameID != gameID {
		return fmt.Errorf("%w: credential scoped to game %d", ErrInvalidCredential, claims.GameID)
	}
	return nil
}
