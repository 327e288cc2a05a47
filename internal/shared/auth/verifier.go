// Package auth validates the identity provider's access tokens against its
// published JWKS.
package auth

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// Claims are the token claims the API cares about. Subject carries the
// provider's stable user id.
type Claims struct {
	jwt.RegisteredClaims
	TokenUse string `json:"token_use"`
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
}

// Verifier validates bearer tokens offline using the provider's signing
// keys, refreshed in the background.
type Verifier struct {
	jwks     *keyfunc.JWKS
	issuer   string
	clientID string
}

// NewVerifier fetches the JWKS and starts background refresh. Close must
// be called on shutdown to stop the refresh goroutine.
func NewVerifier(jwksURL, issuer, clientID string, refreshInterval time.Duration) (*Verifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   refreshInterval,
		RefreshRateLimit:  time.Minute,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	return &Verifier{jwks: jwks, issuer: issuer, clientID: clientID}, nil
}

// Verify parses and validates an access token, returning its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.Issuer != v.issuer {
		return nil, fmt.Errorf("unexpected issuer")
	}
	if claims.TokenUse != "access" {
		return nil, fmt.Errorf("not an access token")
	}
	if !v.clientMatches(claims) {
		return nil, fmt.Errorf("token issued for a different client")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return claims, nil
}

// Access tokens carry the app client in client_id; id tokens use aud.
func (v *Verifier) clientMatches(claims *Claims) bool {
	if claims.ClientID == v.clientID {
		return true
	}
	for _, aud := range claims.Audience {
		if aud == v.clientID {
			return true
		}
	}
	return false
}

// Close stops the background JWKS refresh.
func (v *Verifier) Close() {
	v.jwks.EndBackground()
}
