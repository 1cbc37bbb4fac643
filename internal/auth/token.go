package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ActorClaims are the JWT claims for a docseal session token. Actor is the
// identity recorded on every audit event the caller triggers.
type ActorClaims struct {
	jwt.RegisteredClaims
	Actor string `json:"actor"`
	Role  string `json:"role,omitempty"` // "admin" when set
}

// TokenIssuer issues and verifies session JWTs signed with HS256.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer.
//
//	issuerURL — The "iss" claim value; matches the server's base URL.
//	ttl        — Token lifetime (default: 24 hours).
func NewTokenIssuer(secret []byte, issuerURL string, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret: secret,
		issuer: issuerURL,
		ttl:    ttl,
	}
}

// Issue creates a signed session token for actor.
func (t *TokenIssuer) Issue(actor, role string) (string, error) {
	now := time.Now().UTC()
	claims := ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   actor,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		Actor: actor,
		Role:  role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
func (t *TokenIssuer) Verify(tokenStr string) (*ActorClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&ActorClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Actor == "" {
		return nil, fmt.Errorf("token missing actor")
	}
	return claims, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }
