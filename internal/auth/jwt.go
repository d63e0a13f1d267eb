package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims carried by tokens from the identity provider.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens against a shared secret.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: 30 * time.Second}
}

// Verify parses a raw token and returns the principal it names.
func (v *Verifier) Verify(raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = sub
	}
	return Principal{UserID: sub, Name: name}, nil
}

// VerifyHeader extracts the token from an "Authorization: Bearer <token>" value.
func (v *Verifier) VerifyHeader(header string) (Principal, error) {
	if header == "" {
		return Principal{}, ErrMissingToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Principal{}, fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}
	return v.Verify(parts[1])
}

// Issuer mints tokens. Used by the seed tool and tests; production tokens
// come from the identity provider.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer for the given secret and token lifetime.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for p.
func (i *Issuer) Issue(p Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
