package jwt

import (
	"crypto/rsa"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpiredToken     = errors.New("token has expired")
	ErrMissingClaims    = errors.New("token is missing required claims")
	ErrInvalidAlgorithm = errors.New("invalid signing algorithm")
	ErrNoPublicKey      = errors.New("public key is required")
)

// Claims represents the verified identity attributes carried by a token.
// Role, level and state are opaque to the gateway and only forwarded.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Level int    `json:"level,omitempty"`
	State string `json:"state,omitempty"`
	jwt.RegisteredClaims
}

// Verifier verifies RS256 signed tokens against a known public key.
// It is stateless and safe for concurrent use.
type Verifier struct {
	publicKey *rsa.PublicKey
}

// NewVerifier creates a new token verifier
func NewVerifier(publicKey *rsa.PublicKey) (*Verifier, error) {
	if publicKey == nil {
		return nil, ErrNoPublicKey
	}
	return &Verifier{publicKey: publicKey}, nil
}

// NewVerifierFromPEM creates a verifier from a PEM encoded RSA public key
func NewVerifierFromPEM(data []byte) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, err
	}
	return NewVerifier(key)
}

// NewVerifierFromFile creates a verifier from a PEM key file on disk
func NewVerifierFromFile(path string) (*Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewVerifierFromPEM(data)
}

// Verify validates a token and returns its claims
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidAlgorithm
		}
		return v.publicKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, ErrInvalidAlgorithm):
			return nil, ErrInvalidAlgorithm
		default:
			return nil, ErrMalformedToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}
	if claims.UID == "" {
		return nil, ErrMissingClaims
	}
	return claims, nil
}

// StripBearer extracts the token portion of an "Authorization: Bearer" style
// value. Returns ErrMalformedToken if the prefix is absent.
func StripBearer(value string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) {
		return "", ErrMalformedToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(value, prefix))
	if token == "" {
		return "", ErrMalformedToken
	}
	return token, nil
}
