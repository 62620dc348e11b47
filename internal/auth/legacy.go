// Package auth issues and validates the HMAC-signed API tokens used when no
// Traefik ForwardAuth gateway sits in front of the service.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped into every token this service signs and required of
// every token it accepts.
const Issuer = "stillmind-api"

// DefaultTokenTTL bounds the lifetime of self-issued tokens.
const DefaultTokenTTL = 24 * time.Hour

// LegacyClaims carries the user identity inside an HMAC-signed token.
type LegacyClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SignLegacyToken mints an HS256 token for a user.
func SignLegacyToken(userID, email, secret string) (string, error) {
	now := time.Now()
	claims := LegacyClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(DefaultTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateLegacyToken parses and verifies a token. Only HS256 signatures
// with the expected issuer are accepted; an RS256 or alg=none token fails
// before the claims are trusted.
func ValidateLegacyToken(tokenString, secret string) (*LegacyClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&LegacyClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*LegacyClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
