package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL bounds how long a leaked token stays usable; there is no
// revocation list, expiry is the only invalidation mechanism.
const tokenTTL = time.Hour

var errMissingUserClaim = errors.New("token payload has no userId claim")

type tokenClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

func issueToken(userID, secret string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// verifyToken checks the signature and expiry and requires a non-empty
// userId claim. The returned error keeps the underlying cause (bad
// signature, expiry, missing claim) so callers can log it; it must not be
// forwarded to clients.
func verifyToken(tokenStr, secret string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	if claims.UserID == "" {
		return nil, errMissingUserClaim
	}
	return claims, nil
}
