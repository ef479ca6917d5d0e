// token.go - Stateless bearer tokens for the admin session.
//
// Tokens are HS256 JWTs carrying the admin id and display name, valid for
// one hour from issuance. There is no revocation list: a correctly signed,
// unexpired token stays valid until its expiry.
package server

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 1 * time.Hour

var (
	errTokenExpired = errors.New("token expired")
	errTokenInvalid = errors.New("token invalid")
)

// adminClaims is the JWT claims set for an authenticated admin.
type adminClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// TokenIssuer signs and verifies admin bearer tokens.
type TokenIssuer struct {
	Secret []byte
	Now    func() time.Time
}

func (t TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Issue returns a signed token for the given admin identity.
func (t TokenIssuer) Issue(id, name string) (string, error) {
	iat := t.now()
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(tokenTTL)),
		},
		Name: name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
}

// Verify parses and validates a token. It returns errTokenExpired for a
// correctly signed token past its expiry and errTokenInvalid for anything
// malformed, tampered with, or signed with the wrong method.
func (t TokenIssuer) Verify(token string) (adminClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return adminClaims{}, errTokenInvalid
	}

	var claims adminClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return adminClaims{}, errTokenExpired
		}
		return adminClaims{}, errTokenInvalid
	}
	return claims, nil
}
