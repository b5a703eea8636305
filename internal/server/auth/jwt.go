// Package auth issues and parses the signed access and refresh credentials
// handed out after login and email verification.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims holds the registered claims plus the account id and token kind.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
}

// TokenPair is what a successful login or verification returns.
type TokenPair struct {
	Access  string
	Refresh string
}

// Issuer signs HS256 tokens with independent access and refresh lifetimes.
type Issuer struct {
	secretKey       []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
	now             func() time.Time
}

func NewIssuer(secretKey []byte, accessValidity, refreshValidity time.Duration) *Issuer {
	return &Issuer{
		secretKey:       secretKey,
		accessValidity:  accessValidity,
		refreshValidity: refreshValidity,
		now:             time.Now,
	}
}

// Issue returns a fresh access/refresh pair for the account.
func (i *Issuer) Issue(userID string) (TokenPair, error) {
	access, err := i.generate(userID, TokenTypeAccess, i.accessValidity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("access token: %w", err)
	}
	refresh, err := i.generate(userID, TokenTypeRefresh, i.refreshValidity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) generate(userID, tokenType string, validity time.Duration) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID:    userID,
		TokenType: tokenType,
	})

	tokenString, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Parse validates the signature and expiry of tokenString and checks that it
// is of the expected kind. It returns the account id.
func (i *Issuer) Parse(tokenString, tokenType string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return "", ErrWrongTokenType
	}

	return claims.UserID, nil
}
