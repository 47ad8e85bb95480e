// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, Sealing)
// from the domain logic. It acts as an Infrastructure service injected into the
// Application layer through small interfaces declared by the consumers.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/segmentio/ksuid"
)

// TokenType distinguishes access tokens from refresh tokens signed by the same key.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// ErrWrongTokenType is returned when a refresh token is presented where an
// access token is expected, or the other way around.
var ErrWrongTokenType = errors.New("sec: unexpected token type")

// AuthClaims represents the payload embedded inside a JWT.
//
// # Why custom claims?
//
// By embedding the UserID, Username, and Role directly inside the JWT,
// the [middleware.Authenticate] can reconstruct the active user context
// WITHOUT querying the database on every single API request.
//
// The registered ID (jti) is a KSUID and keys the refresh revocation list.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID    string    `json:"user_id"`
	Username  string    `json:"unm,omitempty"`
	Role      string    `json:"rol,omitempty"`
	TokenType TokenType `json:"typ"`
}

// IsAccess reports whether the claims belong to an access token.
func (claims *AuthClaims) IsAccess() bool { return claims.TokenType == TokenTypeAccess }

// IsRefresh reports whether the claims belong to a refresh token.
func (claims *AuthClaims) IsRefresh() bool { return claims.TokenType == TokenTypeRefresh }

// Subject is the identity a token pair is issued for.
type Subject struct {
	UserID   string
	Username string
	Role     UserRole
}

// TokenService handles generation and verification of JWT tokens using RS256.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	clock      clockwork.Clock
}

// NewTokenService creates a new TokenService.
// It reads RSA keys from the provided filesystem paths.
func NewTokenService(privateKeyPath, publicKeyPath, issuer string) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return NewTokenServiceFromKey(privateKey, publicKey, issuer, clockwork.NewRealClock()), nil
}

// NewTokenServiceFromKey builds a TokenService from already-parsed keys.
func NewTokenServiceFromKey(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string, clock clockwork.Clock) *TokenService {
	return &TokenService{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		clock:      clock,
	}
}

// GenerateAccessToken creates a new JWT access token for a user.
func (service *TokenService) GenerateAccessToken(subject Subject, timeToLive time.Duration) (string, *AuthClaims, error) {
	return service.generate(subject, TokenTypeAccess, timeToLive)
}

// GenerateRefreshToken creates a new JWT refresh token for a user.
//
// The refresh payload always carries the user_id claim so a rotated pair can
// be bound back to its account.
func (service *TokenService) GenerateRefreshToken(subject Subject, timeToLive time.Duration) (string, *AuthClaims, error) {
	return service.generate(subject, TokenTypeRefresh, timeToLive)
}

func (service *TokenService) generate(subject Subject, tokenType TokenType, timeToLive time.Duration) (string, *AuthClaims, error) {
	currentTime := service.clock.Now()
	claims := &AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ksuid.New().String(),
			Subject:   subject.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:    subject.UserID,
		Username:  subject.Username,
		Role:      string(subject.Role),
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", nil, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, claims, nil
}

// VerifyToken checks the signature and validity of an access token.
//
// Refresh tokens are rejected so they cannot be used as bearer credentials.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	claims, err := service.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.IsAccess() {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// VerifyRefreshToken checks the signature and validity of a refresh token.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*AuthClaims, error) {
	claims, err := service.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefresh() || claims.UserID == "" || claims.ID == "" {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (service *TokenService) parse(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.publicKey, nil
	},
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.clock.Now),
	)

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
