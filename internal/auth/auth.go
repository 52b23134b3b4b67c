// Package auth checks the shared admin key and issues admin session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ai360store-ux/Digimarket/pkg/middleware"
)

// RoleAdmin is the only role this service issues.
const RoleAdmin = "admin"

const (
	issuer       = "catalog-service"
	adminSubject = "admin"
	bcryptCost   = 12
)

// Keyring verifies the shared admin key against a bcrypt hash. The plain key
// is never kept.
type Keyring struct {
	hash []byte
}

// NewKeyring builds a Keyring from either a bcrypt hash or a plain key.
// The hash wins when both are set.
func NewKeyring(plainKey, hash string) (*Keyring, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("parse admin key hash: %w", err)
		}
		return &Keyring{hash: []byte(hash)}, nil
	}
	if plainKey == "" {
		return nil, errors.New("admin key or admin key hash is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plainKey), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin key: %w", err)
	}
	return &Keyring{hash: h}, nil
}

// Verify reports whether key matches.
func (k *Keyring) Verify(key string) bool {
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(k.hash, []byte(key)) == nil
}

// Claims are the admin session token claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates HS256 admin session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed admin token and its expiry.
func (m *TokenManager) Issue() (string, time.Time, error) {
	now := m.now().UTC()
	expires := now.Add(m.ttl)
	claims := &Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, expires, nil
}

// Validate parses and checks a token.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse admin token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid admin token claims")
	}
	return claims, nil
}

// Validator adapts Validate to middleware.Bearer.
func (m *TokenManager) Validator() middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		c, err := m.Validate(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{Subject: c.Subject, Role: c.Role}, nil
	}
}
