// Package auth issues and verifies staff session tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kirinyoku/tabgo/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidRole  = errors.New("invalid role in token")
)

// Claims is the payload of a staff session token.
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// TokenManager signs and verifies HS256 staff tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(cfg Config) *TokenManager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &TokenManager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a session token for staff.
func (m *TokenManager) Issue(staff domain.Staff) (string, time.Time, error) {
	const op = "auth.TokenManager.Issue"

	if strings.TrimSpace(staff.Email) == "" {
		return "", time.Time{}, fmt.Errorf("%s: email is required", op)
	}

	if !staff.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("%s:%w", op, ErrInvalidRole)
	}

	now := m.now()
	exp := now.Add(m.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   staff.Email,
			ExpiresAt: jwt.NewNumericDate(exp),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: staff.Email,
		Role:  staff.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s:%w", op, err)
	}

	return signed, exp, nil
}

// Parse verifies raw and returns the staff identity it carries.
func (m *TokenManager) Parse(raw string) (domain.Staff, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Staff{}, ErrExpiredToken
		}
		return domain.Staff{}, ErrInvalidToken
	}

	if claims.Email == "" {
		return domain.Staff{}, ErrInvalidToken
	}

	if !claims.Role.Valid() {
		return domain.Staff{}, ErrInvalidRole
	}

	return domain.Staff{Email: claims.Email, Role: claims.Role}, nil
}
