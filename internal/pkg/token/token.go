package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// PreviewClaims bind a preview token to a single scrapbook share code.
type PreviewClaims struct {
	Code string `json:"code"`
	jwt.RegisteredClaims
}

// Service issues and verifies preview tokens for unpublished scrapbooks.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a preview token service
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// GeneratePreviewToken signs a short-lived token for the given code
func (s *Service) GeneratePreviewToken(code string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := PreviewClaims{
		Code: code,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   code,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyPreviewToken validates a token and returns the code it grants
// access to.
func (s *Service) VerifyPreviewToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PreviewClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*PreviewClaims)
	if !ok || !token.Valid || claims.Code == "" {
		return "", ErrInvalidToken
	}

	return claims.Code, nil
}
