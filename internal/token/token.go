// Package token issues and verifies the signed identity tokens carried in the
// session cookie. Verification fails closed: any parse, signature or expiry
// problem is reported as an invalid token, never as an error to the transport.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Service struct {
	Secret []byte
	TTL    time.Duration
}

func NewService(secret []byte, ttl time.Duration) *Service {
	return &Service{Secret: secret, TTL: ttl}
}

func (s *Service) Issue(userID uint, email string) (string, error) {
	exp := time.Now().Add(s.TTL)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

// Verify reports whether raw carries a valid signature and has not expired.
func (s *Service) Verify(raw string) bool {
	_, err := s.parse(raw)
	return err == nil
}

// Parse verifies raw once and returns both identity claims, so callers on the
// request path do not pay for repeated signature checks.
func (s *Service) Parse(raw string) (uint, string, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return 0, "", err
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("missing subject claim")
	}
	email, ok := claims["email"].(string)
	if !ok {
		return 0, "", fmt.Errorf("missing email claim")
	}
	return uint(sub), email, nil
}

func (s *Service) UserID(raw string) (uint, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return 0, err
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, fmt.Errorf("missing subject claim")
	}
	return uint(sub), nil
}

func (s *Service) Email(raw string) (string, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return "", err
	}
	email, ok := claims["email"].(string)
	if !ok {
		return "", fmt.Errorf("missing email claim")
	}
	return email, nil
}

func (s *Service) parse(raw string) (jwt.MapClaims, error) {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil || !t.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("cannot parse claims")
	}
	return claims, nil
}
