package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"

	"rangebet-market/internal/auth"
)

var (
	// ErrLoginDisabled means no operator password is configured, so tokens
	// cannot be minted through the API.
	ErrLoginDisabled = errors.New("services: operator login is not configured")

	// ErrInvalidCredentials means the operator name or password did not match.
	ErrInvalidCredentials = errors.New("services: invalid operator credentials")
)

// AuthService mints admin tokens for the configured operator account.
type AuthService struct {
	operator string
	password string
}

func NewAuthService(operator, password string) *AuthService {
	return &AuthService{operator: operator, password: password}
}

// Login checks the operator credentials and returns a signed admin token.
func (s *AuthService) Login(operator, password string) (string, error) {
	if s.password == "" {
		return "", ErrLoginDisabled
	}

	operatorOK := subtle.ConstantTimeCompare([]byte(operator), []byte(s.operator)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !operatorOK || !passwordOK {
		return "", ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(operator, true)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	log.Printf("[AuthService] Operator %s logged in", operator)
	return token, nil
}
