package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService authenticates the configured merchant and issues session
// tokens. The app is single-merchant: there is no user store, just the
// one credential from configuration.
type AuthService struct {
	username     string
	passwordHash []byte
	secret       []byte
	expiry       time.Duration
}

// NewAuthService hashes the configured merchant password and prepares
// token signing
func NewAuthService(username, password, secret string, expiry time.Duration) (*AuthService, error) {
	if username == "" {
		return nil, fmt.Errorf("merchant username cannot be empty")
	}
	if password == "" {
		return nil, fmt.Errorf("merchant password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash merchant password: %w", err)
	}

	return &AuthService{
		username:     username,
		passwordHash: hash,
		secret:       []byte(secret),
		expiry:       expiry,
	}, nil
}

// Login verifies credentials and generates a JWT
func (s *AuthService) Login(username, password string) (string, error) {
	if username != s.username {
		return "", fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": s.username,
		"exp": time.Now().Add(s.expiry).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// Verify parses a token and returns the merchant it was issued to
func (s *AuthService) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("invalid token subject")
	}
	return sub, nil
}
