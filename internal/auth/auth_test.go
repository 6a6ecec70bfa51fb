package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789abcdef0123456789"

func newTestService(t *testing.T, expiry time.Duration) *AuthService {
	s, err := NewAuthService("merchant", "hunter2", testSecret, expiry)
	require.NoError(t, err)
	return s
}

func TestNewAuthService_Validation(t *testing.T) {
	_, err := NewAuthService("", "hunter2", testSecret, time.Hour)
	assert.Error(t, err)

	_, err = NewAuthService("merchant", "", testSecret, time.Hour)
	assert.Error(t, err)
}

func TestAuthService_LoginAndVerify(t *testing.T) {
	s := newTestService(t, time.Hour)

	token, err := s.Login("merchant", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	merchant, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "merchant", merchant)
}

func TestAuthService_LoginRejectsBadCredentials(t *testing.T) {
	s := newTestService(t, time.Hour)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"WrongPassword", "merchant", "wrongpass"},
		{"WrongUsername", "someone", "hunter2"},
		{"BothWrong", "someone", "wrongpass"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Login(tt.username, tt.password)
			assert.Error(t, err)
		})
	}
}

func TestAuthService_VerifyRejectsGarbage(t *testing.T) {
	s := newTestService(t, time.Hour)

	_, err := s.Verify("not-a-token")
	assert.Error(t, err)

	_, err = s.Verify("")
	assert.Error(t, err)
}

func TestAuthService_VerifyRejectsExpiredToken(t *testing.T) {
	s := newTestService(t, -time.Minute)

	token, err := s.Login("merchant", "hunter2")
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.Error(t, err)
}

func TestAuthService_VerifyRejectsForeignToken(t *testing.T) {
	s := newTestService(t, time.Hour)

	other, err := NewAuthService("merchant", "hunter2", "another-secret-0123456789abcdef01234", time.Hour)
	require.NoError(t, err)

	token, err := other.Login("merchant", "hunter2")
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.Error(t, err)
}
