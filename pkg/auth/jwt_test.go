package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc, err := NewJWTService(Config{Secret: "test-secret", Issuer: "wbms", TokenExpiry: time.Hour})
	require.NoError(t, err)

	token, expires, err := svc.GenerateAccessToken(42, "staff@chmc.test", []string{"employee"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AccountID)
	assert.Equal(t, "staff@chmc.test", claims.Email)
	assert.True(t, claims.HasRole("employee"))
	assert.False(t, claims.HasRole("admin"))
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	a, err := NewJWTService(Config{Secret: "one"})
	require.NoError(t, err)
	b, err := NewJWTService(Config{Secret: "two"})
	require.NoError(t, err)

	token, _, err := a.GenerateAccessToken(1, "a@b.c", nil)
	require.NoError(t, err)

	_, err = b.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc, err := NewJWTService(Config{Secret: "s", TokenExpiry: time.Minute})
	require.NoError(t, err)
	impl := svc.(*jwtService)
	impl.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.GenerateAccessToken(1, "a@b.c", nil)
	require.NoError(t, err)

	impl.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(Config{})
	assert.ErrorIs(t, err, ErrEmptySecret)
}
