package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository/memory"
	"github.com/chmc/wbms-api/pkg/auth"
	"github.com/chmc/wbms-api/pkg/security"
)

func newTestService(t *testing.T) (*Service, auth.JWTService, *model.Account) {
	t.Helper()
	ctx := context.Background()
	hasher := security.NewBcryptHasher(4)
	jwtSvc, err := auth.NewJWTService(auth.Config{Secret: "test-secret", Issuer: "wbms-test", TokenExpiry: time.Hour})
	require.NoError(t, err)

	hash, err := hasher.Hash("s3cret-pass")
	require.NoError(t, err)
	accounts := memory.New("").Repos().Accounts
	account := &model.Account{Email: "staff@chmc.ph", PasswordHash: hash, IsEmployee: true}
	require.NoError(t, accounts.Create(ctx, account))
	require.NoError(t, accounts.Create(ctx, &model.Account{Email: "nobody@chmc.ph", PasswordHash: hash}))

	return NewService(accounts, jwtSvc, hasher), jwtSvc, account
}

func TestLogin(t *testing.T) {
	svc, jwtSvc, account := newTestService(t)

	resp, err := svc.Login(context.Background(), " Staff@chmc.ph ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, account.ID, resp.Account.ID)

	claims, err := jwtSvc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.True(t, claims.HasRole(model.RoleEmployee))
}

func TestLoginRejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "staff@chmc.ph", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "missing@chmc.ph", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@chmc.ph", "s3cret-pass")
	assert.ErrorIs(t, err, ErrNoRoles)
}
