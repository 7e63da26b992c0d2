package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
	"github.com/chmc/wbms-api/pkg/auth"
	"github.com/chmc/wbms-api/pkg/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoRoles            = errors.New("account has no role")
)

type Service struct {
	accounts repository.AccountRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
}

func NewService(accounts repository.AccountRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		accounts: accounts,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
	}
}

// Login checks the credentials and issues an access token carrying the
// account's roles.
func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		log.Warn().Int64("account_id", account.ID).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	roles := account.Roles()
	if len(roles) == 0 {
		return nil, ErrNoRoles
	}

	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(account.ID, account.Email, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	log.Info().Int64("account_id", account.ID).Strs("roles", roles).Msg("login succeeded")
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Account:     account,
	}, nil
}
