package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
	"github.com/chmc/wbms-api/internal/storage"
	"github.com/chmc/wbms-api/pkg/security"
)

const (
	ImagesDir     = "profile_pics"
	SignaturesDir = "signatures"
)

var (
	ErrSignatureRequired = errors.New("doctor accounts require a signature image")
	ErrPasswordRequired  = errors.New("password and confirmation are required")
)

// Files are the images sent along with an account form.
type Files struct {
	Image     *storage.Upload
	Signature *storage.Upload
}

type Service struct {
	accounts repository.AccountRepository
	files    storage.Store
	hasher   security.PasswordHasher
}

func NewService(accounts repository.AccountRepository, files storage.Store, hasher security.PasswordHasher) *Service {
	return &Service{
		accounts: accounts,
		files:    files,
		hasher:   hasher,
	}
}

func (s *Service) CreateAccount(ctx context.Context, req *model.CreateAccountRequest, files Files) (*model.Account, error) {
	if err := security.CheckPasswordPair(req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}

	account := &model.Account{
		Email:         strings.TrimSpace(req.Email),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		MiddleInitial: strings.ToUpper(req.MiddleInitial),
		Prefix:        model.Prefix(req.Prefix),
		MobileNumber:  req.MobileNumber,
	}
	account.ApplyType(model.AccountType(req.AccountType))

	if account.IsDoctor() && files.Signature == nil {
		return nil, ErrSignatureRequired
	}
	if account.IsClinicDoctor {
		if err := s.checkClinicDoctor(ctx, 0); err != nil {
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	account.PasswordHash = hash

	written, err := s.saveFiles(ctx, account, files)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		s.discard(ctx, written)
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	log.Info().Int64("account_id", account.ID).Str("type", req.AccountType).Msg("account created")
	return account, nil
}

func (s *Service) UpdateAccount(ctx context.Context, id int64, req *model.UpdateAccountRequest, files Files) (*model.Account, error) {
	return s.update(ctx, id, req, files, true)
}

// UpdateProfile applies a self-service edit; the role cannot change.
func (s *Service) UpdateProfile(ctx context.Context, id int64, req *model.UpdateAccountRequest, files Files) (*model.Account, error) {
	return s.update(ctx, id, req, files, false)
}

func (s *Service) update(ctx context.Context, id int64, req *model.UpdateAccountRequest, files Files, allowRole bool) (*model.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if req.Email != nil {
		account.Email = strings.TrimSpace(*req.Email)
	}
	if req.FirstName != nil {
		account.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		account.LastName = *req.LastName
	}
	if req.MiddleInitial != nil {
		account.MiddleInitial = strings.ToUpper(*req.MiddleInitial)
	}
	if req.Prefix != nil {
		account.Prefix = model.Prefix(*req.Prefix)
	}
	if req.MobileNumber != nil {
		account.MobileNumber = *req.MobileNumber
	}
	if allowRole && req.AccountType != nil {
		account.ApplyType(model.AccountType(*req.AccountType))
	}

	if req.ChangePassword {
		if req.Password == "" || req.ConfirmPassword == "" {
			return nil, ErrPasswordRequired
		}
		if err := security.CheckPasswordPair(req.Password, req.ConfirmPassword); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		account.PasswordHash = hash
	}

	if account.IsDoctor() && files.Signature == nil && (account.SignaturePath == nil || *account.SignaturePath == "") {
		return nil, ErrSignatureRequired
	}
	if account.IsClinicDoctor {
		if err := s.checkClinicDoctor(ctx, account.ID); err != nil {
			return nil, err
		}
	}

	oldImage, oldSignature := account.ImagePath, account.SignaturePath
	written, err := s.saveFiles(ctx, account, files)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		s.discard(ctx, written)
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	s.discardReplaced(ctx, oldImage, account.ImagePath)
	s.discardReplaced(ctx, oldSignature, account.SignaturePath)

	log.Info().Int64("account_id", account.ID).Msg("account updated")
	return account, nil
}

func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	var files []string
	for _, p := range []*string{account.ImagePath, account.SignaturePath} {
		if p != nil && *p != "" {
			files = append(files, *p)
		}
	}
	s.discard(ctx, files)

	log.Info().Int64("account_id", id).Msg("account deleted")
	return nil
}

func (s *Service) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context, filter model.AccountFilter) ([]*model.Account, error) {
	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// ListDoctors returns associated and clinic doctors, the choices for an
// examination's attending doctor.
func (s *Service) ListDoctors(ctx context.Context) ([]*model.Account, error) {
	all, err := s.accounts.List(ctx, model.AccountFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	doctors := []*model.Account{}
	for _, a := range all {
		if a.IsDoctor() {
			doctors = append(doctors, a)
		}
	}
	return doctors, nil
}

// EnsureSuperuser creates the admin account for email, or resets its password
// when it already exists. The bool reports whether an account was created.
func (s *Service) EnsureSuperuser(ctx context.Context, email, password string) (*model.Account, bool, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		existing.PasswordHash = hash
		if err := s.accounts.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("failed to update superuser: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, fmt.Errorf("failed to look up superuser: %w", err)
	}

	account := &model.Account{
		Email:        email,
		FirstName:    "Admin",
		LastName:     "CHMC",
		PasswordHash: hash,
		IsSuperuser:  true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, false, fmt.Errorf("failed to create superuser: %w", err)
	}
	log.Info().Int64("account_id", account.ID).Msg("superuser created")
	return account, true, nil
}

func (s *Service) checkClinicDoctor(ctx context.Context, excludeID int64) error {
	exists, err := s.accounts.ClinicDoctorExists(ctx, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check clinic doctor: %w", err)
	}
	if exists {
		return repository.ErrClinicDoctorExists
	}
	return nil
}

func (s *Service) saveFiles(ctx context.Context, account *model.Account, files Files) ([]string, error) {
	var written []string
	if files.Image != nil {
		name, err := files.Image.Save(ctx, s.files, ImagesDir, uuid.NewString())
		if err != nil {
			return nil, fmt.Errorf("failed to store profile image: %w", err)
		}
		written = append(written, name)
		account.ImagePath = &name
	}
	if files.Signature != nil {
		name, err := files.Signature.Save(ctx, s.files, SignaturesDir, uuid.NewString())
		if err != nil {
			s.discard(ctx, written)
			return nil, fmt.Errorf("failed to store signature: %w", err)
		}
		written = append(written, name)
		account.SignaturePath = &name
	}
	return written, nil
}

// discardReplaced removes old once the row points at a different file.
func (s *Service) discardReplaced(ctx context.Context, old, current *string) {
	if old == nil || *old == "" || current == nil || *old == *current {
		return
	}
	s.discard(ctx, []string{*old})
}

func (s *Service) discard(ctx context.Context, names []string) {
	for _, name := range names {
		if err := s.files.Delete(ctx, name); err != nil {
			log.Warn().Err(err).Str("path", name).Msg("failed to remove file")
		}
	}
}
