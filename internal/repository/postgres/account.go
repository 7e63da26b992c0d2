package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

const accountColumns = `
	id, email, first_name, last_name, middle_initial, prefix, mobile_number,
	password_hash, is_superuser, is_employee, is_associated_doctor,
	is_clinic_doctor, image_path, signature_path, created_at, updated_at`

type accountRepository struct {
	BaseRepository
}

func NewAccountRepository(base BaseRepository) repository.AccountRepository {
	return &accountRepository{base}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (
			email, first_name, last_name, middle_initial, prefix, mobile_number,
			password_hash, is_superuser, is_employee, is_associated_doctor,
			is_clinic_doctor, image_path, signature_path, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING id
	`
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, query,
		account.Email,
		account.FirstName,
		account.LastName,
		account.MiddleInitial,
		account.Prefix,
		account.MobileNumber,
		account.PasswordHash,
		account.IsSuperuser,
		account.IsEmployee,
		account.IsAssociatedDoctor,
		account.IsClinicDoctor,
		account.ImagePath,
		account.SignaturePath,
		now,
	).Scan(&account.ID)
	return mapError(err, "create account")
}

func (r *accountRepository) Get(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err, "get account")
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return nil, mapError(err, "get account by email")
	}
	return &account, nil
}

func (r *accountRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*model.Account, error) {
	out := make(map[int64]*model.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := r.in(`SELECT `+accountColumns+` FROM accounts WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build account query: %w", err)
	}
	var accounts []*model.Account
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, mapError(err, "list accounts by id")
	}
	for _, a := range accounts {
		out[a.ID] = a
	}
	return out, nil
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	query := `
		UPDATE accounts
		SET email = $1, first_name = $2, last_name = $3, middle_initial = $4,
			prefix = $5, mobile_number = $6, password_hash = $7,
			is_employee = $8, is_associated_doctor = $9, is_clinic_doctor = $10,
			image_path = $11, signature_path = $12, updated_at = $13
		WHERE id = $14
	`
	account.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		account.Email,
		account.FirstName,
		account.LastName,
		account.MiddleInitial,
		account.Prefix,
		account.MobileNumber,
		account.PasswordHash,
		account.IsEmployee,
		account.IsAssociatedDoctor,
		account.IsClinicDoctor,
		account.ImagePath,
		account.SignaturePath,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		return mapError(err, "update account")
	}
	return expectRows(result, "update account")
}

func (r *accountRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete account")
	}
	return expectRows(result, "delete account")
}

func (r *accountRepository) List(ctx context.Context, filter model.AccountFilter) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE NOT is_superuser`
	switch filter.Role {
	case "employee":
		query += ` AND is_employee`
	case "associated_doctor":
		query += ` AND is_associated_doctor`
	case "clinic_doctor":
		query += ` AND is_clinic_doctor`
	default:
		query += ` AND (is_employee OR is_associated_doctor OR is_clinic_doctor)`
	}
	query += ` ORDER BY last_name, first_name, id`

	accounts := []*model.Account{}
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, mapError(err, "list accounts")
	}
	return accounts, nil
}

func (r *accountRepository) ClinicDoctorExists(ctx context.Context, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE is_clinic_doctor AND id <> $1)`, excludeID)
	if err != nil {
		return false, mapError(err, "check clinic doctor")
	}
	return exists, nil
}
