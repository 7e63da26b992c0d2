package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/chmc/wbms-api/internal/repository"
)

// Querier is implemented by both *sqlx.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db Querier
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db Querier) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the connection or transaction the repository runs on
func (r *BaseRepository) GetDB() Querier {
	return r.db
}

// in expands an IN (?) clause and rebinds it for postgres.
func (r *BaseRepository) in(query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return r.db.Rebind(q), a, nil
}

// expectRows turns a zero-row update or delete into ErrNotFound.
func expectRows(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return nil
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Constraint names from the embedded schema.
const (
	constraintAccountEmail    = "accounts_email_key"
	constraintSingleClinicDoc = "accounts_single_clinic_doctor"
	constraintExaminationCode = "examinations_unique_code_key"
)

// mapError translates driver errors into repository sentinels.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	// a missing referenced row reads as not found
	if string(pqErr.Code) == foreignKeyViolation {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	if string(pqErr.Code) == uniqueViolation {
		switch pqErr.Constraint {
		case constraintAccountEmail:
			return fmt.Errorf("%s: %w", what, repository.ErrDuplicateEmail)
		case constraintSingleClinicDoc:
			return fmt.Errorf("%s: %w", what, repository.ErrClinicDoctorExists)
		case constraintExaminationCode:
			return fmt.Errorf("%s: %w", what, repository.ErrDuplicateCode)
		}
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}
