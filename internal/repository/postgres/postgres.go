package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chmc/wbms-api/internal/repository"
	outbox "github.com/chmc/wbms-api/pkg/repository"
)

const (
	NumberingSequence = "sequence"
	NumberingCount    = "count"
)

// Store hands out repositories on the pool or inside a transaction.
type Store struct {
	db        *sqlx.DB
	numbering string
}

func NewStore(db *sqlx.DB, numbering string) *Store {
	if numbering == "" {
		numbering = NumberingSequence
	}
	return &Store{db: db, numbering: numbering}
}

// Repos returns repositories running on the connection pool.
func (s *Store) Repos() repository.Repositories {
	return s.bind(s.db)
}

func (s *Store) bind(q Querier) repository.Repositories {
	base := NewBaseRepository(q)
	exams := NewExaminationRepository(base)
	return repository.Repositories{
		Accounts:     NewAccountRepository(base),
		Patients:     NewPatientRepository(base),
		Examinations: exams,
		Payments:     NewPaymentRepository(base),
		ServiceTypes: NewServiceTypeRepository(base),
		Appointments: NewAppointmentRepository(base),
		Reports:      NewReportRepository(base),
		Outbox:       NewOutboxRepository(base),
		FileNumbers:  NewFileNumberAllocator(base, s.numbering, exams),
	}
}

// WithTx executes fn within a transaction
func (s *Store) WithTx(ctx context.Context, fn func(repository.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(s.bind(tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping is used by readiness checks.
// WithOutboxTx gives the outbox worker one transaction per batch so the
// SKIP LOCKED row locks outlive the select.
func (s *Store) WithOutboxTx(ctx context.Context, fn func(outbox.OutboxRepository) error) error {
	return s.WithTx(ctx, func(repos repository.Repositories) error {
		return fn(repos.Outbox)
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}
