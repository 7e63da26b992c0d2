package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chmc/wbms-api/internal/model"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrClinicDoctorExists = errors.New("a clinic doctor account already exists")
	ErrDuplicateCode      = errors.New("unique code already assigned")
)

// All repository interfaces in one file
type (
	AccountRepository interface {
		Create(ctx context.Context, account *model.Account) error
		Get(ctx context.Context, id int64) (*model.Account, error)
		GetByEmail(ctx context.Context, email string) (*model.Account, error)
		GetMany(ctx context.Context, ids []int64) (map[int64]*model.Account, error)
		Update(ctx context.Context, account *model.Account) error
		Delete(ctx context.Context, id int64) error
		// List returns non-superuser accounts, optionally narrowed to one role.
		List(ctx context.Context, filter model.AccountFilter) ([]*model.Account, error)
		// ClinicDoctorExists ignores the account with id excludeID.
		ClinicDoctorExists(ctx context.Context, excludeID int64) (bool, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id int64) (*model.Patient, error)
		GetMany(ctx context.Context, ids []int64) (map[int64]*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		SetImage(ctx context.Context, id int64, path string) error
		List(ctx context.Context, page model.Pagination) ([]*model.Patient, error)
		Count(ctx context.Context) (int64, error)
		Search(ctx context.Context, query string, limit int) ([]*model.Patient, error)
	}

	ExaminationRepository interface {
		Create(ctx context.Context, exam *model.Examination) error
		Get(ctx context.Context, id int64) (*model.Examination, error)
		// List returns examinations newest first.
		List(ctx context.Context) ([]*model.Examination, error)
		SetDocument(ctx context.Context, id int64, path, uniqueCode string) error
		SetEditedDocument(ctx context.Context, id int64, path, hash string) error
		SetResultImage(ctx context.Context, id int64, path string) error
		SetServiceTypes(ctx context.Context, id int64, serviceTypeIDs []int64) error
		ServiceTypes(ctx context.Context, ids []int64) (map[int64][]model.ServiceType, error)
		FindByUniqueCode(ctx context.Context, code string) (*model.Examination, error)
		// ListWithoutUniqueCode returns rows predating persisted codes, oldest first.
		ListWithoutUniqueCode(ctx context.Context) ([]*model.Examination, error)
		// CountInYear counts examinations created in the calendar year of t.
		CountInYear(ctx context.Context, t time.Time) (int, error)
		Touch(ctx context.Context, id int64) error
	}

	PaymentRepository interface {
		Create(ctx context.Context, payment *model.Payment) error
		Update(ctx context.Context, payment *model.Payment) error
		// FirstByExamination maps each examination to its lowest-id payment.
		FirstByExamination(ctx context.Context, examIDs []int64) (map[int64]*model.Payment, error)
	}

	ServiceTypeRepository interface {
		Create(ctx context.Context, st *model.ServiceType) error
		List(ctx context.Context) ([]model.ServiceType, error)
		GetMany(ctx context.Context, ids []int64) ([]model.ServiceType, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appt *model.Appointment, serviceTypeIDs []int64) error
		List(ctx context.Context, from, to *time.Time) ([]*model.Appointment, error)
	}

	ReportRepository interface {
		PaymentRows(ctx context.Context, from, to time.Time) ([]model.PaymentRow, error)
		CountPatientsExamined(ctx context.Context, from, to time.Time) (int, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// FileNumberAllocator hands out the per-year sequence behind "YY-NN".
	FileNumberAllocator interface {
		Next(ctx context.Context, createdAt time.Time) (int, error)
	}
)

// Repositories bundles repositories sharing one connection or transaction.
type Repositories struct {
	Accounts     AccountRepository
	Patients     PatientRepository
	Examinations ExaminationRepository
	Payments     PaymentRepository
	ServiceTypes ServiceTypeRepository
	Appointments AppointmentRepository
	Reports      ReportRepository
	Outbox       OutboxRepository
	FileNumbers  FileNumberAllocator
}

// Transactor runs fn against repositories bound to a single transaction,
// committing when fn returns nil.
type Transactor interface {
	WithTx(ctx context.Context, fn func(Repositories) error) error
}
