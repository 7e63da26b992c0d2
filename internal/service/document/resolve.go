package document

import (
	"context"
	"fmt"
	"time"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

// Resolver loads the patient, doctor, service types and first payment of
// examinations and fills in their file numbers.
type Resolver struct {
	repos repository.Repositories
}

func NewResolver(repos repository.Repositories) *Resolver {
	return &Resolver{repos: repos}
}

func (r *Resolver) Resolve(ctx context.Context, exams ...*model.Examination) error {
	if len(exams) == 0 {
		return nil
	}
	examIDs := make([]int64, 0, len(exams))
	patientIDs := make([]int64, 0, len(exams))
	doctorIDs := make([]int64, 0, len(exams))
	for _, e := range exams {
		examIDs = append(examIDs, e.ID)
		patientIDs = append(patientIDs, e.PatientID)
		doctorIDs = append(doctorIDs, e.AttendingDoctorID)
	}

	patients, err := r.repos.Patients.GetMany(ctx, dedupe(patientIDs))
	if err != nil {
		return fmt.Errorf("failed to load patients: %w", err)
	}
	doctors, err := r.repos.Accounts.GetMany(ctx, dedupe(doctorIDs))
	if err != nil {
		return fmt.Errorf("failed to load doctors: %w", err)
	}
	serviceTypes, err := r.repos.Examinations.ServiceTypes(ctx, examIDs)
	if err != nil {
		return fmt.Errorf("failed to load service types: %w", err)
	}
	payments, err := r.repos.Payments.FirstByExamination(ctx, examIDs)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}

	numbers := NewFileNumbers(r.repos.Examinations)
	for _, e := range exams {
		p, ok := patients[e.PatientID]
		if !ok {
			return fmt.Errorf("examination %d: patient %d: %w", e.ID, e.PatientID, repository.ErrNotFound)
		}
		d, ok := doctors[e.AttendingDoctorID]
		if !ok {
			return fmt.Errorf("examination %d: doctor %d: %w", e.ID, e.AttendingDoctorID, repository.ErrNotFound)
		}
		e.Patient = p
		e.Doctor = d
		e.ServiceTypes = serviceTypes[e.ID]
		if e.ServiceTypes == nil {
			e.ServiceTypes = []model.ServiceType{}
		}
		e.Payment = payments[e.ID]

		if e.FileNumber, err = numbers.Format(ctx, e.CreatedAt, e.SequenceNo); err != nil {
			return err
		}
	}
	return nil
}

// FileNumbers renders "YY-NN" file numbers. Rows numbered before sequences
// were stored get the live count of their year plus one.
type FileNumbers struct {
	exams repository.ExaminationRepository
	years map[int]int
}

func NewFileNumbers(exams repository.ExaminationRepository) *FileNumbers {
	return &FileNumbers{exams: exams, years: make(map[int]int)}
}

func (f *FileNumbers) Format(ctx context.Context, createdAt time.Time, seq int) (string, error) {
	if seq > 0 {
		return model.FormatFileNumber(createdAt, seq), nil
	}
	n, ok := f.years[createdAt.Year()]
	if !ok {
		var err error
		if n, err = f.exams.CountInYear(ctx, createdAt); err != nil {
			return "", fmt.Errorf("failed to count examinations: %w", err)
		}
		f.years[createdAt.Year()] = n
	}
	return model.FormatFileNumber(createdAt, n+1), nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
