package patient

import (
	"context"
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
	ImagesDir   = "patient_images"
	SearchLimit = 10
	maxPageSize = 100
)

type Service struct {
	patients repository.PatientRepository
	files    storage.Store
	secret   security.Secret
}

func NewService(patients repository.PatientRepository, files storage.Store, secret security.Secret) *Service {
	return &Service{
		patients: patients,
		files:    files,
		secret:   secret,
	}
}

// NewPatient maps a registration form onto a patient row.
func NewPatient(req *model.CreatePatientRequest) *model.Patient {
	return &model.Patient{
		FirstName:     strings.TrimSpace(req.FirstName),
		MiddleName:    strings.TrimSpace(req.MiddleName),
		LastName:      strings.TrimSpace(req.LastName),
		Age:           req.Age,
		Sex:           model.Sex(req.Sex),
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
	}
}

func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest, photo *storage.Upload) (*model.PatientView, error) {
	patient := NewPatient(req)
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	if photo != nil {
		if _, err := StorePhoto(ctx, s.patients, s.files, patient, photo); err != nil {
			return nil, err
		}
	}
	log.Info().Int64("patient_id", patient.ID).Msg("patient registered")
	return s.view(ctx, patient, false)
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*model.PatientView, error) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return s.view(ctx, patient, true)
}

// SecureID returns the salted digest of the patient's formatted id.
func (s *Service) SecureID(ctx context.Context, id int64) (*model.PatientView, error) {
	return s.GetPatient(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, id int64, req *model.UpdatePatientRequest) (*model.PatientView, error) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if req.FirstName != nil {
		patient.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.MiddleName != nil {
		patient.MiddleName = strings.TrimSpace(*req.MiddleName)
	}
	if req.LastName != nil {
		patient.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Age != nil {
		patient.Age = *req.Age
	}
	if req.Sex != nil {
		patient.Sex = model.Sex(*req.Sex)
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.ContactNumber != nil {
		patient.ContactNumber = *req.ContactNumber
	}
	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return s.view(ctx, patient, false)
}

func (s *Service) ListPatients(ctx context.Context, page model.Pagination) ([]*model.PatientView, error) {
	patients, err := s.patients.List(ctx, page.Normalize(maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	total, err := s.patients.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	views := make([]*model.PatientView, 0, len(patients))
	for _, p := range patients {
		views = append(views, &model.PatientView{Patient: p, FormattedID: p.FormattedID(total)})
	}
	return views, nil
}

// SearchPatients matches names token by token and returns at most
// SearchLimit summaries. A blank query returns none.
func (s *Service) SearchPatients(ctx context.Context, query string) ([]model.PatientSummary, error) {
	summaries := []model.PatientSummary{}
	if strings.TrimSpace(query) == "" {
		return summaries, nil
	}
	patients, err := s.patients.Search(ctx, strings.TrimSpace(query), SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	for _, p := range patients {
		summaries = append(summaries, p.Summary())
	}
	return summaries, nil
}

// SetPhoto replaces the patient's photo with the decoded data URL.
func (s *Service) SetPhoto(ctx context.Context, id int64, photo *storage.Upload) (*model.PatientView, error) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	previous, err := StorePhoto(ctx, s.patients, s.files, patient, photo)
	if err != nil {
		return nil, err
	}
	if previous != "" {
		if err := s.files.Delete(ctx, previous); err != nil {
			log.Warn().Err(err).Str("path", previous).Msg("failed to remove previous photo")
		}
	}
	return s.view(ctx, patient, false)
}

// StorePhoto writes photo for patient and points the row at it. It returns
// the previous photo path, which the caller removes once the change is final.
func StorePhoto(ctx context.Context, patients repository.PatientRepository, files storage.Store, patient *model.Patient, photo *storage.Upload) (string, error) {
	base := fmt.Sprintf("patient_%d_%s", patient.ID, uuid.NewString()[:8])
	name, err := photo.Save(ctx, files, ImagesDir, base)
	if err != nil {
		return "", fmt.Errorf("failed to store patient photo: %w", err)
	}
	if err := patients.SetImage(ctx, patient.ID, name); err != nil {
		if delErr := files.Delete(ctx, name); delErr != nil {
			log.Warn().Err(delErr).Str("path", name).Msg("failed to remove orphaned photo")
		}
		return "", fmt.Errorf("failed to set patient photo: %w", err)
	}
	var previous string
	if patient.ImagePath != nil {
		previous = *patient.ImagePath
	}
	patient.ImagePath = &name
	return previous, nil
}

func (s *Service) view(ctx context.Context, patient *model.Patient, withSecureID bool) (*model.PatientView, error) {
	total, err := s.patients.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	v := &model.PatientView{Patient: patient, FormattedID: patient.FormattedID(total)}
	if withSecureID {
		v.SecureID = s.secret.Digest(v.FormattedID)
	}
	return v, nil
}
