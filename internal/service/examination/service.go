package examination

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
	"github.com/chmc/wbms-api/internal/service/document"
	"github.com/chmc/wbms-api/internal/service/event"
	"github.com/chmc/wbms-api/internal/service/patient"
	"github.com/chmc/wbms-api/internal/storage"
)

const ResultsDir = "examination_results"

var (
	ErrNotADoctor         = errors.New("attending doctor must be a doctor account")
	ErrUnknownServiceType = errors.New("unknown service type")
	ErrNoDocument         = errors.New("examination has no document")
	ErrEmptyUpload        = errors.New("uploaded file is empty")
	ErrPatientRequired    = errors.New("patient id or patient details are required")
)

type Service struct {
	tx        repository.Transactor
	repos     repository.Repositories
	files     storage.Store
	generator *document.Generator
	verifier  *document.Verifier
	integrity *document.Integrity
	resolver  *document.Resolver
	now       func() time.Time
}

func NewService(
	tx repository.Transactor,
	repos repository.Repositories,
	files storage.Store,
	generator *document.Generator,
	verifier *document.Verifier,
	integrity *document.Integrity,
) *Service {
	return &Service{
		tx:        tx,
		repos:     repos,
		files:     files,
		generator: generator,
		verifier:  verifier,
		integrity: integrity,
		resolver:  document.NewResolver(repos),
		now:       time.Now,
	}
}

// SetClock overrides the creation time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateExamination registers the examination, its payment and its generated
// document in one transaction. Files written by a failed attempt are removed.
func (s *Service) CreateExamination(ctx context.Context, req *model.CreateExaminationRequest, webcam *storage.Upload) (*model.Examination, error) {
	var (
		exam          *model.Examination
		written       []string
		previousPhoto string
	)

	err := s.tx.WithTx(ctx, func(tx repository.Repositories) error {
		p, err := s.resolvePatient(ctx, tx, req)
		if err != nil {
			return err
		}
		if webcam != nil {
			prev, err := patient.StorePhoto(ctx, tx.Patients, s.files, p, webcam)
			if err != nil {
				return err
			}
			written = append(written, *p.ImagePath)
			previousPhoto = prev
		}

		doctor, err := tx.Accounts.Get(ctx, req.AttendingDoctorID)
		if err != nil {
			return fmt.Errorf("failed to get attending doctor: %w", err)
		}
		if !doctor.IsDoctor() {
			return ErrNotADoctor
		}

		serviceTypes, err := s.serviceTypes(ctx, tx, req.ServiceTypeIDs)
		if err != nil {
			return err
		}

		createdAt := s.now()
		seq, err := tx.FileNumbers.Next(ctx, createdAt)
		if err != nil {
			return fmt.Errorf("failed to allocate file number: %w", err)
		}

		exam = &model.Examination{
			PatientID:         p.ID,
			AttendingDoctorID: doctor.ID,
			SequenceNo:        seq,
			CreatedAt:         createdAt,
		}
		if err := tx.Examinations.Create(ctx, exam); err != nil {
			return fmt.Errorf("failed to create examination: %w", err)
		}
		if err := tx.Examinations.SetServiceTypes(ctx, exam.ID, req.ServiceTypeIDs); err != nil {
			return fmt.Errorf("failed to set service types: %w", err)
		}

		payment := &model.Payment{
			ExaminationID: exam.ID,
			Amount:        req.Payment.Amount,
			Date:          createdAt,
			Method:        model.PaymentMethod(req.Payment.Method),
			Status:        model.PaymentStatus(req.Payment.Status),
		}
		if err := tx.Payments.Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		exam.Patient = p
		exam.Doctor = doctor
		exam.ServiceTypes = serviceTypes
		exam.Payment = payment
		exam.FileNumber = model.FormatFileNumber(createdAt, seq)

		generated, err := s.generator.Generate(ctx, exam)
		if err != nil {
			return fmt.Errorf("failed to generate document: %w", err)
		}
		written = append(written, generated.Path)

		if err := tx.Examinations.SetDocument(ctx, exam.ID, generated.Path, generated.Code); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		exam.DocumentPath = &generated.Path
		exam.UniqueCode = &generated.Code

		return event.Emit(ctx, tx.Outbox, event.ExaminationCreated, payloadFor(exam, s.now()))
	})
	if err != nil {
		s.discard(ctx, written)
		return nil, err
	}

	if previousPhoto != "" {
		s.discard(ctx, []string{previousPhoto})
	}

	log.Info().
		Int64("examination_id", exam.ID).
		Str("file_no", exam.FileNumber).
		Msg("examination created")
	return exam, nil
}

func (s *Service) resolvePatient(ctx context.Context, tx repository.Repositories, req *model.CreateExaminationRequest) (*model.Patient, error) {
	if req.PatientID != nil {
		p, err := tx.Patients.Get(ctx, *req.PatientID)
		if err != nil {
			return nil, fmt.Errorf("failed to get patient: %w", err)
		}
		return p, nil
	}
	if req.Patient == nil {
		return nil, ErrPatientRequired
	}
	p := patient.NewPatient(req.Patient)
	if err := tx.Patients.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return p, nil
}

// serviceTypes loads ids in the order given, failing on any unknown id.
func (s *Service) serviceTypes(ctx context.Context, repos repository.Repositories, ids []int64) ([]model.ServiceType, error) {
	found, err := repos.ServiceTypes.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load service types: %w", err)
	}
	byID := make(map[int64]model.ServiceType, len(found))
	for _, st := range found {
		byID[st.ID] = st
	}
	out := make([]model.ServiceType, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		st, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownServiceType, id)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, st)
		}
	}
	return out, nil
}

// UpdateExamination edits the patient's names, the service types and the
// first payment. Unset fields are left alone.
func (s *Service) UpdateExamination(ctx context.Context, id int64, req *model.UpdateExaminationRequest) (*model.Examination, error) {
	err := s.tx.WithTx(ctx, func(tx repository.Repositories) error {
		exam, err := tx.Examinations.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get examination: %w", err)
		}

		if req.FirstName != nil || req.MiddleName != nil || req.LastName != nil {
			p, err := tx.Patients.Get(ctx, exam.PatientID)
			if err != nil {
				return fmt.Errorf("failed to get patient: %w", err)
			}
			if req.FirstName != nil {
				p.FirstName = strings.TrimSpace(*req.FirstName)
			}
			if req.MiddleName != nil {
				p.MiddleName = strings.TrimSpace(*req.MiddleName)
			}
			if req.LastName != nil {
				p.LastName = strings.TrimSpace(*req.LastName)
			}
			if err := tx.Patients.Update(ctx, p); err != nil {
				return fmt.Errorf("failed to update patient: %w", err)
			}
		}

		if req.ServiceTypeIDs != nil {
			if _, err := s.serviceTypes(ctx, tx, req.ServiceTypeIDs); err != nil {
				return err
			}
			if err := tx.Examinations.SetServiceTypes(ctx, id, req.ServiceTypeIDs); err != nil {
				return fmt.Errorf("failed to set service types: %w", err)
			}
		}

		if req.PaymentMethod != nil || req.PaymentStatus != nil || req.Amount != nil {
			if err := s.updatePayment(ctx, tx, exam, req); err != nil {
				return err
			}
		}

		return tx.Examinations.Touch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.GetExamination(ctx, id)
}

// updatePayment edits the first payment in place. An examination without a
// payment is left without one.
func (s *Service) updatePayment(ctx context.Context, tx repository.Repositories, exam *model.Examination, req *model.UpdateExaminationRequest) error {
	payments, err := tx.Payments.FirstByExamination(ctx, []int64{exam.ID})
	if err != nil {
		return fmt.Errorf("failed to load payment: %w", err)
	}
	payment, ok := payments[exam.ID]
	if !ok {
		log.Warn().Int64("examination_id", exam.ID).Msg("payment update skipped, examination has no payment")
		return nil
	}
	if req.PaymentMethod != nil {
		payment.Method = model.PaymentMethod(*req.PaymentMethod)
	}
	if req.PaymentStatus != nil {
		payment.Status = model.PaymentStatus(*req.PaymentStatus)
	}
	if req.Amount != nil {
		payment.Amount = *req.Amount
	}
	if err := tx.Payments.Update(ctx, payment); err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

// ListExaminations returns every examination newest first with its
// relations resolved.
func (s *Service) ListExaminations(ctx context.Context) ([]*model.Examination, error) {
	exams, err := s.repos.Examinations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list examinations: %w", err)
	}
	if err := s.resolver.Resolve(ctx, exams...); err != nil {
		return nil, err
	}
	return exams, nil
}

func (s *Service) GetExamination(ctx context.Context, id int64) (*model.Examination, error) {
	exam, err := s.repos.Examinations.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get examination: %w", err)
	}
	if err := s.resolver.Resolve(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// OpenDocument returns the file name and contents of the original
// generated document.
func (s *Service) OpenDocument(ctx context.Context, id int64) (string, io.ReadCloser, error) {
	exam, err := s.repos.Examinations.Get(ctx, id)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get examination: %w", err)
	}
	if !exam.HasDocument() {
		return "", nil, ErrNoDocument
	}
	rc, err := s.files.Open(ctx, *exam.DocumentPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, ErrNoDocument
		}
		return "", nil, fmt.Errorf("failed to open document: %w", err)
	}
	return path.Base(*exam.DocumentPath), rc, nil
}

// UploadEditedDocument stores a revised document, records its SHA-256 and
// queues a notification for the attending doctor. The edited file it
// replaces is removed once the new one is committed.
func (s *Service) UploadEditedDocument(ctx context.Context, id int64, filename string, r io.Reader) (*model.Examination, error) {
	exam, err := s.GetExamination(ctx, id)
	if err != nil {
		return nil, err
	}

	upload, err := storage.UploadFromReader(filename, r)
	if err != nil {
		return nil, err
	}
	if len(upload.Data) == 0 {
		return nil, ErrEmptyUpload
	}
	ext := upload.Ext
	if ext == "" {
		ext = "docx"
	}
	base := storage.SanitizeName(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))

	hash, err := document.HashFile(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to hash document: %w", err)
	}
	name, err := document.StoreUnique(ctx, s.files, document.EditedDir, base, "."+ext, upload.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store edited document: %w", err)
	}

	err = s.tx.WithTx(ctx, func(tx repository.Repositories) error {
		if err := tx.Examinations.SetEditedDocument(ctx, id, name, hash); err != nil {
			return fmt.Errorf("failed to save edited document: %w", err)
		}
		return event.Emit(ctx, tx.Outbox, event.ExaminationDocumentEdited, payloadFor(exam, s.now()))
	})
	if err != nil {
		s.discard(ctx, []string{name})
		return nil, err
	}
	if prev := exam.EditedDocumentPath; prev != nil && *prev != "" && *prev != name {
		s.discard(ctx, []string{*prev})
	}

	log.Info().Int64("examination_id", id).Str("path", name).Str("sha256", hash).Msg("edited document uploaded")
	return s.GetExamination(ctx, id)
}

// UploadResultImage stores the result image as
// examination_results/examination_<id>_image.<ext>, replacing any earlier one.
func (s *Service) UploadResultImage(ctx context.Context, id int64, image *storage.Upload) (*model.Examination, error) {
	if _, err := s.repos.Examinations.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to get examination: %w", err)
	}
	name, err := image.Save(ctx, s.files, ResultsDir, fmt.Sprintf("examination_%d_image", id))
	if err != nil {
		return nil, fmt.Errorf("failed to store result image: %w", err)
	}
	if err := s.repos.Examinations.SetResultImage(ctx, id, name); err != nil {
		return nil, fmt.Errorf("failed to save result image: %w", err)
	}
	return s.GetExamination(ctx, id)
}

// ViewDocument renders the edited document as PDF.
func (s *Service) ViewDocument(ctx context.Context, id int64) (io.ReadCloser, error) {
	exam, err := s.repos.Examinations.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get examination: %w", err)
	}
	return s.verifier.RenderEdited(ctx, exam)
}

func (s *Service) CheckIntegrity(ctx context.Context, id int64) (*model.IntegrityReport, error) {
	return s.integrity.Check(ctx, id)
}

func payloadFor(exam *model.Examination, at time.Time) event.ExaminationPayload {
	p := event.ExaminationPayload{
		ExaminationID: exam.ID,
		DoctorID:      exam.AttendingDoctorID,
		FileNumber:    exam.FileNumber,
		OccurredAt:    at,
	}
	if exam.Patient != nil {
		p.PatientName = exam.Patient.FullNameWithMiddleInitial()
	}
	if exam.UniqueCode != nil {
		p.UniqueCode = *exam.UniqueCode
	}
	return p
}

func (s *Service) discard(ctx context.Context, names []string) {
	for _, name := range names {
		if err := s.files.Delete(ctx, name); err != nil {
			log.Warn().Err(err).Str("path", name).Msg("failed to remove file")
		}
	}
}
