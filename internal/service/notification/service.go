package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/email"
	"github.com/chmc/wbms-api/internal/repository"
	"github.com/chmc/wbms-api/internal/service/event"
	"github.com/chmc/wbms-api/pkg/messaging"
	"github.com/chmc/wbms-api/pkg/metrics"
)

const (
	maxRetries = 3
	retryDelay = 5 * time.Second
)

// Service emails the attending doctor about examination events.
type Service struct {
	accounts   repository.AccountRepository
	emailSvc   email.Service
	metrics    *metrics.Metrics
	retryDelay time.Duration
}

func NewService(accounts repository.AccountRepository, emailSvc email.Service, m *metrics.Metrics) *Service {
	return &Service{
		accounts:   accounts,
		emailSvc:   emailSvc,
		metrics:    m,
		retryDelay: retryDelay,
	}
}

// Handle is a messaging.Handler. Events of other types are ignored.
func (s *Service) Handle(ctx context.Context, msg messaging.Message) error {
	if msg.Type != event.ExaminationCreated && msg.Type != event.ExaminationDocumentEdited {
		return nil
	}

	var payload event.ExaminationPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}

	doctor, err := s.accounts.Get(ctx, payload.DoctorID)
	if err != nil {
		return fmt.Errorf("failed to get doctor %d: %w", payload.DoctorID, err)
	}
	if doctor.Email == "" {
		log.Warn().Int64("doctor_id", doctor.ID).Msg("doctor has no email, notification skipped")
		s.metrics.NotificationsSent.WithLabelValues(msg.Type, "skipped").Inc()
		return nil
	}

	subject, body := compose(msg.Type, doctor.FullNameWithMiddleInitial(), payload)
	if err := s.send(ctx, doctor.Email, subject, body); err != nil {
		s.metrics.NotificationsSent.WithLabelValues(msg.Type, "failed").Inc()
		return fmt.Errorf("failed to notify doctor %d: %w", doctor.ID, err)
	}

	s.metrics.NotificationsSent.WithLabelValues(msg.Type, "sent").Inc()
	log.Info().
		Str("event_type", msg.Type).
		Int64("examination_id", payload.ExaminationID).
		Str("to", doctor.Email).
		Msg("doctor notified")
	return nil
}

func (s *Service) send(ctx context.Context, to, subject, body string) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = s.emailSvc.Send(ctx, to, subject, body); err == nil {
			return nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("to", to).Msg("email delivery failed")
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	return err
}

func compose(eventType, doctorName string, p event.ExaminationPayload) (string, string) {
	if eventType == event.ExaminationDocumentEdited {
		return fmt.Sprintf("Edited document for file %s", p.FileNumber),
			fmt.Sprintf("Dear %s,\n\nAn edited document was uploaded for %s (file no. %s) on %s.\nVerification code: %s\n",
				doctorName, p.PatientName, p.FileNumber, p.OccurredAt.Format("January 02, 2006 15:04"), p.UniqueCode)
	}
	return fmt.Sprintf("New examination %s", p.FileNumber),
		fmt.Sprintf("Dear %s,\n\nYou were assigned as attending doctor for %s (file no. %s) on %s.\nVerification code: %s\n",
			doctorName, p.PatientName, p.FileNumber, p.OccurredAt.Format("January 02, 2006 15:04"), p.UniqueCode)
}
