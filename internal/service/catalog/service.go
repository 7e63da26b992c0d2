package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var ErrInvalidSchedule = errors.New("invalid appointment date or time")

// Service manages the examination catalog and walk-in appointments.
type Service struct {
	serviceTypes repository.ServiceTypeRepository
	appointments repository.AppointmentRepository
}

func NewService(serviceTypes repository.ServiceTypeRepository, appointments repository.AppointmentRepository) *Service {
	return &Service{
		serviceTypes: serviceTypes,
		appointments: appointments,
	}
}

func (s *Service) ListServiceTypes(ctx context.Context) ([]model.ServiceType, error) {
	types, err := s.serviceTypes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list service types: %w", err)
	}
	return types, nil
}

func (s *Service) CreateServiceType(ctx context.Context, req *model.CreateServiceTypeRequest) (*model.ServiceType, error) {
	st := &model.ServiceType{Name: strings.TrimSpace(req.Name)}
	if err := s.serviceTypes.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to create service type: %w", err)
	}
	log.Info().Int64("service_type_id", st.ID).Str("name", st.Name).Msg("service type created")
	return st, nil
}

// CreateAppointment books a client for a date and "HH:MM" time. Unknown
// service type ids fail with repository.ErrNotFound.
func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	at, err := time.Parse(timeLayout, strings.TrimSpace(req.Time))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	appt := &model.Appointment{
		ClientName:      strings.TrimSpace(req.ClientName),
		Description:     strings.TrimSpace(req.Description),
		AppointmentDate: date,
		AppointmentTime: at.Format(timeLayout),
	}
	if err := s.appointments.Create(ctx, appt, req.ServiceTypeIDs); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	if len(req.ServiceTypeIDs) > 0 {
		types, err := s.serviceTypes.GetMany(ctx, req.ServiceTypeIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load service types: %w", err)
		}
		appt.ServiceTypes = types
	} else {
		appt.ServiceTypes = []model.ServiceType{}
	}
	return appt, nil
}

// ListAppointments returns appointments between the optional inclusive
// "YYYY-MM-DD" bounds, earliest first.
func (s *Service) ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	from, err := parseDay(filter.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDay(filter.To)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.List(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return &t, nil
}
