package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment, serviceTypeIDs []int64) error {
	appt.CreatedAt = time.Now()
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO appointments (client_name, description, appointment_date, appointment_time, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		appt.ClientName, appt.Description, appt.AppointmentDate, appt.AppointmentTime, appt.CreatedAt,
	).Scan(&appt.ID)
	if err != nil {
		return mapError(err, "create appointment")
	}

	for _, stID := range serviceTypeIDs {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO appointment_service_types (appointment_id, service_type_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`, appt.ID, stID); err != nil {
			return mapError(err, "add appointment service type")
		}
	}
	return nil
}

type apptServiceTypeRow struct {
	AppointmentID int64 `db:"appointment_id"`
	model.ServiceType
}

func (r *appointmentRepository) List(ctx context.Context, from, to *time.Time) ([]*model.Appointment, error) {
	var (
		conds []string
		args  []interface{}
	)
	if from != nil {
		args = append(args, *from)
		conds = append(conds, fmt.Sprintf("appointment_date >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conds = append(conds, fmt.Sprintf("appointment_date <= $%d", len(args)))
	}
	query := `SELECT id, client_name, description, appointment_date, appointment_time, created_at FROM appointments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY appointment_date, appointment_time, id`

	appts := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, mapError(err, "list appointments")
	}
	if len(appts) == 0 {
		return appts, nil
	}

	ids := make([]int64, len(appts))
	byID := make(map[int64]*model.Appointment, len(appts))
	for i, a := range appts {
		ids[i] = a.ID
		a.ServiceTypes = []model.ServiceType{}
		byID[a.ID] = a
	}
	stQuery, stArgs, err := r.in(`
		SELECT ast.appointment_id, st.id, st.name, st.created_at
		FROM appointment_service_types ast
		JOIN service_types st ON st.id = ast.service_type_id
		WHERE ast.appointment_id IN (?)
		ORDER BY ast.appointment_id, st.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build service type query: %w", err)
	}
	var rows []apptServiceTypeRow
	if err := r.db.SelectContext(ctx, &rows, stQuery, stArgs...); err != nil {
		return nil, mapError(err, "list appointment service types")
	}
	for _, row := range rows {
		if a, ok := byID[row.AppointmentID]; ok {
			a.ServiceTypes = append(a.ServiceTypes, row.ServiceType)
		}
	}
	return appts, nil
}
