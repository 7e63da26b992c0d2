package postgres

import (
	"context"
	"time"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

type reportRepository struct {
	BaseRepository
}

func NewReportRepository(base BaseRepository) repository.ReportRepository {
	return &reportRepository{base}
}

// PaymentRows returns payments dated in [from, to) with their examination,
// patient and doctor names.
func (r *reportRepository) PaymentRows(ctx context.Context, from, to time.Time) ([]model.PaymentRow, error) {
	query := `
		SELECT p.id AS payment_id, e.id AS examination_id, e.sequence_no,
			e.created_at AS exam_created_at,
			pt.first_name AS patient_first_name, pt.middle_name AS patient_middle_name,
			pt.last_name AS patient_last_name,
			a.first_name AS doctor_first_name, a.middle_initial AS doctor_middle_initial,
			a.last_name AS doctor_last_name,
			p.date, p.method, p.status, p.amount
		FROM payments p
		JOIN examinations e ON e.id = p.examination_id
		JOIN patients pt ON pt.id = e.patient_id
		JOIN accounts a ON a.id = e.attending_doctor_id
		WHERE p.date >= $1 AND p.date < $2
		ORDER BY p.date, p.id
	`
	rows := []model.PaymentRow{}
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, mapError(err, "list payment rows")
	}
	return rows, nil
}

func (r *reportRepository) CountPatientsExamined(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(DISTINCT patient_id) FROM examinations
		WHERE created_at >= $1 AND created_at < $2`, from, to)
	if err != nil {
		return 0, mapError(err, "count examined patients")
	}
	return n, nil
}
