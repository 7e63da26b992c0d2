package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

const examinationColumns = `
	id, patient_id, attending_doctor_id, sequence_no, document_path,
	edited_document_path, edited_document_hash, result_image_path,
	unique_code, created_at, updated_at`

type examinationRepository struct {
	BaseRepository
}

func NewExaminationRepository(base BaseRepository) repository.ExaminationRepository {
	return &examinationRepository{base}
}

func (r *examinationRepository) Create(ctx context.Context, exam *model.Examination) error {
	query := `
		INSERT INTO examinations (patient_id, attending_doctor_id, sequence_no, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = time.Now()
	}
	exam.UpdatedAt = exam.CreatedAt
	err := r.db.QueryRowxContext(ctx, query,
		exam.PatientID,
		exam.AttendingDoctorID,
		exam.SequenceNo,
		exam.CreatedAt,
	).Scan(&exam.ID)
	return mapError(err, "create examination")
}

func (r *examinationRepository) Get(ctx context.Context, id int64) (*model.Examination, error) {
	var exam model.Examination
	if err := r.db.GetContext(ctx, &exam, `SELECT `+examinationColumns+` FROM examinations WHERE id = $1`, id); err != nil {
		return nil, mapError(err, "get examination")
	}
	return &exam, nil
}

func (r *examinationRepository) List(ctx context.Context) ([]*model.Examination, error) {
	exams := []*model.Examination{}
	err := r.db.SelectContext(ctx, &exams,
		`SELECT `+examinationColumns+` FROM examinations ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, mapError(err, "list examinations")
	}
	return exams, nil
}

func (r *examinationRepository) SetDocument(ctx context.Context, id int64, path, uniqueCode string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE examinations
		SET document_path = $1, unique_code = $2, updated_at = NOW()
		WHERE id = $3`, path, uniqueCode, id)
	if err != nil {
		return mapError(err, "set examination document")
	}
	return expectRows(result, "set examination document")
}

func (r *examinationRepository) SetEditedDocument(ctx context.Context, id int64, path, hash string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE examinations
		SET edited_document_path = $1, edited_document_hash = $2, updated_at = NOW()
		WHERE id = $3`, path, hash, id)
	if err != nil {
		return mapError(err, "set edited document")
	}
	return expectRows(result, "set edited document")
}

func (r *examinationRepository) SetResultImage(ctx context.Context, id int64, path string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE examinations SET result_image_path = $1, updated_at = NOW() WHERE id = $2`, path, id)
	if err != nil {
		return mapError(err, "set result image")
	}
	return expectRows(result, "set result image")
}

func (r *examinationRepository) SetServiceTypes(ctx context.Context, id int64, serviceTypeIDs []int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM examination_service_types WHERE examination_id = $1`, id); err != nil {
		return mapError(err, "clear examination service types")
	}
	for _, stID := range serviceTypeIDs {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO examination_service_types (examination_id, service_type_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, stID); err != nil {
			return mapError(err, "add examination service type")
		}
	}
	return nil
}

type examServiceTypeRow struct {
	ExaminationID int64 `db:"examination_id"`
	model.ServiceType
}

func (r *examinationRepository) ServiceTypes(ctx context.Context, ids []int64) (map[int64][]model.ServiceType, error) {
	out := make(map[int64][]model.ServiceType, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := r.in(`
		SELECT est.examination_id, st.id, st.name, st.created_at
		FROM examination_service_types est
		JOIN service_types st ON st.id = est.service_type_id
		WHERE est.examination_id IN (?)
		ORDER BY est.examination_id, st.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build service type query: %w", err)
	}
	var rows []examServiceTypeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err, "list examination service types")
	}
	for _, row := range rows {
		out[row.ExaminationID] = append(out[row.ExaminationID], row.ServiceType)
	}
	return out, nil
}

func (r *examinationRepository) FindByUniqueCode(ctx context.Context, code string) (*model.Examination, error) {
	var exam model.Examination
	err := r.db.GetContext(ctx, &exam, `SELECT `+examinationColumns+` FROM examinations WHERE unique_code = $1`, code)
	if err != nil {
		return nil, mapError(err, "find examination by code")
	}
	return &exam, nil
}

func (r *examinationRepository) ListWithoutUniqueCode(ctx context.Context) ([]*model.Examination, error) {
	exams := []*model.Examination{}
	err := r.db.SelectContext(ctx, &exams,
		`SELECT `+examinationColumns+` FROM examinations WHERE unique_code IS NULL ORDER BY id`)
	if err != nil {
		return nil, mapError(err, "list legacy examinations")
	}
	return exams, nil
}

func (r *examinationRepository) CountInYear(ctx context.Context, t time.Time) (int, error) {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM examinations WHERE created_at >= $1 AND created_at < $2`,
		start, start.AddDate(1, 0, 0))
	if err != nil {
		return 0, mapError(err, "count examinations in year")
	}
	return n, nil
}

func (r *examinationRepository) Touch(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE examinations SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "touch examination")
	}
	return expectRows(result, "touch examination")
}
