package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

const patientColumns = `
	id, first_name, middle_name, last_name, age, sex, address,
	contact_number, image_path, created_at, updated_at`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			first_name, middle_name, last_name, age, sex, address,
			contact_number, image_path, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`
	now := time.Now()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, query,
		patient.FirstName,
		patient.MiddleName,
		patient.LastName,
		patient.Age,
		patient.Sex,
		patient.Address,
		patient.ContactNumber,
		patient.ImagePath,
		now,
	).Scan(&patient.ID)
	return mapError(err, "create patient")
}

func (r *patientRepository) Get(ctx context.Context, id int64) (*model.Patient, error) {
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id); err != nil {
		return nil, mapError(err, "get patient")
	}
	return &patient, nil
}

func (r *patientRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*model.Patient, error) {
	out := make(map[int64]*model.Patient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := r.in(`SELECT `+patientColumns+` FROM patients WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build patient query: %w", err)
	}
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, mapError(err, "list patients by id")
	}
	for _, p := range patients {
		out[p.ID] = p
	}
	return out, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET first_name = $1, middle_name = $2, last_name = $3, age = $4, sex = $5,
			address = $6, contact_number = $7, updated_at = $8
		WHERE id = $9
	`
	patient.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query,
		patient.FirstName,
		patient.MiddleName,
		patient.LastName,
		patient.Age,
		patient.Sex,
		patient.Address,
		patient.ContactNumber,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return mapError(err, "update patient")
	}
	return expectRows(result, "update patient")
}

func (r *patientRepository) SetImage(ctx context.Context, id int64, path string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE patients SET image_path = $1, updated_at = NOW() WHERE id = $2`, path, id)
	if err != nil {
		return mapError(err, "set patient image")
	}
	return expectRows(result, "set patient image")
}

func (r *patientRepository) List(ctx context.Context, page model.Pagination) ([]*model.Patient, error) {
	patients := []*model.Patient{}
	err := r.db.SelectContext(ctx, &patients,
		`SELECT `+patientColumns+` FROM patients ORDER BY id LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, mapError(err, "list patients")
	}
	return patients, nil
}

func (r *patientRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM patients`); err != nil {
		return 0, mapError(err, "count patients")
	}
	return n, nil
}

func (r *patientRepository) Search(ctx context.Context, query string, limit int) ([]*model.Patient, error) {
	where, args := searchCondition(strings.Fields(query))
	if where == "" {
		return []*model.Patient{}, nil
	}
	args = append(args, limit)
	sqlQuery := fmt.Sprintf(`SELECT %s FROM patients WHERE %s ORDER BY id LIMIT $%d`, patientColumns, where, len(args))

	patients := []*model.Patient{}
	if err := r.db.SelectContext(ctx, &patients, sqlQuery, args...); err != nil {
		return nil, mapError(err, "search patients")
	}
	return patients, nil
}

// searchCondition builds the WHERE clause for a tokenised name query:
//
//	1 token:  first, middle or last contains it (or the id does, when numeric)
//	2 tokens: first contains t0 and last contains t1
//	3+:       the above, or first~t0, middle~t1, last~t2
func searchCondition(tokens []string) (string, []interface{}) {
	if len(tokens) == 0 {
		return "", nil
	}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	like := func(column, token string) string {
		return fmt.Sprintf("%s ILIKE %s", column, arg(containsPattern(token)))
	}

	if len(tokens) == 1 {
		t := tokens[0]
		parts := []string{
			like("first_name", t),
			like("middle_name", t),
			like("last_name", t),
		}
		if isDigits(t) {
			parts = append(parts, fmt.Sprintf("id::text LIKE %s", arg(containsPattern(t))))
		}
		return "(" + strings.Join(parts, " OR ") + ")", args
	}

	cond := fmt.Sprintf("(%s AND %s)", like("first_name", tokens[0]), like("last_name", tokens[1]))
	if len(tokens) > 2 {
		cond = fmt.Sprintf("(%s OR (%s AND %s AND %s))", cond,
			like("first_name", tokens[0]), like("middle_name", tokens[1]), like("last_name", tokens[2]))
	}
	return cond, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(token string) string {
	return "%" + likeEscaper.Replace(token) + "%"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
