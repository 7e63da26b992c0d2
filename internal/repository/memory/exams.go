package memory

import (
	"context"
	"sort"
	"time"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

func deleteExam(d *state, id int64) {
	delete(d.exams, id)
	delete(d.examTypes, id)
	for pid, p := range d.payments {
		if p.ExaminationID == id {
			delete(d.payments, pid)
		}
	}
}

type examinations struct{ s *Store }

func (r *examinations) Create(_ context.Context, e *model.Examination) error {
	d, unlock := r.s.lock()
	defer unlock()
	if _, ok := d.patients[e.PatientID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := d.accounts[e.AttendingDoctorID]; !ok {
		return repository.ErrNotFound
	}
	e.ID = d.nextID("examinations")
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.s.now()
	}
	e.UpdatedAt = e.CreatedAt
	d.exams[e.ID] = *e
	return nil
}

func (r *examinations) Get(_ context.Context, id int64) (*model.Examination, error) {
	d, unlock := r.s.lock()
	defer unlock()
	e, ok := d.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *examinations) List(context.Context) ([]*model.Examination, error) {
	d, unlock := r.s.lock()
	defer unlock()
	out := []*model.Examination{}
	for _, id := range sortedIDs(d.exams) {
		e := d.exams[id]
		out = append(out, &e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *examinations) update(id int64, fn func(*model.Examination) error) error {
	d, unlock := r.s.lock()
	defer unlock()
	e, ok := d.exams[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(&e); err != nil {
		return err
	}
	e.UpdatedAt = r.s.now()
	d.exams[id] = e
	return nil
}

func (r *examinations) SetDocument(_ context.Context, id int64, path, uniqueCode string) error {
	d, unlock := r.s.lock()
	for otherID, other := range d.exams {
		if otherID != id && other.UniqueCode != nil && *other.UniqueCode == uniqueCode {
			unlock()
			return repository.ErrDuplicateCode
		}
	}
	unlock()
	return r.update(id, func(e *model.Examination) error {
		e.DocumentPath = &path
		e.UniqueCode = &uniqueCode
		return nil
	})
}

func (r *examinations) SetEditedDocument(_ context.Context, id int64, path, hash string) error {
	return r.update(id, func(e *model.Examination) error {
		e.EditedDocumentPath = &path
		e.EditedDocumentHash = &hash
		return nil
	})
}

func (r *examinations) SetResultImage(_ context.Context, id int64, path string) error {
	return r.update(id, func(e *model.Examination) error {
		e.ResultImagePath = &path
		return nil
	})
}

func (r *examinations) SetServiceTypes(_ context.Context, id int64, serviceTypeIDs []int64) error {
	d, unlock := r.s.lock()
	defer unlock()
	if _, ok := d.exams[id]; !ok {
		return repository.ErrNotFound
	}
	seen := map[int64]bool{}
	ids := []int64{}
	for _, stID := range serviceTypeIDs {
		if _, ok := d.serviceTypes[stID]; !ok {
			return repository.ErrNotFound
		}
		if !seen[stID] {
			seen[stID] = true
			ids = append(ids, stID)
		}
	}
	d.examTypes[id] = ids
	return nil
}

func (r *examinations) ServiceTypes(_ context.Context, ids []int64) (map[int64][]model.ServiceType, error) {
	d, unlock := r.s.lock()
	defer unlock()
	out := make(map[int64][]model.ServiceType, len(ids))
	for _, id := range ids {
		stIDs := append([]int64(nil), d.examTypes[id]...)
		sort.Slice(stIDs, func(i, j int) bool { return stIDs[i] < stIDs[j] })
		for _, stID := range stIDs {
			out[id] = append(out[id], d.serviceTypes[stID])
		}
	}
	return out, nil
}

func (r *examinations) FindByUniqueCode(_ context.Context, code string) (*model.Examination, error) {
	d, unlock := r.s.lock()
	defer unlock()
	for _, e := range d.exams {
		if e.UniqueCode != nil && *e.UniqueCode == code {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *examinations) ListWithoutUniqueCode(context.Context) ([]*model.Examination, error) {
	d, unlock := r.s.lock()
	defer unlock()
	out := []*model.Examination{}
	for _, id := range sortedIDs(d.exams) {
		e := d.exams[id]
		if e.UniqueCode == nil {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *examinations) CountInYear(_ context.Context, t time.Time) (int, error) {
	d, unlock := r.s.lock()
	defer unlock()
	from, to := yearBounds(t)
	n := 0
	for _, e := range d.exams {
		if within(e.CreatedAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (r *examinations) Touch(_ context.Context, id int64) error {
	return r.update(id, func(*model.Examination) error { return nil })
}

// Insert stores e as-is, keeping its id, sequence and timestamps. It seeds
// legacy rows in tests.
func (s *Store) Insert(e model.Examination) int64 {
	d, unlock := s.lock()
	defer unlock()
	if e.ID == 0 {
		e.ID = d.nextID("examinations")
	} else if e.ID > d.ids["examinations"] {
		d.ids["examinations"] = e.ID
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	d.exams[e.ID] = e
	return e.ID
}

type payments struct{ s *Store }

func (r *payments) Create(_ context.Context, p *model.Payment) error {
	d, unlock := r.s.lock()
	defer unlock()
	if _, ok := d.exams[p.ExaminationID]; !ok {
		return repository.ErrNotFound
	}
	if p.Date.IsZero() {
		p.Date = r.s.now()
	}
	if p.Status == "" {
		p.Status = model.PaymentStatusPending
	}
	p.ID = d.nextID("payments")
	d.payments[p.ID] = *p
	return nil
}

func (r *payments) Update(_ context.Context, p *model.Payment) error {
	d, unlock := r.s.lock()
	defer unlock()
	existing, ok := d.payments[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Amount = p.Amount
	existing.Method = p.Method
	existing.Status = p.Status
	d.payments[p.ID] = existing
	return nil
}

func (r *payments) FirstByExamination(_ context.Context, examIDs []int64) (map[int64]*model.Payment, error) {
	d, unlock := r.s.lock()
	defer unlock()
	wanted := make(map[int64]bool, len(examIDs))
	for _, id := range examIDs {
		wanted[id] = true
	}
	out := make(map[int64]*model.Payment, len(examIDs))
	for _, id := range sortedIDs(d.payments) {
		p := d.payments[id]
		if wanted[p.ExaminationID] && out[p.ExaminationID] == nil {
			out[p.ExaminationID] = &p
		}
	}
	return out, nil
}

type sequences struct{ s *Store }

func (a *sequences) Next(_ context.Context, createdAt time.Time) (int, error) {
	d, unlock := a.s.lock()
	defer unlock()
	d.sequences[createdAt.Year()]++
	return d.sequences[createdAt.Year()], nil
}

type countNumbers struct{ exams *examinations }

func (a *countNumbers) Next(ctx context.Context, createdAt time.Time) (int, error) {
	n, err := a.exams.CountInYear(ctx, createdAt)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}
