package memory

import (
	"context"
	"strings"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

type accounts struct{ s *Store }

func (r *accounts) checkUnique(d *state, a *model.Account) error {
	for id, other := range d.accounts {
		if id == a.ID {
			continue
		}
		if strings.EqualFold(other.Email, a.Email) {
			return repository.ErrDuplicateEmail
		}
		if a.IsClinicDoctor && other.IsClinicDoctor {
			return repository.ErrClinicDoctorExists
		}
	}
	return nil
}

func (r *accounts) Create(_ context.Context, a *model.Account) error {
	d, unlock := r.s.lock()
	defer unlock()
	if err := r.checkUnique(d, a); err != nil {
		return err
	}
	a.ID = d.nextID("accounts")
	a.CreatedAt = r.s.now()
	a.UpdatedAt = a.CreatedAt
	d.accounts[a.ID] = *a
	return nil
}

func (r *accounts) Get(_ context.Context, id int64) (*model.Account, error) {
	d, unlock := r.s.lock()
	defer unlock()
	a, ok := d.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *accounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	d, unlock := r.s.lock()
	defer unlock()
	for _, a := range d.accounts {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accounts) GetMany(_ context.Context, ids []int64) (map[int64]*model.Account, error) {
	d, unlock := r.s.lock()
	defer unlock()
	out := make(map[int64]*model.Account, len(ids))
	for _, id := range ids {
		if a, ok := d.accounts[id]; ok {
			out[id] = &a
		}
	}
	return out, nil
}

func (r *accounts) Update(_ context.Context, a *model.Account) error {
	d, unlock := r.s.lock()
	defer unlock()
	existing, ok := d.accounts[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := r.checkUnique(d, a); err != nil {
		return err
	}
	a.IsSuperuser = existing.IsSuperuser
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = r.s.now()
	d.accounts[a.ID] = *a
	return nil
}

// Delete cascades to the examinations the account attended.
func (r *accounts) Delete(_ context.Context, id int64) error {
	d, unlock := r.s.lock()
	defer unlock()
	if _, ok := d.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(d.accounts, id)
	for examID, e := range d.exams {
		if e.AttendingDoctorID == id {
			deleteExam(d, examID)
		}
	}
	return nil
}

func (r *accounts) List(_ context.Context, filter model.AccountFilter) ([]*model.Account, error) {
	d, unlock := r.s.lock()
	defer unlock()
	out := []*model.Account{}
	for _, id := range sortedIDs(d.accounts) {
		a := d.accounts[id]
		if a.IsSuperuser {
			continue
		}
		var keep bool
		switch filter.Role {
		case "employee":
			keep = a.IsEmployee
		case "associated_doctor":
			keep = a.IsAssociatedDoctor
		case "clinic_doctor":
			keep = a.IsClinicDoctor
		default:
			keep = a.IsEmployee || a.IsDoctor()
		}
		if keep {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r *accounts) ClinicDoctorExists(_ context.Context, excludeID int64) (bool, error) {
	d, unlock := r.s.lock()
	defer unlock()
	for id, a := range d.accounts {
		if a.IsClinicDoctor && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type patients struct{ s *Store }

func (r *patients) Create(_ context.Context, p *model.Patient) error {
	d, unlock := r.s.lock()
	defer unlock()
	p.ID = d.nextID("patients")
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	d.patients[p.ID] = *p
	return nil
}

func (r *patients) Get(_ context.Context, id int64) (*model.Patient, error) {
	d, unlock := r.s.lock()
	defer unlock()
	p, ok := d.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *patients) GetMany(_ context.Context, ids []int64) (map[int64]*model.Patient, error) {
	d, unlock := r.s.lock()
	defer unlock()
	out := make(map[int64]*model.Patient, len(ids))
	for _, id := range ids {
		if p, ok := d.patients[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (r *patients) Update(_ context.Context, p *model.Patient) error {
	d, unlock := r.s.lock()
	defer unlock()
	existing, ok := d.patients[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.ImagePath = existing.ImagePath
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.s.now()
	d.patients[p.ID] = *p
	return nil
}

func (r *patients) SetImage(_ context.Context, id int64, path string) error {
	d, unlock := r.s.lock()
	defer unlock()
	p, ok := d.patients[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.ImagePath = &path
	p.UpdatedAt = r.s.now()
	d.patients[id] = p
	return nil
}

func (r *patients) List(_ context.Context, page model.Pagination) ([]*model.Patient, error) {
	d, unlock := r.s.lock()
	defer unlock()
	out := []*model.Patient{}
	for i, id := range sortedIDs(d.patients) {
		if i < page.Offset {
			continue
		}
		if page.Limit > 0 && len(out) >= page.Limit {
			break
		}
		p := d.patients[id]
		out = append(out, &p)
	}
	return out, nil
}

func (r *patients) Count(context.Context) (int64, error) {
	d, unlock := r.s.lock()
	defer unlock()
	return int64(len(d.patients)), nil
}

func (r *patients) Search(_ context.Context, query string, limit int) ([]*model.Patient, error) {
	d, unlock := r.s.lock()
	defer unlock()
	tokens := strings.Fields(query)
	out := []*model.Patient{}
	for _, id := range sortedIDs(d.patients) {
		if len(out) >= limit {
			break
		}
		p := d.patients[id]
		if matchesSearch(p, tokens) {
			out = append(out, &p)
		}
	}
	return out, nil
}
