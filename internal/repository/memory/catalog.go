package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

type serviceTypes struct{ s *Store }

func (r *serviceTypes) Create(_ context.Context, st *model.ServiceType) error {
	d, unlock := r.s.lock()
	defer unlock()
	st.ID = d.nextID("service_types")
	st.CreatedAt = r.s.now()
	d.serviceTypes[st.ID] = *st
	return nil
}

func (r *serviceTypes) List(context.Context) ([]model.ServiceType, error) {
	d, unlock := r.s.lock()
	defer unlock()
	out := []model.ServiceType{}
	for _, id := range sortedIDs(d.serviceTypes) {
		out = append(out, d.serviceTypes[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *serviceTypes) GetMany(_ context.Context, ids []int64) ([]model.ServiceType, error) {
	d, unlock := r.s.lock()
	defer unlock()
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := []model.ServiceType{}
	for _, id := range sortedIDs(d.serviceTypes) {
		if wanted[id] {
			out = append(out, d.serviceTypes[id])
		}
	}
	return out, nil
}

type appointments struct{ s *Store }

func (r *appointments) Create(_ context.Context, a *model.Appointment, serviceTypeIDs []int64) error {
	d, unlock := r.s.lock()
	defer unlock()
	for _, id := range serviceTypeIDs {
		if _, ok := d.serviceTypes[id]; !ok {
			return repository.ErrNotFound
		}
	}
	a.ID = d.nextID("appointments")
	a.CreatedAt = r.s.now()
	stored := *a
	stored.ServiceTypes = nil
	d.appts[a.ID] = stored
	d.apptTypes[a.ID] = append([]int64(nil), serviceTypeIDs...)
	return nil
}

func (r *appointments) List(_ context.Context, from, to *time.Time) ([]*model.Appointment, error) {
	d, unlock := r.s.lock()
	defer unlock()
	out := []*model.Appointment{}
	for _, id := range sortedIDs(d.appts) {
		a := d.appts[id]
		if from != nil && a.AppointmentDate.Before(*from) {
			continue
		}
		if to != nil && a.AppointmentDate.After(*to) {
			continue
		}
		a.ServiceTypes = []model.ServiceType{}
		for _, stID := range d.apptTypes[id] {
			a.ServiceTypes = append(a.ServiceTypes, d.serviceTypes[stID])
		}
		out = append(out, &a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AppointmentDate.Equal(out[j].AppointmentDate) {
			return out[i].AppointmentDate.Before(out[j].AppointmentDate)
		}
		return out[i].AppointmentTime < out[j].AppointmentTime
	})
	return out, nil
}

type reports struct{ s *Store }

func (r *reports) PaymentRows(_ context.Context, from, to time.Time) ([]model.PaymentRow, error) {
	d, unlock := r.s.lock()
	defer unlock()
	rows := []model.PaymentRow{}
	for _, id := range sortedIDs(d.payments) {
		p := d.payments[id]
		if !within(p.Date, from, to) {
			continue
		}
		e := d.exams[p.ExaminationID]
		pt := d.patients[e.PatientID]
		doc := d.accounts[e.AttendingDoctorID]
		rows = append(rows, model.PaymentRow{
			PaymentID:         p.ID,
			ExaminationID:     e.ID,
			SequenceNo:        e.SequenceNo,
			ExamCreatedAt:     e.CreatedAt,
			PatientFirstName:  pt.FirstName,
			PatientMiddleName: pt.MiddleName,
			PatientLastName:   pt.LastName,
			DoctorFirstName:   doc.FirstName,
			DoctorMiddle:      doc.MiddleInitial,
			DoctorLastName:    doc.LastName,
			Date:              p.Date,
			Method:            p.Method,
			Status:            p.Status,
			Amount:            p.Amount,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func (r *reports) CountPatientsExamined(_ context.Context, from, to time.Time) (int, error) {
	d, unlock := r.s.lock()
	defer unlock()
	seen := map[int64]bool{}
	for _, e := range d.exams {
		if within(e.CreatedAt, from, to) {
			seen[e.PatientID] = true
		}
	}
	return len(seen), nil
}

type outbox struct{ s *Store }

func (r *outbox) Create(_ context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	d, unlock := r.s.lock()
	defer unlock()
	event.ID = uuid.New()
	event.CreatedAt = r.s.now()
	event.UpdatedAt = event.CreatedAt
	event.Status = model.OutboxStatusPending
	d.outbox[event.ID] = *event
	return nil
}

func (r *outbox) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	d, unlock := r.s.lock()
	defer unlock()
	now := r.s.now()
	var out []*model.OutboxEvent
	for _, e := range d.outbox {
		if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusRetry {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outbox) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	d, unlock := r.s.lock()
	defer unlock()
	e, ok := d.outbox[id]
	if !ok {
		return nil
	}
	now := r.s.now()
	e.Status = status
	e.ErrorMessage = errorMessage
	e.RetryAt = retryAt
	if status == model.OutboxStatusRetry {
		e.RetryCount++
	}
	if status == model.OutboxStatusProcessed {
		e.ProcessedAt = &now
	}
	e.UpdatedAt = now
	d.outbox[id] = e
	return nil
}

func (r *outbox) MoveToDeadLetter(_ context.Context, event *model.OutboxEvent) error {
	d, unlock := r.s.lock()
	defer unlock()
	if _, ok := d.deadLetter[event.ID]; !ok {
		d.deadLetter[event.ID] = *event
	}
	return nil
}

func (r *outbox) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	d, unlock := r.s.lock()
	defer unlock()
	var n int64
	for id, e := range d.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(d.outbox, id)
			n++
		}
	}
	return n, nil
}
