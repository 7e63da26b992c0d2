// Package memory is an in-process implementation of the repositories, used
// by tests and local tooling. Transactions snapshot the whole state and
// restore it when fn fails.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
	outboxrepo "github.com/chmc/wbms-api/pkg/repository"
)

type state struct {
	accounts     map[int64]model.Account
	patients     map[int64]model.Patient
	exams        map[int64]model.Examination
	examTypes    map[int64][]int64
	payments     map[int64]model.Payment
	serviceTypes map[int64]model.ServiceType
	appts        map[int64]model.Appointment
	apptTypes    map[int64][]int64
	outbox       map[uuid.UUID]model.OutboxEvent
	deadLetter   map[uuid.UUID]model.OutboxEvent
	sequences    map[int]int
	ids          map[string]int64
}

func newState() *state {
	return &state{
		accounts:     map[int64]model.Account{},
		patients:     map[int64]model.Patient{},
		exams:        map[int64]model.Examination{},
		examTypes:    map[int64][]int64{},
		payments:     map[int64]model.Payment{},
		serviceTypes: map[int64]model.ServiceType{},
		appts:        map[int64]model.Appointment{},
		apptTypes:    map[int64][]int64{},
		outbox:       map[uuid.UUID]model.OutboxEvent{},
		deadLetter:   map[uuid.UUID]model.OutboxEvent{},
		sequences:    map[int]int{},
		ids:          map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.exams {
		c.exams[k] = v
	}
	for k, v := range s.examTypes {
		c.examTypes[k] = append([]int64(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.serviceTypes {
		c.serviceTypes[k] = v
	}
	for k, v := range s.appts {
		c.appts[k] = v
	}
	for k, v := range s.apptTypes {
		c.apptTypes[k] = append([]int64(nil), v...)
	}
	for k, v := range s.outbox {
		c.outbox[k] = v
	}
	for k, v := range s.deadLetter {
		c.deadLetter[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	for k, v := range s.ids {
		c.ids[k] = v
	}
	return c
}

func (s *state) nextID(table string) int64 {
	s.ids[table]++
	return s.ids[table]
}

// Store holds the data behind every repository.
type Store struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	data      *state
	numbering string
	now       func() time.Time
}

func New(numbering string) *Store {
	return &Store{data: newState(), numbering: numbering, now: time.Now}
}

// SetClock replaces the time source used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Repos() repository.Repositories {
	exams := &examinations{s}
	var numbers repository.FileNumberAllocator = &sequences{s}
	if s.numbering == "count" {
		numbers = &countNumbers{exams}
	}
	return repository.Repositories{
		Accounts:     &accounts{s},
		Patients:     &patients{s},
		Examinations: exams,
		Payments:     &payments{s},
		ServiceTypes: &serviceTypes{s},
		Appointments: &appointments{s},
		Reports:      &reports{s},
		Outbox:       &outbox{s},
		FileNumbers:  numbers,
	}
}

// WithTx serialises transactions and rolls the state back when fn fails or
// panics.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Repositories) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
	}()
	if err = fn(s.Repos()); err != nil {
		s.restore(snapshot)
	}
	return err
}

func (s *Store) WithOutboxTx(ctx context.Context, fn func(outboxrepo.OutboxRepository) error) error {
	return s.WithTx(ctx, func(repos repository.Repositories) error {
		return fn(repos.Outbox)
	})
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// DeadLetters returns the dead-lettered outbox events.
func (s *Store) DeadLetters() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OutboxEvent, 0, len(s.data.deadLetter))
	for _, e := range s.data.deadLetter {
		out = append(out, e)
	}
	return out
}

// OutboxEvents returns every outbox event ordered by creation.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OutboxEvent, 0, len(s.data.outbox))
	for _, e := range s.data.outbox {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) lock() (*state, func()) {
	s.mu.Lock()
	return s.data, s.mu.Unlock
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func contains(value, token string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(token))
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

func matchesSearch(p model.Patient, tokens []string) bool {
	switch len(tokens) {
	case 0:
		return false
	case 1:
		t := tokens[0]
		if contains(p.FirstName, t) || contains(p.MiddleName, t) || contains(p.LastName, t) {
			return true
		}
		return isDigits(t) && strings.Contains(strconv.FormatInt(p.ID, 10), t)
	}
	if contains(p.FirstName, tokens[0]) && contains(p.LastName, tokens[1]) {
		return true
	}
	return len(tokens) >= 3 &&
		contains(p.FirstName, tokens[0]) && contains(p.MiddleName, tokens[1]) && contains(p.LastName, tokens[2])
}

func yearBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(1, 0, 0)
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

var _ repository.Transactor = (*Store)(nil)
