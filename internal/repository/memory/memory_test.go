package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New("sequence")
	repos := store.Repos()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx repository.Repositories) error {
		require.NoError(t, tx.Patients.Create(ctx, &model.Patient{FirstName: "Ana", LastName: "Lim"}))
		_, err := tx.FileNumbers.Next(ctx, time.Now())
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := repos.Patients.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	seq, err := repos.FileNumbers.Next(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

func TestAccountConstraints(t *testing.T) {
	ctx := context.Background()
	accounts := New("").Repos().Accounts

	first := &model.Account{Email: "doc@chmc.ph", IsClinicDoctor: true}
	require.NoError(t, accounts.Create(ctx, first))

	err := accounts.Create(ctx, &model.Account{Email: "DOC@chmc.ph"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	err = accounts.Create(ctx, &model.Account{Email: "other@chmc.ph", IsClinicDoctor: true})
	assert.ErrorIs(t, err, repository.ErrClinicDoctorExists)

	exists, err := accounts.ClinicDoctorExists(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPatientSearch(t *testing.T) {
	ctx := context.Background()
	patients := New("").Repos().Patients

	for _, p := range []*model.Patient{
		{FirstName: "Juan", MiddleName: "Dela", LastName: "Cruz"},
		{FirstName: "Maria", MiddleName: "Santos", LastName: "Reyes"},
		{FirstName: "Juana", LastName: "Reyes"},
	} {
		require.NoError(t, patients.Create(ctx, p))
	}

	testCases := []struct {
		query string
		want  []int64
	}{
		{"", nil},
		{"   ", nil},
		{"reyes", []int64{2, 3}},
		{"juan", []int64{1, 3}},
		{"2", []int64{2}},
		{"juan cruz", []int64{1}},
		{"juan dela cruz", []int64{1}},
		{"maria santos reyes", []int64{2}},
	}
	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			got, err := patients.Search(ctx, tc.query, 10)
			require.NoError(t, err)
			var ids []int64
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestCountNumbering(t *testing.T) {
	ctx := context.Background()
	store := New("count")
	repos := store.Repos()

	jan := time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)
	store.Insert(model.Examination{PatientID: 1, AttendingDoctorID: 1, CreatedAt: jan})
	store.Insert(model.Examination{PatientID: 1, AttendingDoctorID: 1, CreatedAt: jan.AddDate(-1, 0, 0)})

	seq, err := repos.FileNumbers.Next(ctx, jan)
	require.NoError(t, err)
	assert.Equal(t, 2, seq)
}

func TestCountNumberingRepeatsBeforeInsert(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

	// Two creates racing past allocation both see the same row count.
	count := New("count").Repos().FileNumbers
	a, err := count.Next(ctx, at)
	require.NoError(t, err)
	b, err := count.Next(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, a, b)

	sequence := New("sequence").Repos().FileNumbers
	a, err = sequence.Next(ctx, at)
	require.NoError(t, err)
	b, err = sequence.Next(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	store := New("")
	outbox := store.Repos().Outbox

	event := &model.OutboxEvent{EventType: "examination.created", Payload: []byte(`{}`)}
	require.NoError(t, outbox.Create(ctx, event))

	pending, err := outbox.GetPendingEventsWithLock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	later := time.Now().Add(time.Hour)
	require.NoError(t, outbox.UpdateStatus(ctx, event.ID, model.OutboxStatusRetry, nil, &later))
	pending, err = outbox.GetPendingEventsWithLock(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, outbox.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil))
	n, err := outbox.DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Empty(t, store.OutboxEvents())
}
