package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
	"github.com/chmc/wbms-api/internal/repository/memory"
)

func newService() *Service {
	repos := memory.New("sequence").Repos()
	return NewService(repos.ServiceTypes, repos.Appointments)
}

func TestServiceTypes(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for _, name := range []string{" X-Ray ", "ECG", "Urinalysis"} {
		_, err := svc.CreateServiceType(ctx, &model.CreateServiceTypeRequest{Name: name})
		require.NoError(t, err)
	}

	types, err := svc.ListServiceTypes(ctx)
	require.NoError(t, err)
	names := make([]string, len(types))
	for i, st := range types {
		names[i] = st.Name
	}
	assert.Equal(t, []string{"ECG", "Urinalysis", "X-Ray"}, names)
}

func TestAppointments(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	xray, err := svc.CreateServiceType(ctx, &model.CreateServiceTypeRequest{Name: "X-Ray"})
	require.NoError(t, err)

	late, err := svc.CreateAppointment(ctx, &model.CreateAppointmentRequest{
		ClientName: "Ana Lim", Date: "2025-03-05", Time: "14:30", ServiceTypeIDs: []int64{xray.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "14:30", late.AppointmentTime)
	require.Len(t, late.ServiceTypes, 1)

	_, err = svc.CreateAppointment(ctx, &model.CreateAppointmentRequest{ClientName: "Ben Go", Date: "2025-03-05", Time: "08:00"})
	require.NoError(t, err)
	_, err = svc.CreateAppointment(ctx, &model.CreateAppointmentRequest{ClientName: "Cy Tan", Date: "2025-03-09", Time: "09:00"})
	require.NoError(t, err)

	all, err := svc.ListAppointments(ctx, model.AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Ben Go", all[0].ClientName)
	assert.Equal(t, "Ana Lim", all[1].ClientName)

	day, err := svc.ListAppointments(ctx, model.AppointmentFilter{From: "2025-03-05", To: "2025-03-05"})
	require.NoError(t, err)
	assert.Len(t, day, 2)
}

func TestAppointmentErrors(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.CreateAppointment(ctx, &model.CreateAppointmentRequest{ClientName: "x", Date: "05/03/2025", Time: "08:00"})
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = svc.CreateAppointment(ctx, &model.CreateAppointmentRequest{ClientName: "x", Date: "2025-03-05", Time: "25:00"})
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = svc.CreateAppointment(ctx, &model.CreateAppointmentRequest{ClientName: "x", Date: "2025-03-05", Time: "08:00", ServiceTypeIDs: []int64{9}})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.ListAppointments(ctx, model.AppointmentFilter{From: "March"})
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}
