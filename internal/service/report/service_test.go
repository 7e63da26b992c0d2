package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository/memory"
)

type fixture struct {
	svc    *Service
	store  *memory.Store
	doctor int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New("sequence")
	repos := store.Repos()
	doctor := &model.Account{Email: "reyes@chmc.ph", FirstName: "Maria", MiddleInitial: "S", LastName: "Reyes", IsAssociatedDoctor: true}
	require.NoError(t, repos.Accounts.Create(context.Background(), doctor))
	return &fixture{svc: NewService(repos.Reports, repos.Examinations), store: store, doctor: doctor.ID}
}

func (f *fixture) patient(t *testing.T, first, last string) int64 {
	t.Helper()
	p := &model.Patient{FirstName: first, MiddleName: "Dela", LastName: last, Age: 30, Sex: model.SexMale}
	require.NoError(t, f.store.Repos().Patients.Create(context.Background(), p))
	return p.ID
}

func (f *fixture) exam(t *testing.T, patientID int64, seq int, at time.Time, method model.PaymentMethod, amount model.Money) {
	t.Helper()
	id := f.store.Insert(model.Examination{PatientID: patientID, AttendingDoctorID: f.doctor, SequenceNo: seq, CreatedAt: at})
	require.NoError(t, f.store.Repos().Payments.Create(context.Background(), &model.Payment{
		ExaminationID: id, Amount: amount, Date: at, Method: method, Status: model.PaymentStatusPaid,
	}))
}

func day(d, hour int) time.Time {
	return time.Date(2025, time.March, d, hour, 0, 0, 0, time.Local)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ana := f.patient(t, "Ana", "Lim")
	ben := f.patient(t, "Ben", "Go")

	f.exam(t, ana, 1, day(2, 10), model.PaymentMethodCash, 2000)  // previous Sunday
	f.exam(t, ben, 2, day(3, 8), model.PaymentMethodGcash, 5000)  // Monday
	f.exam(t, ana, 3, day(5, 9), model.PaymentMethodCash, 10000)  // today
	f.exam(t, ana, 4, day(5, 11), model.PaymentMethodGcash, 2500) // today, same patient

	summary, err := f.svc.Summary(context.Background(), day(5, 15))
	require.NoError(t, err)
	assert.Equal(t, model.MethodTotals{Cash: 10000, Gcash: 2500, Total: 12500}, summary.Daily)
	assert.Equal(t, model.MethodTotals{Cash: 10000, Gcash: 7500, Total: 17500}, summary.Weekly)
	assert.Equal(t, 1, summary.PatientsToday)
	assert.Equal(t, 2, summary.PatientsThisWeek)

	sunday, err := f.svc.Summary(context.Background(), day(9, 20))
	require.NoError(t, err)
	assert.Equal(t, model.Money(17500), sunday.Weekly.Total)
	assert.Zero(t, sunday.Daily.Total)
}

func TestExportPayments(t *testing.T) {
	f := newFixture(t)
	ana := f.patient(t, "Ana", "Lim")
	f.exam(t, ana, 7, day(4, 9), model.PaymentMethodCash, 150050)
	f.exam(t, ana, 0, time.Date(2024, time.June, 1, 9, 0, 0, 0, time.Local), model.PaymentMethodGcash, 100)
	f.exam(t, ana, 8, day(20, 9), model.PaymentMethodCash, 100)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportPayments(context.Background(), &buf, model.PaymentReportFilter{To: "2025-03-04"}))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)
	sheet := file.Sheets[0]
	assert.Equal(t, SheetName, sheet.Name)
	require.Len(t, sheet.Rows, 3)

	values := func(r *xlsx.Row) []string {
		out := make([]string, 0, len(r.Cells))
		for _, c := range r.Cells[:6] {
			out = append(out, c.Value)
		}
		return out
	}
	assert.Equal(t, header[:6], values(sheet.Rows[0]))
	assert.Equal(t, []string{"24-02", "Ana D. Lim", "Maria S. Reyes", "2024-06-01 09:00", "Gcash", "Paid"}, values(sheet.Rows[1]))
	assert.Equal(t, []string{"25-07", "Ana D. Lim", "Maria S. Reyes", "2025-03-04 09:00", "Cash", "Paid"}, values(sheet.Rows[2]))

	amount, err := sheet.Rows[2].Cells[6].Float()
	require.NoError(t, err)
	assert.InDelta(t, 1500.50, amount, 0.001)
}

func TestExportPaymentsInvalidRange(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer

	err := f.svc.ExportPayments(context.Background(), &buf, model.PaymentReportFilter{From: "2025-13-01"})
	assert.ErrorIs(t, err, ErrInvalidRange)

	err = f.svc.ExportPayments(context.Background(), &buf, model.PaymentReportFilter{From: "2025-03-05", To: "2025-03-01"})
	assert.ErrorIs(t, err, ErrInvalidRange)
}
