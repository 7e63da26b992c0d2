package model

import "time"

type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "Cash"
	PaymentMethodGcash PaymentMethod = "Gcash"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusPending PaymentStatus = "Pending"
)

type Payment struct {
	ID            int64         `db:"id" json:"id"`
	ExaminationID int64         `db:"examination_id" json:"examination_id"`
	Amount        Money         `db:"amount" json:"amount"`
	Date          time.Time     `db:"date" json:"date"`
	Method        PaymentMethod `db:"method" json:"method"`
	Status        PaymentStatus `db:"status" json:"status"`
}

type PaymentInput struct {
	Amount Money  `json:"amount" binding:"gte=0"`
	Method string `json:"method" binding:"required,payment_method"`
	Status string `json:"status" binding:"omitempty,payment_status"`
}

// MethodTotals sums amounts per payment method.
type MethodTotals struct {
	Cash  Money `json:"cash"`
	Gcash Money `json:"gcash"`
	Total Money `json:"total"`
}

func (t *MethodTotals) Add(method PaymentMethod, amount Money) {
	switch method {
	case PaymentMethodCash:
		t.Cash += amount
	case PaymentMethodGcash:
		t.Gcash += amount
	}
	t.Total += amount
}

type PaymentSummary struct {
	Daily            MethodTotals `json:"daily"`
	Weekly           MethodTotals `json:"weekly"`
	PatientsToday    int          `json:"patients_today"`
	PatientsThisWeek int          `json:"patients_this_week"`
	GeneratedAt      time.Time    `json:"generated_at"`
}

// PaymentRow is one payment joined with its examination, patient and doctor.
type PaymentRow struct {
	PaymentID         int64         `db:"payment_id"`
	ExaminationID     int64         `db:"examination_id"`
	SequenceNo        int           `db:"sequence_no"`
	ExamCreatedAt     time.Time     `db:"exam_created_at"`
	PatientFirstName  string        `db:"patient_first_name"`
	PatientMiddleName string        `db:"patient_middle_name"`
	PatientLastName   string        `db:"patient_last_name"`
	DoctorFirstName   string        `db:"doctor_first_name"`
	DoctorMiddle      string        `db:"doctor_middle_initial"`
	DoctorLastName    string        `db:"doctor_last_name"`
	Date              time.Time     `db:"date"`
	Method            PaymentMethod `db:"method"`
	Status            PaymentStatus `db:"status"`
	Amount            Money         `db:"amount"`
}

type PaymentReportFilter struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}
