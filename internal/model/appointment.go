package model

import "time"

type Appointment struct {
	ID              int64         `db:"id" json:"id"`
	ClientName      string        `db:"client_name" json:"client_name"`
	Description     string        `db:"description" json:"description"`
	AppointmentDate time.Time     `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string        `db:"appointment_time" json:"appointment_time"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	ServiceTypes    []ServiceType `db:"-" json:"service_types"`
}

type CreateAppointmentRequest struct {
	ClientName     string  `json:"client_name" binding:"required,max=100"`
	Description    string  `json:"description"`
	Date           string  `json:"appointment_date" binding:"required,datetime=2006-01-02"`
	Time           string  `json:"appointment_time" binding:"required,datetime=15:04"`
	ServiceTypeIDs []int64 `json:"service_type_ids"`
}

type AppointmentFilter struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}
