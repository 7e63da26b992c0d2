package model

import (
	"fmt"
	"strconv"
)

type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
)

type Patient struct {
	ID            int64   `db:"id" json:"id"`
	FirstName     string  `db:"first_name" json:"first_name"`
	MiddleName    string  `db:"middle_name" json:"middle_name"`
	LastName      string  `db:"last_name" json:"last_name"`
	Age           int     `db:"age" json:"age"`
	Sex           Sex     `db:"sex" json:"sex"`
	Address       string  `db:"address" json:"address"`
	ContactNumber string  `db:"contact_number" json:"contact_number"`
	ImagePath     *string `db:"image_path" json:"image_path,omitempty"`
	Timestamps
}

func (p *Patient) FullNameWithMiddleInitial() string {
	return FullName(p.FirstName, p.MiddleName, p.LastName)
}

func (p *Patient) FullNameLastNameFirst() string {
	return FullNameLastFirst(p.FirstName, p.MiddleName, p.LastName)
}

// FormattedID zero-pads the id to one digit more than the width of total.
func (p *Patient) FormattedID(total int64) string {
	width := len(strconv.FormatInt(total, 10)) + 1
	return fmt.Sprintf("PID-%0*d", width, p.ID)
}

func (p *Patient) Summary() PatientSummary {
	return PatientSummary{
		ID:            p.ID,
		FirstName:     p.FirstName,
		MiddleName:    p.MiddleName,
		LastName:      p.LastName,
		Age:           p.Age,
		Sex:           p.Sex,
		ContactNumber: p.ContactNumber,
		Address:       p.Address,
	}
}

type PatientSummary struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	LastName      string `json:"last_name"`
	Age           int    `json:"age"`
	Sex           Sex    `json:"sex"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
}

type CreatePatientRequest struct {
	FirstName     string `json:"first_name" binding:"required,max=100"`
	MiddleName    string `json:"middle_name" binding:"max=100"`
	LastName      string `json:"last_name" binding:"required,max=100"`
	Age           int    `json:"age" binding:"required,gt=0"`
	Sex           string `json:"sex" binding:"required,sex"`
	Address       string `json:"address" binding:"required"`
	ContactNumber string `json:"contact_number" binding:"required,max=15"`
	Photo         string `json:"photo" binding:"omitempty,data_url"`
}

type UpdatePatientRequest struct {
	FirstName     *string `json:"first_name" binding:"omitempty,max=100"`
	MiddleName    *string `json:"middle_name" binding:"omitempty,max=100"`
	LastName      *string `json:"last_name" binding:"omitempty,max=100"`
	Age           *int    `json:"age" binding:"omitempty,gt=0"`
	Sex           *string `json:"sex" binding:"omitempty,sex"`
	Address       *string `json:"address"`
	ContactNumber *string `json:"contact_number" binding:"omitempty,max=15"`
}

type SearchPatientsRequest struct {
	Query string `json:"query"`
}

type PhotoRequest struct {
	Photo string `json:"photo" binding:"required,data_url"`
}

// PatientView adds the derived identifiers to a patient.
type PatientView struct {
	*Patient
	FormattedID string `json:"formatted_id"`
	SecureID    string `json:"secure_id,omitempty"`
}
