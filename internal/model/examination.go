package model

import (
	"fmt"
	"time"
)

type Examination struct {
	ID                 int64     `db:"id" json:"id"`
	PatientID          int64     `db:"patient_id" json:"patient_id"`
	AttendingDoctorID  int64     `db:"attending_doctor_id" json:"attending_doctor_id"`
	SequenceNo         int       `db:"sequence_no" json:"sequence_no"`
	DocumentPath       *string   `db:"document_path" json:"document_path,omitempty"`
	EditedDocumentPath *string   `db:"edited_document_path" json:"edited_document_path,omitempty"`
	EditedDocumentHash *string   `db:"edited_document_hash" json:"edited_document_hash,omitempty"`
	ResultImagePath    *string   `db:"result_image_path" json:"result_image_path,omitempty"`
	UniqueCode         *string   `db:"unique_code" json:"unique_code,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`

	Patient      *Patient      `db:"-" json:"patient,omitempty"`
	Doctor       *Account      `db:"-" json:"attending_doctor,omitempty"`
	ServiceTypes []ServiceType `db:"-" json:"service_types,omitempty"`
	Payment      *Payment      `db:"-" json:"payment,omitempty"`
	FileNumber   string        `db:"-" json:"file_number,omitempty"`
}

// FormatFileNumber renders "YY-NN" for a sequence in the year of createdAt.
func FormatFileNumber(createdAt time.Time, seq int) string {
	return fmt.Sprintf("%s-%02d", createdAt.Format("06"), seq)
}

func (e *Examination) HasEditedDocument() bool {
	return e.EditedDocumentPath != nil && *e.EditedDocumentPath != ""
}

func (e *Examination) HasDocument() bool {
	return e.DocumentPath != nil && *e.DocumentPath != ""
}

type CreateExaminationRequest struct {
	PatientID         *int64                `json:"patient_id" binding:"omitempty,gt=0"`
	Patient           *CreatePatientRequest `json:"patient" binding:"required_without=PatientID"`
	WebcamImage       string                `json:"webcam_image" binding:"omitempty,data_url"`
	AttendingDoctorID int64                 `json:"attending_doctor_id" binding:"required,gt=0"`
	ServiceTypeIDs    []int64               `json:"service_type_ids" binding:"required,min=1"`
	Payment           PaymentInput          `json:"payment"`
}

type UpdateExaminationRequest struct {
	FirstName      *string `json:"first_name" binding:"omitempty,max=100"`
	MiddleName     *string `json:"middle_name" binding:"omitempty,max=100"`
	LastName       *string `json:"last_name" binding:"omitempty,max=100"`
	ServiceTypeIDs []int64 `json:"service_type_ids"`
	PaymentMethod  *string `json:"payment_method" binding:"omitempty,payment_method"`
	PaymentStatus  *string `json:"payment_status" binding:"omitempty,payment_status"`
	Amount         *Money  `json:"amount"`
}

type ResultImageRequest struct {
	ResultImage string `json:"result_image" binding:"required,data_url"`
}

// IntegrityReport is the outcome of an explicit integrity check.
type IntegrityReport struct {
	ExaminationID int64  `json:"examination_id"`
	Verifiable    bool   `json:"verifiable"`
	Intact        bool   `json:"intact"`
	StoredHash    string `json:"stored_hash,omitempty"`
	CurrentHash   string `json:"current_hash,omitempty"`
}

// VerifyRequest carries the code printed on a generated document.
type VerifyRequest struct {
	UniqueCode string `form:"unique_code" json:"unique_code"`
}
