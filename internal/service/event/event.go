package event

import "time"

// Event types written to the outbox.
const (
	ExaminationCreated        = "examination.created"
	ExaminationDocumentEdited = "examination.document_edited"
)

// ExaminationPayload is the body of every examination event.
type ExaminationPayload struct {
	ExaminationID int64     `json:"examination_id"`
	DoctorID      int64     `json:"doctor_id"`
	PatientName   string    `json:"patient_name"`
	FileNumber    string    `json:"file_number"`
	UniqueCode    string    `json:"unique_code,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Envelope is what the worker publishes to the broker.
type Envelope struct {
	ID        string      `json:"id"`
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}
