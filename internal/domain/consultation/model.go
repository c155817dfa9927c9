package consultation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/his/his/internal/domain/laborder"
	"github.com/his/his/internal/domain/prescription"
)

const (
	StatusWaiting    = "WAITING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// ErrAlreadyCompleted rejects a second completion of the same appointment.
// COMPLETED is terminal: the first completion already dispensed and billed.
var ErrAlreadyCompleted = errors.New("consultation already completed")

// Appointment is one patient visit. Its id doubles as the encounter id that
// prescriptions, lab orders, and billing items reference.
type Appointment struct {
	ID                      uuid.UUID  `db:"id" json:"id"`
	PatientID               uuid.UUID  `db:"patient_id" json:"patient_id"`
	PhysicianID             uuid.UUID  `db:"physician_id" json:"physician_id"`
	ScheduledAt             time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status                  string     `db:"status" json:"status"`
	ChiefComplaint          *string    `db:"chief_complaint" json:"chief_complaint,omitempty"`
	ConsultationCompletedAt *time.Time `db:"consultation_completed_at" json:"consultation_completed_at,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`
}

// ClinicalNote is the physician's SOAP note for an appointment. It stays a
// draft until the consultation is completed.
type ClinicalNote struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	Subjective    *string    `db:"subjective" json:"subjective,omitempty"`
	Objective     *string    `db:"objective" json:"objective,omitempty"`
	Assessment    *string    `db:"assessment" json:"assessment,omitempty"`
	Plan          *string    `db:"plan" json:"plan,omitempty"`
	IsDraft       bool       `db:"is_draft" json:"is_draft"`
	FinalizedAt   *time.Time `db:"finalized_at" json:"finalized_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// EncounterSummary is the review view shown before completion. It can be
// queried at any point in the visit.
type EncounterSummary struct {
	Appointment       *Appointment                 `json:"appointment"`
	Note              *ClinicalNote                `json:"note,omitempty"`
	Prescriptions     []*prescription.Prescription `json:"prescriptions"`
	LabOrders         []*laborder.LabOrder         `json:"lab_orders"`
	PrescriptionCount int                          `json:"prescription_count"`
	LabOrderCount     int                          `json:"lab_order_count"`
}

// CompletionResult reports what the finalization transaction did.
type CompletionResult struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	CompletedAt   time.Time `json:"completed_at"`
	Dispensed     int       `json:"dispensed"`
	Billed        int       `json:"billed"`
	SkippedItems  int       `json:"skipped_items"`
}
