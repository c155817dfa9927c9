package laborder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	PriorityUrgent = "urgent"
	PriorityFast   = "fast"
	PriorityNormal = "normal"
)

const (
	StatusOrdered   = "ordered"
	StatusInProcess = "in_process"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// slaByPriority maps priority to the turnaround promised to the ward.
var slaByPriority = map[string]time.Duration{
	PriorityUrgent: 2 * time.Hour,
	PriorityFast:   6 * time.Hour,
	PriorityNormal: 24 * time.Hour,
}

// SLA returns the turnaround window for a priority. Zero for unknown values.
func SLA(priority string) time.Duration {
	return slaByPriority[priority]
}

// LabOrder maps to the lab_order table.
type LabOrder struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	EncounterID          uuid.UUID  `db:"encounter_id" json:"encounter_id"`
	PatientID            uuid.UUID  `db:"patient_id" json:"patient_id"`
	TestID               uuid.UUID  `db:"test_id" json:"test_id"`
	TestName             string     `db:"test_name" json:"test_name"`
	Priority             string     `db:"priority" json:"priority"`
	Status               string     `db:"status" json:"status"`
	Notes                *string    `db:"notes" json:"notes,omitempty"`
	ExpectedCompletionAt time.Time  `db:"expected_completion_at" json:"expected_completion_at"`
	CompletedAt          *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

func (o *LabOrder) IsUrgent() bool {
	return o.Priority == PriorityUrgent
}

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lab order validation failed: invalid %s", e.Field)
}
