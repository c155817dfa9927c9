package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// Complete flips the appointment to COMPLETED and stamps
	// consultation_completed_at, guarded by `status <> 'COMPLETED'`.
	// Returns false when the guard matched zero rows, i.e. someone else
	// completed first.
	Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type NoteRepository interface {
	// Upsert creates or updates the draft note for an appointment.
	Upsert(ctx context.Context, n *ClinicalNote) error
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ClinicalNote, error)
	// Finalize clears is_draft and stamps finalized_at. A missing note is
	// not an error: not every visit produces one.
	Finalize(ctx context.Context, appointmentID uuid.UUID, at time.Time) error
}
