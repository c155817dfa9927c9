package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	// LockForUpdate re-reads the row under a row lock. Requires a
	// transaction in ctx.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Prescription, error)
	ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)
	// ListExpiredReservations returns prescriptions whose reservation is
	// older than cutoff, oldest first.
	ListExpiredReservations(ctx context.Context, cutoff time.Time) ([]*Prescription, error)
	MarkReserved(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkReleased(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
