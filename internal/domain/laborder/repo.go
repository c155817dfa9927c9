package laborder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *LabOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabOrder, error)
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*LabOrder, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabOrder, int, error)
	// UpdatePriority rewrites priority and the derived SLA deadline of one
	// row only.
	UpdatePriority(ctx context.Context, id uuid.UUID, priority string, expectedAt time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
