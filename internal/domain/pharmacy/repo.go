package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type DrugRepository interface {
	Create(ctx context.Context, d *Drug) error
	GetByID(ctx context.Context, id uuid.UUID) (*Drug, error)
	Update(ctx context.Context, d *Drug) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Drug, int, error)
	ListBelowReorder(ctx context.Context) ([]*Drug, error)
	// LockForUpdate loads the drug row under a FOR UPDATE lock. Callers must
	// be inside a transaction; the lock is held until that transaction ends.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Drug, error)
	// AdjustStock shifts stock_quantity by delta and returns the new balance.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

type StockMovementRepository interface {
	Append(ctx context.Context, m *StockMovement) error
	// ListByDrug returns movements in ledger order (oldest first). A limit
	// of 0 means no limit.
	ListByDrug(ctx context.Context, drugID uuid.UUID, limit, offset int) ([]*StockMovement, int, error)
	ListByReference(ctx context.Context, referenceNo string) ([]*StockMovement, error)
}

type DispensationRepository interface {
	Create(ctx context.Context, d *Dispensation) error
	GetByPrescription(ctx context.Context, prescriptionID uuid.UUID) (*Dispensation, error)
	ListByPrescriptions(ctx context.Context, prescriptionIDs []uuid.UUID) ([]*Dispensation, error)
}
