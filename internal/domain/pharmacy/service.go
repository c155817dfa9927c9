package pharmacy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/his/his/internal/platform/db"
)

// Service owns the stock ledger: every change to a drug's stock quantity
// happens here, under a row lock, paired with exactly one movement row.
type Service struct {
	drugs         DrugRepository
	movements     StockMovementRepository
	dispensations DispensationRepository
	tx            db.TxRunner
}

func NewService(
	drugs DrugRepository,
	movements StockMovementRepository,
	dispensations DispensationRepository,
	tx db.TxRunner,
) *Service {
	return &Service{
		drugs:         drugs,
		movements:     movements,
		dispensations: dispensations,
		tx:            tx,
	}
}

// -- Formulary CRUD --

func (s *Service) CreateDrug(ctx context.Context, d *Drug) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.GenericName == "" {
		return fmt.Errorf("generic_name is required")
	}
	if d.TherapeuticClass == "" {
		return fmt.Errorf("therapeutic_class is required")
	}
	if d.StockQuantity < 0 {
		return fmt.Errorf("stock_quantity must not be negative")
	}
	if d.ReorderLevel < 0 {
		return fmt.Errorf("reorder_level must not be negative")
	}

	// A drug entering the formulary with stock on hand gets a RECEIVED
	// baseline so the ledger replays to the head from day one.
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.drugs.Create(ctx, d); err != nil {
			return err
		}
		if d.StockQuantity > 0 {
			return s.movements.Append(ctx, &StockMovement{
				DrugID:       d.ID,
				MovementType: MovementReceived,
				Quantity:     d.StockQuantity,
				ReferenceNo:  fmt.Sprintf("INITIAL-%s", d.ID),
				BalanceAfter: d.StockQuantity,
			})
		}
		return nil
	})
}

func (s *Service) GetDrug(ctx context.Context, id uuid.UUID) (*Drug, error) {
	return s.drugs.GetByID(ctx, id)
}

// UpdateDrug updates descriptive formulary fields. Stock quantity is not
// touched here; it moves only through Reserve, Return and Receive.
func (s *Service) UpdateDrug(ctx context.Context, d *Drug) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.ReorderLevel < 0 {
		return fmt.Errorf("reorder_level must not be negative")
	}
	return s.drugs.Update(ctx, d)
}

func (s *Service) DeleteDrug(ctx context.Context, id uuid.UUID) error {
	return s.drugs.Delete(ctx, id)
}

func (s *Service) ListDrugs(ctx context.Context, limit, offset int) ([]*Drug, int, error) {
	return s.drugs.List(ctx, limit, offset)
}

// ListBelowReorder returns drugs whose stock has fallen to the reorder level.
func (s *Service) ListBelowReorder(ctx context.Context) ([]*Drug, error) {
	return s.drugs.ListBelowReorder(ctx)
}

// -- Stock ledger operations --

// CanFulfill reports whether qty could be reserved right now. Pure read; the
// answer may be stale by the time a reservation is attempted, which is why
// Reserve re-checks under the row lock.
func (s *Service) CanFulfill(ctx context.Context, drugID uuid.UUID, qty int) (bool, error) {
	d, err := s.drugs.GetByID(ctx, drugID)
	if err != nil {
		return false, fmt.Errorf("load drug %s: %w", drugID, err)
	}
	return qty <= d.StockQuantity, nil
}

// Reserve atomically deducts qty from the drug's stock and appends a
// RESERVATION movement. The drug row is locked for the duration of the
// enclosing transaction; when stock is short the call fails with
// InsufficientStockError and nothing is mutated.
func (s *Service) Reserve(ctx context.Context, drugID uuid.UUID, qty int, referenceNo string) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.drugs.LockForUpdate(ctx, drugID)
		if err != nil {
			return fmt.Errorf("lock drug %s: %w", drugID, err)
		}
		if d.StockQuantity < qty {
			return &InsufficientStockError{DrugID: drugID, Requested: qty, Available: d.StockQuantity}
		}
		balance, err := s.drugs.AdjustStock(ctx, drugID, -qty)
		if err != nil {
			return fmt.Errorf("adjust stock for drug %s: %w", drugID, err)
		}
		return s.movements.Append(ctx, &StockMovement{
			DrugID:       drugID,
			MovementType: MovementReservation,
			Quantity:     qty,
			ReferenceNo:  referenceNo,
			BalanceAfter: balance,
		})
	})
}

// Return credits qty back to the drug's stock and appends a RETURN movement.
// The inverse of Reserve.
func (s *Service) Return(ctx context.Context, drugID uuid.UUID, qty int, referenceNo string) error {
	if qty <= 0 {
		return fmt.Errorf("return quantity must be positive, got %d", qty)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.drugs.LockForUpdate(ctx, drugID); err != nil {
			return fmt.Errorf("lock drug %s: %w", drugID, err)
		}
		balance, err := s.drugs.AdjustStock(ctx, drugID, qty)
		if err != nil {
			return fmt.Errorf("adjust stock for drug %s: %w", drugID, err)
		}
		return s.movements.Append(ctx, &StockMovement{
			DrugID:       drugID,
			MovementType: MovementReturn,
			Quantity:     qty,
			ReferenceNo:  referenceNo,
			BalanceAfter: balance,
		})
	})
}

// Receive records a stock intake: the RECEIVED baseline the reconciliation
// replay anchors on.
func (s *Service) Receive(ctx context.Context, drugID uuid.UUID, qty int, referenceNo string) error {
	if qty <= 0 {
		return fmt.Errorf("receive quantity must be positive, got %d", qty)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.drugs.LockForUpdate(ctx, drugID); err != nil {
			return fmt.Errorf("lock drug %s: %w", drugID, err)
		}
		balance, err := s.drugs.AdjustStock(ctx, drugID, qty)
		if err != nil {
			return fmt.Errorf("adjust stock for drug %s: %w", drugID, err)
		}
		return s.movements.Append(ctx, &StockMovement{
			DrugID:       drugID,
			MovementType: MovementReceived,
			Quantity:     qty,
			ReferenceNo:  referenceNo,
			BalanceAfter: balance,
		})
	})
}

// RecordDispense converts a reservation into a dispensation record plus a
// DISPENSED ledger marker. The stock head does not move: the quantity was
// already deducted when the reservation was taken.
func (s *Service) RecordDispense(ctx context.Context, prescriptionID, drugID uuid.UUID, qty int, referenceNo string) (*Dispensation, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("dispense quantity must be positive, got %d", qty)
	}
	disp := &Dispensation{
		PrescriptionID:    prescriptionID,
		QuantityDispensed: qty,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.drugs.LockForUpdate(ctx, drugID)
		if err != nil {
			return fmt.Errorf("lock drug %s: %w", drugID, err)
		}
		if err := s.dispensations.Create(ctx, disp); err != nil {
			return fmt.Errorf("create dispensation: %w", err)
		}
		return s.movements.Append(ctx, &StockMovement{
			DrugID:       drugID,
			MovementType: MovementDispensed,
			Quantity:     qty,
			ReferenceNo:  referenceNo,
			BalanceAfter: d.StockQuantity,
		})
	})
	if err != nil {
		return nil, err
	}
	return disp, nil
}

func (s *Service) ListMovements(ctx context.Context, drugID uuid.UUID, limit, offset int) ([]*StockMovement, int, error) {
	return s.movements.ListByDrug(ctx, drugID, limit, offset)
}

func (s *Service) DispensationForPrescription(ctx context.Context, prescriptionID uuid.UUID) (*Dispensation, error) {
	return s.dispensations.GetByPrescription(ctx, prescriptionID)
}

// Reconcile replays the ledger against the formulary head: starting from the
// most recent RECEIVED baseline (or zero when none exists), the signed sum
// of every later movement must land exactly on the current stock quantity.
func (s *Service) Reconcile(ctx context.Context, drugID uuid.UUID) (*ReconciliationReport, error) {
	d, err := s.drugs.GetByID(ctx, drugID)
	if err != nil {
		return nil, fmt.Errorf("load drug %s: %w", drugID, err)
	}

	// Full history, oldest first.
	movements, _, err := s.movements.ListByDrug(ctx, drugID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load movements for drug %s: %w", drugID, err)
	}

	baseline := 0
	start := 0
	for i := len(movements) - 1; i >= 0; i-- {
		if movements[i].MovementType == MovementReceived {
			baseline = movements[i].BalanceAfter
			start = i + 1
			break
		}
	}

	delta := 0
	for _, m := range movements[start:] {
		delta += m.Delta()
	}

	expected := baseline + delta
	return &ReconciliationReport{
		DrugID:           drugID,
		BaselineQuantity: baseline,
		MovementDelta:    delta,
		ExpectedQuantity: expected,
		HeadQuantity:     d.StockQuantity,
		Consistent:       expected == d.StockQuantity,
	}, nil
}
