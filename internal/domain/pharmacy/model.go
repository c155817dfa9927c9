package pharmacy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Drug maps to the drug_formulary table: the formulary head that carries the
// live stock quantity for one dispensable drug.
type Drug struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	GenericName      string    `db:"generic_name" json:"generic_name"`
	TherapeuticClass string    `db:"therapeutic_class" json:"therapeutic_class"`
	ATCCode          *string   `db:"atc_code" json:"atc_code,omitempty"`
	Form             *string   `db:"form" json:"form,omitempty"`
	Strength         *string   `db:"strength" json:"strength,omitempty"`
	StockQuantity    int       `db:"stock_quantity" json:"stock_quantity"`
	ReorderLevel     int       `db:"reorder_level" json:"reorder_level"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// BelowReorder reports whether current stock has fallen to the reorder level.
func (d *Drug) BelowReorder() bool {
	return d.StockQuantity <= d.ReorderLevel
}

// Stock movement types. The ledger is append-only: every change to a drug's
// stock_quantity is mirrored by exactly one movement row.
const (
	MovementReservation = "RESERVATION"
	MovementReturn      = "RETURN"
	MovementDispensed   = "DISPENSED"
	MovementReceived    = "RECEIVED"
)

var validMovementTypes = map[string]bool{
	MovementReservation: true,
	MovementReturn:      true,
	MovementDispensed:   true,
	MovementReceived:    true,
}

// StockMovement maps to the stock_movement table.
type StockMovement struct {
	ID           uuid.UUID `db:"id" json:"id"`
	DrugID       uuid.UUID `db:"drug_id" json:"drug_id"`
	MovementType string    `db:"movement_type" json:"movement_type"`
	Quantity     int       `db:"quantity" json:"quantity"`
	ReferenceNo  string    `db:"reference_no" json:"reference_no"`
	BalanceAfter int       `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Delta is the signed stock effect of the movement. A DISPENSED movement is
// a realization marker only: the quantity already left the head at
// RESERVATION time, so it contributes nothing to the balance.
func (m *StockMovement) Delta() int {
	switch m.MovementType {
	case MovementReservation:
		return -m.Quantity
	case MovementReturn, MovementReceived:
		return m.Quantity
	default:
		return 0
	}
}

// Dispensation maps to the dispensation table: the realization of a reserved
// prescription at consultation completion.
type Dispensation struct {
	ID                uuid.UUID `db:"id" json:"id"`
	PrescriptionID    uuid.UUID `db:"prescription_id" json:"prescription_id"`
	QuantityDispensed int       `db:"quantity_dispensed" json:"quantity_dispensed"`
	DispensedAt       time.Time `db:"dispensed_at" json:"dispensed_at"`
}

// ReconciliationReport is the result of replaying the ledger for one drug
// against its head quantity.
type ReconciliationReport struct {
	DrugID           uuid.UUID `json:"drug_id"`
	BaselineQuantity int       `json:"baseline_quantity"`
	MovementDelta    int       `json:"movement_delta"`
	ExpectedQuantity int       `json:"expected_quantity"`
	HeadQuantity     int       `json:"head_quantity"`
	Consistent       bool      `json:"consistent"`
}

// InsufficientStockError rejects a reservation that would exceed available
// stock. Nothing is mutated when it is returned.
type InsufficientStockError struct {
	DrugID    uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for drug %s: requested %d, available %d",
		e.DrugID, e.Requested, e.Available)
}
