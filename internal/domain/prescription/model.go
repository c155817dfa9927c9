package prescription

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusDispensed = "dispensed"
	StatusCancelled = "cancelled"
)

// ErrAlreadyDispensed rejects releasing a reservation that has matured into
// a dispensation. The deducted quantity left the pharmacy; crediting it back
// would corrupt the ledger.
var ErrAlreadyDispensed = errors.New("prescription already dispensed")

// Prescription maps to the prescription table. The reservation pair
// (stock_reserved, stock_reserved_at) is set and cleared together: when
// stock_reserved is true the prescribed quantity has been deducted from the
// formulary head and a RESERVATION movement referencing this row exists.
type Prescription struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	EncounterID       uuid.UUID  `db:"encounter_id" json:"encounter_id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	PhysicianID       uuid.UUID  `db:"physician_id" json:"physician_id"`
	DrugID            uuid.UUID  `db:"drug_id" json:"drug_id"`
	Dosage            string     `db:"dosage" json:"dosage"`
	Frequency         string     `db:"frequency" json:"frequency"`
	Duration          string     `db:"duration" json:"duration"`
	Quantity          int        `db:"quantity" json:"quantity"`
	Status            string     `db:"status" json:"status"`
	InstantDispensing bool       `db:"instant_dispensing" json:"instant_dispensing"`
	StockReserved     bool       `db:"stock_reserved" json:"stock_reserved"`
	StockReservedAt   *time.Time `db:"stock_reserved_at" json:"stock_reserved_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// ReferenceNo is the ledger reference tying this prescription to its stock
// movements.
func (p *Prescription) ReferenceNo() string {
	return "PRESCRIPTION-" + p.ID.String()
}

// InteractionWarning flags a candidate drug against the patient's active
// prescriptions. Advisory only, never blocks prescribing.
type InteractionWarning struct {
	PrescriptionID   uuid.UUID `json:"prescription_id"`
	DrugID           uuid.UUID `json:"drug_id"`
	DrugName         string    `json:"drug_name"`
	InteractionType  string    `json:"interaction_type"`
	TherapeuticClass string    `json:"therapeutic_class"`
	Message          string    `json:"message"`
}

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("prescription validation failed: %s is required", e.Field)
}
