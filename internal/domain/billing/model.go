package billing

import (
	"time"

	"github.com/google/uuid"
)

const (
	SourcePrescription = "prescription"
	SourceLabOrder     = "lab_order"
)

// ChargeCatalogItem is master data: one billable code with its price.
// Medication codes are MED-<drug_id>, lab codes LAB-<test_id>.
type ChargeCatalogItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Description string    `db:"description" json:"description"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// BillingItem is one charge raised against an encounter.
type BillingItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	EncounterID uuid.UUID `db:"encounter_id" json:"encounter_id"`
	SourceType  string    `db:"source_type" json:"source_type"`
	SourceID    uuid.UUID `db:"source_id" json:"source_id"`
	Code        string    `db:"code" json:"code"`
	Description string    `db:"description" json:"description"`
	Amount      float64   `db:"amount" json:"amount"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MedicationCode returns the catalogue code for a drug.
func MedicationCode(drugID uuid.UUID) string {
	return "MED-" + drugID.String()
}

// LabCode returns the catalogue code for a lab test.
func LabCode(testID uuid.UUID) string {
	return "LAB-" + testID.String()
}
