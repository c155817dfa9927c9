package prescription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/his/his/internal/domain/pharmacy"
	"github.com/his/his/internal/platform/db"
)

// StockService is the slice of the pharmacy service this package needs.
type StockService interface {
	GetDrug(ctx context.Context, id uuid.UUID) (*pharmacy.Drug, error)
	CanFulfill(ctx context.Context, drugID uuid.UUID, qty int) (bool, error)
	Reserve(ctx context.Context, drugID uuid.UUID, qty int, referenceNo string) error
	Return(ctx context.Context, drugID uuid.UUID, qty int, referenceNo string) error
}

// AllergySource yields the substance names recorded for a patient.
type AllergySource interface {
	AllergySubstances(ctx context.Context, patientID uuid.UUID) ([]string, error)
}

type Service struct {
	repo      Repository
	stock     StockService
	allergies AllergySource
	tx        db.TxRunner
}

func NewService(repo Repository, stock StockService, allergies AllergySource, tx db.TxRunner) *Service {
	return &Service{repo: repo, stock: stock, allergies: allergies, tx: tx}
}

func validate(p *Prescription) error {
	switch {
	case strings.TrimSpace(p.Dosage) == "":
		return &ValidationError{Field: "dosage"}
	case strings.TrimSpace(p.Frequency) == "":
		return &ValidationError{Field: "frequency"}
	case strings.TrimSpace(p.Duration) == "":
		return &ValidationError{Field: "duration"}
	case p.Quantity <= 0:
		return &ValidationError{Field: "quantity"}
	}
	return nil
}

// Create persists a pending prescription. When instant dispensing is
// requested the stock reservation happens synchronously in the same call, so
// a full pharmacy rejects the prescription before it reaches the patient.
func (s *Service) Create(ctx context.Context, p *Prescription) error {
	if err := validate(p); err != nil {
		return err
	}
	if _, err := s.stock.GetDrug(ctx, p.DrugID); err != nil {
		return fmt.Errorf("drug %s: %w", p.DrugID, err)
	}

	p.Status = StatusPending
	p.StockReserved = false
	p.StockReservedAt = nil
	if !p.InstantDispensing {
		return s.repo.Create(ctx, p)
	}

	// Insert and reserve in one transaction: a failed reservation must not
	// leave an orphan pending row behind.
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.ReserveStock(ctx, p)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Prescription, error) {
	return s.repo.ListByEncounter(ctx, encounterID)
}

// CheckAllergies reports whether any of the patient's recorded allergy
// substances matches the drug's name, generic name, or therapeutic class.
// Matching is case-insensitive. Advisory: the caller decides what to do.
func (s *Service) CheckAllergies(ctx context.Context, patientID, drugID uuid.UUID) (bool, error) {
	drug, err := s.stock.GetDrug(ctx, drugID)
	if err != nil {
		return false, err
	}
	substances, err := s.allergies.AllergySubstances(ctx, patientID)
	if err != nil {
		return false, err
	}

	for _, substance := range substances {
		sub := strings.ToLower(strings.TrimSpace(substance))
		if sub == "" {
			continue
		}
		if sub == strings.ToLower(drug.Name) ||
			sub == strings.ToLower(drug.GenericName) ||
			sub == strings.ToLower(drug.TherapeuticClass) {
			return true, nil
		}
	}
	return false, nil
}

// CheckInteractions flags the candidate drug against every active
// prescription of the patient that shares its therapeutic class.
func (s *Service) CheckInteractions(ctx context.Context, patientID, drugID uuid.UUID) ([]InteractionWarning, error) {
	candidate, err := s.stock.GetDrug(ctx, drugID)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.ListActiveByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	var warnings []InteractionWarning
	for _, p := range active {
		if p.DrugID == drugID {
			continue
		}
		drug, err := s.stock.GetDrug(ctx, p.DrugID)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(drug.TherapeuticClass, candidate.TherapeuticClass) {
			continue
		}
		warnings = append(warnings, InteractionWarning{
			PrescriptionID:   p.ID,
			DrugID:           drug.ID,
			DrugName:         drug.Name,
			InteractionType:  "therapeutic_class",
			TherapeuticClass: drug.TherapeuticClass,
			Message: fmt.Sprintf("%s shares therapeutic class %q with active prescription %s",
				candidate.Name, drug.TherapeuticClass, drug.Name),
		})
	}
	return warnings, nil
}

// ValidateInstantDispensing is a pure availability check, no mutation.
func (s *Service) ValidateInstantDispensing(ctx context.Context, drugID uuid.UUID, qty int) (bool, error) {
	return s.stock.CanFulfill(ctx, drugID, qty)
}

// ReserveStock deducts the prescribed quantity and flips the prescription to
// active, all-or-nothing. A failed reservation leaves the row pending and
// the stock untouched.
func (s *Service) ReserveStock(ctx context.Context, p *Prescription) error {
	if p.StockReserved {
		return fmt.Errorf("prescription %s: stock already reserved", p.ID)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.stock.Reserve(ctx, p.DrugID, p.Quantity, p.ReferenceNo()); err != nil {
			return err
		}
		now := time.Now()
		if err := s.repo.MarkReserved(ctx, p.ID, now); err != nil {
			return err
		}
		p.StockReserved = true
		p.StockReservedAt = &now
		p.Status = StatusActive
		return nil
	})
}

// ReleaseStock is the idempotent inverse of ReserveStock. Calling it on a
// prescription with no live reservation is a no-op, so release and expiry
// sweeps can race without double-crediting the stock.
func (s *Service) ReleaseStock(ctx context.Context, p *Prescription) error {
	if !p.StockReserved {
		return nil
	}
	if p.Status == StatusDispensed {
		return fmt.Errorf("prescription %s: %w", p.ID, ErrAlreadyDispensed)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.LockForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if current.Status == StatusDispensed {
			// Dispensed rows keep their reservation flags: the quantity
			// is realized, not returnable.
			return fmt.Errorf("prescription %s: %w", current.ID, ErrAlreadyDispensed)
		}
		if !current.StockReserved {
			// Lost the race to another release. Nothing to do.
			return nil
		}
		if err := s.stock.Return(ctx, current.DrugID, current.Quantity, current.ReferenceNo()); err != nil {
			return err
		}
		if err := s.repo.MarkReleased(ctx, current.ID); err != nil {
			return err
		}
		p.StockReserved = false
		p.StockReservedAt = nil
		p.Status = StatusPending
		return nil
	})
}

// MarkDispensed records that the pharmacy handed the medication over. The
// reservation flags stay set: the deducted quantity is now realized, not
// returnable.
func (s *Service) MarkDispensed(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, id, StatusDispensed)
}

// Cancel releases any live reservation and marks the prescription cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch p.Status {
	case StatusCancelled:
		return nil
	case StatusDispensed:
		return fmt.Errorf("prescription %s: already dispensed", id)
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ReleaseStock(ctx, p); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, id, StatusCancelled)
	})
}
