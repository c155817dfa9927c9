package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	patients  Repository
	allergies AllergyRepository
}

func NewService(patients Repository, allergies AllergyRepository) *Service {
	return &Service{patients: patients, allergies: allergies}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.MRN) == "" {
		return fmt.Errorf("mrn is required")
	}
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("last_name is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.patients.GetByMRN(ctx, mrn)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("last_name is required")
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) AddAllergy(ctx context.Context, a *Allergy) error {
	if strings.TrimSpace(a.Substance) == "" {
		return fmt.Errorf("substance is required")
	}
	if _, err := s.patients.GetByID(ctx, a.PatientID); err != nil {
		return fmt.Errorf("patient %s: %w", a.PatientID, err)
	}
	return s.allergies.Create(ctx, a)
}

// Allergies returns the patient's recorded allergies, oldest first.
func (s *Service) Allergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error) {
	return s.allergies.ListByPatient(ctx, patientID)
}

// AllergySubstances returns just the substance names, for safety checks
// against the drug formulary.
func (s *Service) AllergySubstances(ctx context.Context, patientID uuid.UUID) ([]string, error) {
	allergies, err := s.allergies.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	substances := make([]string, 0, len(allergies))
	for _, a := range allergies {
		substances = append(substances, a.Substance)
	}
	return substances, nil
}

func (s *Service) RemoveAllergy(ctx context.Context, id uuid.UUID) error {
	return s.allergies.Delete(ctx, id)
}
