package patient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	items map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.items {
		if existing.MRN == p.MRN {
			return fmt.Errorf("duplicate mrn %s", p.MRN)
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockRepo) GetByMRN(_ context.Context, mrn string) (*Patient, error) {
	for _, p := range m.items {
		if p.MRN == mrn {
			return p, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.items[p.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("not found")
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.items {
		result = append(result, p)
	}
	return result, len(result), nil
}

type mockAllergyRepo struct {
	items map[uuid.UUID]*Allergy
}

func newMockAllergyRepo() *mockAllergyRepo {
	return &mockAllergyRepo{items: make(map[uuid.UUID]*Allergy)}
}

func (m *mockAllergyRepo) Create(_ context.Context, a *Allergy) error {
	a.ID = uuid.New()
	a.RecordedAt = time.Now()
	m.items[a.ID] = a
	return nil
}

func (m *mockAllergyRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Allergy, error) {
	var result []*Allergy
	for _, a := range m.items {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockAllergyRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("not found")
	}
	delete(m.items, id)
	return nil
}

func newTestService() *Service {
	return NewService(newMockRepo(), newMockAllergyRepo())
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name    string
		patient Patient
	}{
		{"missing mrn", Patient{FirstName: "Siti", LastName: "Rahma"}},
		{"missing first_name", Patient{MRN: "MRN-001", LastName: "Rahma"}},
		{"missing last_name", Patient{MRN: "MRN-001", FirstName: "Siti"}},
		{"whitespace mrn", Patient{MRN: "  ", FirstName: "Siti", LastName: "Rahma"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Create(ctx, &tt.patient); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreate_And_Lookup(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p := &Patient{MRN: "MRN-001", FirstName: "Siti", LastName: "Rahma"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatal("expected assigned id")
	}

	byID, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if byID.MRN != "MRN-001" {
		t.Errorf("unexpected mrn %q", byID.MRN)
	}

	byMRN, err := svc.GetByMRN(ctx, "MRN-001")
	if err != nil {
		t.Fatalf("GetByMRN() error: %v", err)
	}
	if byMRN.ID != p.ID {
		t.Error("MRN lookup returned wrong patient")
	}
}

func TestAddAllergy_UnknownPatient(t *testing.T) {
	svc := newTestService()

	a := &Allergy{PatientID: uuid.New(), Substance: "Penicillin"}
	if err := svc.AddAllergy(context.Background(), a); err == nil {
		t.Error("expected error for unknown patient")
	}
}

func TestAllergySubstances(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p := &Patient{MRN: "MRN-002", FirstName: "Budi", LastName: "Santoso"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	for _, substance := range []string{"Penicillin", "Ibuprofen"} {
		if err := svc.AddAllergy(ctx, &Allergy{PatientID: p.ID, Substance: substance}); err != nil {
			t.Fatalf("AddAllergy(%s) error: %v", substance, err)
		}
	}

	substances, err := svc.AllergySubstances(ctx, p.ID)
	if err != nil {
		t.Fatalf("AllergySubstances() error: %v", err)
	}
	if len(substances) != 2 {
		t.Fatalf("expected 2 substances, got %d", len(substances))
	}
}

func TestAddAllergy_MissingSubstance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p := &Patient{MRN: "MRN-003", FirstName: "Ani", LastName: "Wijaya"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := svc.AddAllergy(ctx, &Allergy{PatientID: p.ID}); err == nil {
		t.Error("expected error for missing substance")
	}
}
