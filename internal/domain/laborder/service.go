package laborder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates the order and stamps its SLA deadline from the priority.
// Priority must match one of urgent, fast, normal exactly: "URGENT" or
// "Urgent" is rejected, not normalized, so a typo never silently downgrades
// a turnaround promise.
func (s *Service) Create(ctx context.Context, o *LabOrder) error {
	if strings.TrimSpace(o.TestName) == "" {
		return &ValidationError{Field: "test_name"}
	}
	sla, ok := slaByPriority[o.Priority]
	if !ok {
		return &ValidationError{Field: "priority"}
	}

	o.Status = StatusOrdered
	o.ExpectedCompletionAt = time.Now().Add(sla)
	return s.repo.Create(ctx, o)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*LabOrder, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*LabOrder, error) {
	return s.repo.ListByEncounter(ctx, encounterID)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabOrder, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// UpdatePriority re-derives the SLA deadline for exactly one order. Sibling
// orders on the same encounter keep their own priorities and deadlines.
func (s *Service) UpdatePriority(ctx context.Context, id uuid.UUID, priority string) (*LabOrder, error) {
	sla, ok := slaByPriority[priority]
	if !ok {
		return nil, &ValidationError{Field: "priority"}
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCompleted || o.Status == StatusCancelled {
		return nil, fmt.Errorf("lab order %s: cannot reprioritize a %s order", id, o.Status)
	}

	expectedAt := time.Now().Add(sla)
	if err := s.repo.UpdatePriority(ctx, id, priority, expectedAt); err != nil {
		return nil, err
	}
	o.Priority = priority
	o.ExpectedCompletionAt = expectedAt
	return o, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	switch status {
	case StatusOrdered, StatusInProcess, StatusCompleted, StatusCancelled:
	default:
		return &ValidationError{Field: "status"}
	}
	return s.repo.UpdateStatus(ctx, id, status)
}
