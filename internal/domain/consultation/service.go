package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/his/his/internal/domain/billing"
	"github.com/his/his/internal/domain/laborder"
	"github.com/his/his/internal/domain/pharmacy"
	"github.com/his/his/internal/domain/prescription"
	"github.com/his/his/internal/platform/db"
)

// PrescriptionService is the slice of the prescription service the
// orchestrator needs.
type PrescriptionService interface {
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*prescription.Prescription, error)
	ReserveStock(ctx context.Context, p *prescription.Prescription) error
	MarkDispensed(ctx context.Context, id uuid.UUID) error
}

type LabOrderService interface {
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*laborder.LabOrder, error)
}

// Biller raises one charge per clinical item. ok=false means the catalogue
// has no entry for the item and the charge is skipped.
type Biller interface {
	ChargeFor(ctx context.Context, encounterID uuid.UUID, sourceType string, refID uuid.UUID) (uuid.UUID, bool, error)
}

// Dispenser records the physical handover of reserved medication.
type Dispenser interface {
	RecordDispense(ctx context.Context, prescriptionID, drugID uuid.UUID, qty int, referenceNo string) (*pharmacy.Dispensation, error)
}

type Service struct {
	appointments  AppointmentRepository
	notes         NoteRepository
	prescriptions PrescriptionService
	labOrders     LabOrderService
	biller        Biller
	dispenser     Dispenser
	tx            db.TxRunner
	logger        zerolog.Logger
}

func NewService(
	appointments AppointmentRepository,
	notes NoteRepository,
	prescriptions PrescriptionService,
	labOrders LabOrderService,
	biller Biller,
	dispenser Dispenser,
	tx db.TxRunner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		appointments:  appointments,
		notes:         notes,
		prescriptions: prescriptions,
		labOrders:     labOrders,
		biller:        biller,
		dispenser:     dispenser,
		tx:            tx,
		logger:        logger,
	}
}

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.PhysicianID == uuid.Nil {
		return fmt.Errorf("physician_id is required")
	}
	if a.ScheduledAt.IsZero() {
		a.ScheduledAt = time.Now()
	}
	a.Status = StatusWaiting
	return s.appointments.Create(ctx, a)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

// Start moves a waiting appointment into the consultation room.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case StatusCompleted:
		return nil, ErrAlreadyCompleted
	case StatusInProgress:
		return a, nil
	}
	if err := s.appointments.UpdateStatus(ctx, id, StatusInProgress); err != nil {
		return nil, err
	}
	a.Status = StatusInProgress
	return a, nil
}

// SaveNote creates or updates the draft clinical note for an appointment.
func (s *Service) SaveNote(ctx context.Context, n *ClinicalNote) error {
	a, err := s.appointments.GetByID(ctx, n.AppointmentID)
	if err != nil {
		return err
	}
	if a.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	n.IsDraft = true
	return s.notes.Upsert(ctx, n)
}

// Summary assembles the review view: the appointment, its draft note, and
// every prescription and lab order raised during the visit.
func (s *Service) Summary(ctx context.Context, appointmentID uuid.UUID) (*EncounterSummary, error) {
	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	prescriptions, err := s.prescriptions.ListByEncounter(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	labOrders, err := s.labOrders.ListByEncounter(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	note, err := s.notes.GetByAppointment(ctx, appointmentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	return &EncounterSummary{
		Appointment:       a,
		Note:              note,
		Prescriptions:     prescriptions,
		LabOrders:         labOrders,
		PrescriptionCount: len(prescriptions),
		LabOrderCount:     len(labOrders),
	}, nil
}

// Complete finalizes the consultation in a single transaction: it realizes
// every instant-dispensing prescription as a dispensation, raises billing
// items for prescriptions and lab orders, flips the appointment to COMPLETED
// under a status guard, and finalizes the draft note. Any error rolls the
// whole transaction back.
func (s *Service) Complete(ctx context.Context, appointmentID uuid.UUID) (*CompletionResult, error) {
	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCompleted {
		return nil, ErrAlreadyCompleted
	}

	result := &CompletionResult{AppointmentID: appointmentID}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		prescriptions, err := s.prescriptions.ListByEncounter(ctx, appointmentID)
		if err != nil {
			return err
		}
		labOrders, err := s.labOrders.ListByEncounter(ctx, appointmentID)
		if err != nil {
			return err
		}

		for _, p := range prescriptions {
			if p.Status == prescription.StatusCancelled {
				continue
			}
			if p.InstantDispensing {
				if !p.StockReserved {
					// The expiry sweep reclaimed this reservation; the
					// quantity must be validated against current stock
					// before it can leave the pharmacy.
					if err := s.prescriptions.ReserveStock(ctx, p); err != nil {
						return fmt.Errorf("re-reserve prescription %s: %w", p.ID, err)
					}
				}
				if _, err := s.dispenser.RecordDispense(ctx, p.ID, p.DrugID, p.Quantity, p.ReferenceNo()); err != nil {
					return fmt.Errorf("dispense prescription %s: %w", p.ID, err)
				}
				if err := s.prescriptions.MarkDispensed(ctx, p.ID); err != nil {
					return err
				}
				result.Dispensed++
			}
			if _, ok, err := s.biller.ChargeFor(ctx, appointmentID, billing.SourcePrescription, p.DrugID); err != nil {
				return err
			} else if ok {
				result.Billed++
			} else {
				result.SkippedItems++
			}
		}

		for _, o := range labOrders {
			if o.Status == laborder.StatusCancelled {
				continue
			}
			if _, ok, err := s.biller.ChargeFor(ctx, appointmentID, billing.SourceLabOrder, o.TestID); err != nil {
				return err
			} else if ok {
				result.Billed++
			} else {
				result.SkippedItems++
			}
		}

		now := time.Now()
		completed, err := s.appointments.Complete(ctx, appointmentID, now)
		if err != nil {
			return err
		}
		if !completed {
			return ErrAlreadyCompleted
		}
		result.CompletedAt = now

		return s.notes.Finalize(ctx, appointmentID, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Int("dispensed", result.Dispensed).
		Int("billed", result.Billed).
		Int("skipped", result.SkippedItems).
		Msg("consultation completed")
	return result, nil
}
