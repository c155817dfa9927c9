package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/his/his/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const appointmentCols = `id, patient_id, physician_id, scheduled_at, status,
	chief_complaint, consultation_completed_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.PhysicianID, &a.ScheduledAt, &a.Status,
		&a.ChiefComplaint, &a.ConsultationCompletedAt, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, physician_id, scheduled_at, status, chief_complaint)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.PhysicianID, a.ScheduledAt, a.Status, a.ChiefComplaint,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT count(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+` FROM appointment
		WHERE patient_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appointments []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appointments = append(appointments, a)
	}
	return appointments, total, rows.Err()
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *appointmentRepoPG) Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment
		SET status = $2, consultation_completed_at = $3, updated_at = now()
		WHERE id = $1 AND status <> $2`,
		id, StatusCompleted, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository {
	return &noteRepoPG{pool: pool}
}

func (r *noteRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *noteRepoPG) Upsert(ctx context.Context, n *ClinicalNote) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinical_note (id, appointment_id, subjective, objective, assessment, plan, is_draft)
		VALUES ($1,$2,$3,$4,$5,$6,true)
		ON CONFLICT (appointment_id) DO UPDATE
		SET subjective = EXCLUDED.subjective,
			objective = EXCLUDED.objective,
			assessment = EXCLUDED.assessment,
			plan = EXCLUDED.plan,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		n.ID, n.AppointmentID, n.Subjective, n.Objective, n.Assessment, n.Plan,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

func (r *noteRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ClinicalNote, error) {
	var n ClinicalNote
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, appointment_id, subjective, objective, assessment, plan,
			is_draft, finalized_at, created_at, updated_at
		FROM clinical_note
		WHERE appointment_id = $1`, appointmentID,
	).Scan(&n.ID, &n.AppointmentID, &n.Subjective, &n.Objective, &n.Assessment, &n.Plan,
		&n.IsDraft, &n.FinalizedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *noteRepoPG) Finalize(ctx context.Context, appointmentID uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_note
		SET is_draft = false, finalized_at = $2, updated_at = now()
		WHERE appointment_id = $1 AND is_draft`, appointmentID, at)
	return err
}
