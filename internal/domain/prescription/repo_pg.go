package prescription

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const prescriptionCols = `id, encounter_id, patient_id, physician_id, drug_id,
	dosage, frequency, duration, quantity, status,
	instant_dispensing, stock_reserved, stock_reserved_at, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.EncounterID, &p.PatientID, &p.PhysicianID, &p.DrugID,
		&p.Dosage, &p.Frequency, &p.Duration, &p.Quantity, &p.Status,
		&p.InstantDispensing, &p.StockReserved, &p.StockReservedAt, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription (id, encounter_id, patient_id, physician_id, drug_id,
			dosage, frequency, duration, quantity, status, instant_dispensing)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.EncounterID, p.PatientID, p.PhysicianID, p.DrugID,
		p.Dosage, p.Frequency, p.Duration, p.Quantity, p.Status, p.InstantDispensing,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
}

func (r *repoPG) LockForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prescriptions []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		prescriptions = append(prescriptions, p)
	}
	return prescriptions, rows.Err()
}

func (r *repoPG) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*Prescription, error) {
	return r.list(ctx, `
		SELECT `+prescriptionCols+` FROM prescription
		WHERE encounter_id = $1
		ORDER BY created_at`, encounterID)
}

func (r *repoPG) ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	return r.list(ctx, `
		SELECT `+prescriptionCols+` FROM prescription
		WHERE patient_id = $1 AND status = $2
		ORDER BY created_at`, patientID, StatusActive)
}

func (r *repoPG) ListExpiredReservations(ctx context.Context, cutoff time.Time) ([]*Prescription, error) {
	return r.list(ctx, `
		SELECT `+prescriptionCols+` FROM prescription
		WHERE stock_reserved AND status <> $2 AND stock_reserved_at < $1
		ORDER BY stock_reserved_at`, cutoff, StatusDispensed)
}

func (r *repoPG) MarkReserved(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription
		SET stock_reserved = true, stock_reserved_at = $2, status = $3, updated_at = now()
		WHERE id = $1`, id, at, StatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) MarkReleased(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription
		SET stock_reserved = false, stock_reserved_at = NULL, status = $2, updated_at = now()
		WHERE id = $1`, id, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
