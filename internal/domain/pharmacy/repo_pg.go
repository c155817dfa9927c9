package pharmacy

import (
	"context"

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

// =========== Drug Repository ===========

type drugRepoPG struct{ pool *pgxpool.Pool }

func NewDrugRepoPG(pool *pgxpool.Pool) DrugRepository {
	return &drugRepoPG{pool: pool}
}

func (r *drugRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const drugCols = `id, name, generic_name, therapeutic_class, atc_code, form, strength,
	stock_quantity, reorder_level, created_at, updated_at`

func (r *drugRepoPG) scanDrug(row pgx.Row) (*Drug, error) {
	var d Drug
	err := row.Scan(&d.ID, &d.Name, &d.GenericName, &d.TherapeuticClass, &d.ATCCode,
		&d.Form, &d.Strength, &d.StockQuantity, &d.ReorderLevel, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *drugRepoPG) Create(ctx context.Context, d *Drug) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO drug_formulary (id, name, generic_name, therapeutic_class, atc_code,
			form, strength, stock_quantity, reorder_level)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		d.ID, d.Name, d.GenericName, d.TherapeuticClass, d.ATCCode,
		d.Form, d.Strength, d.StockQuantity, d.ReorderLevel)
	return err
}

func (r *drugRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Drug, error) {
	return r.scanDrug(r.conn(ctx).QueryRow(ctx,
		`SELECT `+drugCols+` FROM drug_formulary WHERE id = $1`, id))
}

func (r *drugRepoPG) LockForUpdate(ctx context.Context, id uuid.UUID) (*Drug, error) {
	return r.scanDrug(r.conn(ctx).QueryRow(ctx,
		`SELECT `+drugCols+` FROM drug_formulary WHERE id = $1 FOR UPDATE`, id))
}

func (r *drugRepoPG) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var balance int
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE drug_formulary
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING stock_quantity`, id, delta).Scan(&balance)
	return balance, err
}

func (r *drugRepoPG) Update(ctx context.Context, d *Drug) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE drug_formulary SET name=$2, generic_name=$3, therapeutic_class=$4,
			atc_code=$5, form=$6, strength=$7, reorder_level=$8, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.GenericName, d.TherapeuticClass,
		d.ATCCode, d.Form, d.Strength, d.ReorderLevel)
	return err
}

func (r *drugRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM drug_formulary WHERE id = $1`, id)
	return err
}

func (r *drugRepoPG) List(ctx context.Context, limit, offset int) ([]*Drug, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM drug_formulary`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+drugCols+` FROM drug_formulary ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Drug
	for rows.Next() {
		d, err := r.scanDrug(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *drugRepoPG) ListBelowReorder(ctx context.Context) ([]*Drug, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+drugCols+` FROM drug_formulary WHERE stock_quantity <= reorder_level ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Drug
	for rows.Next() {
		d, err := r.scanDrug(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// =========== StockMovement Repository ===========

type stockMovementRepoPG struct{ pool *pgxpool.Pool }

func NewStockMovementRepoPG(pool *pgxpool.Pool) StockMovementRepository {
	return &stockMovementRepoPG{pool: pool}
}

func (r *stockMovementRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const movementCols = `id, drug_id, movement_type, quantity, reference_no, balance_after, created_at`

func (r *stockMovementRepoPG) scanMovement(row pgx.Row) (*StockMovement, error) {
	var m StockMovement
	err := row.Scan(&m.ID, &m.DrugID, &m.MovementType, &m.Quantity,
		&m.ReferenceNo, &m.BalanceAfter, &m.CreatedAt)
	return &m, err
}

func (r *stockMovementRepoPG) Append(ctx context.Context, m *StockMovement) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO stock_movement (id, drug_id, movement_type, quantity, reference_no, balance_after)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.DrugID, m.MovementType, m.Quantity, m.ReferenceNo, m.BalanceAfter)
	return err
}

func (r *stockMovementRepoPG) ListByDrug(ctx context.Context, drugID uuid.UUID, limit, offset int) ([]*StockMovement, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_movement WHERE drug_id = $1`, drugID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + movementCols + ` FROM stock_movement WHERE drug_id = $1 ORDER BY created_at, id`
	args := []interface{}{drugID}
	if limit > 0 {
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*StockMovement
	for rows.Next() {
		m, err := r.scanMovement(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *stockMovementRepoPG) ListByReference(ctx context.Context, referenceNo string) ([]*StockMovement, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+movementCols+` FROM stock_movement WHERE reference_no = $1 ORDER BY created_at, id`,
		referenceNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*StockMovement
	for rows.Next() {
		m, err := r.scanMovement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// =========== Dispensation Repository ===========

type dispensationRepoPG struct{ pool *pgxpool.Pool }

func NewDispensationRepoPG(pool *pgxpool.Pool) DispensationRepository {
	return &dispensationRepoPG{pool: pool}
}

func (r *dispensationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const dispensationCols = `id, prescription_id, quantity_dispensed, dispensed_at`

func (r *dispensationRepoPG) scanDispensation(row pgx.Row) (*Dispensation, error) {
	var d Dispensation
	err := row.Scan(&d.ID, &d.PrescriptionID, &d.QuantityDispensed, &d.DispensedAt)
	return &d, err
}

func (r *dispensationRepoPG) Create(ctx context.Context, d *Dispensation) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO dispensation (id, prescription_id, quantity_dispensed)
		VALUES ($1,$2,$3)
		RETURNING dispensed_at`,
		d.ID, d.PrescriptionID, d.QuantityDispensed).Scan(&d.DispensedAt)
}

func (r *dispensationRepoPG) GetByPrescription(ctx context.Context, prescriptionID uuid.UUID) (*Dispensation, error) {
	return r.scanDispensation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+dispensationCols+` FROM dispensation WHERE prescription_id = $1`, prescriptionID))
}

func (r *dispensationRepoPG) ListByPrescriptions(ctx context.Context, prescriptionIDs []uuid.UUID) ([]*Dispensation, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+dispensationCols+` FROM dispensation WHERE prescription_id = ANY($1) ORDER BY dispensed_at`,
		prescriptionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Dispensation
	for rows.Next() {
		d, err := r.scanDispensation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
