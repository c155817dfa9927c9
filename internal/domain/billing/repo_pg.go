package billing

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

type catalogRepoPG struct{ pool *pgxpool.Pool }

func NewCatalogRepoPG(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepoPG{pool: pool}
}

func (r *catalogRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const catalogCols = `id, code, description, unit_price, created_at, updated_at`

func scanCatalogItem(row pgx.Row) (*ChargeCatalogItem, error) {
	var item ChargeCatalogItem
	err := row.Scan(&item.ID, &item.Code, &item.Description, &item.UnitPrice,
		&item.CreatedAt, &item.UpdatedAt)
	return &item, err
}

func (r *catalogRepoPG) Create(ctx context.Context, item *ChargeCatalogItem) error {
	item.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO charge_catalog (id, code, description, unit_price)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		item.ID, item.Code, item.Description, item.UnitPrice,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
}

func (r *catalogRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ChargeCatalogItem, error) {
	return scanCatalogItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+catalogCols+` FROM charge_catalog WHERE id = $1`, id))
}

func (r *catalogRepoPG) GetByCode(ctx context.Context, code string) (*ChargeCatalogItem, error) {
	return scanCatalogItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+catalogCols+` FROM charge_catalog WHERE code = $1`, code))
}

func (r *catalogRepoPG) Update(ctx context.Context, item *ChargeCatalogItem) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE charge_catalog
		SET description = $2, unit_price = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		item.ID, item.Description, item.UnitPrice,
	).Scan(&item.UpdatedAt)
}

func (r *catalogRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM charge_catalog WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *catalogRepoPG) List(ctx context.Context, limit, offset int) ([]*ChargeCatalogItem, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM charge_catalog`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+catalogCols+` FROM charge_catalog
		ORDER BY code
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ChargeCatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

type itemRepoPG struct{ pool *pgxpool.Pool }

func NewItemRepoPG(pool *pgxpool.Pool) ItemRepository {
	return &itemRepoPG{pool: pool}
}

func (r *itemRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *itemRepoPG) Create(ctx context.Context, item *BillingItem) error {
	item.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO billing_item (id, encounter_id, source_type, source_id, code, description, amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		item.ID, item.EncounterID, item.SourceType, item.SourceID,
		item.Code, item.Description, item.Amount,
	).Scan(&item.CreatedAt)
}

func (r *itemRepoPG) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*BillingItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, encounter_id, source_type, source_id, code, description, amount, created_at
		FROM billing_item
		WHERE encounter_id = $1
		ORDER BY created_at`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*BillingItem
	for rows.Next() {
		var item BillingItem
		if err := rows.Scan(&item.ID, &item.EncounterID, &item.SourceType, &item.SourceID,
			&item.Code, &item.Description, &item.Amount, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
