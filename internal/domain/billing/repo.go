package billing

import (
	"context"

	"github.com/google/uuid"
)

type CatalogRepository interface {
	Create(ctx context.Context, item *ChargeCatalogItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*ChargeCatalogItem, error)
	GetByCode(ctx context.Context, code string) (*ChargeCatalogItem, error)
	Update(ctx context.Context, item *ChargeCatalogItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*ChargeCatalogItem, int, error)
}

type ItemRepository interface {
	Create(ctx context.Context, item *BillingItem) error
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*BillingItem, error)
}
