package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/his/his/internal/platform/cache"
)

const catalogCacheType = "charge_catalog"

type Service struct {
	catalog CatalogRepository
	items   ItemRepository
	cache   cache.EntityCache
	logger  zerolog.Logger
}

func NewService(catalog CatalogRepository, items ItemRepository, entityCache cache.EntityCache, logger zerolog.Logger) *Service {
	return &Service{catalog: catalog, items: items, cache: entityCache, logger: logger}
}

// -- Catalogue master data --

func validateCatalogItem(item *ChargeCatalogItem) error {
	if strings.TrimSpace(item.Code) == "" {
		return fmt.Errorf("code is required")
	}
	if strings.TrimSpace(item.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if item.UnitPrice < 0 {
		return fmt.Errorf("unit_price must not be negative")
	}
	return nil
}

func (s *Service) CreateCatalogItem(ctx context.Context, item *ChargeCatalogItem) error {
	if err := validateCatalogItem(item); err != nil {
		return err
	}
	if err := s.catalog.Create(ctx, item); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, catalogCacheType, item.Code); err != nil {
		s.logger.Warn().Err(err).Str("code", item.Code).Msg("catalog cache invalidation failed")
	}
	return nil
}

func (s *Service) GetCatalogItem(ctx context.Context, id uuid.UUID) (*ChargeCatalogItem, error) {
	return s.catalog.GetByID(ctx, id)
}

func (s *Service) UpdateCatalogItem(ctx context.Context, item *ChargeCatalogItem) error {
	if err := validateCatalogItem(item); err != nil {
		return err
	}
	if err := s.catalog.Update(ctx, item); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, catalogCacheType, item.Code); err != nil {
		s.logger.Warn().Err(err).Str("code", item.Code).Msg("catalog cache invalidation failed")
	}
	return nil
}

func (s *Service) DeleteCatalogItem(ctx context.Context, id uuid.UUID) error {
	item, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.catalog.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, catalogCacheType, item.Code); err != nil {
		s.logger.Warn().Err(err).Str("code", item.Code).Msg("catalog cache invalidation failed")
	}
	return nil
}

func (s *Service) ListCatalog(ctx context.Context, limit, offset int) ([]*ChargeCatalogItem, int, error) {
	return s.catalog.List(ctx, limit, offset)
}

// lookupByCode resolves a catalogue entry through the entity cache. A miss
// falls through to the database and backfills the cache. Returns ok=false
// when no entry exists for the code.
func (s *Service) lookupByCode(ctx context.Context, code string) (*ChargeCatalogItem, bool, error) {
	var item ChargeCatalogItem
	if err := s.cache.Get(ctx, catalogCacheType, code, &item); err == nil {
		return &item, true, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Str("code", code).Msg("catalog cache read failed")
	}

	stored, err := s.catalog.GetByCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, catalogCacheType, code, stored); err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("catalog cache write failed")
	}
	return stored, true, nil
}

// ChargeFor raises one billing item against an encounter for a prescription
// drug or a lab test. When the catalogue has no entry for the derived code
// it returns ok=false with no error: the caller skips the item rather than
// failing the whole finalization over missing master data.
func (s *Service) ChargeFor(ctx context.Context, encounterID uuid.UUID, sourceType string, refID uuid.UUID) (uuid.UUID, bool, error) {
	var code string
	switch sourceType {
	case SourcePrescription:
		code = MedicationCode(refID)
	case SourceLabOrder:
		code = LabCode(refID)
	default:
		return uuid.Nil, false, fmt.Errorf("unknown billing source type %q", sourceType)
	}

	entry, ok, err := s.lookupByCode(ctx, code)
	if err != nil {
		return uuid.Nil, false, err
	}
	if !ok {
		s.logger.Info().
			Str("encounter_id", encounterID.String()).
			Str("code", code).
			Msg("no catalogue entry, skipping charge")
		return uuid.Nil, false, nil
	}

	item := &BillingItem{
		EncounterID: encounterID,
		SourceType:  sourceType,
		SourceID:    refID,
		Code:        entry.Code,
		Description: entry.Description,
		Amount:      entry.UnitPrice,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return uuid.Nil, false, err
	}
	return item.ID, true, nil
}

func (s *Service) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*BillingItem, error) {
	return s.items.ListByEncounter(ctx, encounterID)
}
