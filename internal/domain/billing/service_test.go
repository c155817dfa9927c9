package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/his/his/internal/platform/cache"
)

type mockCatalogRepo struct {
	items     map[uuid.UUID]*ChargeCatalogItem
	codeReads int
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{items: make(map[uuid.UUID]*ChargeCatalogItem)}
}

func (m *mockCatalogRepo) Create(_ context.Context, item *ChargeCatalogItem) error {
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()
	m.items[item.ID] = item
	return nil
}

func (m *mockCatalogRepo) GetByID(_ context.Context, id uuid.UUID) (*ChargeCatalogItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return item, nil
}

func (m *mockCatalogRepo) GetByCode(_ context.Context, code string) (*ChargeCatalogItem, error) {
	m.codeReads++
	for _, item := range m.items {
		if item.Code == code {
			return item, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockCatalogRepo) Update(_ context.Context, item *ChargeCatalogItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.items[item.ID] = item
	return nil
}

func (m *mockCatalogRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *mockCatalogRepo) List(_ context.Context, limit, offset int) ([]*ChargeCatalogItem, int, error) {
	var result []*ChargeCatalogItem
	for _, item := range m.items {
		result = append(result, item)
	}
	return result, len(result), nil
}

type mockItemRepo struct {
	items []*BillingItem
}

func (m *mockItemRepo) Create(_ context.Context, item *BillingItem) error {
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	m.items = append(m.items, item)
	return nil
}

func (m *mockItemRepo) ListByEncounter(_ context.Context, encounterID uuid.UUID) ([]*BillingItem, error) {
	var result []*BillingItem
	for _, item := range m.items {
		if item.EncounterID == encounterID {
			result = append(result, item)
		}
	}
	return result, nil
}

// memCache is an in-memory EntityCache that records hits and misses.
type memCache struct {
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) key(entityType, id string) string { return entityType + ":" + id }

func (c *memCache) Get(_ context.Context, entityType, id string, dest interface{}) error {
	raw, ok := c.entries[c.key(entityType, id)]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, entityType, id string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[c.key(entityType, id)] = raw
	return nil
}

func (c *memCache) Invalidate(_ context.Context, entityType, id string) error {
	delete(c.entries, c.key(entityType, id))
	return nil
}

func (c *memCache) InvalidateType(_ context.Context, entityType string) error {
	for k := range c.entries {
		if len(k) > len(entityType) && k[:len(entityType)] == entityType {
			delete(c.entries, k)
		}
	}
	return nil
}

func newTestService() (*Service, *mockCatalogRepo, *mockItemRepo, *memCache) {
	catalog := newMockCatalogRepo()
	items := &mockItemRepo{}
	mc := newMemCache()
	svc := NewService(catalog, items, mc, zerolog.Nop())
	return svc, catalog, items, mc
}

func seedCatalog(t *testing.T, svc *Service, code string, price float64) *ChargeCatalogItem {
	t.Helper()
	item := &ChargeCatalogItem{Code: code, Description: fmt.Sprintf("entry %s", code), UnitPrice: price}
	if err := svc.CreateCatalogItem(context.Background(), item); err != nil {
		t.Fatalf("CreateCatalogItem() error: %v", err)
	}
	return item
}

func TestChargeFor_Prescription(t *testing.T) {
	svc, _, items, _ := newTestService()
	ctx := context.Background()

	drugID := uuid.New()
	encounterID := uuid.New()
	entry := seedCatalog(t, svc, MedicationCode(drugID), 12.50)

	itemID, ok, err := svc.ChargeFor(ctx, encounterID, SourcePrescription, drugID)
	if err != nil {
		t.Fatalf("ChargeFor() error: %v", err)
	}
	if !ok {
		t.Fatal("expected a charge to be raised")
	}
	if itemID == uuid.Nil {
		t.Error("expected a billing item id")
	}

	if len(items.items) != 1 {
		t.Fatalf("expected 1 billing item, got %d", len(items.items))
	}
	raised := items.items[0]
	if raised.Amount != 12.50 {
		t.Errorf("expected amount 12.50, got %v", raised.Amount)
	}
	if raised.Code != entry.Code {
		t.Errorf("unexpected code %q", raised.Code)
	}
	if raised.SourceType != SourcePrescription || raised.SourceID != drugID {
		t.Error("billing item does not reference its source")
	}
}

func TestChargeFor_LabOrder(t *testing.T) {
	svc, _, items, _ := newTestService()

	testID := uuid.New()
	seedCatalog(t, svc, LabCode(testID), 40)

	_, ok, err := svc.ChargeFor(context.Background(), uuid.New(), SourceLabOrder, testID)
	if err != nil {
		t.Fatalf("ChargeFor() error: %v", err)
	}
	if !ok || len(items.items) != 1 {
		t.Fatal("expected one lab charge")
	}
	if items.items[0].Code != LabCode(testID) {
		t.Errorf("unexpected code %q", items.items[0].Code)
	}
}

func TestChargeFor_MissingCatalogEntry(t *testing.T) {
	svc, _, items, _ := newTestService()

	itemID, ok, err := svc.ChargeFor(context.Background(), uuid.New(), SourcePrescription, uuid.New())
	if err != nil {
		t.Fatalf("missing catalogue entry must not error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing catalogue entry")
	}
	if itemID != uuid.Nil {
		t.Error("expected nil item id")
	}
	if len(items.items) != 0 {
		t.Error("no billing item must be created")
	}
}

func TestChargeFor_UnknownSourceType(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, _, err := svc.ChargeFor(context.Background(), uuid.New(), "imaging", uuid.New()); err == nil {
		t.Error("expected error for unknown source type")
	}
}

func TestChargeFor_CacheBackfill(t *testing.T) {
	svc, catalog, _, _ := newTestService()
	ctx := context.Background()

	drugID := uuid.New()
	seedCatalog(t, svc, MedicationCode(drugID), 5)

	encounterID := uuid.New()
	for i := 0; i < 3; i++ {
		if _, _, err := svc.ChargeFor(ctx, encounterID, SourcePrescription, drugID); err != nil {
			t.Fatalf("ChargeFor() #%d error: %v", i+1, err)
		}
	}

	// First call misses and backfills; the rest are served from cache.
	if catalog.codeReads != 1 {
		t.Errorf("expected 1 database code lookup, got %d", catalog.codeReads)
	}
}

func TestCatalogWrite_InvalidatesCache(t *testing.T) {
	svc, _, _, mc := newTestService()
	ctx := context.Background()

	drugID := uuid.New()
	entry := seedCatalog(t, svc, MedicationCode(drugID), 5)

	// Warm the cache.
	if _, _, err := svc.ChargeFor(ctx, uuid.New(), SourcePrescription, drugID); err != nil {
		t.Fatalf("ChargeFor() error: %v", err)
	}
	if _, ok := mc.entries[mc.key(catalogCacheType, entry.Code)]; !ok {
		t.Fatal("expected cache to be warm")
	}

	entry.UnitPrice = 9
	if err := svc.UpdateCatalogItem(ctx, entry); err != nil {
		t.Fatalf("UpdateCatalogItem() error: %v", err)
	}
	if _, ok := mc.entries[mc.key(catalogCacheType, entry.Code)]; ok {
		t.Error("expected cache entry dropped after update")
	}

	// Next charge picks up the new price.
	_, _, err := svc.ChargeFor(ctx, uuid.New(), SourcePrescription, drugID)
	if err != nil {
		t.Fatalf("ChargeFor() error: %v", err)
	}
}

func TestCreateCatalogItem_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		item ChargeCatalogItem
	}{
		{"missing code", ChargeCatalogItem{Description: "d", UnitPrice: 1}},
		{"missing description", ChargeCatalogItem{Code: "MED-x", UnitPrice: 1}},
		{"negative price", ChargeCatalogItem{Code: "MED-x", Description: "d", UnitPrice: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.CreateCatalogItem(ctx, &tt.item); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
