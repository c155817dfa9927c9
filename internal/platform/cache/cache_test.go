package cache

import (
	"context"
	"errors"
	"testing"
)

func TestNoop_GetAlwaysMisses(t *testing.T) {
	var dest struct{ Name string }
	err := Noop{}.Get(context.Background(), "drug", "abc", &dest)
	if !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestNoop_WritesSucceed(t *testing.T) {
	n := Noop{}
	ctx := context.Background()

	if err := n.Set(ctx, "drug", "abc", map[string]string{"name": "Aspirin"}); err != nil {
		t.Errorf("Set() error: %v", err)
	}
	if err := n.Invalidate(ctx, "drug", "abc"); err != nil {
		t.Errorf("Invalidate() error: %v", err)
	}
	if err := n.InvalidateType(ctx, "drug"); err != nil {
		t.Errorf("InvalidateType() error: %v", err)
	}
}

func TestRedisCache_KeyFormat(t *testing.T) {
	c := &redisCache{prefix: "his"}
	if got := c.key("charge_catalog", "MED-42"); got != "his:charge_catalog:MED-42" {
		t.Errorf("unexpected key format: %s", got)
	}
}
