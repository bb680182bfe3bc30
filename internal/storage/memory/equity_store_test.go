package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

func TestEquityStore_InsertAndGet(t *testing.T) {
	store := NewEquityStore()
	ctx := context.Background()
	start := time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC)

	points := []*domain.EquityPoint{
		{RunID: "run1", Time: start.Add(8 * time.Hour), Equity: 10100},
		{RunID: "run1", Time: start, Equity: 10000},
		{RunID: "run2", Time: start, Equity: 50000},
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 points for run1, got %d", len(got))
	}
	if got[0].Equity != 10000 || got[1].Equity != 10100 {
		t.Errorf("Expected time-ordered equity 10000,10100; got %f,%f", got[0].Equity, got[1].Equity)
	}
}

func TestEquityStore_DuplicateKey(t *testing.T) {
	store := NewEquityStore()
	ctx := context.Background()
	start := time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC)

	p := &domain.EquityPoint{RunID: "run1", Time: start, Equity: 10000}
	if err := store.InsertBulk(ctx, []*domain.EquityPoint{p}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.EquityPoint{p})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestEquityStore_EmptyRun(t *testing.T) {
	store := NewEquityStore()
	ctx := context.Background()

	got, err := store.GetByRunID(ctx, "missing")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no points for unknown run, got %d", len(got))
	}
}
