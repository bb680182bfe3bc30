package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

func createTestFill(tradeID string, kind domain.FillKind, at time.Time, units float64) *domain.Fill {
	return &domain.Fill{
		TradeID:      tradeID,
		Instrument:   "USD/JPY",
		Direction:    domain.DirectionLong,
		Kind:         kind,
		Time:         at,
		MidPrice:     150.10,
		ExecPrice:    150.101,
		Units:        units,
		SpreadPips:   0.2,
		SlippagePips: 0.2,
		SpreadCost:   10,
		SlippageCost: 10,
		Swap:         0,
		PnLGross:     0,
		PnLNet:       -20,
	}
}

func TestFillStore_InsertBulkAndGetByTradeID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFillStore(pool)

	entry := time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC)
	fills := []*domain.Fill{
		createTestFill("trade-001", domain.FillTP1, entry.Add(8*time.Hour), 2500),
		createTestFill("trade-001", domain.FillEntry, entry, 5000),
		createTestFill("trade-002", domain.FillEntry, entry, 3000),
	}

	require.NoError(t, store.InsertBulk(ctx, fills))

	got, err := store.GetByTradeID(ctx, "trade-001")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.FillEntry, got[0].Kind)
	assert.Equal(t, domain.FillTP1, got[1].Kind)
	assert.True(t, got[0].Time.Equal(entry))
	assert.InDelta(t, 150.101, got[0].ExecPrice, 1e-9)
}

func TestFillStore_SameInstantEntrySortsFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFillStore(pool)

	at := time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBulk(ctx, []*domain.Fill{
		createTestFill("trade-001", domain.FillStop, at, 5000),
		createTestFill("trade-001", domain.FillEntry, at, 5000),
	}))

	got, err := store.GetByTradeID(ctx, "trade-001")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.FillEntry, got[0].Kind)
}

func TestFillStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFillStore(pool)

	at := time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC)
	f := createTestFill("trade-001", domain.FillEntry, at, 5000)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Fill{f}))

	err := store.InsertBulk(ctx, []*domain.Fill{f})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The failed batch must not have partially applied.
	got, err := store.GetByTradeID(ctx, "trade-001")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
