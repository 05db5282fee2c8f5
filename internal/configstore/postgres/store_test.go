package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solana-token-sniper/internal/configstore"
	"solana-token-sniper/internal/domain"
)

func testConfig(id string) *domain.SniperConfig {
	return &domain.SniperConfig{
		ID:               id,
		Name:             "Config " + id,
		Enabled:          true,
		Keywords:         []string{"dog", "moon"},
		Blacklist:        []string{"rug"},
		MinLiquidityUSD:  1000,
		BuyAmountSOL:     0.25,
		SlippageBps:      300,
		SelectedWallets:  []string{"w1", "w2"},
		MaxDailySpendSOL: 2,
		CooldownPeriod:   5 * time.Minute,
		UpdatedAt:        time.Now().UnixMilli(),
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(pool, nil)
	ctx := context.Background()

	cfg := testConfig("c1")
	require.NoError(t, store.Put(ctx, cfg))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, cfg.Name, got.Name)
	require.Equal(t, cfg.Keywords, got.Keywords)
	require.Equal(t, cfg.SelectedWallets, got.SelectedWallets)
	require.Equal(t, cfg.CooldownPeriod, got.CooldownPeriod)
	require.Equal(t, cfg.BuyAmountSOL, got.BuyAmountSOL)
}

func TestStore_ListAndDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(pool, nil)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testConfig("c1")))
	require.NoError(t, store.Put(ctx, testConfig("c2")))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, store.Delete(ctx, "c1"))
	require.ErrorIs(t, store.Delete(ctx, "c1"), configstore.ErrNotFound)

	_, err = store.Get(ctx, "c1")
	require.ErrorIs(t, err, configstore.ErrNotFound)
}

func TestStore_PutUpserts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(pool, nil)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testConfig("c1")))

	updated := testConfig("c1")
	updated.Enabled = false
	updated.BuyAmountSOL = 1.5
	require.NoError(t, store.Put(ctx, updated))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	require.False(t, got.Enabled)
	require.Equal(t, 1.5, got.BuyAmountSOL)
}

func TestStore_InvalidInput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(pool, nil)
	require.ErrorIs(t, store.Put(context.Background(), &domain.SniperConfig{}), configstore.ErrInvalidInput)
}

func TestStore_WatchReceivesNotifications(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(pool, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, testConfig("c1")))
	require.NoError(t, store.Delete(ctx, "c1"))

	expect := []configstore.Event{
		{Type: configstore.EventPut, ConfigID: "c1"},
		{Type: configstore.EventDelete, ConfigID: "c1"},
	}
	for _, want := range expect {
		select {
		case got := <-events:
			require.Equal(t, want, got)
		case <-time.After(10 * time.Second):
			t.Fatalf("timed out waiting for %+v", want)
		}
	}
}

func TestParsePayload(t *testing.T) {
	ev, ok := parsePayload("PUT:c1")
	require.True(t, ok)
	require.Equal(t, configstore.Event{Type: configstore.EventPut, ConfigID: "c1"}, ev)

	_, ok = parsePayload("NOPE:c1")
	require.False(t, ok)
	_, ok = parsePayload("PUT:")
	require.False(t, ok)
	_, ok = parsePayload("garbage")
	require.False(t, ok)
}
