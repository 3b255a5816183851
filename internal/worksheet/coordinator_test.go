package worksheet

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sejoli-erp/sejoli-erp/internal/pricing"
)

func newTestCoordinator(t *testing.T, repo *mockRepository, debounce time.Duration) *Coordinator {
	t.Helper()
	rates := stubRates{
		difficulty: map[string]float64{"medium": 2},
		delivery:   map[string]float64{"normal": 1},
		terms:      pricing.CustomerTerms{MarginPercentage: 20, PaymentPercentage: 1},
	}
	entry := Entry{Ref: testRef, CustomerID: 9}
	coord := NewCoordinator(repo, rates, slog.Default(), entry, debounce)
	require.NoError(t, coord.Load(context.Background()))
	t.Cleanup(coord.Close)
	return coord
}

func seedItem(repo *mockRepository, qty int, vendorGroup string, position int) int64 {
	id := repo.nextItemID
	repo.nextItemID++
	repo.items[id] = &LineItem{
		ID:            id,
		Ref:           testRef,
		PurchasePrice: 1_000_000,
		Qty:           qty,
		VendorGroup:   vendorGroup,
		CustomerGroup: "X",
		Position:      position,
	}
	return id
}

func TestCoordinatorLoadSeedsDefaultGroups(t *testing.T) {
	repo := newMockRepository()
	unquotedEntry(repo)
	coord := newTestCoordinator(t, repo, time.Hour)

	vendor := coord.Groups(GroupKindVendor)
	customer := coord.Groups(GroupKindCustomer)
	assert.Len(t, vendor, len(DefaultVendorGroups))
	assert.Len(t, customer, len(DefaultCustomerGroups))
}

func TestRecomputeLocalDoesNotTouchStore(t *testing.T) {
	repo := newMockRepository()
	unquotedEntry(repo)
	id := seedItem(repo, 1, "A", 1)
	coord := newTestCoordinator(t, repo, time.Hour)

	items, err := coord.RecomputeLocal(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	// 1,000,000 + 1% payment = 1,010,000; margin 20%.
	assert.Equal(t, 1_212_000.0, items[0].UnitSellingPrice)
	assert.Equal(t, 0, repo.priceWriteCount(id))
}

func TestRepriceWritesEveryRow(t *testing.T) {
	repo := newMockRepository()
	unquotedEntry(repo)
	a := seedItem(repo, 1, "A", 1)
	b := seedItem(repo, 2, "A", 2)
	coord := newTestCoordinator(t, repo, time.Hour)

	results, err := coord.Reprice(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Skipped)
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, 1, repo.priceWriteCount(a))
	assert.Equal(t, 1, repo.priceWriteCount(b))
}

func TestWriteBackSkipsSupersededPass(t *testing.T) {
	repo := newMockRepository()
	unquotedEntry(repo)
	seedItem(repo, 1, "A", 1)
	seedItem(repo, 1, "A", 2)
	coord := newTestCoordinator(t, repo, time.Hour)
	ctx := context.Background()

	items, err := coord.RecomputeLocal(ctx)
	require.NoError(t, err)

	// A newer recompute pass started before this pass's rows were written.
	stale := coord.seq.Add(1)
	coord.seq.Add(1)

	results, err := coord.writeBack(ctx, items, stale)
	require.ErrorIs(t, err, ErrStaleRecompute)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Skipped)
	}
	assert.Equal(t, 0, repo.priceWriteCount(items[0].ID))
	assert.Equal(t, 0, repo.priceWriteCount(items[1].ID))
}

func TestSetGroupCostUnknownGroup(t *testing.T) {
	repo := newMockRepository()
	unquotedEntry(repo)
	coord := newTestCoordinator(t, repo, time.Hour)

	err := coord.SetGroupCost(context.Background(), GroupKindVendor, 999, 100)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestDebounceTimerResetsOnRapidEdits(t *testing.T) {
	repo := newMockRepository()
	unquotedEntry(repo)
	seedItem(repo, 1, "A", 1)
	coord := newTestCoordinator(t, repo, 40*time.Millisecond)
	ctx := context.Background()

	groupID := repo.groupID(testRef, GroupKindVendor, "A")
	require.NoError(t, coord.SetGroupCost(ctx, GroupKindVendor, groupID, 10_000))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, coord.SetGroupCost(ctx, GroupKindVendor, groupID, 30_000))

	// The first edit's window was reset, so the write lands after the second
	// edit's window and carries the settled value.
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, 0, repo.groupCostWriteCount())

	assert.Eventually(t, func() bool {
		return repo.groupCostWriteCount() == 1
	}, time.Second, 5*time.Millisecond)

	groups, err := repo.ListGroups(ctx, testRef, GroupKindVendor)
	require.NoError(t, err)
	for _, g := range groups {
		if g.ID == groupID {
			assert.Equal(t, 30_000.0, g.Cost)
		}
	}
}

func TestCloseCancelsPendingPersist(t *testing.T) {
	repo := newMockRepository()
	unquotedEntry(repo)
	seedItem(repo, 1, "A", 1)
	coord := newTestCoordinator(t, repo, 20*time.Millisecond)

	groupID := repo.groupID(testRef, GroupKindVendor, "A")
	require.NoError(t, coord.SetGroupCost(context.Background(), GroupKindVendor, groupID, 10_000))
	coord.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, repo.groupCostWriteCount())
}

func TestFlushBypassesDebounceWindow(t *testing.T) {
	repo := newMockRepository()
	unquotedEntry(repo)
	id := seedItem(repo, 1, "A", 1)
	coord := newTestCoordinator(t, repo, time.Hour)
	ctx := context.Background()

	groupID := repo.groupID(testRef, GroupKindVendor, "A")
	require.NoError(t, coord.SetGroupCost(ctx, GroupKindVendor, groupID, 100_000))

	results, err := coord.Flush(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Skipped)

	// 1,000,000 + 100,000 pool + 1% payment = 1,110,000; margin 20%.
	assert.Equal(t, 1_332_000.0, repo.items[id].UnitSellingPrice)

	// The cancelled timer never fires a second write.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, len(DefaultVendorGroups)+len(DefaultCustomerGroups), repo.groupCostWriteCount())
}

func TestNextPositionSkipsGaps(t *testing.T) {
	repo := newMockRepository()
	unquotedEntry(repo)
	seedItem(repo, 1, "A", 2)
	seedItem(repo, 1, "A", 7)
	coord := newTestCoordinator(t, repo, time.Hour)

	assert.Equal(t, 8, coord.NextPosition())
}

func TestItemsOrdersUnpositionedLast(t *testing.T) {
	repo := newMockRepository()
	unquotedEntry(repo)
	unpositioned := seedItem(repo, 1, "A", 0)
	positioned := seedItem(repo, 1, "A", 3)
	coord := newTestCoordinator(t, repo, time.Hour)

	items := coord.Items()
	require.Len(t, items, 2)
	assert.Equal(t, positioned, items[0].ID)
	assert.Equal(t, unpositioned, items[1].ID)
}
