package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleItemInputs() ([]Item, Inputs) {
	items := []Item{
		{
			ID:            1,
			PurchasePrice: 15_000_000,
			Qty:           1,
			VendorGroup:   "A",
			CustomerGroup: "X",
			Difficulty:    "medium",
			DeliveryTime:  "normal",
		},
	}
	in := Inputs{
		VendorGroupCosts:   map[string]float64{"A": 100_000},
		CustomerGroupCosts: map[string]float64{"X": 150_000},
		DifficultyTable:    map[string]float64{"medium": 2},
		DeliveryTable:      map[string]float64{"normal": 1},
		Customer: CustomerTerms{
			MarginPercentage:  20,
			PaymentPercentage: 1,
		},
	}
	return items, in
}

func TestRecomputeSingleItem(t *testing.T) {
	items, in := singleItemInputs()

	out := Recompute(items, in)
	require.Len(t, out, 1)

	// 15,000,000 base + 100,000 vendor + 150,000 customer
	// + 300,000 difficulty + 150,000 delivery + 150,000 payment
	// = 15,850,000 HPP, x1.20 margin = 19,020,000
	assert.Equal(t, 19_020_000.0, out[0].UnitSellingPrice)
	assert.Equal(t, 19_020_000.0, out[0].TotalSellingPrice)

	bd := Explain(items[0], items, in)
	assert.Equal(t, 100_000.0, bd.VendorPerPc)
	assert.Equal(t, 150_000.0, bd.CustomerPerPc)
	assert.Equal(t, 300_000.0, bd.Difficulty)
	assert.Equal(t, 150_000.0, bd.Shipping)
	assert.Equal(t, 150_000.0, bd.PaymentCost)
	assert.Equal(t, 15_850_000.0, bd.CostPerPc)
}

func TestSummarizeWithPPN(t *testing.T) {
	items, in := singleItemInputs()
	out := Recompute(items, in)

	summary := Summarize(out, EntryTerms{DiscountPercentage: 0, PPNPercentage: 11})

	assert.Equal(t, 19_020_000.0, summary.TotalSelling)
	assert.Equal(t, 0.0, summary.DiscountAmount)
	assert.Equal(t, 19_020_000.0, summary.AfterDiscount)
	assert.Equal(t, 2_092_200.0, summary.PPNAmount)
	assert.Equal(t, 21_112_200.0, summary.GrandTotal)
}

func TestRecomputeSharedVendorGroup(t *testing.T) {
	items := []Item{
		{ID: 1, PurchasePrice: 1_000_000, Qty: 3, VendorGroup: "B", CustomerGroup: "X"},
		{ID: 2, PurchasePrice: 2_000_000, Qty: 2, VendorGroup: "B", CustomerGroup: "Y"},
	}
	in := Inputs{
		VendorGroupCosts:   map[string]float64{"B": 500_000},
		CustomerGroupCosts: map[string]float64{},
	}

	bd1 := Explain(items[0], items, in)
	bd2 := Explain(items[1], items, in)

	// 500,000 shared by qty 3+2.
	assert.Equal(t, 100_000.0, bd1.VendorPerPc)
	assert.Equal(t, 100_000.0, bd2.VendorPerPc)

	// Conservation: per-pc shares scaled by quantity sum back to the pool.
	total := bd1.VendorPerPc*float64(items[0].Qty) + bd2.VendorPerPc*float64(items[1].Qty)
	assert.Equal(t, 500_000.0, total)
}

func TestRecomputeGroupCostConservation(t *testing.T) {
	items := []Item{
		{ID: 1, PurchasePrice: 10, Qty: 7, VendorGroup: "C", CustomerGroup: "X"},
		{ID: 2, PurchasePrice: 20, Qty: 11, VendorGroup: "C", CustomerGroup: "X"},
		{ID: 3, PurchasePrice: 30, Qty: 13, VendorGroup: "C", CustomerGroup: "Z"},
	}
	in := Inputs{
		VendorGroupCosts:   map[string]float64{"C": 933_100},
		CustomerGroupCosts: map[string]float64{"X": 72_000, "Z": 9_000},
	}

	var vendorTotal, customerXTotal float64
	for _, it := range items {
		bd := Explain(it, items, in)
		vendorTotal += bd.VendorPerPc * float64(it.Qty)
		if it.CustomerGroup == "X" {
			customerXTotal += bd.CustomerPerPc * float64(it.Qty)
		}
	}

	assert.InDelta(t, 933_100.0, vendorTotal, 1e-6)
	assert.InDelta(t, 72_000.0, customerXTotal, 1e-6)
}

func TestRecomputeIdempotent(t *testing.T) {
	items := []Item{
		{ID: 1, PurchasePrice: 125_500, Qty: 4, VendorGroup: "A", CustomerGroup: "X", Difficulty: "hard", DeliveryTime: "urgent"},
		{ID: 2, PurchasePrice: 98_700, Qty: 9, VendorGroup: "A", CustomerGroup: "Y", Difficulty: "easy"},
		{ID: 3, PurchasePrice: 4_000, Qty: 1, VendorGroup: "D", CustomerGroup: "Y"},
	}
	in := Inputs{
		VendorGroupCosts:   map[string]float64{"A": 250_000, "D": 75_000},
		CustomerGroupCosts: map[string]float64{"X": 40_000, "Y": 60_000},
		DifficultyTable:    map[string]float64{"easy": 1, "hard": 5},
		DeliveryTable:      map[string]float64{"urgent": 3},
		Customer:           CustomerTerms{MarginPercentage: 17.5, PaymentPercentage: 2},
	}

	once := Recompute(items, in)
	twice := Recompute(once, in)

	assert.Equal(t, once, twice)
}

func TestRecomputeMissingRateKeysLoadZero(t *testing.T) {
	items := []Item{
		{ID: 1, PurchasePrice: 1_000, Qty: 2, VendorGroup: "A", CustomerGroup: "X", Difficulty: "unknown", DeliveryTime: "unknown"},
	}
	in := Inputs{
		VendorGroupCosts:   map[string]float64{},
		CustomerGroupCosts: map[string]float64{},
	}

	bd := Explain(items[0], items, in)
	assert.Equal(t, 0.0, bd.Difficulty)
	assert.Equal(t, 0.0, bd.Shipping)
	assert.Equal(t, 0.0, bd.PaymentCost)
	assert.Equal(t, 1_000.0, bd.CostPerPc)

	out := Recompute(items, in)
	assert.Equal(t, 1_000.0, out[0].UnitSellingPrice)
	assert.Equal(t, 2_000.0, out[0].TotalSellingPrice)
}

func TestSummarizeAggregateIndependence(t *testing.T) {
	items, in := singleItemInputs()
	priced := Recompute(items, in)

	low := Summarize(priced, EntryTerms{DiscountPercentage: 2, PPNPercentage: 11})
	high := Summarize(priced, EntryTerms{DiscountPercentage: 50, PPNPercentage: 20})

	// Entry-level percentages never touch per-item prices.
	assert.Equal(t, priced, Recompute(priced, in))
	assert.NotEqual(t, low.GrandTotal, high.GrandTotal)
	assert.Equal(t, low.TotalSelling, high.TotalSelling)
}

func TestSummarizeDiscountThenPPN(t *testing.T) {
	items := []Item{
		{TotalSellingPrice: 1_000_000},
		{TotalSellingPrice: 500_000},
	}

	summary := Summarize(items, EntryTerms{DiscountPercentage: 10, PPNPercentage: 11})

	assert.Equal(t, 1_500_000.0, summary.TotalSelling)
	assert.Equal(t, 150_000.0, summary.DiscountAmount)
	assert.Equal(t, 1_350_000.0, summary.AfterDiscount)
	assert.Equal(t, 148_500.0, summary.PPNAmount)
	assert.Equal(t, 1_498_500.0, summary.GrandTotal)
}

func TestEmptyInput(t *testing.T) {
	assert.Nil(t, Recompute(nil, Inputs{}))
	assert.Equal(t, Summary{}, Summarize(nil, EntryTerms{DiscountPercentage: 10, PPNPercentage: 11}))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 2.0, RoundHalfUp(1.5))
	assert.Equal(t, 1.0, RoundHalfUp(1.49))
	assert.Equal(t, 0.0, RoundHalfUp(0))
	assert.Equal(t, 19_020_000.0, RoundHalfUp(19_020_000.0))
	// Halves round toward +Inf, not away from zero.
	assert.Equal(t, -1.0, RoundHalfUp(-1.5))
	assert.Equal(t, -2.0, RoundHalfUp(-1.51))
}

func TestZeroMemberGroupKeepsDenominatorOne(t *testing.T) {
	// A pool whose code no current item carries contributes nothing; the
	// denominator fallback only matters for the item that does carry it.
	items := []Item{
		{ID: 1, PurchasePrice: 100, Qty: 1, VendorGroup: "E", CustomerGroup: "X"},
	}
	in := Inputs{
		VendorGroupCosts:   map[string]float64{"E": 50_000, "A": 999_999},
		CustomerGroupCosts: map[string]float64{},
	}

	bd := Explain(items[0], items, in)
	assert.Equal(t, 50_000.0, bd.VendorPerPc)
}
