// Package pricing implements the cost-allocation and pricing engine for
// costing worksheet entries. It is pure computation: shared shipping-pool
// costs are distributed across group members proportional to quantity,
// per-item loadings are applied on the purchase price, and the result is
// rounded to whole currency units.
package pricing

import "math"

// Item carries the pricing-relevant fields of one worksheet line item.
// UnitSellingPrice and TotalSellingPrice are outputs; Recompute overwrites
// them on every call.
type Item struct {
	ID                int64
	PurchasePrice     float64
	Qty               int
	VendorGroup       string
	CustomerGroup     string
	DeliveryTime      string
	Difficulty        string
	UnitSellingPrice  float64
	TotalSellingPrice float64
}

// CustomerTerms holds the per-customer percentages applied to every item.
type CustomerTerms struct {
	MarginPercentage  float64
	PaymentPercentage float64
}

// Inputs bundles the lookup tables one Recompute call works against.
// Group cost maps hold the total shared cost per group code; rate tables
// map a category key to a loading percentage. Missing keys resolve to 0.
type Inputs struct {
	VendorGroupCosts   map[string]float64
	CustomerGroupCosts map[string]float64
	DifficultyTable    map[string]float64
	DeliveryTable      map[string]float64
	Customer           CustomerTerms
}

// Breakdown exposes the intermediate cost components of a single item.
type Breakdown struct {
	Base          float64
	VendorPerPc   float64
	CustomerPerPc float64
	Difficulty    float64
	Shipping      float64
	PaymentCost   float64
	CostPerPc     float64
}

// EntryTerms holds the entry-level percentages used by Summarize only.
// They never influence per-item prices.
type EntryTerms struct {
	DiscountPercentage float64
	PPNPercentage      float64
}

// Summary is the entry-level roll-up over all item totals.
type Summary struct {
	TotalSelling   float64
	DiscountAmount float64
	AfterDiscount  float64
	PPNAmount      float64
	GrandTotal     float64
}

// RoundHalfUp rounds to the nearest whole currency unit; exact halves round
// toward positive infinity. Prices are non-negative, so this matches
// round-half-up on every value the engine produces.
func RoundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

type qtySums struct {
	vendor   map[string]int
	customer map[string]int
}

func sumGroupQuantities(items []Item) qtySums {
	sums := qtySums{
		vendor:   make(map[string]int, len(items)),
		customer: make(map[string]int, len(items)),
	}
	for _, it := range items {
		sums.vendor[it.VendorGroup] += it.Qty
		sums.customer[it.CustomerGroup] += it.Qty
	}
	return sums
}

// shareDenominator falls back to 1 when a group's quantities sum to zero,
// so a pool cost never divides by zero. With item quantities validated
// positive this is only reachable for groups without members.
func shareDenominator(sum int) float64 {
	if sum <= 0 {
		return 1
	}
	return float64(sum)
}

func breakdownFor(it Item, in Inputs, sums qtySums) Breakdown {
	b := it.PurchasePrice

	vendorPerPc := in.VendorGroupCosts[it.VendorGroup] / shareDenominator(sums.vendor[it.VendorGroup])
	customerPerPc := in.CustomerGroupCosts[it.CustomerGroup] / shareDenominator(sums.customer[it.CustomerGroup])
	difficulty := b * (in.DifficultyTable[it.Difficulty] / 100)
	shipping := b * (in.DeliveryTable[it.DeliveryTime] / 100)
	payment := b * (in.Customer.PaymentPercentage / 100)

	return Breakdown{
		Base:          b,
		VendorPerPc:   vendorPerPc,
		CustomerPerPc: customerPerPc,
		Difficulty:    difficulty,
		Shipping:      shipping,
		PaymentCost:   payment,
		CostPerPc:     b + vendorPerPc + customerPerPc + difficulty + shipping + payment,
	}
}

// Explain returns the cost breakdown of a single item in the context of the
// full current item list. Group quantity sums are always taken over the
// whole list because shared costs make every member's share depend on its
// siblings.
func Explain(item Item, items []Item, in Inputs) Breakdown {
	return breakdownFor(item, in, sumGroupQuantities(items))
}

// Recompute derives unit and total selling prices for every item in the
// list. It always recomputes the whole list, never a subset: any group
// membership or cost change can shift the share of every member of that
// group. The function is deterministic and idempotent; running it on its
// own output with unchanged inputs yields identical output.
func Recompute(items []Item, in Inputs) []Item {
	if len(items) == 0 {
		return nil
	}
	sums := sumGroupQuantities(items)

	out := make([]Item, len(items))
	for i, it := range items {
		bd := breakdownFor(it, in, sums)
		it.UnitSellingPrice = RoundHalfUp(bd.CostPerPc * (1 + in.Customer.MarginPercentage/100))
		it.TotalSellingPrice = RoundHalfUp(it.UnitSellingPrice * float64(it.Qty))
		out[i] = it
	}
	return out
}

// Summarize rolls up the entry-level financial summary from already priced
// items. Discount applies to the selling total, PPN applies after discount.
func Summarize(items []Item, terms EntryTerms) Summary {
	var total float64
	for _, it := range items {
		total += it.TotalSellingPrice
	}
	if total == 0 {
		return Summary{}
	}

	discount := RoundHalfUp(total * (terms.DiscountPercentage / 100))
	afterDiscount := total - discount
	ppn := RoundHalfUp(afterDiscount * (terms.PPNPercentage / 100))

	return Summary{
		TotalSelling:   total,
		DiscountAmount: discount,
		AfterDiscount:  afterDiscount,
		PPNAmount:      ppn,
		GrandTotal:     afterDiscount + ppn,
	}
}
