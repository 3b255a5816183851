package worksheet

import (
	"math"
	"sort"
	"time"
)

// EntryRef addresses one costing worksheet entry.
type EntryRef struct {
	BalanceID int64 `json:"balance_id"`
	EntryID   int64 `json:"entry_id"`
}

// GroupKind distinguishes the two independent shipping pool sets.
type GroupKind string

const (
	GroupKindVendor   GroupKind = "vendor"
	GroupKindCustomer GroupKind = "customer"
)

// Default group codes seeded once per entry on first access.
var (
	DefaultVendorGroups   = []string{"A", "B", "C", "D", "E"}
	DefaultCustomerGroups = []string{"X", "Y", "Z"}
)

// Entry is the worksheet entry header. QuotationID is set once the entry
// has been carried into a quotation; downstream purchase order effects only
// fire for linked entries.
type Entry struct {
	Ref         EntryRef   `json:"ref"`
	CustomerID  int64      `json:"customer_id"`
	QuotationID *int64     `json:"quotation_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// LineItem is one purchased item in a worksheet entry. UnitSellingPrice and
// TotalSellingPrice are derived by the pricing engine and persisted as a
// cache; every other pricing-relevant field is an engine input.
type LineItem struct {
	ID                int64    `json:"id" db:"id"`
	Ref               EntryRef `json:"ref"`
	VendorID          *int64   `json:"vendor_id,omitempty" db:"vendor_id"`
	CustomerSpec      string   `json:"customer_spec" db:"customer_spec"`
	VendorSpec        string   `json:"vendor_spec" db:"vendor_spec"`
	PurchasePrice     float64  `json:"purchase_price" db:"purchase_price"`
	Qty               int      `json:"qty" db:"qty"`
	Unit              string   `json:"unit" db:"unit"`
	Weight            float64  `json:"weight" db:"weight"`
	VendorGroup       string   `json:"shipping_vendor_group" db:"shipping_vendor_group"`
	CustomerGroup     string   `json:"shipping_customer_group" db:"shipping_customer_group"`
	DeliveryTime      string   `json:"delivery_time" db:"delivery_time"`
	Difficulty        string   `json:"difficulty" db:"difficulty"`
	Position          int      `json:"position" db:"position"`
	UnitSellingPrice  float64  `json:"unit_selling_price" db:"unit_selling_price"`
	TotalSellingPrice float64  `json:"total_selling_price" db:"total_selling_price"`
}

// ShippingGroup is a named cost pool. Cost is the total shared cost for all
// items currently tagged with the group, not a per-unit cost, and is the
// only mutable field after seeding.
type ShippingGroup struct {
	ID        int64     `json:"id" db:"id"`
	Ref       EntryRef  `json:"ref"`
	Kind      GroupKind `json:"kind" db:"kind"`
	GroupName string    `json:"group_name" db:"group_name"`
	Cost      float64   `json:"cost" db:"cost"`
}

// EntrySettings holds the entry-scoped values used only by the aggregate
// summary. MarginPercentage is unused at item level and retained for
// compatibility with older worksheets.
type EntrySettings struct {
	Ref                EntryRef `json:"ref"`
	MarginPercentage   float64  `json:"margin_percentage" db:"margin_percentage"`
	PaymentTerms       string   `json:"payment_terms" db:"payment_terms"`
	PPNPercentage      float64  `json:"ppn_percentage" db:"ppn_percentage"`
	DocumentCost       float64  `json:"document_cost" db:"document_cost"`
	ReturnCost         float64  `json:"return_cost" db:"return_cost"`
	DiscountPercentage float64  `json:"discount_percentage" db:"discount_percentage"`
}

// WriteResult reports the outcome of one row of a bulk price write-back.
// Skipped rows belonged to a recompute pass that was superseded before the
// write was issued.
type WriteResult struct {
	ItemID  int64
	Skipped bool
	Err     error
}

// positionSentinel sorts items with an unset position behind every
// explicitly ordered item.
const positionSentinel = math.MaxInt32

func sortPosition(p int) int {
	if p <= 0 {
		return positionSentinel
	}
	return p
}

// SortItems orders items by position ascending with id ascending as the
// stable tie-break, so colliding or unset positions read back FIFO.
func SortItems(items []LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := sortPosition(items[i].Position), sortPosition(items[j].Position)
		if pi != pj {
			return pi < pj
		}
		return items[i].ID < items[j].ID
	})
}
