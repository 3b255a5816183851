package worksheet

import "github.com/sejoli-erp/sejoli-erp/internal/pricing"

type CreateItemRequest struct {
	VendorID      *int64  `json:"vendor_id,omitempty" validate:"omitempty,gt=0"`
	CustomerSpec  string  `json:"customer_spec" validate:"required"`
	VendorSpec    string  `json:"vendor_spec"`
	PurchasePrice float64 `json:"purchase_price" validate:"gte=0"`
	Qty           int     `json:"qty" validate:"required,gt=0"`
	Unit          string  `json:"unit" validate:"required,max=20"`
	Weight        float64 `json:"weight" validate:"gte=0"`
	VendorGroup   string  `json:"shipping_vendor_group" validate:"required,max=5"`
	CustomerGroup string  `json:"shipping_customer_group" validate:"required,max=5"`
	DeliveryTime  string  `json:"delivery_time"`
	Difficulty    string  `json:"difficulty"`
}

type UpdateItemRequest struct {
	VendorID      *int64   `json:"vendor_id,omitempty" validate:"omitempty,gt=0"`
	CustomerSpec  *string  `json:"customer_spec,omitempty"`
	VendorSpec    *string  `json:"vendor_spec,omitempty"`
	PurchasePrice *float64 `json:"purchase_price,omitempty" validate:"omitempty,gte=0"`
	Qty           *int     `json:"qty,omitempty" validate:"omitempty,gt=0"`
	Unit          *string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	Weight        *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
	VendorGroup   *string  `json:"shipping_vendor_group,omitempty" validate:"omitempty,max=5"`
	CustomerGroup *string  `json:"shipping_customer_group,omitempty" validate:"omitempty,max=5"`
	DeliveryTime  *string  `json:"delivery_time,omitempty"`
	Difficulty    *string  `json:"difficulty,omitempty"`
}

type ReorderRequest struct {
	ItemIDs []int64 `json:"item_ids" validate:"required,min=1,dive,gt=0"`
}

type SetGroupCostRequest struct {
	Cost float64 `json:"cost" validate:"gte=0"`
}

type UpdateSettingsRequest struct {
	MarginPercentage   *float64 `json:"margin_percentage,omitempty" validate:"omitempty,gte=0"`
	PaymentTerms       *string  `json:"payment_terms,omitempty"`
	PPNPercentage      *float64 `json:"ppn_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	DocumentCost       *float64 `json:"document_cost,omitempty" validate:"omitempty,gte=0"`
	ReturnCost         *float64 `json:"return_cost,omitempty" validate:"omitempty,gte=0"`
	DiscountPercentage *float64 `json:"discount_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// WorksheetView is the read model served to the worksheet page: the priced
// item list in display order, both pool sets, the entry settings and the
// aggregate summary.
type WorksheetView struct {
	Entry          Entry           `json:"entry"`
	Items          []LineItem      `json:"items"`
	VendorGroups   []ShippingGroup `json:"vendor_groups"`
	CustomerGroups []ShippingGroup `json:"customer_groups"`
	Settings       EntrySettings   `json:"settings"`
	Summary        pricing.Summary `json:"summary"`
}
