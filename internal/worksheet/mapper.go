package worksheet

import "github.com/sejoli-erp/sejoli-erp/internal/pricing"

func toPricingItems(items []LineItem) []pricing.Item {
	out := make([]pricing.Item, len(items))
	for i, it := range items {
		out[i] = pricing.Item{
			ID:            it.ID,
			PurchasePrice: it.PurchasePrice,
			Qty:           it.Qty,
			VendorGroup:   it.VendorGroup,
			CustomerGroup: it.CustomerGroup,
			DeliveryTime:  it.DeliveryTime,
			Difficulty:    it.Difficulty,

			UnitSellingPrice:  it.UnitSellingPrice,
			TotalSellingPrice: it.TotalSellingPrice,
		}
	}
	return out
}

// applyPrices copies engine outputs back onto the worksheet items by
// position; both slices come from the same snapshot pass.
func applyPrices(items []LineItem, priced []pricing.Item) {
	for i := range items {
		if i >= len(priced) {
			return
		}
		items[i].UnitSellingPrice = priced[i].UnitSellingPrice
		items[i].TotalSellingPrice = priced[i].TotalSellingPrice
	}
}
