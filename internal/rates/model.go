// Package rates provides the slow-changing lookup tables the pricing
// engine depends on: difficulty and delivery-time loadings plus per-customer
// margin and payment-term percentages. All lookups are permissive: absent
// keys resolve to a 0% loading instead of an error, so the engine never
// fails on incomplete configuration.
package rates

type DifficultySetting struct {
	ID         int64   `json:"id" db:"id"`
	Level      string  `json:"level" db:"difficulty_level"`
	Percentage float64 `json:"percentage" db:"percentage"`
}

type DeliveryTimeSetting struct {
	ID         int64   `json:"id" db:"id"`
	Category   string  `json:"category" db:"time_category"`
	Percentage float64 `json:"percentage" db:"percentage"`
}

// CustomerSettings carries the per-customer percentages supplied once per
// worksheet entry. PaymentPercentage is resolved from the customer's
// assigned payment-term category.
type CustomerSettings struct {
	CustomerID        int64   `json:"customer_id" db:"customer_id"`
	MarginPercentage  float64 `json:"margin_percentage" db:"margin_percentage"`
	PaymentCategory   string  `json:"payment_category" db:"payment_category"`
	PaymentPercentage float64 `json:"payment_percentage" db:"payment_percentage"`
}
