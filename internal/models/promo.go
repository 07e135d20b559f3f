package models

// PromoRequest asks for one discount scenario on one product. Elasticity is
// a non-negative responsiveness factor: projected volume scales by
// (1 + elasticity * discount).
type PromoRequest struct {
	ProductID  string  `json:"product_id"`
	Discount   float64 `json:"discount"`
	Elasticity float64 `json:"elasticity"`
}

// PromoScenario is one projected promotional outcome. Scenarios are
// ephemeral, recomputed per invocation, never persisted.
type PromoScenario struct {
	ProductID        string  `json:"product_id"`
	Description      string  `json:"description,omitempty"`
	Discount         float64 `json:"discount_pct"`
	Elasticity       float64 `json:"elasticity"`
	BaselinePrice    float64 `json:"baseline_price"`
	BaselineVolume   float64 `json:"baseline_volume"`
	UnitCost         float64 `json:"unit_cost"`
	NewPrice         float64 `json:"new_price"`
	ProjectedVolume  float64 `json:"projected_volume"`
	ProjectedRevenue float64 `json:"projected_revenue"`
	ProjectedMargin  float64 `json:"projected_margin"`
	RevenueDelta     float64 `json:"revenue_delta"`
	MarginDelta      float64 `json:"margin_delta"`
	CrossSellItems   int     `json:"cross_sell_items"`
	CrossSellRevenue float64 `json:"cross_sell_revenue"`
}

// SkipReason classifies why a scenario in a batch was not evaluated.
type SkipReason string

const (
	SkipInvalidDiscount   SkipReason = "INVALID_DISCOUNT"
	SkipInvalidElasticity SkipReason = "INVALID_ELASTICITY"
	SkipMissingBaseline   SkipReason = "MISSING_BASELINE"
)

// SkippedScenario reports one rejected or unservable request from a batch.
// One bad input never aborts the rest of the batch.
type SkippedScenario struct {
	ProductID string     `json:"product_id"`
	Discount  float64    `json:"discount_pct"`
	Reason    SkipReason `json:"reason"`
	Detail    string     `json:"detail,omitempty"`
}
