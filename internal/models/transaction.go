package models

import "time"

// Transaction is one purchased line item from the cleaned retail export.
// Lines are immutable once parsed; every derived structure is recomputed
// from them on each run.
type Transaction struct {
	OrderID     string
	ProductID   string
	Description string
	Quantity    int
	UnitPrice   float64
	InvoiceDate time.Time
	CustomerID  string
	Country     string
}

// Revenue is the line's contribution to product revenue.
func (t Transaction) Revenue() float64 {
	return float64(t.Quantity) * t.UnitPrice
}

// ProductBaseline aggregates one product's performance across all cleaned
// transactions. Rank is 1-based by revenue descending.
type ProductBaseline struct {
	ProductID   string  `json:"product_id"`
	Description string  `json:"description"`
	Revenue     float64 `json:"revenue"`
	Quantity    int     `json:"quantity"`
	Orders      int     `json:"orders"`
	AvgPrice    float64 `json:"avg_price"`
	UnitCost    float64 `json:"unit_cost"`
	Margin      float64 `json:"margin"`
	Rank        int     `json:"rank"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type OverviewStats struct {
	Transactions int64 `json:"transactions"`
	Products     int   `json:"products"`
	Customers    int   `json:"customers"`
	Baskets      int   `json:"baskets"`
	Rules        int   `json:"rules"`
	Scenarios    int   `json:"scenarios"`
}
