package models

// AssociationRule is one directed item-pair rule mined from order baskets.
//
// Invariants: Support and Confidence are in [0,1], Lift is positive,
// Confidence = pair support / support(Antecedent) and
// Lift = Confidence / support(Consequent).
type AssociationRule struct {
	Antecedent      string  `json:"antecedent"`
	Consequent      string  `json:"consequent"`
	AntecedentDesc  string  `json:"antecedent_desc,omitempty"`
	ConsequentDesc  string  `json:"consequent_desc,omitempty"`
	Support         float64 `json:"support"`
	Confidence      float64 `json:"confidence"`
	Lift            float64 `json:"lift"`
	PairCount       int     `json:"pair_count"`
	AntecedentCount int     `json:"antecedent_count"`
	ConsequentCount int     `json:"consequent_count"`
	BasketCount     int     `json:"basket_count"`
}

// QualityReport is the data-quality audit produced while building baskets
// and parsing the source file. Dropped lines are counted per reason and
// reported, never fatal.
type QualityReport struct {
	TotalLines        int64 `json:"total_lines"`
	ValidLines        int64 `json:"valid_lines"`
	MissingOrderID    int64 `json:"missing_order_id"`
	MissingProductID  int64 `json:"missing_product_id"`
	UnparsableLines   int64 `json:"unparsable_lines"`
	SingleItemBaskets int   `json:"single_item_baskets"`
	Baskets           int   `json:"baskets"`
}
