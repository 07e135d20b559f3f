// Package basket groups cleaned transaction lines into per-order item sets
// for market basket analysis.
package basket

import "mba-dashboard/internal/models"

// Set holds the baskets derived from one pass over the transaction lines,
// keyed by order ID. Each basket is the set of distinct product IDs bought
// under that order; repeated products within an order count once.
type Set struct {
	Baskets map[string]map[string]struct{}

	// Defect counters. Lines without both identifiers are excluded and
	// reported, never fatal.
	MissingOrderID   int64
	MissingProductID int64

	// SingleItem is the number of baskets with fewer than 2 distinct items.
	// They contribute to single-item support but can form no pair.
	SingleItem int
}

// Len is the total basket count.
func (s *Set) Len() int {
	return len(s.Baskets)
}

// Build groups lines by order ID, deduplicating product IDs within an order.
// The input is read-only; the returned Set is freshly derived each call.
func Build(lines []models.Transaction) *Set {
	s := &Set{Baskets: make(map[string]map[string]struct{})}

	for _, line := range lines {
		if line.OrderID == "" {
			s.MissingOrderID++
			continue
		}
		if line.ProductID == "" {
			s.MissingProductID++
			continue
		}

		items := s.Baskets[line.OrderID]
		if items == nil {
			items = make(map[string]struct{})
			s.Baskets[line.OrderID] = items
		}
		items[line.ProductID] = struct{}{}
	}

	for _, items := range s.Baskets {
		if len(items) < 2 {
			s.SingleItem++
		}
	}

	return s
}
