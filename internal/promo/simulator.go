// Package promo projects promotional discount scenarios against product
// baselines, including cross-sell attach from mined association rules.
package promo

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"mba-dashboard/internal/models"
)

// crossSellTop bounds how many consequent rules contribute to a scenario's
// cross-sell projection.
const crossSellTop = 3

// Simulator evaluates discount scenarios. It holds read-only baseline and
// rule snapshots, so batch evaluation shares no mutable state and scenarios
// are independent of one another.
type Simulator struct {
	baselines map[string]models.ProductBaseline
	// byAntecedent keeps each product's rules in mined (ranked) order.
	byAntecedent map[string][]models.AssociationRule
	workers      int
}

// BatchResult carries one outcome per evaluable request, in input order,
// plus a report of every skipped request.
type BatchResult struct {
	Scenarios []models.PromoScenario   `json:"scenarios"`
	Skipped   []models.SkippedScenario `json:"skipped,omitempty"`
}

func NewSimulator(baselines []models.ProductBaseline, rules []models.AssociationRule) *Simulator {
	s := &Simulator{
		baselines:    make(map[string]models.ProductBaseline, len(baselines)),
		byAntecedent: make(map[string][]models.AssociationRule),
		workers:      runtime.GOMAXPROCS(0),
	}
	for _, b := range baselines {
		s.baselines[b.ProductID] = b
	}
	for _, r := range rules {
		s.byAntecedent[r.Antecedent] = append(s.byAntecedent[r.Antecedent], r)
	}
	return s
}

// Evaluate projects one scenario. A rejected or unservable request returns a
// nil scenario and a skip report; validation happens before any computation.
func (s *Simulator) Evaluate(req models.PromoRequest) (*models.PromoScenario, *models.SkippedScenario) {
	if req.Discount < 0 || req.Discount >= 1 {
		return nil, &models.SkippedScenario{
			ProductID: req.ProductID,
			Discount:  req.Discount,
			Reason:    models.SkipInvalidDiscount,
			Detail:    fmt.Sprintf("discount %.2f outside [0, 1)", req.Discount),
		}
	}
	if req.Elasticity < 0 {
		return nil, &models.SkippedScenario{
			ProductID: req.ProductID,
			Discount:  req.Discount,
			Reason:    models.SkipInvalidElasticity,
			Detail:    fmt.Sprintf("elasticity %.2f must be non-negative", req.Elasticity),
		}
	}

	base, ok := s.baselines[req.ProductID]
	if !ok {
		return nil, &models.SkippedScenario{
			ProductID: req.ProductID,
			Discount:  req.Discount,
			Reason:    models.SkipMissingBaseline,
			Detail:    "no baseline data for product",
		}
	}

	baselineVolume := float64(base.Quantity)
	newPrice := base.AvgPrice * (1 - req.Discount)
	projectedVolume := baselineVolume * (1 + req.Elasticity*req.Discount)
	projectedRevenue := newPrice * projectedVolume
	projectedMargin := projectedRevenue - base.UnitCost*projectedVolume

	baselineRevenue := base.AvgPrice * baselineVolume
	baselineMargin := (base.AvgPrice - base.UnitCost) * baselineVolume

	sc := &models.PromoScenario{
		ProductID:        base.ProductID,
		Description:      base.Description,
		Discount:         req.Discount,
		Elasticity:       req.Elasticity,
		BaselinePrice:    base.AvgPrice,
		BaselineVolume:   baselineVolume,
		UnitCost:         base.UnitCost,
		NewPrice:         newPrice,
		ProjectedVolume:  projectedVolume,
		ProjectedRevenue: projectedRevenue,
		ProjectedMargin:  projectedMargin,
		RevenueDelta:     projectedRevenue - baselineRevenue,
		MarginDelta:      projectedMargin - baselineMargin,
	}

	s.attachCrossSell(sc, projectedVolume-baselineVolume)
	return sc, nil
}

// attachCrossSell projects revenue from consequent items pulled along by the
// promoted anchor: each of the anchor's top rules contributes incremental
// anchor volume scaled by the rule's confidence at the consequent's average
// price.
func (s *Simulator) attachCrossSell(sc *models.PromoScenario, addedVolume float64) {
	if addedVolume <= 0 {
		return
	}
	ranked := s.byAntecedent[sc.ProductID]
	if len(ranked) > crossSellTop {
		ranked = ranked[:crossSellTop]
	}
	for _, r := range ranked {
		consequent, ok := s.baselines[r.Consequent]
		if !ok {
			continue
		}
		sc.CrossSellItems++
		sc.CrossSellRevenue += addedVolume * r.Confidence * consequent.AvgPrice
	}
}

// EvaluateBatch evaluates every request independently across a bounded
// worker pool. Results keep input order; skips are collected afterwards so
// one bad input never aborts the rest.
func (s *Simulator) EvaluateBatch(ctx context.Context, reqs []models.PromoRequest) (*BatchResult, error) {
	scenarios := make([]*models.PromoScenario, len(reqs))
	skips := make([]*models.SkippedScenario, len(reqs))

	var wg errgroup.Group
	wg.SetLimit(s.workers)

	for i, req := range reqs {
		wg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			scenarios[i], skips[i] = s.Evaluate(req)
			return nil
		})
	}

	if err := wg.Wait(); err != nil {
		return nil, err
	}

	out := &BatchResult{}
	for i := range reqs {
		if scenarios[i] != nil {
			out.Scenarios = append(out.Scenarios, *scenarios[i])
		}
		if skips[i] != nil {
			out.Skipped = append(out.Skipped, *skips[i])
		}
	}
	return out, nil
}

// Grid builds the default dashboard scenario batch: the top ranked products
// crossed with each discount level at one assumed elasticity.
func Grid(baselines []models.ProductBaseline, topProducts int, discounts []float64, elasticity float64) []models.PromoRequest {
	if topProducts < 0 {
		topProducts = 0
	}
	if topProducts > len(baselines) {
		topProducts = len(baselines)
	}
	reqs := make([]models.PromoRequest, 0, topProducts*len(discounts))
	for _, b := range baselines[:topProducts] {
		for _, d := range discounts {
			reqs = append(reqs, models.PromoRequest{
				ProductID:  b.ProductID,
				Discount:   d,
				Elasticity: elasticity,
			})
		}
	}
	return reqs
}
