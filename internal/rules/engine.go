// Package rules mines pairwise association rules (support, confidence,
// lift) from order baskets.
package rules

import (
	"cmp"
	"context"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"mba-dashboard/internal/basket"
	"mba-dashboard/internal/models"
)

// Config controls rule filtering and mining parallelism.
type Config struct {
	// MinSupport and MinConfidence drop rules below the thresholds.
	MinSupport    float64
	MinConfidence float64
	// MaxRules caps the ranked output; 0 means unlimited.
	MaxRules int
	// Workers bounds the counting fan-out; defaults to GOMAXPROCS.
	Workers int
}

// Result is the ranked rule set for one mining run. Empty distinguishes a
// dataset with zero usable baskets from a normal small result.
type Result struct {
	Rules   []models.AssociationRule
	Empty   bool
	Baskets int
}

type pairKey struct {
	a, b string
}

type counts struct {
	items map[string]int
	pairs map[pairKey]int
}

func newCounts() *counts {
	return &counts{
		items: make(map[string]int),
		pairs: make(map[pairKey]int),
	}
}

func (c *counts) add(items []string) {
	for i, x := range items {
		c.items[x]++
		for _, y := range items[i+1:] {
			if x < y {
				c.pairs[pairKey{x, y}]++
			} else {
				c.pairs[pairKey{y, x}]++
			}
		}
	}
}

func (c *counts) merge(other *counts) {
	for k, v := range other.items {
		c.items[k] += v
	}
	for k, v := range other.pairs {
		c.pairs[k] += v
	}
}

// Mine computes directed association rules over the basket set. Baskets are
// partitioned across workers which count items and co-occurring pairs
// independently; partial counts merge by addition before any ratio is
// computed, so no ordering between workers affects the outcome. The final
// ranking is a deterministic total order: lift desc, confidence desc,
// support desc, antecedent asc, consequent asc.
func Mine(ctx context.Context, set *basket.Set, cfg Config) (*Result, error) {
	total := set.Len()
	if total == 0 {
		return &Result{Empty: true}, nil
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Snapshot baskets as item slices so workers share nothing mutable.
	baskets := make([][]string, 0, total)
	for _, items := range set.Baskets {
		b := make([]string, 0, len(items))
		for id := range items {
			b = append(b, id)
		}
		baskets = append(baskets, b)
	}

	merged, err := countPartitioned(ctx, baskets, workers)
	if err != nil {
		return nil, err
	}

	result := &Result{Baskets: total}
	n := float64(total)

	for pk, pairCount := range merged.pairs {
		pairSupport := float64(pairCount) / n
		if pairSupport < cfg.MinSupport {
			continue
		}

		countA := merged.items[pk.a]
		countB := merged.items[pk.b]
		supportA := float64(countA) / n
		supportB := float64(countB) / n

		// Both items were drawn from baskets containing them, so the
		// antecedent support is never zero here.
		directions := [2]models.AssociationRule{
			{
				Antecedent:      pk.a,
				Consequent:      pk.b,
				Confidence:      pairSupport / supportA,
				AntecedentCount: countA,
				ConsequentCount: countB,
			},
			{
				Antecedent:      pk.b,
				Consequent:      pk.a,
				Confidence:      pairSupport / supportB,
				AntecedentCount: countB,
				ConsequentCount: countA,
			},
		}
		consequentSupport := [2]float64{supportB, supportA}

		for i, rule := range directions {
			if rule.Confidence < cfg.MinConfidence {
				continue
			}
			rule.Support = pairSupport
			rule.Lift = rule.Confidence / consequentSupport[i]
			rule.PairCount = pairCount
			rule.BasketCount = total
			result.Rules = append(result.Rules, rule)
		}
	}

	slices.SortFunc(result.Rules, compareRules)

	if cfg.MaxRules > 0 && len(result.Rules) > cfg.MaxRules {
		result.Rules = result.Rules[:cfg.MaxRules]
	}

	return result, nil
}

func countPartitioned(ctx context.Context, baskets [][]string, workers int) (*counts, error) {
	if workers > len(baskets) {
		workers = len(baskets)
	}

	partials := make([]*counts, workers)

	var wg errgroup.Group
	wg.SetLimit(workers)

	// Proportional index ranges cover [0, len) exactly for any worker count.
	for w := range workers {
		lo := w * len(baskets) / workers
		hi := (w + 1) * len(baskets) / workers
		wg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			local := newCounts()
			for _, items := range baskets[lo:hi] {
				local.add(items)
			}
			partials[w] = local
			return nil
		})
	}

	if err := wg.Wait(); err != nil {
		return nil, err
	}

	merged := newCounts()
	for _, p := range partials {
		merged.merge(p)
	}
	return merged, nil
}

func compareRules(a, b models.AssociationRule) int {
	if c := cmp.Compare(b.Lift, a.Lift); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Support, a.Support); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Antecedent, b.Antecedent); c != 0 {
		return c
	}
	return cmp.Compare(a.Consequent, b.Consequent)
}
