// Package multileg pairs heterogeneous buy/sell legs across aggregators and
// runs a batched planner that selects the most profitable combination,
// grounded directly on
// internal/application/scanner/concurrent.go's analyzeMarketsConcurrent
// worker pool (channel of work items, sync.WaitGroup, result channel,
// runtime.NumCPU()*2 default), generalized from market analysis to leg-pair
// planning.
package multileg

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/ports"
)

// LegDescriptor names one (aggregator, side) combination.
type LegDescriptor struct {
	AggregatorKind string
	Side           string // "buy" | "sell"
}

// QuoteIntent is one leg request built for a specific aggregator.
type QuoteIntent struct {
	Descriptor LegDescriptor
	Request    ports.QuoteRequest
}

// Combination is one (buy_idx, sell_idx) pairing evaluated by the
// orchestrator.
type Combination struct {
	BuyIdx, SellIdx int
	Buy, Sell       domain.LegQuote
	GrossProfit     int64
}

// LegPairPlan is a materialized profitable combination: both leg
// instruction bundles concatenated, compute budgets merged, lookup tables
// deduplicated, tips summed.
type LegPairPlan struct {
	Combination Combination
	Bundle      *domain.InstructionBundle
}

// Orchestrator holds ordered buy-leg and sell-leg descriptors.
type Orchestrator struct {
	BuyLegs  []LegDescriptor
	SellLegs []LegDescriptor
	// ParallelThreshold is the combination count above which plan
	// materialization uses the worker pool instead of running sequentially
	// (spec.md §9's Rayon-style fallback).
	ParallelThreshold int
}

// QuoteFunc fetches one leg quote for a descriptor; callers close over IP
// lease acquisition and the appropriate aggregator client.
type QuoteFunc func(ctx context.Context, d LegDescriptor, pair domain.TradePair, amount uint64) (domain.LegQuote, error)

// Evaluate implements spec.md §4.11 steps 1-3: dispatches every buy and
// sell quote concurrently, then scores every (buy, sell) combination.
func (o *Orchestrator) Evaluate(ctx context.Context, pair domain.TradePair, amount uint64, prioritizationFees uint64, fetch QuoteFunc) []Combination {
	buys := fetchAll(ctx, o.BuyLegs, pair, amount, fetch)
	sells := fetchAll(ctx, o.SellLegs, pair.Reversed(), amount, fetch)

	var combos []Combination
	for bi, buy := range buys {
		if !buy.Valid() {
			continue
		}
		for si, sell := range sells {
			if !sell.Valid() {
				continue
			}
			gross := int64(sell.AmountOut) - int64(buy.AmountIn) - int64(prioritizationFees)
			combos = append(combos, Combination{BuyIdx: bi, SellIdx: si, Buy: buy, Sell: sell, GrossProfit: gross})
		}
	}
	return combos
}

func fetchAll(ctx context.Context, legs []LegDescriptor, pair domain.TradePair, amount uint64, fetch QuoteFunc) []domain.LegQuote {
	out := make([]domain.LegQuote, len(legs))
	var wg sync.WaitGroup
	for i, d := range legs {
		wg.Add(1)
		go func(i int, d LegDescriptor) {
			defer wg.Done()
			q, err := fetch(ctx, d, pair, amount)
			if err == nil {
				out[i] = q
			}
		}(i, d)
	}
	wg.Wait()
	return out
}

// Positive filters combos to those with strictly positive gross profit,
// sorted descending by profit — non-positive combinations are discarded
// per spec.md §4.11 step 4. Ties on gross profit break by lowest combined
// leg latency (the combination likeliest to still be fillable once the
// transaction lands), then by ascending (BuyIdx, SellIdx) so the result is
// fully deterministic regardless of fetch completion order.
func Positive(combos []Combination) []Combination {
	var out []Combination
	for _, c := range combos {
		if c.GrossProfit > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].GrossProfit != out[j].GrossProfit {
			return out[i].GrossProfit > out[j].GrossProfit
		}
		latI := out[i].Buy.LatencyMs + out[i].Sell.LatencyMs
		latJ := out[j].Buy.LatencyMs + out[j].Sell.LatencyMs
		if latI != latJ {
			return latI < latJ
		}
		if out[i].BuyIdx != out[j].BuyIdx {
			return out[i].BuyIdx < out[j].BuyIdx
		}
		return out[i].SellIdx < out[j].SellIdx
	})
	return out
}

// MaterializeFunc turns one profitable combination into a LegPairPlan by
// concatenating both legs' instruction bundles.
type MaterializeFunc func(c Combination) (*domain.InstructionBundle, error)

// Materialize builds a LegPairPlan per positive combination, using a
// bounded worker pool when len(combos) exceeds ParallelThreshold and
// running sequentially otherwise.
func (o *Orchestrator) Materialize(combos []Combination, materialize MaterializeFunc) []LegPairPlan {
	threshold := o.ParallelThreshold
	if threshold <= 0 {
		threshold = 8
	}
	if len(combos) <= threshold {
		plans := make([]LegPairPlan, 0, len(combos))
		for _, c := range combos {
			if b, err := materialize(c); err == nil {
				plans = append(plans, LegPairPlan{Combination: c, Bundle: b})
			}
		}
		return plans
	}

	workers := runtime.NumCPU() * 2
	workCh := make(chan Combination, len(combos))
	resultCh := make(chan LegPairPlan, len(combos))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range workCh {
				if b, err := materialize(c); err == nil {
					resultCh <- LegPairPlan{Combination: c, Bundle: b}
				}
			}
		}()
	}
	for _, c := range combos {
		workCh <- c
	}
	close(workCh)
	wg.Wait()
	close(resultCh)

	plans := make([]LegPairPlan, 0, len(combos))
	for p := range resultCh {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].Combination.GrossProfit > plans[j].Combination.GrossProfit
	})
	return plans
}
