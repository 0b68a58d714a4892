// Package evaluator decides whether a DoubleQuote yields a dispatchable
// SwapOpportunity, computing tip allocation per spec.md §4.5. Grounded on
// internal/domain/arbitrage.go's gap/threshold scoring style in the
// teacher, generalized from spread arithmetic to gross-profit arithmetic.
package evaluator

import (
	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/xerrors"
)

// TipStrategy computes the tip to attach to an opportunity given its gross
// profit. Fixed, Fraction and Plan are the three strategies spec.md §4.5
// names.
type TipStrategy interface {
	Label() domain.TipStrategyLabel
	Tip(grossProfit int64) uint64
}

// FixedTip always returns the same lamport amount.
type FixedTip struct{ Lamports uint64 }

func (f FixedTip) Label() domain.TipStrategyLabel { return domain.TipFixed }
func (f FixedTip) Tip(int64) uint64               { return f.Lamports }

// FractionTip returns a fixed basis-points fraction of gross profit.
type FractionTip struct{ Bps uint32 }

func (f FractionTip) Label() domain.TipStrategyLabel { return domain.TipFraction }
func (f FractionTip) Tip(grossProfit int64) uint64 {
	if grossProfit <= 0 {
		return 0
	}
	return uint64(grossProfit) * uint64(f.Bps) / 10_000
}

// PlanTip draws a tip amount from a step function of gross-profit
// thresholds, mirroring a configured "plan" of tiers.
type PlanTip struct {
	// Tiers must be sorted ascending by MinGrossProfit; the highest tier
	// whose threshold the gross profit clears wins.
	Tiers []PlanTier
}

// PlanTier is one (threshold, tip) step in a PlanTip.
type PlanTier struct {
	MinGrossProfit int64
	Lamports       uint64
}

func (p PlanTip) Label() domain.TipStrategyLabel { return domain.TipPlan }
func (p PlanTip) Tip(grossProfit int64) uint64 {
	var tip uint64
	for _, tier := range p.Tiers {
		if grossProfit >= tier.MinGrossProfit {
			tip = tier.Lamports
		}
	}
	return tip
}

// Thresholds maps a base mint to its minimum profit threshold; GlobalFloor
// is the global floor applied when a mint has no specific entry.
type Thresholds struct {
	PerMint     map[domain.Mint]int64
	GlobalFloor int64
}

func (t Thresholds) For(mint domain.Mint) int64 {
	if v, ok := t.PerMint[mint]; ok {
		return v
	}
	return t.GlobalFloor
}

// ShortfallEvent is emitted for observability when a DoubleQuote clears
// zero-profit but misses the configured threshold.
type ShortfallEvent struct {
	Pair         domain.TradePair
	GrossProfit  int64
	Threshold    int64
}

// Evaluator turns a DoubleQuote into a SwapOpportunity, or rejects it.
type Evaluator struct {
	Thresholds Thresholds
	Tip        TipStrategy
	// RequestedTip, when set (e.g. by an aggregator's own fee recommendation),
	// is conflated with the strategy-computed tip by taking the max of the
	// two per spec.md §9's documented open-question resolution.
	RequestedTip uint64
	OnShortfall  func(ShortfallEvent)
}

// Evaluate implements spec.md §4.5 steps 1-5 for a two-leg DoubleQuote.
func (e *Evaluator) Evaluate(pair domain.TradePair, amountIn uint64, dq domain.DoubleQuote) (domain.SwapOpportunity, error) {
	grossProfit := int64(dq.Reverse.AmountOut) - int64(amountIn)
	return e.finish(pair, amountIn, grossProfit, &dq)
}

// EvaluateMultiLeg accepts a precomputed gross-profit number from the
// multi-leg orchestrator rather than recomputing it from two LegQuotes.
func (e *Evaluator) EvaluateMultiLeg(pair domain.TradePair, amountIn uint64, grossProfit int64) (domain.SwapOpportunity, error) {
	return e.finish(pair, amountIn, grossProfit, nil)
}

func (e *Evaluator) finish(pair domain.TradePair, amountIn uint64, grossProfit int64, dq *domain.DoubleQuote) (domain.SwapOpportunity, error) {
	if grossProfit <= 0 {
		return domain.SwapOpportunity{}, xerrors.New("evaluator.Evaluate", xerrors.KindUnknown, errNonPositiveGross)
	}

	threshold := e.Thresholds.For(pair.Input)
	if grossProfit < threshold {
		if e.OnShortfall != nil {
			e.OnShortfall(ShortfallEvent{Pair: pair, GrossProfit: grossProfit, Threshold: threshold})
		}
		return domain.SwapOpportunity{}, xerrors.New("evaluator.Evaluate", xerrors.KindUnknown, errBelowThreshold)
	}

	tip := e.Tip.Tip(grossProfit)
	if e.RequestedTip > tip {
		tip = e.RequestedTip
	}

	if grossProfit-int64(tip) <= 0 {
		return domain.SwapOpportunity{}, xerrors.New("evaluator.Evaluate", xerrors.KindUnknown, errTipExceedsProfit)
	}

	return domain.SwapOpportunity{
		Pair:           pair,
		AmountIn:       amountIn,
		ProfitLamports: grossProfit,
		TipLamports:    tip,
		TipStrategy:    e.Tip.Label(),
		MergedQuote:    dq,
	}, nil
}

type evalError string

func (e evalError) Error() string { return string(e) }

const (
	errNonPositiveGross = evalError("gross profit is not positive")
	errBelowThreshold   = evalError("gross profit below configured threshold")
	errTipExceedsProfit = evalError("tip would leave non-positive net profit")
)
