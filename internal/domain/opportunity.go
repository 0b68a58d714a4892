package domain

// TipStrategyLabel names which tip policy produced an opportunity's tip,
// carried through to PreparedTransaction for logging.
type TipStrategyLabel string

const (
	TipFixed    TipStrategyLabel = "fixed"
	TipFraction TipStrategyLabel = "fraction"
	TipPlan     TipStrategyLabel = "plan"
)

// SwapOpportunity is a profitable, tip-accounted cyclic trade ready for
// instruction assembly. Constructed only once profit_lamports has already
// cleared the configured threshold — see internal/evaluator.
type SwapOpportunity struct {
	Pair           TradePair
	AmountIn       uint64
	ProfitLamports int64
	TipLamports    uint64
	TipStrategy    TipStrategyLabel
	MergedQuote    *DoubleQuote

	// Precomputed carries a variant-specific materialized plan for modes
	// whose instruction payload can't be derived from MergedQuote alone —
	// a multileg.LegPairPlan value for VariantMultiLeg, a pureblind.Cycle for
	// VariantPureBlind. Left nil for VariantJupiter, which rebuilds from
	// MergedQuote.Forward directly. Kept as `any` rather than importing
	// those packages here: domain sits below them in the dependency graph.
	Precomputed any
}

// NetProfit is gross profit minus the tip paid to land the transaction.
// Must be positive before the opportunity is allowed to dispatch.
func (o SwapOpportunity) NetProfit() int64 {
	return o.ProfitLamports - int64(o.TipLamports)
}

// Dispatchable reports whether this opportunity clears its own net-profit
// invariant.
func (o SwapOpportunity) Dispatchable() bool {
	return o.NetProfit() > 0
}
