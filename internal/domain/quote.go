package domain

import "time"

// QuoteTask is one (pair, amount) request carrying an optional batch
// identifier assigned monotonically by the scheduler.
type QuoteTask struct {
	Pair     TradePair
	Amount   uint64
	BatchID  uint64
	HasBatch bool
}

// QuoteBatchPlan is one scheduler-emitted unit of work; PreferredIP is set
// when a streaming plan has pinned (pair, amount) to one source IP.
type QuoteBatchPlan struct {
	BatchID     uint64
	Pair        TradePair
	Amount      uint64
	PreferredIP string
}

// LegQuote is one aggregator's response for one leg of a round-trip.
type LegQuote struct {
	AmountIn        uint64
	AmountOut       uint64
	MinOutAmount    uint64
	SlippageBps     uint16
	ProviderTag     string
	QuoteID         string
	ContextSlot     uint64
	ExpiresAtMs     int64
	ExpiresAfterSlot uint64
	LatencyMs       int64
}

// Valid reports the invariant a quote must satisfy to be usable downstream:
// amount_in > 0 always, amount_out > 0 only once the quote has actually
// been filled in (zero-value quotes are not "valid", just absent).
func (q LegQuote) Valid() bool {
	return q.AmountIn > 0 && q.AmountOut > 0
}

// Expired reports whether the quote is stale relative to now, either by
// wall-clock deadline or (when tracked elsewhere) by slot.
func (q LegQuote) Expired(now time.Time) bool {
	if q.ExpiresAtMs == 0 {
		return false
	}
	return now.UnixMilli() >= q.ExpiresAtMs
}

// DoubleQuote pairs a forward and reverse LegQuote for one base amount.
type DoubleQuote struct {
	Forward        LegQuote
	Reverse        LegQuote
	ForwardLatency time.Duration
	ReverseLatency time.Duration
}

// SameAggregatorFamily reports whether both legs were quoted by the same
// provider family — required unless the caller explicitly allows
// cross-aggregator pairing.
func (d DoubleQuote) SameAggregatorFamily() bool {
	return d.Forward.ProviderTag == d.Reverse.ProviderTag
}
