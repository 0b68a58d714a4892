// Package ports declares the narrow interfaces the engine consumes from its
// external collaborators: aggregators, RPC, signers, landers and storage.
// Concrete wire protocols, signing curves and DEX instruction encodings are
// excluded by design — callers get typed responses or classified errors.
package ports

import (
	"context"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/iplease"
)

// ErrorClass classifies an aggregator-originated failure so the IP lease
// pool can bias future assignments without inspecting error strings.
type ErrorClass int

const (
	ErrClassNone ErrorClass = iota
	ErrClassTransport
	ErrClassRateLimited
	ErrClassStatus
	ErrClassSchema
	ErrClassTimeout
)

// AggregatorError is the classified outcome of a failed aggregator call.
type AggregatorError struct {
	Class      ErrorClass
	StatusCode int
	Body       string
	Err        error
}

func (e *AggregatorError) Error() string { return e.Err.Error() }
func (e *AggregatorError) Unwrap() error { return e.Err }

// QuoteRequest is the uniform request shape across all aggregators.
type QuoteRequest struct {
	Pair            domain.TradePair
	Amount          uint64
	SlippageBps     uint16
	DirectOnly      bool
	AllowIntermediate bool
	Extra           map[string]string
}

// SwapInstructionsRequest asks an aggregator that produces instructions to
// materialize a previously-fetched quote.
type SwapInstructionsRequest struct {
	Quote             domain.LegQuote
	User              string
	WrapSOL           bool
	SharedAccounts    bool
	FeeAccount        string
	ComputeUnitPrice  uint64
}

// QuoteClient is the capability every aggregator exposes.
type QuoteClient interface {
	// Name identifies the aggregator for provider tagging and lease cooldown
	// bookkeeping.
	Name() string
	Quote(ctx context.Context, req QuoteRequest, lease *iplease.LeaseHandle) (domain.LegQuote, error)
}

// InstructionClient is implemented by aggregators that also produce
// ready-to-assemble swap instructions (Jupiter-style).
type InstructionClient interface {
	QuoteClient
	SwapInstructions(ctx context.Context, req SwapInstructionsRequest, lease *iplease.LeaseHandle) (domain.SwapInstructionsVariant, error)
}

// QuoteUpdate is one push from a streaming aggregator's subscription.
type QuoteUpdate struct {
	StreamID string
	Quote    domain.LegQuote
	Err      error
}

// StreamingClient is implemented by aggregators that push quote updates
// over a persistent connection (Titan-style).
type StreamingClient interface {
	QuoteClient
	Bootstrap(ctx context.Context, plan []domain.QuoteBatchPlan) error
	Subscribe(ctx context.Context, pair domain.TradePair, amount uint64, ip string) (<-chan QuoteUpdate, string, error)
	Stop(streamID string) error
}
