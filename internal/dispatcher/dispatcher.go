// Package dispatcher executes a scheduler batch of QuoteBatchPlan items
// under a concurrency ceiling, producing one DoubleQuote per item that
// clears both legs. Concurrency is bounded with golang.org/x/sync/errgroup
// (SetLimit), the context-cancellable generalization of the teacher's
// concurrent.go worker-pool-over-channel shape.
package dispatcher

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/iplease"
	"github.com/dnavarro/cyclearb/internal/ports"
	"github.com/dnavarro/cyclearb/internal/xerrors"
)

// Config controls per-batch concurrency and item staggering.
type Config struct {
	// ConcurrencyLimit caps simultaneous in-flight items; zero sets no
	// dispatcher-level cap, leaving the lease pool's per-IP inflight limits
	// as the only bound. Run does not derive a
	// total_slots × per_ip_inflight_limit default itself.
	ConcurrencyLimit int
	// Interval is the per-item stagger (interval × index + processDelay),
	// capped at one second on overflow.
	Interval     time.Duration
	ProcessDelay time.Duration
}

const staggerCap = time.Second

// Dispatcher runs batches of quote tasks against a quote-capable
// aggregator, leasing IPs per item.
type Dispatcher struct {
	Leases     *iplease.Pool
	Aggregator ports.QuoteClient
	Config     Config
}

// Outcome is one batch item's result, indexed so callers can preserve
// emission order regardless of completion order.
type Outcome struct {
	BatchID   uint64
	Pair      domain.TradePair
	Quote     domain.DoubleQuote
	Skipped   bool
	SkipCause string
	Err       error
}

var errSameAggregatorRequired = errors.New("dispatcher: forward and reverse legs must share an aggregator family")

// Run executes every item in batch concurrently, bounded by
// Config.ConcurrencyLimit, and returns one Outcome per item in the
// original batch order.
func (d *Dispatcher) Run(ctx context.Context, batch []domain.QuoteBatchPlan) ([]Outcome, error) {
	outcomes := make([]Outcome, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	if d.Config.ConcurrencyLimit > 0 {
		g.SetLimit(d.Config.ConcurrencyLimit)
	}

	for i, item := range batch {
		i, item := i, item
		delay := d.staggerFor(i)
		g.Go(func() error {
			if delay > 0 {
				t := time.NewTimer(delay)
				defer t.Stop()
				select {
				case <-t.C:
				case <-ctx.Done():
					return nil
				}
			}
			outcomes[i] = d.runOne(ctx, item)
			if outcomes[i].Err != nil && xerrors.KindOf(outcomes[i].Err) == xerrors.KindNetworkResource {
				return outcomes[i].Err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (d *Dispatcher) staggerFor(index int) time.Duration {
	delay := d.Config.Interval*time.Duration(index) + d.Config.ProcessDelay
	if delay < 0 || delay > staggerCap {
		return staggerCap
	}
	return delay
}

func (d *Dispatcher) runOne(ctx context.Context, item domain.QuoteBatchPlan) Outcome {
	base := Outcome{BatchID: item.BatchID, Pair: item.Pair}

	// item.PreferredIP pins a streaming-originated (pair, amount) to one
	// source IP upstream (internal/multileg's subscription planner); the
	// standard dispatch path always draws from the shared lease pool.
	forwardLease, err := d.Leases.Acquire(ctx, iplease.QuoteBuy)
	if err != nil {
		base.Err = err
		return base
	}

	forwardStart := time.Now()
	forward, err := d.Aggregator.Quote(ctx, ports.QuoteRequest{Pair: item.Pair, Amount: item.Amount}, forwardLease)
	forwardLatency := time.Since(forwardStart)

	if err != nil {
		outcome := d.classifyLegFailure(err, forwardLease)
		outcome.BatchID = base.BatchID
		outcome.Pair = base.Pair
		return outcome
	}

	if !forward.Valid() || forward.AmountOut == 0 {
		forwardLease.Release(iplease.Success)
		base.Skipped = true
		base.SkipCause = "forward leg produced zero output"
		return base
	}
	forwardLease.Release(iplease.Success)

	reverseLease, err := d.Leases.AcquireExcluding(ctx, iplease.QuoteSell, forwardLease.IP())
	if err != nil {
		base.Err = err
		return base
	}
	defer reverseLease.Release(iplease.Success)

	reverseStart := time.Now()
	reverse, err := d.Aggregator.Quote(ctx, ports.QuoteRequest{Pair: item.Pair.Reversed(), Amount: forward.AmountOut}, reverseLease)
	reverseLatency := time.Since(reverseStart)
	if err != nil {
		outcome := d.classifyLegFailure(err, reverseLease)
		outcome.BatchID = base.BatchID
		outcome.Pair = base.Pair
		return outcome
	}

	dq := domain.DoubleQuote{
		Forward:         forward,
		Reverse:         reverse,
		ForwardLatency:  forwardLatency,
		ReverseLatency:  reverseLatency,
	}
	if !dq.SameAggregatorFamily() {
		base.Skipped = true
		base.SkipCause = errSameAggregatorRequired.Error()
		return base
	}

	base.Quote = dq
	return base
}

// classifyLegFailure maps an aggregator error to a lease outcome, releases
// the lease accordingly, and decides whether the batch should be silently
// skipped or the error propagated upward.
func (d *Dispatcher) classifyLegFailure(err error, lease *iplease.LeaseHandle) Outcome {
	var aggErr *ports.AggregatorError
	if !errors.As(err, &aggErr) {
		lease.Release(iplease.NetworkError)
		return Outcome{Err: err}
	}

	switch aggErr.Class {
	case ports.ErrClassRateLimited:
		lease.Release(iplease.RateLimited)
		return Outcome{Skipped: true, SkipCause: "rate limited"}
	case ports.ErrClassTimeout:
		lease.Release(iplease.Timeout)
		return Outcome{Skipped: true, SkipCause: "timeout"}
	case ports.ErrClassTransport:
		lease.Release(iplease.NetworkError)
		return Outcome{Skipped: true, SkipCause: "network error"}
	case ports.ErrClassSchema:
		lease.Release(iplease.Success)
		return Outcome{Skipped: true, SkipCause: "schema error"}
	default:
		lease.Release(iplease.Success)
		return Outcome{Skipped: true, SkipCause: "status error"}
	}
}
