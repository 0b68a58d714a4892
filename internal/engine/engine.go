// Package engine wires the scheduler, dispatcher, evaluator, assembler,
// builder, variant planner and landing stage into the runtime loop
// described in spec.md §2's control-flow summary, grounded on the
// teacher's internal/application/scanner/scanner.go Run/RunOnce/ticker
// shape (fetch → analyze → filter → notify, here generalized to
// tick/stream → dispatch → evaluate → assemble → build → land).
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/assembler"
	"github.com/dnavarro/cyclearb/internal/dispatcher"
	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/evaluator"
	"github.com/dnavarro/cyclearb/internal/landing"
	"github.com/dnavarro/cyclearb/internal/multileg"
	"github.com/dnavarro/cyclearb/internal/ports"
	"github.com/dnavarro/cyclearb/internal/scheduler"
	"github.com/dnavarro/cyclearb/internal/txbuilder"
	"github.com/dnavarro/cyclearb/internal/variant"
)

// streamChannelDepth is the bounded capacity for the streaming quote
// channel, per spec.md §9's "fair selection and a bounded channel depth
// (≥128) to absorb bursts without unbounded memory growth."
const streamChannelDepth = 128

// Config controls loop cadence and dry-run behavior.
type Config struct {
	TickInterval    time.Duration
	DryRun          bool
	LandingDeadline time.Duration
}

// Engine is the top-level runtime: one scheduler tick source, one
// streaming-quote source, multiplexed fairly into dispatch/evaluate/
// assemble/build/land.
type Engine struct {
	cfg        Config
	scheduler  *scheduler.Scheduler
	dispatcher *dispatcher.Dispatcher
	evaluator  *evaluator.Evaluator
	// strategies maps each VariantKind to the Strategy that builds its raw
	// swap payload, selected per-opportunity by the kind of value (if any)
	// stashed on SwapOpportunity.Precomputed.
	strategies map[domain.VariantKind]Strategy
	decorators []assembler.Decorator
	builder    *txbuilder.Builder
	landers    domain.LanderStack
	landing    *landing.Stage
	notifier   ports.Notifier
	ledger     ports.LedgerStorage

	// StreamIn receives QuoteBatchPlan items pushed by an external streaming
	// producer, processed fairly against ticks; cmd/cyclearb attaches none.
	StreamIn chan domain.QuoteBatchPlan

	// Multi-leg orchestration, wired by WireMultiLeg; nil unless
	// configured, in which case every scheduler tick also runs one
	// multi-leg evaluation pass per configured job. StreamIn items do not.
	multileg            *multileg.Orchestrator
	multilegFetch       multileg.QuoteFunc
	multilegMaterialize multileg.MaterializeFunc
	multilegJobs        []MultiLegJob
}

// New builds an Engine with a pre-allocated, bounded streaming channel.
func New(
	cfg Config,
	sched *scheduler.Scheduler,
	disp *dispatcher.Dispatcher,
	eval *evaluator.Evaluator,
	strategies map[domain.VariantKind]Strategy,
	decorators []assembler.Decorator,
	builder *txbuilder.Builder,
	landers domain.LanderStack,
	landingStage *landing.Stage,
	notifier ports.Notifier,
	ledger ports.LedgerStorage,
) *Engine {
	if cfg.LandingDeadline <= 0 {
		cfg.LandingDeadline = 2 * time.Second
	}
	return &Engine{
		cfg:        cfg,
		scheduler:  sched,
		dispatcher: disp,
		evaluator:  eval,
		strategies: strategies,
		decorators: decorators,
		builder:    builder,
		landers:    landers,
		landing:    landingStage,
		notifier:   notifier,
		ledger:     ledger,
		StreamIn:   make(chan domain.QuoteBatchPlan, streamChannelDepth),
	}
}

// MultiLegJob is one (pair, amount) the multi-leg orchestrator evaluates
// on every tick once wired.
type MultiLegJob struct {
	Pair               domain.TradePair
	Amount             uint64
	PrioritizationFees uint64
}

// WireMultiLeg attaches the multi-leg orchestrator, its quote/materialize
// callbacks, and the jobs it evaluates each tick. Calling this is what
// makes internal/multileg reachable from the running engine instead of
// sitting unused behind its own unit tests.
func (e *Engine) WireMultiLeg(o *multileg.Orchestrator, fetch multileg.QuoteFunc, materialize multileg.MaterializeFunc, jobs []MultiLegJob) {
	e.multileg = o
	e.multilegFetch = fetch
	e.multilegMaterialize = materialize
	e.multilegJobs = jobs
}

// Run drives the engine until ctx is cancelled. Two sources feed it: the
// scheduler tick and StreamIn; Go's select already gives fair
// pseudo-random selection among ready cases, satisfying spec.md §9's
// "process both with fair selection" requirement without extra
// bookkeeping.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "tick_interval", e.cfg.TickInterval, "dry_run", e.cfg.DryRun)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped")
			return nil
		case <-timer.C:
			batch, wait := e.scheduler.Tick(time.Now())
			if len(batch) > 0 {
				e.processBatch(ctx, batch)
			}
			if e.multileg != nil {
				e.runMultiLegJobs(ctx)
			}
			if wait <= 0 {
				wait = e.cfg.TickInterval
			}
			timer.Reset(wait)
		case item, ok := <-e.StreamIn:
			if !ok {
				e.StreamIn = nil
				continue
			}
			e.processBatch(ctx, []domain.QuoteBatchPlan{item})
		}
	}
}

func (e *Engine) processBatch(ctx context.Context, batch []domain.QuoteBatchPlan) {
	outcomes, err := e.dispatcher.Run(ctx, batch)
	if err != nil {
		slog.Error("dispatch failed", "err", err)
		return
	}

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			slog.Error("batch item failed", "batch_id", outcome.BatchID, "err", outcome.Err)
			continue
		}
		if outcome.Skipped {
			slog.Debug("batch item skipped", "batch_id", outcome.BatchID, "cause", outcome.SkipCause)
			continue
		}
		e.evaluateAndLand(ctx, outcome.Pair, outcome.Quote)
	}
}

func (e *Engine) evaluateAndLand(ctx context.Context, pair domain.TradePair, dq domain.DoubleQuote) {
	opp, err := e.evaluator.Evaluate(pair, dq.Forward.AmountIn, dq)
	if err != nil {
		return
	}
	e.assembleAndLand(ctx, pair, opp)
}

// runMultiLegJobs runs one multi-leg evaluation pass per configured job:
// quote every buy/sell combination, keep the best positive-profit one,
// materialize its instruction bundle, and hand it to assembleAndLand the
// same way a Jupiter double-quote opportunity is — spec.md §4.11 steps 1-5.
func (e *Engine) runMultiLegJobs(ctx context.Context) {
	for _, job := range e.multilegJobs {
		combos := e.multileg.Evaluate(ctx, job.Pair, job.Amount, job.PrioritizationFees, e.multilegFetch)
		positive := multileg.Positive(combos)
		if len(positive) == 0 {
			continue
		}
		best := positive[:1]
		plans := e.multileg.Materialize(best, e.multilegMaterialize)
		if len(plans) == 0 {
			continue
		}
		plan := plans[0]

		opp, err := e.evaluator.EvaluateMultiLeg(job.Pair, job.Amount, plan.Combination.GrossProfit)
		if err != nil {
			continue
		}
		opp.Precomputed = plan
		e.assembleAndLand(ctx, job.Pair, opp)
	}
}

// assembleAndLand is the shared tail of both the Jupiter double-quote flow
// and the multi-leg/pure-blind flows: pick the strategy for opp's kind,
// build its raw swap payload, run it through the decorator chain, build
// and land the transaction.
func (e *Engine) assembleAndLand(ctx context.Context, pair domain.TradePair, opp domain.SwapOpportunity) {
	strategy, ok := e.strategies[kindOf(opp)]
	if !ok {
		slog.Error("no strategy wired for opportunity kind", "pair", pair.String(), "kind", kindOf(opp))
		return
	}

	swapVariant, err := strategy.BuildInstructions(ctx, opp)
	if err != nil {
		slog.Error("instruction build failed", "pair", pair.String(), "err", err)
		return
	}

	payer := e.builder.Signer.PublicKey()
	assemblyCtx := assembler.NewAssemblyContext(payer, opp, swapVariant)
	bundle := domain.NewInstructionBundle(swapVariant)
	if failedAt, err := assembler.Chain(assemblyCtx, bundle, e.decorators); err != nil {
		slog.Error("assembly failed", "decorator", failedAt, "err", err)
		return
	}

	prepared, err := e.builder.Build(ctx, txbuilder.Input{
		Instructions:     bundle.Flatten(),
		LookupTableKeys:  bundle.LookupTables.Keys,
		ComputeUnitLimit: assemblyCtx.ComputeUnitLimit,
		ComputeUnitPrice: assemblyCtx.ComputeUnitPrice,
		TipLamports:      opp.TipLamports,
		GuardLamports:    assemblyCtx.GuardRequired,
		TipStrategyLabel: opp.TipStrategy,
	})
	if err != nil {
		slog.Error("transaction build failed", "pair", pair.String(), "err", err)
		return
	}

	if e.cfg.DryRun {
		slog.Info("dry-run",
			"slot", prepared.Slot,
			"blockhash", prepared.Blockhash.String(),
			"lander_count", e.landers.Count(),
		)
		e.notify(ctx, opp)
		return
	}

	variants, err := variant.Plan(prepared, e.landers, variant.BroadcastAll, 0, nil)
	if err != nil {
		slog.Error("variant plan failed", "err", err)
		return
	}

	deadline := domain.Deadline{At: time.Now().Add(e.cfg.LandingDeadline)}
	receipt, err := e.landing.Race(ctx, variants, deadline)
	if err != nil {
		slog.Error("landing failed", "pair", pair.String(), "err", err)
		return
	}

	slog.Info("landed", "pair", pair.String(), "signature", receipt.Signature, "lander", receipt.Lander)
	e.notify(ctx, opp)
	if e.ledger == nil {
		return
	}

	sig, err := solana.SignatureFromBase58(receipt.Signature)
	if err != nil {
		slog.Warn("ledger write skipped: unparseable signature", "err", err)
		return
	}
	record := ports.LandingRecord{
		Signature:   sig,
		Pair:        pair.String(),
		AmountIn:    opp.AmountIn,
		Profit:      opp.ProfitLamports,
		Lander:      receipt.Lander,
		Succeeded:   receipt.Succeeded,
		SubmittedAt: time.Now(),
	}
	if err := e.ledger.SaveLanding(ctx, record); err != nil {
		slog.Warn("ledger write failed", "err", err)
	}
}

func (e *Engine) notify(ctx context.Context, opp domain.SwapOpportunity) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, []domain.SwapOpportunity{opp}); err != nil {
		slog.Warn("notify failed", "err", err)
	}
}
