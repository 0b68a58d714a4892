package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/config"
	"github.com/dnavarro/cyclearb/internal/adapters/keysigner"
	"github.com/dnavarro/cyclearb/internal/adapters/notify"
	"github.com/dnavarro/cyclearb/internal/adapters/rpclander"
	"github.com/dnavarro/cyclearb/internal/adapters/solanarpc"
	"github.com/dnavarro/cyclearb/internal/adapters/storage"
	"github.com/dnavarro/cyclearb/internal/aggregator/fanout"
	"github.com/dnavarro/cyclearb/internal/aggregator/jupiterlike"
	"github.com/dnavarro/cyclearb/internal/aggregator/okxlike"
	"github.com/dnavarro/cyclearb/internal/aggregator/onchain"
	"github.com/dnavarro/cyclearb/internal/aggregator/titan"
	"github.com/dnavarro/cyclearb/internal/assembler"
	"github.com/dnavarro/cyclearb/internal/dispatcher"
	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/engine"
	"github.com/dnavarro/cyclearb/internal/evaluator"
	"github.com/dnavarro/cyclearb/internal/flashloan"
	"github.com/dnavarro/cyclearb/internal/iplease"
	"github.com/dnavarro/cyclearb/internal/landing"
	"github.com/dnavarro/cyclearb/internal/multileg"
	"github.com/dnavarro/cyclearb/internal/ports"
	"github.com/dnavarro/cyclearb/internal/precheck"
	"github.com/dnavarro/cyclearb/internal/scheduler"
	"github.com/dnavarro/cyclearb/internal/txbuilder"
)

// jupiterSwapAdapter narrows a ports.InstructionClient down to the single
// method engine.JupiterStrategy needs, fixing the request options the
// engine itself has no business choosing per call (wrap/unwrap SOL, shared
// accounts, fee account).
type jupiterSwapAdapter struct {
	client ports.InstructionClient
	payer  solana.PublicKey
}

func (a *jupiterSwapAdapter) SwapInstructions(ctx context.Context, quote domain.LegQuote) (domain.SwapInstructionsVariant, error) {
	return a.client.SwapInstructions(ctx, ports.SwapInstructionsRequest{
		Quote:          quote,
		User:           a.payer.String(),
		WrapSOL:        true,
		SharedAccounts: true,
	}, nil)
}

// noopGuardEncoder satisfies assembler.GuardPayloadEncoder for
// configurations that never enable ProfitGuard; its methods are never
// called since the decorator no-ops when ctx.ProfitGuard.Enabled is false.
type noopGuardEncoder struct{}

func (noopGuardEncoder) Snapshot(domain.Mint, uint32) []byte        { return nil }
func (noopGuardEncoder) Assert(domain.Mint, uint32, uint64) []byte { return nil }

// buildAggregatorClients constructs every configured aggregators.sources
// entry by its kind, keyed by name, so multileg/pureblind job wiring and
// the fanout quote client can all address a specific source by name
// instead of only ever finding the first "jupiterlike" one.
func buildAggregatorClients(cfg *config.Config, rpc ports.RPC, leases *iplease.Pool) (map[string]ports.QuoteClient, error) {
	if len(cfg.Aggregators.Sources) == 0 {
		return nil, fmt.Errorf("aggregators.sources: at least one entry required")
	}

	clients := make(map[string]ports.QuoteClient, len(cfg.Aggregators.Sources))
	for _, src := range cfg.Aggregators.Sources {
		switch src.Kind {
		case "jupiterlike":
			clients[src.Name] = jupiterlike.New(src.Name, src.BaseURL, nil, nil)
		case "okxlike":
			limiter := rate.NewLimiter(rate.Limit(10), 10)
			clients[src.Name] = okxlike.New(src.Name, src.BaseURL, src.APIKey, limiter, nil)
		case "onchain":
			registry, err := buildOnchainRegistry(src.Pools)
			if err != nil {
				return nil, fmt.Errorf("aggregators.sources[%s]: %w", src.Name, err)
			}
			clients[src.Name] = onchain.New(src.Name, rpc, registry)
		case "titan":
			issuer := titan.HMACIssuer{Secret: []byte(src.APIKey), Subject: src.Name, TTL: time.Minute}
			auth := titan.NewAuthenticator(issuer, 10*time.Second)
			clients[src.Name] = titan.New(src.Name, src.BaseURL, auth)
		default:
			return nil, fmt.Errorf("aggregators.sources[%s]: unknown kind %q", src.Name, src.Kind)
		}
	}
	return clients, nil
}

func buildOnchainRegistry(pools []config.OnchainPoolConfig) (onchain.PoolRegistry, error) {
	registry := onchain.PoolRegistry{Pools: make(map[solana.PublicKey]onchain.RegisteredPool, len(pools))}
	for _, p := range pools {
		addr, err := solana.PublicKeyFromBase58(p.Address)
		if err != nil {
			return onchain.PoolRegistry{}, fmt.Errorf("pool %q: invalid address: %w", p.Address, err)
		}
		input, err := solana.PublicKeyFromBase58(p.Input)
		if err != nil {
			return onchain.PoolRegistry{}, fmt.Errorf("pool %q: invalid input mint: %w", p.Address, err)
		}
		output, err := solana.PublicKeyFromBase58(p.Output)
		if err != nil {
			return onchain.PoolRegistry{}, fmt.Errorf("pool %q: invalid output mint: %w", p.Address, err)
		}
		registry.Pools[addr] = onchain.RegisteredPool{
			Address: addr,
			Pair:    domain.TradePair{Input: input, Output: output},
			Layout: onchain.PoolLayout{
				DEXKind:         p.DEXKind,
				BaseReserveOff:  p.BaseReserveOffset,
				QuoteReserveOff: p.QuoteReserveOffset,
				FeeNumOff:       p.FeeNumOffset,
				FeeDenOff:       p.FeeDenOffset,
			},
		}
	}
	return registry, nil
}

// buildAggregatorClient builds every configured source and fans them out
// behind a single ports.InstructionClient, so quote/swap-instructions
// callers get the best price across every configured aggregator instead of
// being hardwired to whichever "jupiterlike" entry happened to appear
// first in the list.
func buildAggregatorClient(cfg *config.Config, rpc ports.RPC, leases *iplease.Pool) (ports.InstructionClient, error) {
	clients, err := buildAggregatorClients(cfg, rpc, leases)
	if err != nil {
		return nil, err
	}
	return fanout.New("fanout", clients), nil
}

func buildSchedule(cfg config.PairsConfig) ([]domain.TradePair, []*domain.MintSchedule, []time.Duration, error) {
	if len(cfg.Pairs) == 0 {
		return nil, nil, nil, fmt.Errorf("pairs: at least one entry required")
	}
	pairs := make([]domain.TradePair, 0, len(cfg.Pairs))
	schedules := make([]*domain.MintSchedule, 0, len(cfg.Pairs))
	intervals := make([]time.Duration, 0, len(cfg.Pairs))

	for _, p := range cfg.Pairs {
		input, err := solana.PublicKeyFromBase58(p.Input)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("pairs: invalid input mint %q: %w", p.Input, err)
		}
		output, err := solana.PublicKeyFromBase58(p.Output)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("pairs: invalid output mint %q: %w", p.Output, err)
		}
		pair := domain.TradePair{Input: input, Output: output}
		if !pair.Valid() {
			return nil, nil, nil, fmt.Errorf("pairs: degenerate pair %s", pair)
		}

		sizes := p.Sizes
		if len(sizes) == 0 {
			sizes = []uint64{1_000_000_000}
		}
		interval := time.Duration(p.IntervalSeconds) * time.Second
		if interval <= 0 {
			interval = 5 * time.Second
		}

		pairs = append(pairs, pair)
		schedules = append(schedules, domain.NewMintSchedule(input, sizes))
		intervals = append(intervals, interval)
	}
	return pairs, schedules, intervals, nil
}

func buildTipStrategy(cfg config.EngineConfig) evaluator.TipStrategy {
	switch cfg.TipStrategy {
	case "fixed":
		return evaluator.FixedTip{Lamports: cfg.TipFixedLamports}
	default:
		return evaluator.FractionTip{Bps: cfg.TipFractionBps}
	}
}

func parseLanderTransport(s string) domain.LanderTransport {
	switch s {
	case "staked_relay":
		return domain.LanderStakedRelay
	case "private_bundle":
		return domain.LanderPrivateBundle
	default:
		return domain.LanderRPC
	}
}

func buildLanderStack(cfg config.LandersConfig) (domain.LanderStack, error) {
	if len(cfg.Stack) == 0 {
		return domain.NewLanderStack([]domain.Lander{{Name: "rpc-primary", Transport: domain.LanderRPC}}), nil
	}
	landers := make([]domain.Lander, 0, len(cfg.Stack))
	for _, l := range cfg.Stack {
		lander := domain.Lander{Name: l.Name, Transport: parseLanderTransport(l.Transport)}
		if l.TipAccount != "" {
			acct, err := solana.PublicKeyFromBase58(l.TipAccount)
			if err != nil {
				return domain.LanderStack{}, fmt.Errorf("landers: invalid tip_account %q for %q: %w", l.TipAccount, l.Name, err)
			}
			lander.TipAccount = &acct
		}
		landers = append(landers, lander)
	}
	return domain.NewLanderStack(landers), nil
}

// rpcSubmitter adapts a Builder+RPC pair to precheck.Submitter: build a
// transaction from the batch, send it, and wait for confirmation, the same
// two RPC calls landing.Stage's primary path makes, just without the
// variant-racing machinery a startup precheck batch has no use for.
type rpcSubmitter struct {
	builder *txbuilder.Builder
	rpc     ports.RPC
}

func (s *rpcSubmitter) SubmitAndConfirm(ctx context.Context, instructions []solana.Instruction) error {
	prepared, err := s.builder.Build(ctx, txbuilder.Input{Instructions: instructions})
	if err != nil {
		return err
	}
	if _, err := s.rpc.SendTransaction(ctx, prepared.SignedBytes); err != nil {
		return err
	}
	return s.rpc.ConfirmTransaction(ctx, prepared.Signature)
}

// uniqueMints collects every distinct mint referenced by cfg.Pairs, the set
// precheck.Prechecker.Run needs to ensure an associated token account
// exists for before the engine starts trading, per spec.md §4.13.
func uniqueMints(pairs []domain.TradePair) []solana.PublicKey {
	seen := make(map[solana.PublicKey]bool, len(pairs)*2)
	var mints []solana.PublicKey
	for _, p := range pairs {
		for _, m := range []solana.PublicKey{p.Input, p.Output} {
			if !seen[m] {
				seen[m] = true
				mints = append(mints, m)
			}
		}
	}
	return mints
}

// buildMultiLegWiring constructs the orchestrator, quote/materialize
// callbacks, and per-tick jobs that make internal/multileg reachable from
// the running engine, or returns (nil, nil, nil, nil, nil) if multi_leg.enabled
// is false.
func buildMultiLegWiring(
	cfg config.MultiLegConfig,
	pairs []domain.TradePair,
	sizes []uint64,
	clients map[string]ports.QuoteClient,
	rpc ports.RPC,
	payer solana.PublicKey,
) (*multileg.Orchestrator, multileg.QuoteFunc, multileg.MaterializeFunc, []engine.MultiLegJob, error) {
	if !cfg.Enabled {
		return nil, nil, nil, nil, nil
	}
	if len(cfg.BuyLegs) == 0 || len(cfg.SellLegs) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("multi_leg.enabled requires at least one buy_legs and one sell_legs entry")
	}

	buyLegs := make([]multileg.LegDescriptor, 0, len(cfg.BuyLegs))
	for _, l := range cfg.BuyLegs {
		buyLegs = append(buyLegs, multileg.LegDescriptor{AggregatorKind: l.AggregatorKind, Side: "buy"})
	}
	sellLegs := make([]multileg.LegDescriptor, 0, len(cfg.SellLegs))
	for _, l := range cfg.SellLegs {
		sellLegs = append(sellLegs, multileg.LegDescriptor{AggregatorKind: l.AggregatorKind, Side: "sell"})
	}

	orchestrator := &multileg.Orchestrator{
		BuyLegs:           buyLegs,
		SellLegs:          sellLegs,
		ParallelThreshold: cfg.ParallelThreshold,
	}

	fetch := func(ctx context.Context, d multileg.LegDescriptor, pair domain.TradePair, amount uint64) (domain.LegQuote, error) {
		client, ok := clients[d.AggregatorKind]
		if !ok {
			return domain.LegQuote{}, fmt.Errorf("multileg: no aggregator source named %q configured", d.AggregatorKind)
		}
		return client.Quote(ctx, ports.QuoteRequest{Pair: pair, Amount: amount}, nil)
	}

	materialize := func(c multileg.Combination) (*domain.InstructionBundle, error) {
		ctx := context.Background()
		buyBundle, err := materializeLeg(ctx, clients, rpc, c.Buy, payer)
		if err != nil {
			return nil, fmt.Errorf("multileg: materialize buy leg: %w", err)
		}
		sellBundle, err := materializeLeg(ctx, clients, rpc, c.Sell, payer)
		if err != nil {
			return nil, fmt.Errorf("multileg: materialize sell leg: %w", err)
		}
		return mergeLegBundles(buyBundle, sellBundle), nil
	}

	jobs := make([]engine.MultiLegJob, 0, len(pairs)*len(sizes))
	for _, pair := range pairs {
		for _, amount := range sizes {
			jobs = append(jobs, engine.MultiLegJob{Pair: pair, Amount: amount, PrioritizationFees: cfg.PrioritizationFee})
		}
	}

	return orchestrator, fetch, materialize, jobs, nil
}

// materializeLeg asks the quote's originating aggregator for its swap
// instructions and, per spec.md §9, rebuilds them from a compiled raw
// transaction when the aggregator (Titan, typically) handed one back
// instead of a discrete instruction list.
func materializeLeg(ctx context.Context, clients map[string]ports.QuoteClient, rpc ports.RPC, q domain.LegQuote, payer solana.PublicKey) (domain.SwapInstructionsVariant, error) {
	client, ok := clients[q.ProviderTag]
	if !ok {
		return domain.SwapInstructionsVariant{}, fmt.Errorf("no aggregator registered for provider %q", q.ProviderTag)
	}
	ic, ok := client.(ports.InstructionClient)
	if !ok {
		return domain.SwapInstructionsVariant{}, fmt.Errorf("aggregator %q does not implement SwapInstructions", q.ProviderTag)
	}
	variant, err := ic.SwapInstructions(ctx, ports.SwapInstructionsRequest{
		Quote:          q,
		User:           payer.String(),
		WrapSOL:        true,
		SharedAccounts: true,
	}, nil)
	if err != nil {
		return domain.SwapInstructionsVariant{}, err
	}
	resolve := func(keys []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
		entries, err := rpc.ResolveLookupTables(ctx, keys)
		if err != nil {
			return nil, err
		}
		tables := make(map[solana.PublicKey]solana.PublicKeySlice, len(entries))
		for _, e := range entries {
			tables[e.Key] = e.Addresses
		}
		return tables, nil
	}
	if err := multileg.RebuildFromRawTransactionResolving(&variant, resolve); err != nil {
		return domain.SwapInstructionsVariant{}, fmt.Errorf("rebuild from raw transaction: %w", err)
	}
	return variant, nil
}

// mergeLegBundles concatenates two legs' instruction bundles into the
// single bundle MultiLegStrategy flattens, keeping compute budgets and
// lookup tables from both sides per spec.md §4.11 step 5.
func mergeLegBundles(buy, sell domain.SwapInstructionsVariant) *domain.InstructionBundle {
	merged := domain.NewInstructionBundle(buy)
	sellBundle := domain.NewInstructionBundle(sell)
	merged.ComputeBudget = append(merged.ComputeBudget, sellBundle.ComputeBudget...)
	merged.Main = append(merged.Main, sellBundle.Main...)
	for _, k := range sellBundle.LookupTables.Keys {
		merged.LookupTables.Add(k)
	}
	return merged
}

// wiredEngine bundles the engine and the collaborators its callers still
// need access to after construction (pair count for logging, the ledger's
// Close for deferral).
type wiredEngine struct {
	Engine *engine.Engine
	Pairs  int
	Stack  domain.LanderStack
	Ledger ports.LedgerStorage
}

// buildEngine wires every stage from a loaded config, shared by both "run"
// and "strategy-dry-run" so the two subcommands cannot drift apart on
// construction. forceDryRun overrides cfg.Engine.DryRun. ctx is used only
// during construction, for the startup precheck pass and the flash-loan
// wrapper's account discovery — Run(ctx) still takes its own ctx for the
// actual trading loop.
func buildEngine(ctx context.Context, cfg *config.Config, forceDryRun bool) (*wiredEngine, error) {
	if cfg.Engine.RPCEndpoint == "" {
		return nil, fmt.Errorf("engine.rpc_endpoint is required")
	}
	rpcClient := solanarpc.New(cfg.Engine.RPCEndpoint)

	if cfg.Engine.SignerKeypairPath == "" {
		return nil, fmt.Errorf("engine.signer_keypair_path is required")
	}
	signer, err := keysigner.Load(cfg.Engine.SignerKeypairPath)
	if err != nil {
		return nil, err
	}

	leasePool := iplease.New(iplease.Config{
		IPs:                cfg.Lease.IPs,
		PerIPInflightLimit: cfg.Lease.PerIPInflightLimit,
		Cooldowns:          iplease.DefaultCooldowns(),
		PerIPRateLimit:     rate.Limit(cfg.Lease.RateLimitPerSecond),
	})

	aggClients, err := buildAggregatorClients(cfg, rpcClient, leasePool)
	if err != nil {
		return nil, err
	}
	aggClient := fanout.New("fanout", aggClients)

	pairs, schedules, intervals, err := buildSchedule(cfg.Pairs)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(pairs, schedules, intervals)

	disp := &dispatcher.Dispatcher{
		Leases:     leasePool,
		Aggregator: aggClient,
		Config: dispatcher.Config{
			ConcurrencyLimit: cfg.Engine.ConcurrencyLimit,
			Interval:         time.Duration(cfg.Engine.DispatchIntervalMs) * time.Millisecond,
			ProcessDelay:     time.Duration(cfg.Engine.ProcessDelayMs) * time.Millisecond,
		},
	}

	eval := &evaluator.Evaluator{
		Thresholds: evaluator.Thresholds{GlobalFloor: cfg.Engine.MinProfitLamports},
		Tip:        buildTipStrategy(cfg.Engine),
	}

	builder := txbuilder.NewBuilder(rpcClient, signer, 2*time.Minute)

	strategies := map[domain.VariantKind]engine.Strategy{
		domain.VariantJupiter: engine.JupiterStrategy{Client: &jupiterSwapAdapter{client: aggClient, payer: signer.PublicKey()}},
		domain.VariantMultiLeg: engine.MultiLegStrategy{},
	}

	var flashWrapper *flashloan.Wrapper
	if cfg.Flashloan.Enabled {
		programID, err := solana.PublicKeyFromBase58(cfg.Flashloan.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("flashloan.program_id: %w", err)
		}
		loanAccount, err := solana.PublicKeyFromBase58(cfg.Flashloan.LoanAccount)
		if err != nil {
			return nil, fmt.Errorf("flashloan.loan_account: %w", err)
		}
		authority, err := solana.PublicKeyFromBase58(cfg.Flashloan.Authority)
		if err != nil {
			return nil, fmt.Errorf("flashloan.authority: %w", err)
		}
		borrowable := make([]domain.Mint, 0, len(cfg.Flashloan.BorrowableMints))
		for _, m := range cfg.Flashloan.BorrowableMints {
			mint, err := solana.PublicKeyFromBase58(m)
			if err != nil {
				return nil, fmt.Errorf("flashloan.borrowable_mints: %w", err)
			}
			borrowable = append(borrowable, mint)
		}

		discoverer := flashloan.StaticDiscoverer{Prep: flashloan.StaticPreparation{
			Protocol:    cfg.Flashloan.Protocol,
			ProgramID:   programID,
			LoanAccount: loanAccount,
			Authority:   authority,
		}}
		encoder := flashloan.StaticEncoder{
			ProgramID:           programID,
			BeginDiscriminator:  cfg.Flashloan.BeginDiscriminator,
			BorrowDiscriminator: cfg.Flashloan.BorrowDiscriminator,
			RepayDiscriminator:  cfg.Flashloan.RepayDiscriminator,
			EndDiscriminator:    cfg.Flashloan.EndDiscriminator,
		}
		flashWrapper = flashloan.NewWrapper(true, borrowable, cfg.Flashloan.OverheadComputeUnits, encoder)
		if err := flashWrapper.Prepare(ctx, signer.PublicKey(), discoverer); err != nil {
			return nil, fmt.Errorf("flashloan: prepare: %w", err)
		}
	} else {
		flashWrapper = flashloan.NewWrapper(false, nil, 0, nil)
	}

	decorators := []assembler.Decorator{
		flashWrapper.Decorator(),
		assembler.ComputeBudgetDecorator,
		assembler.TipDecorator,
		assembler.GuardBudgetDecorator,
		assembler.ProfitGuardDecorator(noopGuardEncoder{}),
	}

	landers, err := buildLanderStack(cfg.Landers)
	if err != nil {
		return nil, err
	}
	landerClients := make(map[string]ports.LanderClient, landers.Count())
	for _, l := range landers.Landers() {
		landerClients[l.Name] = rpclander.New(l.Name, rpcClient)
	}
	landingStage := &landing.Stage{Landers: landerClients, Leases: leasePool}

	ledger, err := storage.NewSQLiteLedger(cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}

	notifier := notify.NewConsole(false)

	engCfg := engine.Config{
		TickInterval:    cfg.TickInterval(),
		DryRun:          cfg.Engine.DryRun || forceDryRun,
		LandingDeadline: cfg.LandingDeadline(),
	}
	eng := engine.New(engCfg, sched, disp, eval, strategies, decorators, builder, landers, landingStage, notifier, ledger)

	if orchestrator, fetch, materialize, jobs, err := buildMultiLegWiring(cfg.MultiLeg, pairs, allSizes(cfg.Pairs), aggClients, rpcClient, signer.PublicKey()); err != nil {
		return nil, err
	} else if orchestrator != nil {
		eng.WireMultiLeg(orchestrator, fetch, materialize, jobs)
	}

	if err := runPrecheck(ctx, rpcClient, builder, signer.PublicKey(), pairs); err != nil {
		return nil, fmt.Errorf("precheck: %w", err)
	}

	return &wiredEngine{Engine: eng, Pairs: len(pairs), Stack: landers, Ledger: ledger}, nil
}

// allSizes flattens every pair's configured trade sizes into the one list
// multi-leg jobs are built from, falling back to the same default
// buildSchedule uses when a pair configures none.
func allSizes(cfg config.PairsConfig) []uint64 {
	seen := map[uint64]bool{}
	var sizes []uint64
	for _, p := range cfg.Pairs {
		ps := p.Sizes
		if len(ps) == 0 {
			ps = []uint64{1_000_000_000}
		}
		for _, s := range ps {
			if !seen[s] {
				seen[s] = true
				sizes = append(sizes, s)
			}
		}
	}
	return sizes
}

// runPrecheck runs the startup account-creation pass (spec.md §4.13)
// before the engine's first tick, ensuring every configured pair's
// associated token accounts exist so the first real swap doesn't fail on a
// missing account.
func runPrecheck(ctx context.Context, rpc ports.RPC, builder *txbuilder.Builder, wallet solana.PublicKey, pairs []domain.TradePair) error {
	checker := &precheck.Prechecker{
		RPC:       rpc,
		Submitter: &rpcSubmitter{builder: builder, rpc: rpc},
		Wallet:    wallet,
	}
	result, err := checker.Run(ctx, uniqueMints(pairs), nil, nil)
	if err != nil {
		return err
	}
	slog.Info("precheck complete", "checked", result.Checked, "created", result.Created)
	return nil
}
