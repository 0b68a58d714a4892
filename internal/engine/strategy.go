package engine

import (
	"context"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/multileg"
	"github.com/dnavarro/cyclearb/internal/pureblind"
)

// Strategy selects which instruction variant a batch of cleared quotes
// should be assembled into — Jupiter single-hop, multi-leg combination, or
// pure-blind cycle — mirroring the original's src/engine/runtime/strategy/*
// dispatch (confirmed but not expanded beyond spec.md's own description,
// per SPEC_FULL.md §5).
type Strategy interface {
	Kind() domain.VariantKind
	// BuildInstructions turns a cleared SwapOpportunity into the raw swap
	// payload the assembler decorator chain wraps. No compute-budget, tip,
	// or guard instructions are produced here — those are the chain's job.
	BuildInstructions(ctx context.Context, opp domain.SwapOpportunity) (domain.SwapInstructionsVariant, error)
}

// JupiterStrategy delegates directly to an aggregator's
// ports.InstructionClient, the simplest and default variant.
type JupiterStrategy struct {
	Client interface {
		SwapInstructions(ctx context.Context, quote domain.LegQuote) (domain.SwapInstructionsVariant, error)
	}
}

func (JupiterStrategy) Kind() domain.VariantKind { return domain.VariantJupiter }

func (s JupiterStrategy) BuildInstructions(ctx context.Context, opp domain.SwapOpportunity) (domain.SwapInstructionsVariant, error) {
	return s.Client.SwapInstructions(ctx, opp.MergedQuote.Forward)
}

// MultiLegStrategy turns an already-materialized multileg.LegPairPlan
// (stashed on SwapOpportunity.Precomputed by the caller once
// Orchestrator.Materialize picked a combination) into the assembler's main
// instruction payload. No quote round trip happens here — the two legs
// were already built by the orchestrator.
type MultiLegStrategy struct{}

func (MultiLegStrategy) Kind() domain.VariantKind { return domain.VariantMultiLeg }

func (MultiLegStrategy) BuildInstructions(_ context.Context, opp domain.SwapOpportunity) (domain.SwapInstructionsVariant, error) {
	plan, ok := opp.Precomputed.(multileg.LegPairPlan)
	if !ok {
		return domain.SwapInstructionsVariant{}, errMissingMultiLegPlan
	}
	return domain.SwapInstructionsVariant{
		Kind:         domain.VariantMultiLeg,
		Instructions: plan.Bundle.Flatten(),
		LookupTables: plan.Bundle.LookupTables,
	}, nil
}

// PureBlindStrategy encodes a closed on-chain cycle (stashed on
// SwapOpportunity.Precomputed as a pureblind.Cycle) directly from its pool
// adapters, bypassing any aggregator entirely per spec.md §4.12.
type PureBlindStrategy struct {
	Adapters map[string]pureblind.PoolAdapter
}

func (PureBlindStrategy) Kind() domain.VariantKind { return domain.VariantPureBlind }

func (s PureBlindStrategy) BuildInstructions(_ context.Context, opp domain.SwapOpportunity) (domain.SwapInstructionsVariant, error) {
	cycle, ok := opp.Precomputed.(pureblind.Cycle)
	if !ok {
		return domain.SwapInstructionsVariant{}, errMissingPureBlindCycle
	}
	instrs, err := pureblind.EncodeForward(cycle.Steps, s.Adapters, opp.AmountIn)
	if err != nil {
		return domain.SwapInstructionsVariant{}, err
	}
	return domain.SwapInstructionsVariant{
		Kind:         domain.VariantPureBlind,
		Instructions: instrs,
	}, nil
}

// kindOf inspects opp.Precomputed to decide which Strategy built it,
// avoiding a separate explicit kind field on SwapOpportunity: nil means the
// Jupiter double-quote flow, a multileg.LegPairPlan or pureblind.Cycle
// means whichever orchestrator already materialized it.
func kindOf(opp domain.SwapOpportunity) domain.VariantKind {
	switch opp.Precomputed.(type) {
	case multileg.LegPairPlan:
		return domain.VariantMultiLeg
	case pureblind.Cycle:
		return domain.VariantPureBlind
	default:
		return domain.VariantJupiter
	}
}

type strategyError string

func (e strategyError) Error() string { return string(e) }

const (
	errMissingMultiLegPlan   = strategyError("multi-leg strategy: SwapOpportunity has no materialized LegPairPlan")
	errMissingPureBlindCycle = strategyError("pure-blind strategy: SwapOpportunity has no materialized Cycle")
)
