// Package assembler implements the ordered decorator chain that turns a
// bare swap payload into a fully wrapped instruction bundle: Flashloan ->
// ComputeBudget -> Tip -> GuardBudget -> ProfitGuard. Grounded on spec.md
// §9's "ordered decorator chain" design note: a plain ordered slice of
// named handlers is the idiomatic Go rendition of the source's
// trait-object chain — no interface or down-cast needed.
package assembler

import (
	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/domain"
)

// FlashloanMetadata records what the flash-loan decorator did, exposed to
// logging and tests.
type FlashloanMetadata struct {
	Protocol             string
	Mint                 domain.Mint
	BorrowAmount         uint64
	InnerInstructionCount int
}

// ProfitGuardConfig controls whether and how the ProfitGuard decorator runs.
type ProfitGuardConfig struct {
	Enabled         bool
	ProtectedMints  []domain.Mint
	SOLPriceFeedSet bool
	GuardPadding    uint64
}

// TipPlan describes a Jito-style tip target; nil means no tip account, so
// TipDecorator emits no transfer whatever opportunity.TipLamports holds.
type TipPlan struct {
	TipAccount solana.PublicKey
}

// AssemblyContext is the mutable scratch every decorator reads and mutates.
// It owns all intermediate state so decorators never need to reach back
// into the bundle for cross-cutting values like ComputeUnitLimit.
type AssemblyContext struct {
	Payer            solana.PublicKey
	Opportunity      domain.SwapOpportunity
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
	TipPlan          *TipPlan
	GuardRequired    uint64
	ProfitGuard      ProfitGuardConfig
	BaseTxFee        uint64 // lamports; spec.md §4.7 default 5,000
	PrioritizationFeeDriven bool // when true, GuardBudget adds prioritization fee instead of tip

	Flashloan *FlashloanMetadata
}

// NewAssemblyContext seeds a context from a variant's declared budget and
// an accepted opportunity.
func NewAssemblyContext(payer solana.PublicKey, opp domain.SwapOpportunity, variant domain.SwapInstructionsVariant) *AssemblyContext {
	return &AssemblyContext{
		Payer:            payer,
		Opportunity:      opp,
		ComputeUnitLimit: variant.ComputeUnitLimit,
		ComputeUnitPrice: 0,
		BaseTxFee:        5_000,
	}
}

// Decorator mutates ctx and bundle in place; chain application never
// reorders and never short-circuits on success.
type Decorator struct {
	Name string
	Run  func(ctx *AssemblyContext, bundle *domain.InstructionBundle) error
}

// Chain applies each decorator in order, returning the first error and the
// name of the decorator that produced it.
func Chain(ctx *AssemblyContext, bundle *domain.InstructionBundle, decorators []Decorator) (failedAt string, err error) {
	for _, d := range decorators {
		if err := d.Run(ctx, bundle); err != nil {
			return d.Name, err
		}
	}
	return "", nil
}
