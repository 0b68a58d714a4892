// Package flashloan wraps a swap payload between borrow/repay instructions
// from a lending program, discovering the loan account once at startup and
// reusing it for every transaction — grounded on
// internal/adapters/onchain/merge.go's NewMergeClient-does-discovery-once
// pattern in the teacher, generalized from ERC1155 approval checking to
// lending-account discovery.
package flashloan

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/assembler"
	"github.com/dnavarro/cyclearb/internal/domain"
)

// Preparation is discovered once at startup and reused for every
// transaction thereafter — its lifecycle is process-long, not per-tick.
type Preparation struct {
	Protocol    string
	LoanAccount solana.PublicKey
	Authority   solana.PublicKey
}

// Discoverer finds or creates the on-chain loan account for the wallet.
// Implementations talk to the lending program's RPC-readable state; the
// account layout itself is an opaque protocol detail.
type Discoverer interface {
	Discover(ctx context.Context, wallet solana.PublicKey) (Preparation, error)
}

// InstructionEncoder produces the opaque begin/borrow/repay/end
// instruction set for one borrow, per spec.md §6's "program-specific
// constants used verbatim" note.
type InstructionEncoder interface {
	Begin(prep Preparation) solana.Instruction
	Borrow(prep Preparation, mint domain.Mint, amount uint64) solana.Instruction
	Repay(prep Preparation, mint domain.Mint, amount uint64) solana.Instruction
	End(prep Preparation) solana.Instruction
}

// Wrapper owns a one-time-discovered Preparation and exposes it as an
// assembler.Decorator.
type Wrapper struct {
	mu       sync.RWMutex
	prep     Preparation
	ready    bool
	enabled  bool
	borrowable map[domain.Mint]bool
	overheadCU uint32
	encoder  InstructionEncoder
}

// NewWrapper builds a Wrapper. Call Prepare once at startup before the
// engine begins dispatching; Decorator() is a no-op until Prepare succeeds.
func NewWrapper(enabled bool, borrowable []domain.Mint, overheadCU uint32, encoder InstructionEncoder) *Wrapper {
	set := make(map[domain.Mint]bool, len(borrowable))
	for _, m := range borrowable {
		set[m] = true
	}
	return &Wrapper{enabled: enabled, borrowable: set, overheadCU: overheadCU, encoder: encoder}
}

// Prepare discovers the loan account once and caches it for reuse.
func (w *Wrapper) Prepare(ctx context.Context, wallet solana.PublicKey, discoverer Discoverer) error {
	prep, err := discoverer.Discover(ctx, wallet)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.prep = prep
	w.ready = true
	w.mu.Unlock()
	return nil
}

// Decorator returns an assembler.Decorator implementing spec.md §4.6: when
// disabled or the input mint doesn't qualify, it is a no-op (byte-identical
// bundle, per the boundary behavior in spec.md §8).
func (w *Wrapper) Decorator() assembler.Decorator {
	return assembler.Decorator{
		Name: "flashloan",
		Run: func(ctx *assembler.AssemblyContext, bundle *domain.InstructionBundle) error {
			w.mu.RLock()
			prep, ready, enabled := w.prep, w.ready, w.enabled
			w.mu.RUnlock()

			if !enabled || !ready {
				return nil
			}
			mint := ctx.Opportunity.Pair.Input
			if !w.borrowable[mint] {
				return nil
			}

			amount := ctx.Opportunity.AmountIn
			begin := w.encoder.Begin(prep)
			borrow := w.encoder.Borrow(prep, mint, amount)
			repay := w.encoder.Repay(prep, mint, amount)
			end := w.encoder.End(prep)

			bundle.Pre = append(bundle.Pre, begin, borrow)
			bundle.Post = append(bundle.Post, repay, end)

			ctx.ComputeUnitLimit += w.overheadCU
			ctx.Flashloan = &assembler.FlashloanMetadata{
				Protocol:              prep.Protocol,
				Mint:                  mint,
				BorrowAmount:          amount,
				InnerInstructionCount: 2,
			}
			return nil
		},
	}
}
