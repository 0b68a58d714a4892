package assembler

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/dnavarro/cyclearb/internal/domain"
)

// TipDecorator inserts a transfer of opportunity.TipLamports from the payer
// to ctx.TipPlan.TipAccount. Without a TipPlan there is no tip account and
// no instruction is emitted. A zero-lamport tip emits no instruction at
// all, per spec.md §4.7.
var TipDecorator = Decorator{
	Name: "tip",
	Run: func(ctx *AssemblyContext, bundle *domain.InstructionBundle) error {
		lamports := ctx.Opportunity.TipLamports
		if lamports == 0 {
			return nil
		}
		if ctx.TipPlan == nil {
			return nil
		}
		// Appended to Post, after any flash-loan repay/end already queued
		// there, so flatten() matches spec.md §8 scenario 6's ordering.
		ix := system.NewTransferInstruction(lamports, ctx.Payer, ctx.TipPlan.TipAccount).Build()
		bundle.Post = append(bundle.Post, ix)
		return nil
	},
}
