package assembler

import (
	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/domain"
)

// ProfitGuardProgramID is the "lighthouse"-style on-chain assertion program.
// Its instruction-data layout is an opaque protocol detail per spec.md §1 —
// this package only decides *when* to emit pre/post-snapshot instructions
// and what delta they must assert, not how the bytes are laid out.
var ProfitGuardProgramID = solana.MustPublicKeyFromBase58("L2TExqUKSL2hAHFWeS2epxRcfKjZ5QCrGJw5xUEKzxP")

// GuardPayloadEncoder produces the opaque instruction data for a guard
// snapshot or assertion instruction. Swapped out in tests for a fixed
// encoder; production wiring supplies the real protocol's byte layout.
type GuardPayloadEncoder interface {
	Snapshot(mint domain.Mint, slot uint32) []byte
	Assert(mint domain.Mint, slot uint32, requiredDelta uint64) []byte
}

// ProfitGuardDecorator is optional ("lighthouse" style): for each protected
// mint it snapshots the wallet's pre-swap balance into Pre, and asserts
// post-swap balance meets the guard bound into Post. No-op when disabled.
func ProfitGuardDecorator(encoder GuardPayloadEncoder) Decorator {
	return Decorator{
		Name: "profit_guard",
		Run: func(ctx *AssemblyContext, bundle *domain.InstructionBundle) error {
			if !ctx.ProfitGuard.Enabled {
				return nil
			}
			required := ctx.GuardRequired
			if ctx.ProfitGuard.SOLPriceFeedSet {
				required += ctx.ProfitGuard.GuardPadding
			}
			for i, mint := range ctx.ProfitGuard.ProtectedMints {
				slot := uint32(i)
				pre := solana.NewInstruction(ProfitGuardProgramID, solana.AccountMetaSlice{}, encoder.Snapshot(mint, slot))
				post := solana.NewInstruction(ProfitGuardProgramID, solana.AccountMetaSlice{}, encoder.Assert(mint, slot, required))
				bundle.Pre = append(bundle.Pre, pre)
				bundle.Post = append(bundle.Post, post)
			}
			return nil
		},
	}
}
