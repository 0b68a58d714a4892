package assembler

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/domain"
)

type fixedGuardEncoder struct{}

func (fixedGuardEncoder) Snapshot(mint domain.Mint, slot uint32) []byte { return []byte{1, byte(slot)} }
func (fixedGuardEncoder) Assert(mint domain.Mint, slot uint32, requiredDelta uint64) []byte {
	return []byte{2, byte(slot)}
}

func newTestVariant() domain.SwapInstructionsVariant {
	payer := solana.NewWallet().PublicKey()
	swap := solana.NewInstruction(payer, solana.AccountMetaSlice{}, []byte{9})
	return domain.SwapInstructionsVariant{
		Instructions:     []solana.Instruction{swap},
		ComputeUnitLimit: 200_000,
	}
}

func TestChainFlattenPreservesSegmentOrder(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	variant := newTestVariant()
	opp := domain.SwapOpportunity{TipLamports: 0}
	ctx := NewAssemblyContext(payer, opp, variant)
	bundle := domain.NewInstructionBundle(variant)

	chain := []Decorator{ComputeBudgetDecorator, TipDecorator, GuardBudgetDecorator, ProfitGuardDecorator(fixedGuardEncoder{})}
	failedAt, err := Chain(ctx, bundle, chain)
	require.NoError(t, err)
	assert.Empty(t, failedAt)

	flat := bundle.Flatten()
	// compute_budget(limit only, price==0 omitted) ++ pre() ++ main(swap) ++ post()
	require.Len(t, flat, 2)
	data, err := flat[0].Data()
	require.NoError(t, err)
	limit, ok := DecodeComputeUnitLimit(data)
	require.True(t, ok)
	assert.Equal(t, uint32(200_000), limit)
}

func TestZeroTipEmitsNoInstruction(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	variant := newTestVariant()
	opp := domain.SwapOpportunity{TipLamports: 0}
	ctx := NewAssemblyContext(payer, opp, variant)
	ctx.TipPlan = &TipPlan{TipAccount: solana.NewWallet().PublicKey()}
	bundle := domain.NewInstructionBundle(variant)

	err := TipDecorator.Run(ctx, bundle)
	require.NoError(t, err)
	assert.Empty(t, bundle.Post)
}

func TestTipDecoratorEmitsTransferWhenNonZero(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	variant := newTestVariant()
	opp := domain.SwapOpportunity{TipLamports: 500}
	ctx := NewAssemblyContext(payer, opp, variant)
	ctx.TipPlan = &TipPlan{TipAccount: solana.NewWallet().PublicKey()}
	bundle := domain.NewInstructionBundle(variant)

	err := TipDecorator.Run(ctx, bundle)
	require.NoError(t, err)
	assert.Len(t, bundle.Post, 1)
}

func TestComputeBudgetDecoratorReplacesExisting(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	variant := newTestVariant()
	variant.ComputeBudget = []solana.Instruction{computeBudgetInstruction(EncodeComputeUnitLimit(1))}
	ctx := NewAssemblyContext(payer, domain.SwapOpportunity{}, variant)
	ctx.ComputeUnitLimit = 250_000
	bundle := domain.NewInstructionBundle(variant)

	err := ComputeBudgetDecorator.Run(ctx, bundle)
	require.NoError(t, err)
	require.Len(t, bundle.ComputeBudget, 1)
}

func TestComputeUnitLimitRoundTrip(t *testing.T) {
	data := EncodeComputeUnitLimit(314_159)
	got, ok := DecodeComputeUnitLimit(data)
	require.True(t, ok)
	assert.Equal(t, uint32(314_159), got)
}
