package flashloan

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/assembler"
	"github.com/dnavarro/cyclearb/internal/domain"
)

type fakeDiscoverer struct{ prep Preparation }

func (f fakeDiscoverer) Discover(ctx context.Context, wallet solana.PublicKey) (Preparation, error) {
	return f.prep, nil
}

type fakeEncoder struct{ programID solana.PublicKey }

func (e fakeEncoder) Begin(Preparation) solana.Instruction {
	return solana.NewInstruction(e.programID, solana.AccountMetaSlice{}, []byte{1})
}
func (e fakeEncoder) Borrow(Preparation, domain.Mint, uint64) solana.Instruction {
	return solana.NewInstruction(e.programID, solana.AccountMetaSlice{}, []byte{2})
}
func (e fakeEncoder) Repay(Preparation, domain.Mint, uint64) solana.Instruction {
	return solana.NewInstruction(e.programID, solana.AccountMetaSlice{}, []byte{3})
}
func (e fakeEncoder) End(Preparation) solana.Instruction {
	return solana.NewInstruction(e.programID, solana.AccountMetaSlice{}, []byte{4})
}

func TestDisabledFlashloanIsNoOp(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	w := NewWrapper(false, []domain.Mint{mint}, 15_000, fakeEncoder{programID: solana.NewWallet().PublicKey()})
	require.NoError(t, w.Prepare(context.Background(), solana.NewWallet().PublicKey(), fakeDiscoverer{}))

	ctx := &assembler.AssemblyContext{Opportunity: domain.SwapOpportunity{Pair: domain.TradePair{Input: mint}, AmountIn: 1}, ComputeUnitLimit: 200_000}
	bundle := &domain.InstructionBundle{}

	err := w.Decorator().Run(ctx, bundle)
	require.NoError(t, err)
	assert.Empty(t, bundle.Pre)
	assert.Empty(t, bundle.Post)
	assert.Equal(t, uint32(200_000), ctx.ComputeUnitLimit)
}

func TestEnabledFlashloanWrapsSwapAndRaisesComputeLimit(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	programID := solana.NewWallet().PublicKey()
	w := NewWrapper(true, []domain.Mint{mint}, 15_000, fakeEncoder{programID: programID})
	require.NoError(t, w.Prepare(context.Background(), solana.NewWallet().PublicKey(), fakeDiscoverer{prep: Preparation{Protocol: "marginfi"}}))

	ctx := &assembler.AssemblyContext{Opportunity: domain.SwapOpportunity{Pair: domain.TradePair{Input: mint}, AmountIn: 1_000}, ComputeUnitLimit: 200_000}
	bundle := &domain.InstructionBundle{}

	err := w.Decorator().Run(ctx, bundle)
	require.NoError(t, err)
	assert.Len(t, bundle.Pre, 2)
	assert.Len(t, bundle.Post, 2)
	assert.Equal(t, uint32(215_000), ctx.ComputeUnitLimit)
	require.NotNil(t, ctx.Flashloan)
	assert.Equal(t, "marginfi", ctx.Flashloan.Protocol)
}

func TestNonBorrowableMintIsNoOp(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	w := NewWrapper(true, []domain.Mint{other}, 15_000, fakeEncoder{programID: solana.NewWallet().PublicKey()})
	require.NoError(t, w.Prepare(context.Background(), solana.NewWallet().PublicKey(), fakeDiscoverer{}))

	ctx := &assembler.AssemblyContext{Opportunity: domain.SwapOpportunity{Pair: domain.TradePair{Input: mint}, AmountIn: 1}, ComputeUnitLimit: 100}
	bundle := &domain.InstructionBundle{}
	err := w.Decorator().Run(ctx, bundle)
	require.NoError(t, err)
	assert.Empty(t, bundle.Pre)
}
