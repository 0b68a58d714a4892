package multileg

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/assembler"
	"github.com/dnavarro/cyclearb/internal/domain"
)

func compiledRawTransaction(t *testing.T, instrs []solana.Instruction) []byte {
	t.Helper()
	payer := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction(instrs, solana.Hash{1, 2, 3}, solana.TransactionPayer(payer))
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func computeUnitLimitInstruction(limit uint32) solana.Instruction {
	return solana.NewInstruction(assembler.ComputeBudgetProgramID, solana.AccountMetaSlice{}, assembler.EncodeComputeUnitLimit(limit))
}

func TestRebuildFromRawTransactionNoopsWhenInstructionsAlreadyPresent(t *testing.T) {
	v := &domain.SwapInstructionsVariant{
		RawTransaction: []byte{1, 2, 3},
		Instructions:   []solana.Instruction{computeUnitLimitInstruction(1)},
	}
	err := RebuildFromRawTransaction(v, nil)
	require.NoError(t, err)
	assert.Len(t, v.Instructions, 1)
}

func TestRebuildFromRawTransactionNoopsWhenRawTransactionEmpty(t *testing.T) {
	v := &domain.SwapInstructionsVariant{}
	err := RebuildFromRawTransaction(v, nil)
	require.NoError(t, err)
	assert.Nil(t, v.Instructions)
}

func TestRebuildFromRawTransactionSplitsComputeBudgetFromMainInstructions(t *testing.T) {
	limit := computeUnitLimitInstruction(200_000)
	swapProgram := solana.NewWallet().PublicKey()
	swap := solana.NewInstruction(swapProgram, solana.AccountMetaSlice{
		solana.Meta(solana.NewWallet().PublicKey()).WRITE(),
	}, []byte{9, 9})

	raw := compiledRawTransaction(t, []solana.Instruction{limit, swap})

	v := &domain.SwapInstructionsVariant{RawTransaction: raw}
	err := RebuildFromRawTransaction(v, nil)
	require.NoError(t, err)

	require.Len(t, v.ComputeBudget, 1)
	assert.True(t, v.ComputeBudget[0].ProgramID().Equals(assembler.ComputeBudgetProgramID))
	require.Len(t, v.Instructions, 1)
	assert.True(t, v.Instructions[0].ProgramID().Equals(swapProgram))
}

func TestRebuildFromRawTransactionResolvingSkipsResolveWhenNoRawTransaction(t *testing.T) {
	called := false
	resolve := func(keys []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
		called = true
		return nil, nil
	}
	v := &domain.SwapInstructionsVariant{}
	err := RebuildFromRawTransactionResolving(v, resolve)
	require.NoError(t, err)
	assert.False(t, called)
}
