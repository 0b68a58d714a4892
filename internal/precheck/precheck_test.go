package precheck

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/ports"
)

type fakeRPC struct {
	existing map[solana.PublicKey]bool
	owners   map[solana.PublicKey]solana.PublicKey
}

func (f fakeRPC) LatestBlockhash(ctx context.Context) (ports.BlockhashResult, error) {
	return ports.BlockhashResult{}, nil
}
func (f fakeRPC) ResolveLookupTables(ctx context.Context, keys []solana.PublicKey) ([]ports.LookupTableEntry, error) {
	return nil, nil
}
func (f fakeRPC) AccountExists(ctx context.Context, addrs []solana.PublicKey) ([]ports.AccountStatus, error) {
	out := make([]ports.AccountStatus, len(addrs))
	for i, a := range addrs {
		out[i] = ports.AccountStatus{Address: a, Exists: f.existing[a]}
	}
	return out, nil
}
func (f fakeRPC) GetAccountOwner(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	if f.owners != nil {
		if owner, ok := f.owners[mint]; ok {
			return owner, nil
		}
	}
	return solana.TokenProgramID, nil
}
func (f fakeRPC) SendTransaction(ctx context.Context, signed []byte) (solana.Signature, error) {
	return solana.Signature{}, nil
}
func (f fakeRPC) ConfirmTransaction(ctx context.Context, sig solana.Signature) error { return nil }
func (f fakeRPC) GetAccountData(ctx context.Context, addrs []solana.PublicKey) (map[solana.PublicKey][]byte, error) {
	return nil, nil
}

type countingSubmitter struct {
	batches      int
	instructions []solana.Instruction
}

func (s *countingSubmitter) SubmitAndConfirm(ctx context.Context, instructions []solana.Instruction) error {
	s.batches++
	s.instructions = append(s.instructions, instructions...)
	return nil
}

func TestPrecheckCreatesOnlyMissingAccounts(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	mint1 := solana.NewWallet().PublicKey()
	mint2 := solana.NewWallet().PublicKey()

	rpc := fakeRPC{existing: map[solana.PublicKey]bool{}}
	sub := &countingSubmitter{}
	p := &Prechecker{RPC: rpc, Submitter: sub, Wallet: wallet}

	result, err := p.Run(context.Background(), []solana.PublicKey{mint1, mint2}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, sub.batches)
}

func TestSecondPrecheckRunCreatesZeroAccounts(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	ata, _, _ := solana.FindAssociatedTokenAddress(wallet, mint)

	rpc := fakeRPC{existing: map[solana.PublicKey]bool{ata: true}}
	sub := &countingSubmitter{}
	p := &Prechecker{RPC: rpc, Submitter: sub, Wallet: wallet}

	result, err := p.Run(context.Background(), []solana.PublicKey{mint}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, sub.batches)
}

func TestPrecheckUsesToken2022ProgramForToken2022Mints(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	rpc := fakeRPC{
		existing: map[solana.PublicKey]bool{},
		owners:   map[solana.PublicKey]solana.PublicKey{mint: solana.Token2022ProgramID},
	}
	sub := &countingSubmitter{}
	p := &Prechecker{RPC: rpc, Submitter: sub, Wallet: wallet}

	result, err := p.Run(context.Background(), []solana.PublicKey{mint}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, sub.instructions, 1)

	ix := sub.instructions[0]
	accounts := ix.Accounts()
	require.Len(t, accounts, 6)
	assert.True(t, accounts[5].PublicKey.Equals(solana.Token2022ProgramID),
		"token-2022 mint must derive its ATA create instruction against the token-2022 program, not legacy SPL Token")

	expectedATA, err := deriveAssociatedTokenAddress(wallet, mint, solana.Token2022ProgramID)
	require.NoError(t, err)
	assert.True(t, accounts[1].PublicKey.Equals(expectedATA))
}
