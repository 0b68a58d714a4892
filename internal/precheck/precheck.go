// Package precheck enumerates token accounts needed by configured mints and
// the flash-loan account, creating any missing ones in batched transactions
// before the engine starts. Grounded on
// internal/adapters/onchain/merge.go's waitForReceipt confirm-then-proceed
// polling loop, generalized from one-time approval checks to batched ATA
// creation.
package precheck

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/ports"
	"github.com/dnavarro/cyclearb/internal/xerrors"
)

const maxInstructionsPerBatch = 20

// Submitter sends and confirms a batch of precheck instructions. Kept
// separate from ports.RPC because prechecking batches whole transactions,
// not single submissions threaded through the landing stage.
type Submitter interface {
	SubmitAndConfirm(ctx context.Context, instructions []solana.Instruction) error
}

// Prechecker runs the startup account-creation pass.
type Prechecker struct {
	RPC       ports.RPC
	Submitter Submitter
	Wallet    solana.PublicKey
}

// Result reports how many accounts were created, used by tests to assert
// the idempotence invariant (a second run creates zero accounts).
type Result struct {
	Checked int
	Created int
}

// Run implements spec.md §4.13 steps 1-6.
func (p *Prechecker) Run(ctx context.Context, mints []solana.PublicKey, flashloanAccount *solana.PublicKey, flashloanInit solana.Instruction) (Result, error) {
	derived := make([]solana.PublicKey, 0, len(mints))
	tokenPrograms := make([]solana.PublicKey, 0, len(mints))
	for _, mint := range mints {
		tokenProgram, err := p.RPC.GetAccountOwner(ctx, mint)
		if err != nil {
			return Result{}, xerrors.New("precheck.Run", xerrors.KindRpc, err)
		}
		ata, err := deriveAssociatedTokenAddress(p.Wallet, mint, tokenProgram)
		if err != nil {
			return Result{}, xerrors.New("precheck.Run", xerrors.KindInvalidConfig, err)
		}
		derived = append(derived, ata)
		tokenPrograms = append(tokenPrograms, tokenProgram)
	}

	statuses, err := p.RPC.AccountExists(ctx, derived)
	if err != nil {
		return Result{}, xerrors.New("precheck.Run", xerrors.KindRpc, err)
	}

	var toCreate []solana.Instruction
	result := Result{Checked: len(derived)}
	for i, st := range statuses {
		if st.Exists {
			continue
		}
		ix := createIdempotentInstruction(p.Wallet, p.Wallet, mints[i], derived[i], tokenPrograms[i])
		toCreate = append(toCreate, ix)
	}

	if flashloanAccount == nil && flashloanInit != nil {
		toCreate = append([]solana.Instruction{flashloanInit}, toCreate...)
	}

	for len(toCreate) > 0 {
		n := maxInstructionsPerBatch
		if n > len(toCreate) {
			n = len(toCreate)
		}
		batch := toCreate[:n]
		toCreate = toCreate[n:]
		if err := p.Submitter.SubmitAndConfirm(ctx, batch); err != nil {
			return result, xerrors.New("precheck.Run", xerrors.KindTransaction, err)
		}
		result.Created += len(batch)
	}

	return result, nil
}

// deriveAssociatedTokenAddress re-implements the ATA PDA derivation with an
// explicit token program, since solana.FindAssociatedTokenAddress always
// seeds against the legacy SPL Token program and silently derives the wrong
// address for a token-2022 mint.
func deriveAssociatedTokenAddress(wallet, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindProgramAddress(
		[][]byte{wallet[:], tokenProgram[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	return ata, err
}

// createIdempotentInstruction builds the associated-token-account program's
// CreateIdempotent instruction (discriminator 1) against whichever token
// program owns mint — legacy SPL Token or token-2022 — rather than the
// legacy-only builder associatedtokenaccount.NewCreateIdempotentInstruction
// assumes.
func createIdempotentInstruction(payer, owner, mint, ata, tokenProgram solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).WRITE().SIGNER(),
			solana.Meta(ata).WRITE(),
			solana.Meta(owner),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(tokenProgram),
		},
		[]byte{1},
	)
}
