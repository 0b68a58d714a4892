package flashloan

import (
	"context"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/domain"
)

// StaticPreparation is a flash-loan account pre-provisioned by the
// operator rather than derived on-chain at startup — a legitimate
// simplification for lending programs whose loan account is a known PDA
// or a manually created account, skipping the discovery round trip
// Wrapper.Prepare otherwise performs.
type StaticPreparation struct {
	Protocol    string
	ProgramID   solana.PublicKey
	LoanAccount solana.PublicKey
	Authority   solana.PublicKey
}

// StaticDiscoverer satisfies Discoverer by handing back an
// already-known Preparation; Discover never talks to the network.
type StaticDiscoverer struct {
	Prep StaticPreparation
}

func (d StaticDiscoverer) Discover(context.Context, solana.PublicKey) (Preparation, error) {
	return Preparation{
		Protocol:    d.Prep.Protocol,
		LoanAccount: d.Prep.LoanAccount,
		Authority:   d.Prep.Authority,
	}, nil
}

// StaticEncoder builds begin/borrow/repay/end instructions against one
// lending program using operator-supplied instruction discriminators
// (spec.md §4.6's "program-specific constants used verbatim") plus a
// fixed account layout: [authority(signer), loan_account(writable),
// mint, program_id]. Borrow and repay append the little-endian amount
// after the discriminator; begin and end carry no arguments.
type StaticEncoder struct {
	ProgramID           solana.PublicKey
	BeginDiscriminator  []byte
	BorrowDiscriminator []byte
	RepayDiscriminator  []byte
	EndDiscriminator    []byte
}

func (e StaticEncoder) Begin(prep Preparation) solana.Instruction {
	return e.instruction(prep, solana.PublicKey{}, e.BeginDiscriminator, 0, false)
}

func (e StaticEncoder) Borrow(prep Preparation, mint domain.Mint, amount uint64) solana.Instruction {
	return e.instruction(prep, mint, e.BorrowDiscriminator, amount, true)
}

func (e StaticEncoder) Repay(prep Preparation, mint domain.Mint, amount uint64) solana.Instruction {
	return e.instruction(prep, mint, e.RepayDiscriminator, amount, true)
}

func (e StaticEncoder) End(prep Preparation) solana.Instruction {
	return e.instruction(prep, solana.PublicKey{}, e.EndDiscriminator, 0, false)
}

func (e StaticEncoder) instruction(prep Preparation, mint solana.PublicKey, discriminator []byte, amount uint64, withAmount bool) solana.Instruction {
	data := append([]byte(nil), discriminator...)
	if withAmount {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], amount)
		data = append(data, buf[:]...)
	}
	return solana.NewInstruction(
		e.ProgramID,
		solana.AccountMetaSlice{
			solana.Meta(prep.Authority).SIGNER(),
			solana.Meta(prep.LoanAccount).WRITE(),
			solana.Meta(mint),
			solana.Meta(e.ProgramID),
		},
		data,
	)
}
