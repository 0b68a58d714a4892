// Package txbuilder fetches a blockhash, resolves address lookup tables
// (cached with TTL and reference counting), compiles a versioned message
// pinning the fee payer, signs it, and produces an immutable
// domain.PreparedTransaction. Grounded on
// internal/adapters/onchain/merge.go's nonce/gas-price caching pattern in
// the teacher, generalized from a scalar cache to the ALT cache above.
package txbuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/ports"
	"github.com/dnavarro/cyclearb/internal/xerrors"
)

// Builder composes and signs PreparedTransactions.
type Builder struct {
	RPC    ports.RPC
	Signer ports.Signer
	ALT    *ALTCache
}

// NewBuilder constructs a Builder with its own ALT cache at the given TTL.
func NewBuilder(rpc ports.RPC, signer ports.Signer, altTTL time.Duration) *Builder {
	return &Builder{RPC: rpc, Signer: signer, ALT: NewALTCache(altTTL)}
}

// Input bundles everything the builder needs beyond blockhash/ALT
// resolution, all already decided upstream by the assembler/evaluator.
type Input struct {
	Instructions     []solana.Instruction
	LookupTableKeys  []solana.PublicKey
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
	TipLamports      uint64
	GuardLamports    uint64
	TipStrategyLabel domain.TipStrategyLabel
}

// Build implements spec.md §4.8's five-step protocol.
func (b *Builder) Build(ctx context.Context, in Input) (domain.PreparedTransaction, error) {
	bh, err := b.RPC.LatestBlockhash(ctx)
	if err != nil {
		return domain.PreparedTransaction{}, xerrors.New("txbuilder.Build", xerrors.KindRpc, err)
	}

	now := time.Now()
	fresh, missing := b.ALT.Acquire(in.LookupTableKeys, now)
	if len(missing) > 0 {
		resolved, err := b.RPC.ResolveLookupTables(ctx, missing)
		if err != nil {
			return domain.PreparedTransaction{}, xerrors.New("txbuilder.Build", xerrors.KindRpc, err)
		}
		b.ALT.Store(resolved, now)
		more, _ := b.ALT.Acquire(missing, now)
		fresh = append(fresh, more...)
	}
	defer b.ALT.Release(in.LookupTableKeys)

	tables := make(map[solana.PublicKey]solana.PublicKeySlice, len(fresh))
	for _, e := range fresh {
		if e.Deactivated {
			return domain.PreparedTransaction{}, xerrors.New("txbuilder.Build", xerrors.KindInvalidConfig, errDeactivatedLookupTable)
		}
		tables[e.Key] = e.Addresses
	}

	payer := b.Signer.PublicKey()
	tx, err := solana.NewTransaction(
		in.Instructions,
		bh.Blockhash,
		solana.TransactionPayer(payer),
		solana.TransactionAddressTables(tables),
	)
	if err != nil {
		return domain.PreparedTransaction{}, xerrors.New("txbuilder.Build", xerrors.KindTransaction, err)
	}

	sig, err := b.signAll(tx, payer)
	if err != nil {
		return domain.PreparedTransaction{}, xerrors.New("txbuilder.Build", xerrors.KindTransaction, err)
	}

	wire, err := tx.MarshalBinary()
	if err != nil {
		return domain.PreparedTransaction{}, xerrors.New("txbuilder.Build", xerrors.KindTransaction, err)
	}

	return domain.PreparedTransaction{
		SignedBytes:          wire,
		Signature:            sig,
		Slot:                 bh.Slot,
		Blockhash:            bh.Blockhash,
		LastValidBlockHeight: bh.LastValidBlockHeight,
		ComputeUnitLimit:     in.ComputeUnitLimit,
		ComputeUnitPrice:     in.ComputeUnitPrice,
		TipLamports:          in.TipLamports,
		GuardLamports:        in.GuardLamports,
		TipStrategyLabel:     in.TipStrategyLabel,
	}, nil
}

// signAll signs with the identity signer; any other required signer the
// compiled message claims is a fatal configuration error per spec.md
// §4.8 — this builder has no mechanism to source an ephemeral signer's
// key, so an instruction that requires one can never be satisfied here.
func (b *Builder) signAll(tx *solana.Transaction, payer solana.PublicKey) (solana.Signature, error) {
	numSigners := int(tx.Message.Header.NumRequiredSignatures)
	if numSigners > len(tx.Message.AccountKeys) {
		return solana.Signature{}, fmt.Errorf("txbuilder: message requires %d signatures but has %d account keys", numSigners, len(tx.Message.AccountKeys))
	}
	for i := 1; i < numSigners; i++ {
		if !tx.Message.AccountKeys[i].Equals(payer) {
			return solana.Signature{}, fmt.Errorf("txbuilder: instruction claims ephemeral signer %s, which the configured identity signer cannot satisfy", tx.Message.AccountKeys[i])
		}
	}

	msgBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := b.Signer.Sign(msgBytes)
	if err != nil {
		return solana.Signature{}, err
	}
	if len(tx.Signatures) == 0 {
		tx.Signatures = make([]solana.Signature, 1)
	}
	tx.Signatures[0] = sig
	return sig, nil
}

type builderError string

func (e builderError) Error() string { return string(e) }

const errDeactivatedLookupTable = builderError("resolved lookup table is deactivated")
