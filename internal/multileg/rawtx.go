// Rebuilding a leg's instructions from a raw compiled transaction is
// grounded on original_source/src/multi_leg/runtime.rs's
// populate_leg_plan/rebuild_plan_instructions pair: a Titan-style leg
// sometimes arrives as a fully-compiled versioned transaction rather than a
// discrete instruction list, and has to be decompiled once its address
// lookup tables are resolved.
package multileg

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/assembler"
	"github.com/dnavarro/cyclearb/internal/domain"
)

// RebuildFromRawTransaction implements spec.md §9's rebuild trigger: iff
// v.RawTransaction is set and v.Instructions is still empty, decode the
// compiled transaction, resolve its address lookup table references
// against tables, and split the decompiled instructions into
// v.ComputeBudget/v.Instructions by program ID. A leg that already carries
// a discrete instruction list is left untouched — Titan only needs this
// path when it chose to hand back a pre-built transaction instead.
func RebuildFromRawTransaction(v *domain.SwapInstructionsVariant, tables map[solana.PublicKey]solana.PublicKeySlice) error {
	if len(v.RawTransaction) == 0 || len(v.Instructions) > 0 {
		return nil
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(v.RawTransaction))
	if err != nil {
		return err
	}

	if len(tx.Message.AddressTableLookups) > 0 {
		if err := tx.Message.SetAddressTables(tables); err != nil {
			return err
		}
		if err := tx.Message.ResolveLookupTables(); err != nil {
			return err
		}
	}

	var computeBudget, other []solana.Instruction
	for _, ci := range tx.Message.Instructions {
		programID, err := tx.Message.ResolveProgramIDIndex(ci.ProgramIDIndex)
		if err != nil {
			return err
		}
		accounts := ci.ResolveInstructionAccounts(&tx.Message)
		ix := solana.NewInstruction(programID, solana.AccountMetaSlice(accounts), ci.Data)
		if programID.Equals(assembler.ComputeBudgetProgramID) {
			computeBudget = append(computeBudget, ix)
		} else {
			other = append(other, ix)
		}
	}

	v.ComputeBudget = computeBudget
	v.Instructions = other
	return nil
}

// TableResolver fetches the resolved address list for a set of lookup
// table accounts, matching ports.RPC.ResolveLookupTables's shape without
// importing internal/ports here.
type TableResolver func(keys []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error)

// RebuildFromRawTransactionResolving is RebuildFromRawTransaction for
// callers that don't already have v's lookup tables resolved: it peeks at
// the compiled transaction's table references, resolves them through
// resolve, and only then rebuilds. A no-op (and no resolve call) when v
// doesn't need rebuilding.
func RebuildFromRawTransactionResolving(v *domain.SwapInstructionsVariant, resolve TableResolver) error {
	if len(v.RawTransaction) == 0 || len(v.Instructions) > 0 {
		return nil
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(v.RawTransaction))
	if err != nil {
		return err
	}

	tables := map[solana.PublicKey]solana.PublicKeySlice{}
	if len(tx.Message.AddressTableLookups) > 0 {
		keys := make([]solana.PublicKey, 0, len(tx.Message.AddressTableLookups))
		for _, lookup := range tx.Message.AddressTableLookups {
			keys = append(keys, lookup.AccountKey)
		}
		resolved, err := resolve(keys)
		if err != nil {
			return err
		}
		tables = resolved
	}

	return RebuildFromRawTransaction(v, tables)
}
