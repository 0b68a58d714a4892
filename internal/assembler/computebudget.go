package assembler

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/domain"
)

// ComputeBudgetProgramID is the well-known compute-budget native program.
var ComputeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

const (
	opcodeSetComputeUnitLimit byte = 2
	opcodeSetComputeUnitPrice byte = 3
)

// EncodeComputeUnitLimit builds the opcode-2 instruction data: opcode byte
// followed by a little-endian u32 limit, per spec.md §6.
func EncodeComputeUnitLimit(limit uint32) []byte {
	data := make([]byte, 5)
	data[0] = opcodeSetComputeUnitLimit
	binary.LittleEndian.PutUint32(data[1:], limit)
	return data
}

// EncodeComputeUnitPrice builds the opcode-3 instruction data: opcode byte
// followed by a little-endian u64 micro-lamports-per-CU price.
func EncodeComputeUnitPrice(price uint64) []byte {
	data := make([]byte, 9)
	data[0] = opcodeSetComputeUnitPrice
	binary.LittleEndian.PutUint64(data[1:], price)
	return data
}

// DecodeComputeUnitLimit recovers the u32 limit from an opcode-2
// instruction's data, used by round-trip tests.
func DecodeComputeUnitLimit(data []byte) (uint32, bool) {
	if len(data) != 5 || data[0] != opcodeSetComputeUnitLimit {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data[1:]), true
}

func computeBudgetInstruction(data []byte) solana.Instruction {
	return solana.NewInstruction(ComputeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// ComputeBudgetDecorator prepends compute-unit-limit and compute-unit-price
// instructions reflecting ctx.ComputeUnitLimit/ComputeUnitPrice, discarding
// whatever compute-budget entries the incoming bundle already carries. The
// final limit always equals ctx.ComputeUnitLimit, which the Flashloan
// decorator may have already raised.
var ComputeBudgetDecorator = Decorator{
	Name: "compute_budget",
	Run: func(ctx *AssemblyContext, bundle *domain.InstructionBundle) error {
		instrs := []solana.Instruction{computeBudgetInstruction(EncodeComputeUnitLimit(ctx.ComputeUnitLimit))}
		if ctx.ComputeUnitPrice > 0 {
			instrs = append(instrs, computeBudgetInstruction(EncodeComputeUnitPrice(ctx.ComputeUnitPrice)))
		}
		bundle.ReplaceComputeBudget(instrs)
		return nil
	},
}
