package domain

import "github.com/gagliardetto/solana-go"

// VariantKind tags which strategy produced a SwapInstructionsVariant.
type VariantKind int

const (
	VariantJupiter VariantKind = iota
	VariantMultiLeg
	VariantPureBlind
)

func (k VariantKind) String() string {
	switch k {
	case VariantJupiter:
		return "jupiter"
	case VariantMultiLeg:
		return "multi_leg"
	case VariantPureBlind:
		return "pure_blind"
	default:
		return "unknown"
	}
}

// LookupTableAddresses is the set of 32-byte lookup-table keys a variant
// references, with an ordered resolution list for deterministic iteration.
type LookupTableAddresses struct {
	Keys []solana.PublicKey
}

// Add appends key if not already present, keeping Keys deduplicated.
func (l *LookupTableAddresses) Add(key solana.PublicKey) {
	for _, k := range l.Keys {
		if k.Equals(key) {
			return
		}
	}
	l.Keys = append(l.Keys, key)
}

// SwapInstructionsVariant is an aggregator- or route-builder-produced
// instruction payload, tagged by strategy kind.
//
// A Titan-style leg occasionally arrives as a fully-compiled versioned
// transaction instead of a discrete instruction list (RawTransaction set,
// Instructions empty); callers must rebuild Instructions/ComputeBudget from
// it once its lookup tables are resolved — see
// multileg.RebuildFromRawTransaction.
type SwapInstructionsVariant struct {
	Kind              VariantKind
	ComputeBudget     []solana.Instruction
	Instructions      []solana.Instruction
	LookupTables      LookupTableAddresses
	PrioritizationFee uint64
	ComputeUnitLimit  uint32
	RawTransaction    []byte
}

// InstructionBundle is the assembler's mutable scratch space: four ordered
// segments plus a deduplicated lookup-table set. Flattening always
// concatenates compute_budget ++ pre ++ main ++ post, in that order.
type InstructionBundle struct {
	ComputeBudget []solana.Instruction
	Pre           []solana.Instruction
	Main          []solana.Instruction
	Post          []solana.Instruction
	LookupTables  LookupTableAddresses
}

// NewInstructionBundle seeds a bundle from a variant's main payload and
// compute-budget list, carrying over its lookup tables.
func NewInstructionBundle(v SwapInstructionsVariant) *InstructionBundle {
	b := &InstructionBundle{
		ComputeBudget: append([]solana.Instruction(nil), v.ComputeBudget...),
		Main:          append([]solana.Instruction(nil), v.Instructions...),
	}
	for _, k := range v.LookupTables.Keys {
		b.LookupTables.Add(k)
	}
	return b
}

// Flatten concatenates the four segments in fixed order.
func (b *InstructionBundle) Flatten() []solana.Instruction {
	out := make([]solana.Instruction, 0, len(b.ComputeBudget)+len(b.Pre)+len(b.Main)+len(b.Post))
	out = append(out, b.ComputeBudget...)
	out = append(out, b.Pre...)
	out = append(out, b.Main...)
	out = append(out, b.Post...)
	return out
}

// ReplaceComputeBudget discards any existing compute-budget instructions and
// installs the given ones — used by the ComputeBudget decorator, which owns
// exclusive write access to this segment.
func (b *InstructionBundle) ReplaceComputeBudget(instrs []solana.Instruction) {
	b.ComputeBudget = instrs
}
