package jupiterlike

import (
	"encoding/base64"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/domain"
)

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// quoteWire mirrors the Jupiter quote response shape (InAmount/OutAmount
// as decimal strings, slippage in bps), grounded on the QuoteResponse
// struct retrieved for this pack.
type quoteWire struct {
	InAmount    string `json:"inAmount"`
	OutAmount   string `json:"outAmount"`
	SlippageBps int64  `json:"slippageBps"`
	ContextSlot uint64 `json:"contextSlot"`
	TimeTaken   float64 `json:"timeTaken"`
	RequestID   string `json:"requestId"`
}

func (w quoteWire) toDomain(providerTag string) domain.LegQuote {
	in, _ := strconv.ParseUint(w.InAmount, 10, 64)
	out, _ := strconv.ParseUint(w.OutAmount, 10, 64)
	return domain.LegQuote{
		AmountIn:    in,
		AmountOut:   out,
		SlippageBps: uint16(w.SlippageBps),
		ProviderTag: providerTag,
		QuoteID:     w.RequestID,
		ContextSlot: w.ContextSlot,
		LatencyMs:   int64(w.TimeTaken * 1000),
	}
}

// swapInstructionsWire mirrors a Jupiter-style swap-instructions response:
// base64-encoded instructions plus an address-lookup-table address list.
type swapInstructionsWire struct {
	ComputeBudgetInstructions []instructionWire `json:"computeBudgetInstructions"`
	SetupInstructions         []instructionWire `json:"setupInstructions"`
	SwapInstruction           instructionWire   `json:"swapInstruction"`
	CleanupInstruction        *instructionWire  `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string        `json:"addressLookupTableAddresses"`
	PrioritizationFeeLamports  uint64           `json:"prioritizationFeeLamports"`
	ComputeUnitLimit           uint32           `json:"computeUnitLimit"`
}

type instructionWire struct {
	ProgramID string            `json:"programId"`
	Accounts  []accountMetaWire `json:"accounts"`
	Data      string            `json:"data"` // base64
}

type accountMetaWire struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

func (w swapInstructionsWire) toDomain() domain.SwapInstructionsVariant {
	var lookup domain.LookupTableAddresses
	for _, addr := range w.AddressLookupTableAddresses {
		if pk, err := solana.PublicKeyFromBase58(addr); err == nil {
			lookup.Add(pk)
		}
	}

	var compute []solana.Instruction
	for _, ix := range w.ComputeBudgetInstructions {
		compute = append(compute, ix.toSolana())
	}

	instrs := make([]solana.Instruction, 0, len(w.SetupInstructions)+2)
	for _, ix := range w.SetupInstructions {
		instrs = append(instrs, ix.toSolana())
	}
	instrs = append(instrs, w.SwapInstruction.toSolana())
	if w.CleanupInstruction != nil {
		instrs = append(instrs, w.CleanupInstruction.toSolana())
	}

	return domain.SwapInstructionsVariant{
		Kind:              domain.VariantJupiter,
		ComputeBudget:     compute,
		Instructions:      instrs,
		LookupTables:      lookup,
		PrioritizationFee: w.PrioritizationFeeLamports,
		ComputeUnitLimit:  w.ComputeUnitLimit,
	}
}

func (ix instructionWire) toSolana() solana.Instruction {
	programID, _ := solana.PublicKeyFromBase58(ix.ProgramID)
	metas := make(solana.AccountMetaSlice, 0, len(ix.Accounts))
	for _, a := range ix.Accounts {
		pk, _ := solana.PublicKeyFromBase58(a.Pubkey)
		metas = append(metas, &solana.AccountMeta{PublicKey: pk, IsSigner: a.IsSigner, IsWritable: a.IsWritable})
	}
	data, _ := decodeBase64(ix.Data)
	return solana.NewInstruction(programID, metas, data)
}
