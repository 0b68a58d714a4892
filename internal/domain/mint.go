// Package domain holds the engine's core data model: mints, trade pairs,
// quotes, opportunities, instruction bundles and prepared transactions.
// Types here are transport-agnostic — aggregator clients and the RPC layer
// translate their wire formats into these before anything else touches them.
package domain

import "github.com/gagliardetto/solana-go"

// Mint identifies a fungible token by its on-chain mint account.
type Mint = solana.PublicKey

// ZeroMint is the empty/uninitialized mint value.
var ZeroMint Mint

// TradePair is an ordered (input, output) mint pair for one trade direction.
type TradePair struct {
	Input  Mint
	Output Mint
}

// Reversed swaps input and output, producing the opposite-direction leg.
func (p TradePair) Reversed() TradePair {
	return TradePair{Input: p.Output, Output: p.Input}
}

// Valid reports whether neither mint is the empty value and the pair isn't
// degenerate (input == output).
func (p TradePair) Valid() bool {
	return !p.Input.IsZero() && !p.Output.IsZero() && !p.Input.Equals(p.Output)
}

func (p TradePair) String() string {
	return p.Input.String() + "->" + p.Output.String()
}
