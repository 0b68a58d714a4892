// Package onchain implements the fourth aggregator family named in
// SPEC_FULL.md §4: a native pool-account decoder with no HTTP round
// trip, priced with a constant-product curve off raw account bytes
// fetched via ports.RPC.GetAccountData. Grounded on the teacher's
// internal/adapters/onchain/merge.go for package shape. Reserves are read
// with encoding/binary at each pool's configured byte offsets.
package onchain

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/iplease"
	"github.com/dnavarro/cyclearb/internal/ports"
)

// PoolLayout describes how to locate a constant-product pool's reserve
// fields inside its raw account data for one DEX family.
type PoolLayout struct {
	DEXKind          string
	BaseReserveOff   int
	QuoteReserveOff  int
	FeeNumOff        int
	FeeDenOff        int
}

// PoolRegistry maps a pool account address to the mint pair and DEX layout
// needed to decode and price it.
type PoolRegistry struct {
	Pools map[solana.PublicKey]RegisteredPool
}

type RegisteredPool struct {
	Address  solana.PublicKey
	Pair     domain.TradePair
	Layout   PoolLayout
}

// Client prices a quote by reading a pool account's reserves directly,
// with no aggregator network round trip.
type Client struct {
	name     string
	rpc      ports.RPC
	registry PoolRegistry
}

func New(name string, rpc ports.RPC, registry PoolRegistry) *Client {
	return &Client{name: name, rpc: rpc, registry: registry}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Quote(ctx context.Context, req ports.QuoteRequest, lease *iplease.LeaseHandle) (domain.LegQuote, error) {
	pool, ok := c.findPool(req.Pair)
	if !ok {
		return domain.LegQuote{}, fmt.Errorf("onchain: no registered pool for pair %s", req.Pair.String())
	}

	data, err := c.rpc.GetAccountData(ctx, []solana.PublicKey{pool.Address})
	if err != nil {
		return domain.LegQuote{}, &ports.AggregatorError{Class: ports.ErrClassTransport, Err: err}
	}
	raw, ok := data[pool.Address]
	if !ok {
		return domain.LegQuote{}, &ports.AggregatorError{Class: ports.ErrClassSchema, Err: errPoolAccountMissing}
	}

	reserveIn, reserveOut, feeNum, feeDen, err := decodeReserves(raw, pool.Layout, req.Pair, pool.Pair)
	if err != nil {
		return domain.LegQuote{}, &ports.AggregatorError{Class: ports.ErrClassSchema, Err: err}
	}

	out := constantProductOut(req.Amount, reserveIn, reserveOut, feeNum, feeDen)
	return domain.LegQuote{
		AmountIn:    req.Amount,
		AmountOut:   out,
		ProviderTag: c.name,
	}, nil
}

func (c *Client) findPool(pair domain.TradePair) (RegisteredPool, bool) {
	for _, p := range c.registry.Pools {
		if p.Pair == pair || p.Pair.Reversed() == pair {
			return p, true
		}
	}
	return RegisteredPool{}, false
}

// decodeReserves reads the base/quote reserve u64s and fee fraction out of
// raw pool bytes, oriented to match req's input/output direction.
func decodeReserves(raw []byte, layout PoolLayout, req, registered domain.TradePair) (reserveIn, reserveOut, feeNum, feeDen uint64, err error) {
	need := layout.QuoteReserveOff + 8
	if layout.BaseReserveOff+8 > need {
		need = layout.BaseReserveOff + 8
	}
	if layout.FeeDenOff+8 > need {
		need = layout.FeeDenOff + 8
	}
	if len(raw) < need {
		return 0, 0, 0, 0, errAccountTooShort
	}

	base := binary.LittleEndian.Uint64(raw[layout.BaseReserveOff : layout.BaseReserveOff+8])
	quote := binary.LittleEndian.Uint64(raw[layout.QuoteReserveOff : layout.QuoteReserveOff+8])
	feeNum = binary.LittleEndian.Uint64(raw[layout.FeeNumOff : layout.FeeNumOff+8])
	feeDen = binary.LittleEndian.Uint64(raw[layout.FeeDenOff : layout.FeeDenOff+8])
	if feeDen == 0 {
		feeDen = 1
	}

	if req.Input == registered.Input {
		return base, quote, feeNum, feeDen, nil
	}
	return quote, base, feeNum, feeDen, nil
}

// constantProductOut applies x*y=k pricing with a proportional fee taken
// from the input leg, matching the standard AMM swap formula.
func constantProductOut(amountIn, reserveIn, reserveOut, feeNum, feeDen uint64) uint64 {
	if reserveIn == 0 || reserveOut == 0 {
		return 0
	}
	amountInAfterFee := amountIn * (feeDen - feeNum) / feeDen
	numerator := amountInAfterFee * reserveOut
	denominator := reserveIn + amountInAfterFee
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

type clientError string

func (e clientError) Error() string { return string(e) }

const (
	errPoolAccountMissing = clientError("pool account not found on-chain")
	errAccountTooShort    = clientError("pool account data shorter than layout requires")
)
