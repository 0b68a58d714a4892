// Package solanarpc implements ports.RPC over the real JSON-RPC client
// from github.com/gagliardetto/solana-go/rpc — the same module already
// pulled in for the primitive solana.PublicKey/Instruction types, just its
// network-facing half. Address-lookup-table decoding is hand-rolled since
// no bundled package exposes the fixed on-chain layout; see the comment on
// decodeLookupTable.
package solanarpc

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/dnavarro/cyclearb/internal/ports"
)

// Client adapts rpc.Client to ports.RPC.
type Client struct {
	rpc *rpc.Client
}

// New dials endpoint (an HTTP(S) JSON-RPC URL) and returns a ready Client.
func New(endpoint string) *Client {
	return &Client{rpc: rpc.New(endpoint)}
}

func (c *Client) LatestBlockhash(ctx context.Context) (ports.BlockhashResult, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return ports.BlockhashResult{}, fmt.Errorf("solanarpc.LatestBlockhash: %w", err)
	}
	return ports.BlockhashResult{
		Blockhash:            out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
		Slot:                 out.Context.Slot,
	}, nil
}

func (c *Client) AccountExists(ctx context.Context, addrs []solana.PublicKey) ([]ports.AccountStatus, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	out, err := c.rpc.GetMultipleAccountsWithOpts(ctx, addrs, &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("solanarpc.AccountExists: %w", err)
	}
	statuses := make([]ports.AccountStatus, len(addrs))
	for i, addr := range addrs {
		statuses[i] = ports.AccountStatus{Address: addr, Exists: out.Value[i] != nil}
	}
	return statuses, nil
}

func (c *Client) GetAccountOwner(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, mint, &rpc.GetAccountInfoOpts{Commitment: rpc.CommitmentConfirmed})
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("solanarpc.GetAccountOwner(%s): %w", mint, err)
	}
	if out == nil || out.Value == nil {
		return solana.PublicKey{}, fmt.Errorf("solanarpc.GetAccountOwner(%s): account not found", mint)
	}
	return out.Value.Owner, nil
}

func (c *Client) GetAccountData(ctx context.Context, addrs []solana.PublicKey) (map[solana.PublicKey][]byte, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	out, err := c.rpc.GetMultipleAccountsWithOpts(ctx, addrs, &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("solanarpc.GetAccountData: %w", err)
	}
	data := make(map[solana.PublicKey][]byte, len(addrs))
	for i, acc := range out.Value {
		if acc == nil {
			continue
		}
		data[addrs[i]] = acc.Data.GetBinary()
	}
	return data, nil
}

func (c *Client) SendTransaction(ctx context.Context, signed []byte) (solana.Signature, error) {
	encoded := base64.StdEncoding.EncodeToString(signed)
	sig, err := c.rpc.SendEncodedTransactionWithOpts(ctx, encoded, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("solanarpc.SendTransaction: %w", err)
	}
	return sig, nil
}

func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return fmt.Errorf("solanarpc.ConfirmTransaction(%s): %w", sig, err)
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return fmt.Errorf("solanarpc.ConfirmTransaction(%s): not yet observed", sig)
	}
	status := out.Value[0]
	if status.Err != nil {
		return fmt.Errorf("solanarpc.ConfirmTransaction(%s): transaction failed on-chain: %v", sig, status.Err)
	}
	if status.ConfirmationStatus == rpc.ConfirmationStatusProcessed {
		return fmt.Errorf("solanarpc.ConfirmTransaction(%s): only processed, not yet confirmed", sig)
	}
	return nil
}

// lookupTableHeaderSize is the fixed-size metadata prefix of an Address
// Lookup Table account (deactivation slot, last-extended slot, authority
// option flags etc.) preceding its packed 32-byte address entries.
const lookupTableHeaderSize = 56

// ResolveLookupTables decodes raw ALT account bytes into ordered address
// lists. Hand-rolled: no bundled package exposes this fixed on-chain
// layout, so the decode mirrors internal/aggregator/onchain's raw-account
// approach rather than reaching for a library that doesn't exist for it.
func (c *Client) ResolveLookupTables(ctx context.Context, keys []solana.PublicKey) ([]ports.LookupTableEntry, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out, err := c.rpc.GetMultipleAccountsWithOpts(ctx, keys, &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("solanarpc.ResolveLookupTables: %w", err)
	}

	entries := make([]ports.LookupTableEntry, 0, len(keys))
	for i, acc := range out.Value {
		if acc == nil {
			continue
		}
		addrs, deactivated, err := decodeLookupTable(acc.Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("solanarpc.ResolveLookupTables(%s): %w", keys[i], err)
		}
		entries = append(entries, ports.LookupTableEntry{
			Key:          keys[i],
			Addresses:    addrs,
			ResolvedSlot: out.Context.Slot,
			Deactivated:  deactivated,
		})
	}
	return entries, nil
}

func decodeLookupTable(data []byte) (addrs []solana.PublicKey, deactivated bool, err error) {
	if len(data) < lookupTableHeaderSize {
		return nil, false, fmt.Errorf("account too short for ALT header: %d bytes", len(data))
	}
	deactivationSlot := binary.LittleEndian.Uint64(data[4:12])
	deactivated = deactivationSlot != ^uint64(0) // u64::MAX sentinel means "not deactivated"

	body := data[lookupTableHeaderSize:]
	count := len(body) / 32
	addrs = make([]solana.PublicKey, 0, count)
	for i := 0; i < count; i++ {
		var key solana.PublicKey
		copy(key[:], body[i*32:(i+1)*32])
		addrs = append(addrs, key)
	}
	return addrs, deactivated, nil
}
