package ports

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// BlockhashResult is the latest blockhash and the block height past which
// it can no longer land.
type BlockhashResult struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Slot                 uint64
}

// LookupTableEntry is a resolved address-lookup-table account: its key, the
// ordered address list, and the slot at which it was resolved (used to
// enforce the builder's TTL re-validation).
type LookupTableEntry struct {
	Key           solana.PublicKey
	Addresses     []solana.PublicKey
	ResolvedSlot  uint64
	Deactivated   bool
}

// AccountStatus reports whether a derived account exists on-chain, used by
// the prechecker to decide which associated-token accounts to create.
type AccountStatus struct {
	Address solana.PublicKey
	Exists  bool
}

// RPC is the narrow blockchain-access surface the engine depends on.
// Concrete JSON-RPC or streaming-consensus transports implement it.
type RPC interface {
	LatestBlockhash(ctx context.Context) (BlockhashResult, error)
	ResolveLookupTables(ctx context.Context, keys []solana.PublicKey) ([]LookupTableEntry, error)
	AccountExists(ctx context.Context, addrs []solana.PublicKey) ([]AccountStatus, error)
	GetAccountOwner(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error)
	// GetAccountData fetches raw account bytes for on-chain pool decoding;
	// missing accounts are simply absent from the returned map.
	GetAccountData(ctx context.Context, addrs []solana.PublicKey) (map[solana.PublicKey][]byte, error)
	SendTransaction(ctx context.Context, signed []byte) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
}
