package ports

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
)

// LandingRecord is one persisted outcome of a landing-stage race, kept for
// history/reporting.
type LandingRecord struct {
	Signature  solana.Signature
	Pair       string
	AmountIn   uint64
	Profit     int64
	Lander     string
	Succeeded  bool
	SubmittedAt time.Time
}

// LedgerStorage persists landing outcomes across ticks.
type LedgerStorage interface {
	SaveLanding(ctx context.Context, rec LandingRecord) error
	GetHistory(ctx context.Context, from, to time.Time) ([]LandingRecord, error)
	Close() error
}

// SnapshotStorage persists and loads JSON catalog snapshots (pure-blind pool
// catalog, route catalog) with TTL-based staleness checks.
type SnapshotStorage interface {
	Save(name string, generatedAtUnixSecs int64, entries any) error
	Load(name string, ttl time.Duration, out any) (fresh bool, err error)
}
