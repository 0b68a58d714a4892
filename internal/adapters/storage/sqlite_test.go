package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/adapters/storage"
	"github.com/dnavarro/cyclearb/internal/ports"
)

func sig(b byte) solana.Signature {
	var s solana.Signature
	s[0] = b
	return s
}

func record(signature solana.Signature, pair string, profit int64, succeeded bool) ports.LandingRecord {
	return ports.LandingRecord{
		Signature:   signature,
		Pair:        pair,
		AmountIn:    1_000_000_000,
		Profit:      profit,
		Lander:      "jito",
		Succeeded:   succeeded,
		SubmittedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteLedger_SaveAndGetHistory(t *testing.T) {
	db, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveLanding(ctx, record(sig(1), "SOL/USDC", 2_000_000, true)))
	require.NoError(t, db.SaveLanding(ctx, record(sig(2), "SOL/USDC", 500_000, true)))

	from := time.Now().UTC().Add(-time.Minute)
	to := time.Now().UTC().Add(time.Minute)
	history, err := db.GetHistory(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestSQLiteLedger_GetHistoryEmptyRange(t *testing.T) {
	db, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	defer db.Close()

	history, err := db.GetHistory(context.Background(),
		time.Now().Add(-time.Hour),
		time.Now(),
	)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLiteLedger_SaveLandingUpsertsSameSignature(t *testing.T) {
	db, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	s := sig(7)

	require.NoError(t, db.SaveLanding(ctx, record(s, "SOL/USDC", 1_000_000, false)))
	require.NoError(t, db.SaveLanding(ctx, record(s, "SOL/USDC", 1_000_000, true)))

	from := time.Now().UTC().Add(-time.Minute)
	to := time.Now().UTC().Add(time.Minute)
	history, err := db.GetHistory(ctx, from, to)
	require.NoError(t, err)

	require.Len(t, history, 1, "same signature resubmitted must update, not duplicate")
	assert.True(t, history[0].Succeeded)
}

func TestSQLiteLedger_MultiplePairsOrderedMostRecentFirst(t *testing.T) {
	db, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveLanding(ctx, record(sig(1), "SOL/USDC", 1_000_000, true)))
	time.Sleep(10 * time.Millisecond)
	// record() truncates SubmittedAt to the second, so the later landing is
	// stamped one second on to make the ordering observable.
	later := record(sig(2), "SOL/USDT", 2_000_000, true)
	later.SubmittedAt = later.SubmittedAt.Add(time.Second)
	require.NoError(t, db.SaveLanding(ctx, later))

	from := time.Now().UTC().Add(-time.Minute)
	to := time.Now().UTC().Add(time.Minute)
	history, err := db.GetHistory(ctx, from, to)
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Equal(t, "SOL/USDT", history[0].Pair)
}
