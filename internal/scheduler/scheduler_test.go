package scheduler

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/domain"
)

func TestTickEmitsOneBatchPerEligibleMint(t *testing.T) {
	solMint := solana.NewWallet().PublicKey()
	usdcMint := solana.NewWallet().PublicKey()
	pair := domain.TradePair{Input: solMint, Output: usdcMint}
	sched := domain.NewMintSchedule(solMint, []uint64{1_000_000_000, 2_000_000_000})

	s := New([]domain.TradePair{pair}, []*domain.MintSchedule{sched}, []time.Duration{100 * time.Millisecond})

	batch, _ := s.Tick(time.Now())
	require.Len(t, batch, 1)
	assert.Equal(t, uint64(1_000_000_000), batch[0].Amount)
	assert.Equal(t, pair, batch[0].Pair)
}

func TestTickSkipsMintBeforeReadyInstant(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	pair := domain.TradePair{Input: mint, Output: solana.NewWallet().PublicKey()}
	sched := domain.NewMintSchedule(mint, []uint64{1})

	s := New([]domain.TradePair{pair}, []*domain.MintSchedule{sched}, []time.Duration{time.Hour})

	now := time.Now()
	first, _ := s.Tick(now)
	require.Len(t, first, 1)

	second, wait := s.Tick(now.Add(time.Second))
	assert.Empty(t, second)
	assert.Greater(t, wait, time.Duration(0))
}

func TestBatchIDsMonotonicAcrossTicks(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	pair := domain.TradePair{Input: mint, Output: solana.NewWallet().PublicKey()}
	sched := domain.NewMintSchedule(mint, []uint64{1, 2})

	s := New([]domain.TradePair{pair}, []*domain.MintSchedule{sched}, []time.Duration{0})

	now := time.Now()
	b1, _ := s.Tick(now)
	b2, _ := s.Tick(now)
	require.Len(t, b1, 1)
	require.Len(t, b2, 1)
	assert.Less(t, b1[0].BatchID, b2[0].BatchID)
}
