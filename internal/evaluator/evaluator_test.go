package evaluator

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/domain"
)

func TestEvaluateHappyPathJupiterOnly(t *testing.T) {
	pair := domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}
	dq := domain.DoubleQuote{
		Forward: domain.LegQuote{AmountIn: 1_000_000_000, AmountOut: 140_000_000, ProviderTag: "jupiter"},
		Reverse: domain.LegQuote{AmountIn: 140_000_000, AmountOut: 1_002_000_000, ProviderTag: "jupiter"},
	}
	e := &Evaluator{
		Thresholds: Thresholds{GlobalFloor: 1_000},
		Tip:        FixedTip{Lamports: 200},
	}

	opp, err := e.Evaluate(pair, 1_000_000_000, dq)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), opp.ProfitLamports)
	assert.Equal(t, uint64(200), opp.TipLamports)
	assert.True(t, opp.Dispatchable())
}

func TestEvaluateRejectsNonPositiveGross(t *testing.T) {
	pair := domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}
	dq := domain.DoubleQuote{
		Forward: domain.LegQuote{AmountIn: 1_000, AmountOut: 900},
		Reverse: domain.LegQuote{AmountIn: 900, AmountOut: 999},
	}
	e := &Evaluator{Thresholds: Thresholds{GlobalFloor: 0}, Tip: FixedTip{}}
	_, err := e.Evaluate(pair, 1_000, dq)
	assert.Error(t, err)
}

func TestEvaluateRejectsBelowThresholdAndEmitsShortfall(t *testing.T) {
	pair := domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}
	dq := domain.DoubleQuote{
		Forward: domain.LegQuote{AmountIn: 1_000, AmountOut: 1_000},
		Reverse: domain.LegQuote{AmountIn: 1_000, AmountOut: 1_050},
	}
	var got *ShortfallEvent
	e := &Evaluator{
		Thresholds:  Thresholds{GlobalFloor: 1_000},
		Tip:         FixedTip{},
		OnShortfall: func(ev ShortfallEvent) { got = &ev },
	}
	_, err := e.Evaluate(pair, 1_000, dq)
	require.Error(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(50), got.GrossProfit)
}

func TestRequestedTipConflatedWithMax(t *testing.T) {
	pair := domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}
	dq := domain.DoubleQuote{
		Forward: domain.LegQuote{AmountIn: 10_000, AmountOut: 10_000},
		Reverse: domain.LegQuote{AmountIn: 10_000, AmountOut: 11_000},
	}
	e := &Evaluator{
		Thresholds:   Thresholds{GlobalFloor: 100},
		Tip:          FixedTip{Lamports: 50},
		RequestedTip: 300,
	}
	opp, err := e.Evaluate(pair, 10_000, dq)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), opp.TipLamports)
}

func TestTipExceedingProfitIsRejected(t *testing.T) {
	pair := domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}
	dq := domain.DoubleQuote{
		Forward: domain.LegQuote{AmountIn: 1_000, AmountOut: 1_000},
		Reverse: domain.LegQuote{AmountIn: 1_000, AmountOut: 1_200},
	}
	e := &Evaluator{
		Thresholds: Thresholds{GlobalFloor: 100},
		Tip:        FixedTip{Lamports: 500},
	}
	_, err := e.Evaluate(pair, 1_000, dq)
	assert.Error(t, err)
}
