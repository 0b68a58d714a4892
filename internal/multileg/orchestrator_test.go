package multileg

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/domain"
)

func TestEvaluateSelectsBestCombination(t *testing.T) {
	pair := domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}
	o := &Orchestrator{
		BuyLegs:  []LegDescriptor{{AggregatorKind: "a"}, {AggregatorKind: "b"}, {AggregatorKind: "c"}},
		SellLegs: []LegDescriptor{{AggregatorKind: "a"}, {AggregatorKind: "b"}, {AggregatorKind: "c"}},
	}
	buyOut := []uint64{140_000_000, 139_000_000, 141_000_000}
	sellOut := []uint64{142_000_000, 142_500_000, 140_500_000}

	fetch := func(ctx context.Context, d LegDescriptor, pair domain.TradePair, amount uint64) (domain.LegQuote, error) {
		idx := int(d.AggregatorKind[0] - 'a')
		if d.Side == "sell" {
			return domain.LegQuote{AmountIn: amount, AmountOut: sellOut[idx]}, nil
		}
		return domain.LegQuote{AmountIn: amount, AmountOut: buyOut[idx]}, nil
	}
	o.BuyLegs[0].Side, o.BuyLegs[1].Side, o.BuyLegs[2].Side = "buy", "buy", "buy"
	o.SellLegs[0].Side, o.SellLegs[1].Side, o.SellLegs[2].Side = "sell", "sell", "sell"

	combos := o.Evaluate(context.Background(), pair, 140_000_000, 0, fetch)
	require.Len(t, combos, 9)

	positive := Positive(combos)
	require.NotEmpty(t, positive)
	best := positive[0]
	// fetch ignores the per-aggregator buy quote and always reports
	// AmountIn == amount, so every BuyIdx ties on gross profit for a given
	// SellIdx; the deterministic tie-break picks the lowest BuyIdx.
	assert.Equal(t, 0, best.BuyIdx)
	assert.Equal(t, 1, best.SellIdx)
}

func TestPositiveBreaksTiesByLatencyThenIndex(t *testing.T) {
	combos := []Combination{
		{BuyIdx: 1, SellIdx: 0, GrossProfit: 100, Buy: domain.LegQuote{LatencyMs: 50}, Sell: domain.LegQuote{LatencyMs: 50}},
		{BuyIdx: 0, SellIdx: 0, GrossProfit: 100, Buy: domain.LegQuote{LatencyMs: 10}, Sell: domain.LegQuote{LatencyMs: 10}},
		{BuyIdx: 2, SellIdx: 0, GrossProfit: 100, Buy: domain.LegQuote{LatencyMs: 10}, Sell: domain.LegQuote{LatencyMs: 10}},
	}

	out := Positive(combos)
	require.Len(t, out, 3)
	assert.Equal(t, 0, out[0].BuyIdx, "lowest combined latency wins the tie")
	assert.Equal(t, 2, out[1].BuyIdx, "equal latency falls back to ascending BuyIdx")
	assert.Equal(t, 1, out[2].BuyIdx)
}

func TestSubscriptionPlannerCapsTwoPerIP(t *testing.T) {
	p := NewSubscriptionPlanner(2)
	ips := []string{"10.0.0.1", "10.0.0.2"}
	pair := domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}

	ip1 := p.Pin(pair, 1, ips)
	ip2 := p.Pin(pair, 2, ips)
	ip3 := p.Pin(pair, 3, ips)
	ip4 := p.Pin(pair, 4, ips)
	ip5 := p.Pin(pair, 5, ips)

	assert.NotEmpty(t, ip1)
	assert.NotEmpty(t, ip2)
	assert.NotEmpty(t, ip3)
	assert.NotEmpty(t, ip4)
	assert.Empty(t, ip5, "fifth subscription should find every IP saturated at 2-per-IP")
}

func TestDriverThrottlesWithinMinInterval(t *testing.T) {
	d := NewDriver(0, 50*time.Millisecond)
	var calls int
	ran1, err := d.OnUpdate(context.Background(), func(context.Context) { calls++ })
	require.NoError(t, err)
	ran2, err := d.OnUpdate(context.Background(), func(context.Context) { calls++ })
	require.NoError(t, err)

	assert.True(t, ran1)
	assert.False(t, ran2)
	assert.Equal(t, 1, calls)
}
