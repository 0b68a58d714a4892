package notify_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/adapters/notify"
	"github.com/dnavarro/cyclearb/internal/domain"
)

func testPair() domain.TradePair {
	return domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}
}

func TestNotifyCompactReportsNoOpportunities(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, c.Notify(context.Background(), nil))
	assert.Contains(t, buf.String(), "no opportunities")
}

func TestNotifyCompactPrintsOneLinePerOpportunity(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	opp := domain.SwapOpportunity{
		Pair:           testPair(),
		AmountIn:       1_000_000_000,
		ProfitLamports: 2_000_000,
		TipLamports:    200,
		TipStrategy:    domain.TipFraction,
		MergedQuote: &domain.DoubleQuote{
			Forward: domain.LegQuote{AmountIn: 1_000_000_000, AmountOut: 990_000_000, ProviderTag: "jupiterlike"},
		},
	}

	require.NoError(t, c.Notify(context.Background(), []domain.SwapOpportunity{opp}))
	out := buf.String()
	assert.Contains(t, out, "provider=jupiterlike")
	assert.Contains(t, out, "gross=2000000")
}

func TestNotifyTableModeHandlesNilMergedQuote(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	opp := domain.SwapOpportunity{
		Pair:           testPair(),
		AmountIn:       500_000,
		ProfitLamports: 10_000,
		TipLamports:    1_000,
		TipStrategy:    domain.TipFixed,
	}

	require.NoError(t, c.Notify(context.Background(), []domain.SwapOpportunity{opp}))
	assert.NotEmpty(t, buf.String())
}
