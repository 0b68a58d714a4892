package fanout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/iplease"
	"github.com/dnavarro/cyclearb/internal/ports"
)

type scriptedErr string

func (e scriptedErr) Error() string { return string(e) }

const assertErr = scriptedErr("quote failed")

type scriptedClient struct {
	name               string
	amountOut          uint64
	err                error
	instructionCapable bool
}

func (s scriptedClient) Name() string { return s.name }

func (s scriptedClient) Quote(context.Context, ports.QuoteRequest, *iplease.LeaseHandle) (domain.LegQuote, error) {
	if s.err != nil {
		return domain.LegQuote{}, s.err
	}
	return domain.LegQuote{AmountIn: 1, AmountOut: s.amountOut, ProviderTag: s.name}, nil
}

func (s scriptedClient) SwapInstructions(context.Context, ports.SwapInstructionsRequest, *iplease.LeaseHandle) (domain.SwapInstructionsVariant, error) {
	if !s.instructionCapable {
		panic("not instruction capable")
	}
	return domain.SwapInstructionsVariant{Kind: domain.VariantJupiter}, nil
}

func TestQuotePicksHighestAmountOut(t *testing.T) {
	c := New("fanout", map[string]ports.QuoteClient{
		"low":  scriptedClient{name: "low", amountOut: 100},
		"high": scriptedClient{name: "high", amountOut: 500},
		"fail": scriptedClient{name: "fail", err: assertErr},
	})

	q, err := c.Quote(context.Background(), ports.QuoteRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "high", q.ProviderTag)
	assert.Equal(t, uint64(500), q.AmountOut)
}

func TestQuoteReturnsErrorWhenEveryClientFails(t *testing.T) {
	c := New("fanout", map[string]ports.QuoteClient{
		"a": scriptedClient{name: "a", err: assertErr},
	})
	_, err := c.Quote(context.Background(), ports.QuoteRequest{}, nil)
	assert.Error(t, err)
}

func TestSwapInstructionsRoutesByProviderTag(t *testing.T) {
	c := New("fanout", map[string]ports.QuoteClient{
		"jupiter": scriptedClient{name: "jupiter", amountOut: 10, instructionCapable: true},
	})
	variant, err := c.SwapInstructions(context.Background(), ports.SwapInstructionsRequest{
		Quote: domain.LegQuote{ProviderTag: "jupiter"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.VariantJupiter, variant.Kind)
}

func TestSwapInstructionsErrorsForUnregisteredProvider(t *testing.T) {
	c := New("fanout", map[string]ports.QuoteClient{
		"jupiter": scriptedClient{name: "jupiter", instructionCapable: true},
	})
	_, err := c.SwapInstructions(context.Background(), ports.SwapInstructionsRequest{
		Quote: domain.LegQuote{ProviderTag: "unknown"},
	}, nil)
	assert.Error(t, err)
}
