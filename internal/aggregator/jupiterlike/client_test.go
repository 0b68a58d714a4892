package jupiterlike_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/aggregator/jupiterlike"
	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/ports"
)

func TestQuoteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"inAmount":"1000000000","outAmount":"140000000","slippageBps":50,"requestId":"abc"}`))
	}))
	defer srv.Close()

	c := jupiterlike.New("jupiter", srv.URL, nil, nil)
	pair := domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}
	q, err := c.Quote(context.Background(), ports.QuoteRequest{Pair: pair, Amount: 1_000_000_000}, nil)

	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), q.AmountIn)
	assert.Equal(t, uint64(140_000_000), q.AmountOut)
	assert.Equal(t, "jupiter", q.ProviderTag)
}

func TestQuoteRateLimitedClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := jupiterlike.New("jupiter", srv.URL, nil, nil)
	pair := domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}
	_, err := c.Quote(context.Background(), ports.QuoteRequest{Pair: pair, Amount: 1}, nil)

	require.Error(t, err)
	var aggErr *ports.AggregatorError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, ports.ErrClassRateLimited, aggErr.Class)
}

func TestQuoteServerErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := jupiterlike.New("jupiter", srv.URL, nil, nil)
	pair := domain.TradePair{Input: solana.NewWallet().PublicKey(), Output: solana.NewWallet().PublicKey()}
	_, err := c.Quote(context.Background(), ports.QuoteRequest{Pair: pair, Amount: 1}, nil)

	require.Error(t, err)
	var aggErr *ports.AggregatorError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, ports.ErrClassStatus, aggErr.Class)
}
