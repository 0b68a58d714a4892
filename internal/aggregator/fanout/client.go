// Package fanout fans one quote request out to every configured aggregator
// concurrently and keeps the best response, giving
// internal/dispatcher.Dispatcher's single ports.QuoteClient field real
// access to every aggregator family spec.md §2 requires ("two HTTP
// aggregators" plus the streaming and on-chain families) without changing
// the dispatcher's one-aggregator-per-batch-item shape.
package fanout

import (
	"context"
	"fmt"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/iplease"
	"github.com/dnavarro/cyclearb/internal/ports"
)

// Client holds every configured aggregator, keyed by its Name(). Clients
// map keys must match the Name() each underlying client reports, since
// SwapInstructions routes back to the client that produced a given quote
// by its ProviderTag.
type Client struct {
	name    string
	clients map[string]ports.QuoteClient
}

// New builds a fan-out client. clients must be non-empty.
func New(name string, clients map[string]ports.QuoteClient) *Client {
	return &Client{name: name, clients: clients}
}

func (c *Client) Name() string { return c.name }

type quoteResult struct {
	quote domain.LegQuote
	err   error
}

// Quote dispatches req to every registered aggregator concurrently and
// returns the valid response with the highest amount_out, so a configured
// family that happens to be down or quoting poorly never blocks the
// others.
func (c *Client) Quote(ctx context.Context, req ports.QuoteRequest, lease *iplease.LeaseHandle) (domain.LegQuote, error) {
	resultCh := make(chan quoteResult, len(c.clients))
	for _, cl := range c.clients {
		cl := cl
		go func() {
			q, err := cl.Quote(ctx, req, lease)
			resultCh <- quoteResult{quote: q, err: err}
		}()
	}

	var best domain.LegQuote
	var found bool
	var lastErr error
	for i := 0; i < len(c.clients); i++ {
		r := <-resultCh
		if r.err != nil {
			lastErr = r.err
			continue
		}
		if !r.quote.Valid() {
			continue
		}
		if !found || r.quote.AmountOut > best.AmountOut {
			best = r.quote
			found = true
		}
	}
	if !found {
		if lastErr != nil {
			return domain.LegQuote{}, lastErr
		}
		return domain.LegQuote{}, errNoValidQuote
	}
	return best, nil
}

// SwapInstructions routes to whichever registered client's Name() matches
// req.Quote.ProviderTag — the client that actually produced the winning
// quote in Quote above.
func (c *Client) SwapInstructions(ctx context.Context, req ports.SwapInstructionsRequest, lease *iplease.LeaseHandle) (domain.SwapInstructionsVariant, error) {
	cl, ok := c.clients[req.Quote.ProviderTag]
	if !ok {
		return domain.SwapInstructionsVariant{}, fmt.Errorf("fanout: no aggregator registered for provider %q", req.Quote.ProviderTag)
	}
	ic, ok := cl.(ports.InstructionClient)
	if !ok {
		return domain.SwapInstructionsVariant{}, fmt.Errorf("fanout: aggregator %q does not implement SwapInstructions", req.Quote.ProviderTag)
	}
	return ic.SwapInstructions(ctx, req, lease)
}

type fanoutError string

func (e fanoutError) Error() string { return string(e) }

const errNoValidQuote = fanoutError("fanout: no registered aggregator returned a valid quote")
