// Package jupiterlike implements an HTTP JSON aggregator client in the
// Jupiter family: quote + swap-instructions over a rate-limited, retrying
// HTTP client, grounded on
// internal/adapters/polymarket/client.go's doWithRetry (exponential
// backoff + jitter, rate.Limiter, status classification) in the teacher.
package jupiterlike

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/iplease"
	"github.com/dnavarro/cyclearb/internal/ports"
)

const (
	maxRetries    = 3
	baseRetryWait = 250 * time.Millisecond
)

// Client talks to a Jupiter-family quote+swap-instructions HTTP API.
type Client struct {
	name       string
	baseURL    string
	shared     *http.Client
	// ipClients maps a source IP to a long-lived http.Client dialing from
	// that address; absent entries fall back to shared, per spec.md §4.2's
	// "IP-bound HTTP client pool... if the pool is absent a shared client
	// is used."
	ipClients map[string]*http.Client
	limiter   *rate.Limiter
}

// New builds a Client. ipClients may be nil.
func New(name, baseURL string, limiter *rate.Limiter, ipClients map[string]*http.Client) *Client {
	return &Client{
		name:      name,
		baseURL:   baseURL,
		shared:    &http.Client{Timeout: 10 * time.Second},
		ipClients: ipClients,
		limiter:   limiter,
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) httpClientFor(lease *iplease.LeaseHandle) *http.Client {
	if lease == nil || c.ipClients == nil {
		return c.shared
	}
	if hc, ok := c.ipClients[lease.IP()]; ok {
		return hc
	}
	return c.shared
}

// Quote implements ports.QuoteClient.
func (c *Client) Quote(ctx context.Context, req ports.QuoteRequest, lease *iplease.LeaseHandle) (domain.LegQuote, error) {
	url := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d",
		c.baseURL, req.Pair.Input.String(), req.Pair.Output.String(), req.Amount, req.SlippageBps)

	var wire quoteWire
	if err := c.get(ctx, lease, url, &wire); err != nil {
		return domain.LegQuote{}, err
	}
	return wire.toDomain(c.name), nil
}

// SwapInstructions implements ports.InstructionClient.
func (c *Client) SwapInstructions(ctx context.Context, req ports.SwapInstructionsRequest, lease *iplease.LeaseHandle) (domain.SwapInstructionsVariant, error) {
	body := map[string]any{
		"quoteResponse":    req.Quote.QuoteID,
		"userPublicKey":    req.User,
		"wrapAndUnwrapSol": req.WrapSOL,
		"useSharedAccounts": req.SharedAccounts,
	}
	if req.FeeAccount != "" {
		body["feeAccount"] = req.FeeAccount
	}
	if req.ComputeUnitPrice > 0 {
		body["computeUnitPriceMicroLamports"] = req.ComputeUnitPrice
	}

	var wire swapInstructionsWire
	if err := c.post(ctx, lease, c.baseURL+"/swap-instructions", body, &wire); err != nil {
		return domain.SwapInstructionsVariant{}, err
	}
	return wire.toDomain(), nil
}

func (c *Client) get(ctx context.Context, lease *iplease.LeaseHandle, url string, out any) error {
	return c.doWithRetry(ctx, lease, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.httpClientFor(lease).Do(req)
	}, out)
}

func (c *Client) post(ctx context.Context, lease *iplease.LeaseHandle, url string, body, out any) error {
	return c.doWithRetry(ctx, lease, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.httpClientFor(lease).Do(req)
	}, out)
}

func (c *Client) doWithRetry(ctx context.Context, lease *iplease.LeaseHandle, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return classify(ports.ErrClassTimeout, 0, "", err)
			}
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return classify(ports.ErrClassTransport, 0, "", err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt == maxRetries {
				return classify(ports.ErrClassRateLimited, resp.StatusCode, "", errExhausted)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if attempt == maxRetries {
				return classify(ports.ErrClassStatus, resp.StatusCode, string(body), errExhausted)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return classify(ports.ErrClassStatus, resp.StatusCode, string(body), errExhausted)
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return classify(ports.ErrClassSchema, resp.StatusCode, "", err)
		}
		return nil
	}
	return classify(ports.ErrClassTransport, 0, "", errExhausted)
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func classify(class ports.ErrorClass, status int, body string, err error) *ports.AggregatorError {
	return &ports.AggregatorError{Class: class, StatusCode: status, Body: body, Err: err}
}

type clientError string

func (e clientError) Error() string { return string(e) }

const errExhausted = clientError("exhausted retries")
