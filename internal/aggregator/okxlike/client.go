// Package okxlike implements a second HTTP JSON aggregator family (OKX DEX
// aggregator-style quote API), satisfying spec.md §2's "two HTTP
// aggregators" requirement. Shares the teacher's doWithRetry shape
// (internal/adapters/polymarket/client.go) but its own response envelope.
package okxlike

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
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

// envelope wraps every OKX-style aggregator response in a {code, data}
// shape with a string error code rather than a bare HTTP status.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data []routerResult  `json:"data"`
}

type routerResult struct {
	RouterResult struct {
		FromTokenAmount string `json:"fromTokenAmount"`
		ToTokenAmount   string `json:"toTokenAmount"`
	} `json:"routerResult"`
}

// Client talks to an OKX-DEX-aggregator-style quote API.
type Client struct {
	name      string
	baseURL   string
	apiKey    string
	shared    *http.Client
	ipClients map[string]*http.Client
	limiter   *rate.Limiter
}

func New(name, baseURL, apiKey string, limiter *rate.Limiter, ipClients map[string]*http.Client) *Client {
	return &Client{
		name:      name,
		baseURL:   baseURL,
		apiKey:    apiKey,
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

func (c *Client) Quote(ctx context.Context, req ports.QuoteRequest, lease *iplease.LeaseHandle) (domain.LegQuote, error) {
	url := fmt.Sprintf("%s/aggregator/quote?chainId=501&fromTokenAddress=%s&toTokenAddress=%s&amount=%d",
		c.baseURL, req.Pair.Input.String(), req.Pair.Output.String(), req.Amount)

	var env envelope
	if err := c.get(ctx, lease, url, &env); err != nil {
		return domain.LegQuote{}, err
	}
	if env.Code != "0" {
		return domain.LegQuote{}, &ports.AggregatorError{Class: ports.ErrClassSchema, Body: env.Msg, Err: errBadCode}
	}
	if len(env.Data) == 0 {
		return domain.LegQuote{}, &ports.AggregatorError{Class: ports.ErrClassSchema, Err: errEmptyData}
	}

	in, _ := strconv.ParseUint(env.Data[0].RouterResult.FromTokenAmount, 10, 64)
	out, _ := strconv.ParseUint(env.Data[0].RouterResult.ToTokenAmount, 10, 64)
	return domain.LegQuote{AmountIn: in, AmountOut: out, ProviderTag: c.name}, nil
}

func (c *Client) get(ctx context.Context, lease *iplease.LeaseHandle, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return &ports.AggregatorError{Class: ports.ErrClassTimeout, Err: err}
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if c.apiKey != "" {
			req.Header.Set("OK-ACCESS-KEY", c.apiKey)
		}
		resp, err := c.httpClientFor(lease).Do(req)
		if err != nil {
			if attempt == maxRetries {
				return &ports.AggregatorError{Class: ports.ErrClassTransport, Err: err}
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt == maxRetries {
				return &ports.AggregatorError{Class: ports.ErrClassRateLimited, StatusCode: resp.StatusCode, Err: errExhausted}
			}
			c.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if attempt == maxRetries {
				return &ports.AggregatorError{Class: ports.ErrClassStatus, StatusCode: resp.StatusCode, Body: string(body), Err: errExhausted}
			}
			c.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return &ports.AggregatorError{Class: ports.ErrClassStatus, StatusCode: resp.StatusCode, Body: string(body), Err: errExhausted}
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &ports.AggregatorError{Class: ports.ErrClassSchema, Err: err}
		}
		return nil
	}
	return &ports.AggregatorError{Class: ports.ErrClassTransport, Err: errExhausted}
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

type clientError string

func (e clientError) Error() string { return string(e) }

const (
	errExhausted = clientError("exhausted retries")
	errBadCode   = clientError("non-zero response code")
	errEmptyData = clientError("empty data array")
)
