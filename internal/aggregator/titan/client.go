package titan

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/iplease"
	"github.com/dnavarro/cyclearb/internal/ports"
)

// subscription tracks one live (pair, amount) stream and the channel its
// updates are delivered on.
type subscription struct {
	pair   domain.TradePair
	amount uint64
	ch     chan ports.QuoteUpdate
}

// Client is a WebSocket push aggregator client (Titan-style). It holds one
// persistent connection shared by every subscription (each subscribe frame
// carries its pinned IP) and fans subscription updates out to per-stream
// channels.
type Client struct {
	name string
	wsURL string
	auth  *Authenticator
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
	subs map[string]*subscription
}

func New(name, wsURL string, auth *Authenticator) *Client {
	return &Client{
		name:   name,
		wsURL:  wsURL,
		auth:   auth,
		dialer: websocket.DefaultDialer,
		subs:   make(map[string]*subscription),
	}
}

func (c *Client) Name() string { return c.name }

// Quote implements ports.QuoteClient as a one-shot request/reply over the
// same push connection, for callers that need a single synchronous quote
// rather than a subscription.
func (c *Client) Quote(ctx context.Context, req ports.QuoteRequest, lease *iplease.LeaseHandle) (domain.LegQuote, error) {
	ch, streamID, err := c.Subscribe(ctx, req.Pair, req.Amount, leaseIP(lease))
	if err != nil {
		return domain.LegQuote{}, err
	}
	defer c.Stop(streamID)

	select {
	case update := <-ch:
		if update.Err != nil {
			return domain.LegQuote{}, update.Err
		}
		return update.Quote, nil
	case <-ctx.Done():
		return domain.LegQuote{}, &ports.AggregatorError{Class: ports.ErrClassTimeout, Err: ctx.Err()}
	}
}

// Bootstrap establishes the connection and primes it with the scheduler's
// initial batch plan, one subscribe frame per entry.
func (c *Client) Bootstrap(ctx context.Context, plan []domain.QuoteBatchPlan) error {
	if err := c.connect(ctx); err != nil {
		return err
	}
	for _, p := range plan {
		if _, _, err := c.Subscribe(ctx, p.Pair, p.Amount, p.PreferredIP); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	token, err := c.auth.Token(ctx)
	if err != nil {
		return fmt.Errorf("titan: auth: %w", err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, header)
	if err != nil {
		return &ports.AggregatorError{Class: ports.ErrClassTransport, Err: err}
	}
	c.conn = conn
	go c.readLoop(conn)
	return nil
}

// Subscribe opens a new logical stream over the shared connection,
// pinned to ip for IP-lease bookkeeping purposes.
func (c *Client) Subscribe(ctx context.Context, pair domain.TradePair, amount uint64, ip string) (<-chan ports.QuoteUpdate, string, error) {
	if err := c.connect(ctx); err != nil {
		return nil, "", err
	}

	streamID := uuid.NewString()
	ch := make(chan ports.QuoteUpdate, 16)

	c.mu.Lock()
	c.subs[streamID] = &subscription{pair: pair, amount: amount, ch: ch}
	conn := c.conn
	c.mu.Unlock()

	frame := subscribeFrame{
		Type:     "subscribe",
		StreamID: streamID,
		Input:    pair.Input.String(),
		Output:   pair.Output.String(),
		Amount:   strconv.FormatUint(amount, 10),
		IP:       ip,
	}
	if err := conn.WriteJSON(frame); err != nil {
		c.mu.Lock()
		delete(c.subs, streamID)
		c.mu.Unlock()
		return nil, "", &ports.AggregatorError{Class: ports.ErrClassTransport, Err: err}
	}
	return ch, streamID, nil
}

func (c *Client) Stop(streamID string) error {
	c.mu.Lock()
	sub, ok := c.subs[streamID]
	if ok {
		delete(c.subs, streamID)
	}
	conn := c.conn
	c.mu.Unlock()
	if !ok {
		return nil
	}
	close(sub.ch)
	if conn != nil {
		_ = conn.WriteJSON(subscribeFrame{Type: "unsubscribe", StreamID: streamID})
	}
	return nil
}

// readLoop demultiplexes inbound frames to their owning subscription
// channel until the connection closes.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var frame updateFrame
		if err := conn.ReadJSON(&frame); err != nil {
			c.broadcastTransportError(err)
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			return
		}

		c.mu.Lock()
		sub, ok := c.subs[frame.StreamID]
		c.mu.Unlock()
		if !ok {
			continue
		}

		if frame.Error != "" {
			sub.ch <- ports.QuoteUpdate{StreamID: frame.StreamID, Err: &ports.AggregatorError{Class: ports.ErrClassSchema, Body: frame.Error}}
			continue
		}
		sub.ch <- ports.QuoteUpdate{StreamID: frame.StreamID, Quote: frame.toDomain(c.name)}
	}
}

func (c *Client) broadcastTransportError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		select {
		case sub.ch <- ports.QuoteUpdate{Err: &ports.AggregatorError{Class: ports.ErrClassTransport, Err: err}}:
		default:
		}
	}
}

func leaseIP(lease *iplease.LeaseHandle) string {
	if lease == nil {
		return ""
	}
	return lease.IP()
}

type subscribeFrame struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
	Input    string `json:"inputMint,omitempty"`
	Output   string `json:"outputMint,omitempty"`
	Amount   string `json:"amount,omitempty"`
	IP       string `json:"ip,omitempty"`
}

type updateFrame struct {
	StreamID    string `json:"streamId"`
	InAmount    string `json:"inAmount"`
	OutAmount   string `json:"outAmount"`
	SlippageBps int64  `json:"slippageBps"`
	Error       string `json:"error"`
}

func (f updateFrame) toDomain(providerTag string) domain.LegQuote {
	in, _ := strconv.ParseUint(f.InAmount, 10, 64)
	out, _ := strconv.ParseUint(f.OutAmount, 10, 64)
	return domain.LegQuote{
		AmountIn:    in,
		AmountOut:   out,
		SlippageBps: uint16(f.SlippageBps),
		ProviderTag: providerTag,
	}
}
