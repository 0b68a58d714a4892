// Package rpclander implements ports.LanderClient by submitting the signed
// transaction directly over ports.RPC — the simplest of the three
// transports spec.md §6 names (direct RPC, staked relay, private bundle),
// and the only one buildable without an external relay's wire protocol.
package rpclander

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/ports"
)

// Client submits over a shared ports.RPC connection.
type Client struct {
	name string
	rpc  ports.RPC
}

// New builds a Client that submits every variant through rpc.
func New(name string, rpc ports.RPC) *Client {
	return &Client{name: name, rpc: rpc}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Transport() domain.LanderTransport { return domain.LanderRPC }

func (c *Client) Submit(ctx context.Context, variant domain.TxVariant) (solana.Signature, error) {
	sig, err := c.rpc.SendTransaction(ctx, variant.Bytes)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("rpclander.Submit(%s): %w", c.name, err)
	}
	return sig, nil
}
