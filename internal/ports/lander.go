package ports

import (
	"context"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/gagliardetto/solana-go"
)

// LanderClient submits a signed transaction variant over one transport
// (direct RPC, staked relay, private bundle relay). Implementations may be
// IP-bound; landing.Stage acquires a lease around each Submit call when it
// has a LeaseAcquirer.
type LanderClient interface {
	Name() string
	Transport() domain.LanderTransport
	Submit(ctx context.Context, variant domain.TxVariant) (solana.Signature, error)
}
