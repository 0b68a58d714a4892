// Package variant fans a PreparedTransaction into multiple lander-specific
// signed variants per a configured dispatch strategy, per spec.md §4.9.
package variant

import (
	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/ports"
)

// DispatchStrategy names how a PreparedTransaction is fanned across
// landers.
type DispatchStrategy int

const (
	BroadcastAll DispatchStrategy = iota
	PrimaryWithFallback
	RaceTopK
)

// Resigner re-signs a copy of a prepared transaction's wire bytes with a
// substituted tip account, for landers that require their own tip target.
// Implementations that reuse the same signed bytes unchanged may ignore
// tipAccount and return prepared.SignedBytes/Signature verbatim.
type Resigner interface {
	Resign(prepared domain.PreparedTransaction, tipAccount *solana.PublicKey) ([]byte, solana.Signature, error)
}

// Plan produces an ordered list of TxVariant items, one per lander in
// stack, honoring strategy. The first variant is tagged Primary.
func Plan(prepared domain.PreparedTransaction, stack domain.LanderStack, strategy DispatchStrategy, topK int, resigner Resigner) ([]domain.TxVariant, error) {
	landers := stack.Landers()
	if strategy == RaceTopK && topK > 0 && topK < len(landers) {
		landers = landers[:topK]
	}
	if strategy == PrimaryWithFallback && len(landers) > 0 {
		// Keep full order; "primary with fallback" differs from broadcast
		// only in downstream landing-stage sequencing, not in variant count.
	}

	variants := make([]domain.TxVariant, 0, len(landers))
	for i, l := range landers {
		bytes, sig := prepared.SignedBytes, prepared.Signature
		if l.TipAccount != nil {
			var err error
			bytes, sig, err = resigner.Resign(prepared, l.TipAccount)
			if err != nil {
				return nil, err
			}
		}
		variants = append(variants, domain.TxVariant{
			Bytes:     bytes,
			Signature: sig,
			Lander:    l,
			Primary:   i == 0,
		})
	}
	return variants, nil
}

// ToLanderClients resolves the ordered lander handles in a LanderStack to
// their registered client implementations, preserving order.
func ToLanderClients(stack domain.LanderStack, registry map[string]ports.LanderClient) []ports.LanderClient {
	out := make([]ports.LanderClient, 0, stack.Count())
	for _, l := range stack.Landers() {
		if c, ok := registry[l.Name]; ok {
			out = append(out, c)
		}
	}
	return out
}
