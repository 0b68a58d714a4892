package ports

import "github.com/gagliardetto/solana-go"

// Signer is consumed, never implemented with a real curve here — key
// management and signing primitives are an external collaborator per
// the engine's scope.
type Signer interface {
	PublicKey() solana.PublicKey
	// Sign returns a signature over message, or an error if the key is
	// unavailable (locked, revoked, HSM unreachable).
	Sign(message []byte) (solana.Signature, error)
}
