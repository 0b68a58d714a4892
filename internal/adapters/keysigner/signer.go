// Package keysigner adapts a local solana-go keypair to ports.Signer. It
// delegates every cryptographic operation to solana.PrivateKey — key
// management and signing primitives themselves stay out of scope per
// spec.md §1, this is wiring only.
package keysigner

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Signer wraps a solana.PrivateKey loaded from a solana-keygen JSON file.
type Signer struct {
	key solana.PrivateKey
}

// Load reads a solana-keygen-format keypair file at path.
func Load(path string) (*Signer, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("keysigner.Load(%q): %w", path, err)
	}
	return &Signer{key: key}, nil
}

func (s *Signer) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *Signer) Sign(message []byte) (solana.Signature, error) {
	sig, err := s.key.Sign(message)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("keysigner.Sign: %w", err)
	}
	return sig, nil
}
