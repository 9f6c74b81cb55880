// Package identity holds the facilitator's signing keypair. The identity is
// created at process start and never rotated during the process lifetime; it
// is read-only after construction and safe to share across requests.
package identity

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// Identity is the facilitator's fee-payer keypair.
type Identity struct {
	key solana.PrivateKey
}

// FromBase58 creates an identity from a base58-encoded private key.
func FromBase58(secret string) (*Identity, error) {
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid facilitator secret key: %w", err)
	}
	// PrivateKeyFromBase58 accepts any length; a short key would panic later
	// inside ed25519 when the public key is derived.
	if len(key) != 64 {
		return nil, fmt.Errorf("invalid key length: expected 64 bytes, got %d", len(key))
	}
	return &Identity{key: key}, nil
}

// FromKeygenFile creates an identity from a Solana keygen JSON file, a JSON
// array of 64 bytes.
func FromKeygenFile(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keygen file: %w", err)
	}

	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("invalid keygen file format: %w", err)
	}
	if len(values) != 64 {
		return nil, fmt.Errorf("invalid key length: expected 64 bytes, got %d", len(values))
	}

	keyBytes := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("invalid key byte %d at index %d", v, i)
		}
		keyBytes[i] = byte(v)
	}

	return &Identity{key: solana.PrivateKey(keyBytes)}, nil
}

// Ephemeral creates a fresh random identity for processes started without a
// configured secret.
func Ephemeral() (*Identity, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	return &Identity{key: key}, nil
}

// PublicKey returns the identity's public key, used as the fee payer of
// sponsored transactions.
func (id *Identity) PublicKey() solana.PublicKey {
	return id.key.PublicKey()
}

// Signer returns a key getter suitable for solana.Transaction.PartialSign
// that signs only for the facilitator's own key.
func (id *Identity) Signer() func(key solana.PublicKey) *solana.PrivateKey {
	pub := id.key.PublicKey()
	return func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &id.key
		}
		return nil
	}
}
