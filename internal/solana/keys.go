package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PubkeyLen is the byte length of an ed25519 public key.
const PubkeyLen = 32

// DecodePubkey decodes a base58 address into its 32-byte form.
func DecodePubkey(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", address, err)
	}
	if len(raw) != PubkeyLen {
		return nil, fmt.Errorf("pubkey %q: expected %d bytes, got %d", address, PubkeyLen, len(raw))
	}
	return raw, nil
}

// EncodePubkey encodes a 32-byte public key as a base58 address.
func EncodePubkey(raw []byte) (string, error) {
	if len(raw) != PubkeyLen {
		return "", fmt.Errorf("encode pubkey: expected %d bytes, got %d", PubkeyLen, len(raw))
	}
	return base58.Encode(raw), nil
}

// IsOnCurve reports whether the address decodes to a valid ed25519 curve
// point. Wallet and vault addresses must be on-curve; PDA addresses are not.
// Used to reject garbage before trusting bytes decoded from account data.
func IsOnCurve(address string) bool {
	raw, err := DecodePubkey(address)
	if err != nil {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
