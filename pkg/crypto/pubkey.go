package crypto

import (
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	PublicKeySize = 32
	SignatureSize = 64
)

// PublicKey is a 32-byte ed25519 public key, rendered in base58.
// Accounts, mints and orders are all identified by one.
type PublicKey [PublicKeySize]byte

// ParsePublicKey decodes a base58 string into a PublicKey
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("invalid public key %q: %w", s, err)
	}
	if len(raw) != PublicKeySize {
		return pk, fmt.Errorf("invalid public key %q: decoded length %d, want %d", s, len(raw), PublicKeySize)
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustPublicKey is ParsePublicKey for constants; panics on bad input.
func MustPublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// IsPublicKey reports whether s decodes to exactly 32 bytes
func IsPublicKey(s string) bool {
	_, err := ParsePublicKey(s)
	return err == nil
}

func (p PublicKey) String() string { return base58.Encode(p[:]) }

func (p PublicKey) IsZero() bool { return p == PublicKey{} }

func (p PublicKey) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PublicKey) UnmarshalText(text []byte) error {
	pk, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}

// Signature is a 64-byte ed25519 signature. The first signature of a
// transaction doubles as its id.
type Signature [SignatureSize]byte

func (s Signature) String() string { return base58.Encode(s[:]) }

func (s Signature) IsZero() bool { return s == Signature{} }

// ParseSignature decodes a base58 transaction signature
func ParseSignature(str string) (Signature, error) {
	var sig Signature
	raw, err := base58.Decode(str)
	if err != nil {
		return sig, fmt.Errorf("invalid signature: %w", err)
	}
	if len(raw) != SignatureSize {
		return sig, fmt.Errorf("invalid signature length: %d", len(raw))
	}
	copy(sig[:], raw)
	return sig, nil
}
