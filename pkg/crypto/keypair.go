package crypto

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/mr-tron/base58"
)

// Keypair holds an ed25519 signing key and its public key.
// Used both for per-order base keys and for custodial owner keys.
type Keypair struct {
	privateKey ed25519.PrivateKey
	publicKey  PublicKey
}

// GenerateKeypair creates a new random ed25519 key pair
func GenerateKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newKeypair(priv), nil
}

// KeypairFromSeed derives a key pair from a 32-byte seed
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return newKeypair(ed25519.NewKeyFromSeed(seed)), nil
}

// KeypairFromSecretBase58 parses a base58 secret key.
// Accepts the 64-byte wallet export format (seed || public key) or a bare 32-byte seed.
func KeypairFromSecretBase58(secret string) (*Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret key: %w", err)
	}

	switch len(raw) {
	case ed25519.SeedSize:
		return KeypairFromSeed(raw)
	case ed25519.PrivateKeySize:
		kp, err := KeypairFromSeed(raw[:ed25519.SeedSize])
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(kp.publicKey[:], raw[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("secret key public half does not match its seed")
		}
		return kp, nil
	default:
		return nil, fmt.Errorf("secret key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}

func newKeypair(priv ed25519.PrivateKey) *Keypair {
	kp := &Keypair{privateKey: priv}
	copy(kp.publicKey[:], priv[ed25519.SeedSize:])
	return kp
}

// PublicKey returns the account identifier of this key pair
func (k *Keypair) PublicKey() PublicKey {
	return k.publicKey
}

// Seed returns a copy of the 32-byte private seed
// WARNING: Keep this secret! Never expose to users or logs
func (k *Keypair) Seed() []byte {
	return append([]byte(nil), k.privateKey.Seed()...)
}

// SecretBase58 returns the 64-byte secret key in base58 wallet export format
// WARNING: Keep this secret! Never expose to users or logs
func (k *Keypair) SecretBase58() string {
	return base58.Encode(k.privateKey)
}

// PrivateKey returns a copy of the 64-byte seed||public key
// WARNING: Keep this secret! Never expose to users or logs
func (k *Keypair) PrivateKey() []byte {
	return append([]byte(nil), k.privateKey...)
}

// Sign signs message and returns the 64-byte signature
func (k *Keypair) Sign(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.privateKey, message))
	return sig
}

// Verify checks that sig over message was produced by pub
func Verify(pub PublicKey, message []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, sig[:])
}
