package keystore

import (
	"fmt"

	"github.com/uhyunpark/airship/pkg/crypto"
)

// Pebble key schema
//
//	meta                 → key derivation parameters + passphrase check
//	signer:{owner}       → sealed seed of owner's key pair
const (
	keyMeta      = "meta"
	prefixSigner = "signer:"
)

// signerKey returns the key for an owner's sealed seed
// Format: "signer:{base58 owner}"
func signerKey(owner crypto.PublicKey) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixSigner, owner))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
