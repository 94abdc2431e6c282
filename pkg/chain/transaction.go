package chain

import (
	"encoding/base64"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/airship/pkg/crypto"
)

// LegacyVersion marks a message without a version prefix byte
const LegacyVersion = -1

// Transaction is a wire-format transaction built elsewhere (by the
// limit-order API). The gateway only co-signs and submits it.
type Transaction struct {
	tx *solana.Transaction
}

var ErrNotSigned = errors.New("transaction has no signatures")

// DecodeTransaction parses a serialized transaction
func DecodeTransaction(raw []byte) (*Transaction, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty transaction")
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Message.AccountKeys) < required {
		return nil, fmt.Errorf("message lists %d keys but requires %d signers",
			len(tx.Message.AccountKeys), required)
	}
	if len(tx.Signatures) != required {
		return nil, fmt.Errorf("transaction carries %d signature slots but message requires %d",
			len(tx.Signatures), required)
	}
	return &Transaction{tx: tx}, nil
}

// DecodeTransactionBase64 parses a base64 serialized transaction
func DecodeTransactionBase64(s string) (*Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 transaction: %w", err)
	}
	return DecodeTransaction(raw)
}

// Version is LegacyVersion or the versioned message number
func (tx *Transaction) Version() int {
	if tx.tx.Message.IsVersioned() && tx.tx.Message.GetVersion() == solana.MessageVersionV0 {
		return 0
	}
	return LegacyVersion
}

// AccountKeys are the static account keys of the message, signers first
func (tx *Transaction) AccountKeys() []crypto.PublicKey {
	keys := make([]crypto.PublicKey, len(tx.tx.Message.AccountKeys))
	for i, k := range tx.tx.Message.AccountKeys {
		keys[i] = crypto.PublicKey(k)
	}
	return keys
}

// Signers returns the public keys whose signatures the message requires,
// in signature slot order
func (tx *Transaction) Signers() []crypto.PublicKey {
	return tx.AccountKeys()[:tx.tx.Message.Header.NumRequiredSignatures]
}

// Signatures returns a copy of the signature slots
func (tx *Transaction) Signatures() []crypto.Signature {
	sigs := make([]crypto.Signature, len(tx.tx.Signatures))
	for i, s := range tx.tx.Signatures {
		sigs[i] = crypto.Signature(s)
	}
	return sigs
}

// Message is the serialized message, the bytes every signer signs
func (tx *Transaction) Message() ([]byte, error) {
	return tx.tx.Message.MarshalBinary()
}

func (tx *Transaction) signerIndex(pk crypto.PublicKey) int {
	for i, s := range tx.Signers() {
		if s == pk {
			return i
		}
	}
	return -1
}

// PartialSign fills the signature slot of every given key pair.
// Fails without modifying the transaction if any key is not a required signer.
func (tx *Transaction) PartialSign(signers ...*crypto.Keypair) error {
	keys := make(map[solana.PublicKey]solana.PrivateKey, len(signers))
	for _, kp := range signers {
		if tx.signerIndex(kp.PublicKey()) < 0 {
			return fmt.Errorf("%s is not a required signer of this transaction", kp.PublicKey())
		}
		keys[solana.PublicKey(kp.PublicKey())] = solana.PrivateKey(kp.PrivateKey())
	}

	_, err := tx.tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if pk, ok := keys[key]; ok {
			return &pk
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	return nil
}

// MissingSigners lists required signers whose slot is still empty
func (tx *Transaction) MissingSigners() []crypto.PublicKey {
	var missing []crypto.PublicKey
	for i, s := range tx.Signers() {
		if crypto.Signature(tx.tx.Signatures[i]).IsZero() {
			missing = append(missing, s)
		}
	}
	return missing
}

// ID is the fee payer's signature, which the network uses as transaction id
func (tx *Transaction) ID() (crypto.Signature, error) {
	if len(tx.tx.Signatures) == 0 || crypto.Signature(tx.tx.Signatures[0]).IsZero() {
		return crypto.Signature{}, ErrNotSigned
	}
	return crypto.Signature(tx.tx.Signatures[0]), nil
}

// Serialize encodes the transaction in wire format
func (tx *Transaction) Serialize() ([]byte, error) {
	return tx.tx.MarshalBinary()
}

// Base64 is Serialize encoded for JSON-RPC submission
func (tx *Transaction) Base64() (string, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
