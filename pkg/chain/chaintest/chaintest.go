// Package chaintest builds wire-format transactions for tests.
package chaintest

import (
	"encoding/base64"

	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/airship/pkg/crypto"
)

// Legacy selects a message without a version prefix
const Legacy = -1

func message(version int, signers []crypto.PublicKey, others []crypto.PublicKey) *solana.Message {
	keys := make(solana.PublicKeySlice, 0, len(signers)+len(others))
	for _, k := range signers {
		keys = append(keys, solana.PublicKey(k))
	}
	for _, k := range others {
		keys = append(keys, solana.PublicKey(k))
	}

	msg := &solana.Message{
		AccountKeys: keys,
		Header: solana.MessageHeader{
			NumRequiredSignatures:       uint8(len(signers)),
			NumReadonlyUnsignedAccounts: uint8(len(others)),
		},
	}
	if version != Legacy {
		msg.SetVersion(solana.MessageVersionV0)
	}
	return msg
}

// Message assembles a minimal message: header, keys, zero blockhash, no instructions.
func Message(version int, signers []crypto.PublicKey, others ...crypto.PublicKey) []byte {
	raw, err := message(version, signers, others).MarshalBinary()
	if err != nil {
		panic(err)
	}
	return raw
}

// UnsignedTx is a serialized transaction with empty signature slots
func UnsignedTx(version int, signers []crypto.PublicKey, others ...crypto.PublicKey) []byte {
	tx := solana.Transaction{
		Signatures: make([]solana.Signature, len(signers)),
		Message:    *message(version, signers, others),
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return raw
}

// UnsignedTxBase64 is UnsignedTx as the limit-order API returns it
func UnsignedTxBase64(signers []crypto.PublicKey, others ...crypto.PublicKey) string {
	return base64.StdEncoding.EncodeToString(UnsignedTx(0, signers, others...))
}
