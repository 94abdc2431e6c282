package chain

import (
	"bytes"
	"errors"
	"testing"

	"github.com/uhyunpark/airship/pkg/crypto"
)

func TestDecodeTransaction(t *testing.T) {
	owner := mustKeypair(t)
	base := mustKeypair(t)
	program := mustKeypair(t).PublicKey()

	for _, version := range []int{LegacyVersion, 0} {
		raw := buildUnsignedTx(version, []crypto.PublicKey{owner.PublicKey(), base.PublicKey()}, program)

		tx, err := DecodeTransaction(raw)
		if err != nil {
			t.Fatalf("version %d: decode: %v", version, err)
		}
		if tx.Version() != version {
			t.Errorf("version = %d, want %d", tx.Version(), version)
		}
		if len(tx.Signers()) != 2 {
			t.Errorf("required signatures = %d, want 2", len(tx.Signers()))
		}
		if keys := tx.AccountKeys(); len(keys) != 3 || keys[2] != program {
			t.Errorf("account keys not decoded: %v", keys)
		}
		if got := tx.MissingSigners(); len(got) != 2 {
			t.Errorf("missing signers = %d, want 2", len(got))
		}
		out, err := tx.Serialize()
		if err != nil {
			t.Fatalf("serialize: %v", err)
		}
		if !bytes.Equal(out, raw) {
			t.Error("serialize does not reproduce input")
		}
	}
}

func TestDecodeTransaction_Malformed(t *testing.T) {
	owner := mustKeypair(t)
	raw := buildUnsignedTx(LegacyVersion, []crypto.PublicKey{owner.PublicKey()})

	cases := map[string][]byte{
		"empty":              {},
		"signatures cut off": raw[:10],
		"no message":         raw[:1+crypto.SignatureSize],
		"keys cut off":       raw[:1+crypto.SignatureSize+5],
	}
	for name, in := range cases {
		if _, err := DecodeTransaction(in); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	// signature slots disagree with header
	bad := append([]byte{2}, make([]byte, 2*crypto.SignatureSize)...)
	bad = append(bad, buildMessage(LegacyVersion, []crypto.PublicKey{owner.PublicKey()})...)
	if _, err := DecodeTransaction(bad); err == nil {
		t.Error("expected error for signature count mismatch")
	}

	if _, err := DecodeTransactionBase64("%%%"); err == nil {
		t.Error("expected error for bad base64")
	}
}

func TestPartialSign(t *testing.T) {
	owner := mustKeypair(t)
	base := mustKeypair(t)
	raw := buildUnsignedTx(0, []crypto.PublicKey{owner.PublicKey(), base.PublicKey()})

	tx, err := DecodeTransaction(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if _, err := tx.ID(); !errors.Is(err, ErrNotSigned) {
		t.Errorf("ID before signing: got %v, want ErrNotSigned", err)
	}

	// signing order must not matter
	if err := tx.PartialSign(base, owner); err != nil {
		t.Fatalf("partial sign: %v", err)
	}
	if missing := tx.MissingSigners(); len(missing) != 0 {
		t.Errorf("still missing %v", missing)
	}
	msg, err := tx.Message()
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	sigs := tx.Signatures()
	if !crypto.Verify(owner.PublicKey(), msg, sigs[0]) {
		t.Error("owner signature not in slot 0")
	}
	if !crypto.Verify(base.PublicKey(), msg, sigs[1]) {
		t.Error("base signature not in slot 1")
	}

	id, err := tx.ID()
	if err != nil || id != sigs[0] {
		t.Errorf("ID = %s, %v; want first signature", id, err)
	}

	encoded, err := tx.Base64()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeTransactionBase64(encoded)
	if err != nil {
		t.Fatalf("decode signed: %v", err)
	}
	if back.Signatures()[1] != sigs[1] {
		t.Error("signatures lost in round trip")
	}
}

func TestPartialSign_RejectsStranger(t *testing.T) {
	owner := mustKeypair(t)
	stranger := mustKeypair(t)
	tx, _ := DecodeTransaction(buildUnsignedTx(LegacyVersion, []crypto.PublicKey{owner.PublicKey()}))

	if err := tx.PartialSign(owner, stranger); err == nil {
		t.Fatal("expected error for non-signer")
	}
	if !tx.Signatures()[0].IsZero() {
		t.Error("transaction modified by failed PartialSign")
	}
}
