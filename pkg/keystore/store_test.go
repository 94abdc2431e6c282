package keystore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/uhyunpark/airship/pkg/crypto"
)

// cheap scrypt cost keeps tests fast
func openTestStore(t *testing.T, dir, passphrase string) *Store {
	t.Helper()
	s, err := Open(dir, passphrase, WithScryptN(1<<10))
	if err != nil {
		t.Fatalf("open keystore: %v", err)
	}
	return s
}

func TestPutAndSigner(t *testing.T) {
	s := openTestStore(t, t.TempDir(), "hunter2")
	defer s.Close()

	kp, _ := crypto.GenerateKeypair()
	if err := s.Put(kp); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Signer(kp.PublicKey())
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	if got.PublicKey() != kp.PublicKey() {
		t.Errorf("public key = %s, want %s", got.PublicKey(), kp.PublicKey())
	}

	msg := []byte("sign me")
	if !crypto.Verify(kp.PublicKey(), msg, got.Sign(msg)) {
		t.Error("loaded key does not sign for owner")
	}
}

func TestSignerNotFound(t *testing.T) {
	s := openTestStore(t, t.TempDir(), "")
	defer s.Close()

	kp, _ := crypto.GenerateKeypair()
	_, err := s.Signer(kp.PublicKey())
	if !errors.Is(err, ErrSignerNotFound) {
		t.Fatalf("expected ErrSignerNotFound, got %v", err)
	}
}

func TestReopenRequiresSamePassphrase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ks")

	s := openTestStore(t, dir, "correct horse")
	kp, _ := crypto.GenerateKeypair()
	if err := s.Put(kp); err != nil {
		t.Fatalf("put: %v", err)
	}
	s.Close()

	if _, err := Open(dir, "wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}

	// cost is read back from the store, not from the option
	s = openTestStore(t, dir, "correct horse")
	defer s.Close()
	if _, err := s.Signer(kp.PublicKey()); err != nil {
		t.Fatalf("signer after reopen: %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t, t.TempDir(), "pw")
	defer s.Close()

	owners, err := s.List()
	if err != nil || len(owners) != 0 {
		t.Fatalf("empty store list = %v, %v", owners, err)
	}

	a, _ := crypto.GenerateKeypair()
	b, _ := crypto.GenerateKeypair()
	s.Put(a)
	s.Put(b)
	s.Put(a) // replace, not duplicate

	owners, err = s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(owners) != 2 {
		t.Fatalf("owners = %d, want 2", len(owners))
	}

	if err := s.Delete(a.PublicKey()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Signer(a.PublicKey()); !errors.Is(err, ErrSignerNotFound) {
		t.Errorf("deleted key still present: %v", err)
	}
	if err := s.Delete(a.PublicKey()); err != nil {
		t.Errorf("deleting twice: %v", err)
	}

	owners, _ = s.List()
	if len(owners) != 1 || owners[0] != b.PublicKey() {
		t.Errorf("owners after delete = %v", owners)
	}
}
