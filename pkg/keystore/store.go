// Package keystore keeps the custodial signing keys of order owners.
// Seeds are sealed with a key derived from the operator passphrase and are
// never returned over the API.
package keystore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/uhyunpark/airship/pkg/crypto"
)

// DefaultScryptN is the scrypt cost used for new stores
const DefaultScryptN = 1 << 15

var (
	ErrSignerNotFound  = errors.New("no signing key registered for owner")
	ErrWrongPassphrase = errors.New("keystore passphrase does not match")
)

var checkPlaintext = []byte("airship-keystore-v1")

type meta struct {
	Salt  []byte `json:"salt"`
	N     int    `json:"n"`
	Check []byte `json:"check"`
}

type sealedSeed struct {
	Box       []byte    `json:"box"` // nonce || secretbox(seed)
	CreatedAt time.Time `json:"createdAt"`
}

// Store is a Pebble-backed keystore. Safe for concurrent use.
type Store struct {
	db  *pebble.DB
	key [32]byte
	mu  sync.Mutex // serializes Put/Delete
}

type options struct {
	scryptN int
}

// Option tunes a newly created store
type Option func(*options)

// WithScryptN sets the scrypt cost for a store created by this Open.
// Existing stores keep the cost recorded at creation.
func WithScryptN(n int) Option {
	return func(o *options) { o.scryptN = n }
}

// Open opens or creates the keystore at path
func Open(path, passphrase string, opts ...Option) (*Store, error) {
	o := options{scryptN: DefaultScryptN}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore at %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.unlock(passphrase, o.scryptN); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) unlock(passphrase string, n int) error {
	var m meta
	found, err := s.getJSON([]byte(keyMeta), &m)
	if err != nil {
		return err
	}

	if !found {
		m = meta{Salt: make([]byte, 16), N: n}
		if _, err := io.ReadFull(rand.Reader, m.Salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	derived, err := scrypt.Key([]byte(passphrase), m.Salt, m.N, 8, 1, 32)
	if err != nil {
		return fmt.Errorf("failed to derive keystore key: %w", err)
	}
	copy(s.key[:], derived)

	if found {
		if _, err := s.open(m.Check); err != nil {
			return ErrWrongPassphrase
		}
		return nil
	}

	if m.Check, err = s.seal(checkPlaintext); err != nil {
		return err
	}
	return s.setJSON([]byte(keyMeta), m)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores kp, replacing any key already registered for the same owner
func (s *Store) Put(kp *crypto.Keypair) error {
	box, err := s.seal(kp.Seed())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setJSON(signerKey(kp.PublicKey()), sealedSeed{Box: box, CreatedAt: time.Now().UTC()})
}

// Signer returns the key pair registered for owner
func (s *Store) Signer(owner crypto.PublicKey) (*crypto.Keypair, error) {
	var rec sealedSeed
	found, err := s.getJSON(signerKey(owner), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSignerNotFound, owner)
	}

	seed, err := s.open(rec.Box)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal key for %s: %w", owner, err)
	}
	kp, err := crypto.KeypairFromSeed(seed)
	if err != nil {
		return nil, err
	}
	if kp.PublicKey() != owner {
		return nil, fmt.Errorf("keystore entry for %s holds key %s", owner, kp.PublicKey())
	}
	return kp, nil
}

// Delete removes owner's key; deleting an absent key is not an error
func (s *Store) Delete(owner crypto.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Delete(signerKey(owner), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// List returns every registered owner, in key order
func (s *Store) List() ([]crypto.PublicKey, error) {
	prefix := []byte(prefixSigner)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	owners := []crypto.PublicKey{}
	for iter.First(); iter.Valid(); iter.Next() {
		pk, err := crypto.ParsePublicKey(strings.TrimPrefix(string(iter.Key()), prefixSigner))
		if err != nil {
			continue // Skip foreign keys
		}
		owners = append(owners, pk)
	}
	return owners, iter.Error()
}

func (s *Store) seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

func (s *Store) open(box []byte) ([]byte, error) {
	if len(box) < 24+secretbox.Overhead {
		return nil, errors.New("sealed value too short")
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	out, ok := secretbox.Open(nil, box[24:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("sealed value failed authentication")
	}
	return out, nil
}

func (s *Store) getJSON(key []byte, v interface{}) (bool, error) {
	data, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	defer closer.Close()

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
