// Package tradetest provides in-memory stand-ins for the external
// collaborators of trade.Trader.
package tradetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/uhyunpark/airship/pkg/chain"
	"github.com/uhyunpark/airship/pkg/chain/chaintest"
	"github.com/uhyunpark/airship/pkg/crypto"
	"github.com/uhyunpark/airship/pkg/keystore"
	"github.com/uhyunpark/airship/pkg/limitorder"
)

// FakeProvider builds transactions requiring the real signers and records calls
type FakeProvider struct {
	mu sync.Mutex

	Open    []limitorder.Order
	History []limitorder.OrderHistoryItem
	Err     error // returned by every call when set

	Created   []limitorder.CreateOrderParams
	Cancelled []limitorder.CancelOrderParams
	Queries   []limitorder.HistoryQuery
}

var _ limitorder.Provider = (*FakeProvider)(nil)

func (f *FakeProvider) CreateOrder(_ context.Context, p limitorder.CreateOrderParams) (*limitorder.CreateOrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Created = append(f.Created, p)

	tx, err := chain.DecodeTransaction(chaintest.UnsignedTx(0, []crypto.PublicKey{p.Owner, p.Base}))
	if err != nil {
		return nil, err
	}
	order, _ := crypto.GenerateKeypair()
	return &limitorder.CreateOrderResult{Tx: tx, OrderPubKey: order.PublicKey()}, nil
}

func (f *FakeProvider) GetOrders(_ context.Context, filters ...limitorder.OrderFilter) ([]limitorder.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []limitorder.Order
	for _, o := range f.Open {
		if matches(o, filters) {
			out = append(out, o)
		}
	}
	return out, nil
}

func matches(o limitorder.Order, filters []limitorder.OrderFilter) bool {
	for _, f := range filters {
		if f.Owner != nil && *f.Owner != o.Account.Maker {
			return false
		}
	}
	return true
}

func (f *FakeProvider) GetOrderHistory(_ context.Context, q limitorder.HistoryQuery) ([]limitorder.OrderHistoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Queries = append(f.Queries, q)

	var out []limitorder.OrderHistoryItem
	for _, h := range f.History {
		if h.Maker == q.Wallet && len(out) < q.PageSize() {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *FakeProvider) CancelOrder(_ context.Context, p limitorder.CancelOrderParams) (*chain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Cancelled = append(f.Cancelled, p)
	return chain.DecodeTransaction(chaintest.UnsignedTx(0, []crypto.PublicKey{p.Owner}))
}

// FakeSubmitter signs locally and pretends the network confirmed
type FakeSubmitter struct {
	mu   sync.Mutex
	Err  error
	Sent []*chain.Transaction
}

func (s *FakeSubmitter) SendAndConfirmTransaction(_ context.Context, tx *chain.Transaction, signers ...*crypto.Keypair) (string, error) {
	if err := tx.PartialSign(signers...); err != nil {
		return "", err
	}
	if missing := tx.MissingSigners(); len(missing) > 0 {
		return "", fmt.Errorf("missing signatures from %v", missing)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.Sent = append(s.Sent, tx)
	id, err := tx.ID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// MemKeyring is a map-backed keyring
type MemKeyring struct {
	mu   sync.RWMutex
	keys map[crypto.PublicKey]*crypto.Keypair
}

func NewMemKeyring(kps ...*crypto.Keypair) *MemKeyring {
	k := &MemKeyring{keys: make(map[crypto.PublicKey]*crypto.Keypair)}
	for _, kp := range kps {
		k.keys[kp.PublicKey()] = kp
	}
	return k
}

func (k *MemKeyring) Signer(owner crypto.PublicKey) (*crypto.Keypair, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	kp, ok := k.keys[owner]
	if !ok {
		return nil, fmt.Errorf("%w: %s", keystore.ErrSignerNotFound, owner)
	}
	return kp, nil
}
