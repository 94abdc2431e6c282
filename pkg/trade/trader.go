// Package trade turns validated order requests into calls on the external
// limit-order client and the network.
package trade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uhyunpark/airship/pkg/chain"
	"github.com/uhyunpark/airship/pkg/crypto"
	"github.com/uhyunpark/airship/pkg/limitorder"
	"github.com/uhyunpark/airship/pkg/util"
	"github.com/uhyunpark/airship/pkg/validate"
)

// Submitter co-signs, sends and confirms a transaction
type Submitter interface {
	SendAndConfirmTransaction(ctx context.Context, tx *chain.Transaction, signers ...*crypto.Keypair) (string, error)
}

// Keyring resolves an owner's custodial signing key
type Keyring interface {
	Signer(owner crypto.PublicKey) (*crypto.Keypair, error)
}

// Event types published after a transaction is confirmed
const (
	EventOrderCreated   = "order_created"
	EventOrderCancelled = "order_cancelled"
)

// Event describes a confirmed order transaction
type Event struct {
	Type        string           `json:"type"`
	Owner       crypto.PublicKey `json:"owner"`
	OrderPubKey crypto.PublicKey `json:"orderPubKey"`
	Signature   string           `json:"signature"`
	Timestamp   int64            `json:"timestamp"` // Unix milliseconds
}

// CreateOrderResult is a confirmed order creation
type CreateOrderResult struct {
	Signature   string
	OrderPubKey crypto.PublicKey
}

// OrdersResult is everything known about an owner's orders
type OrdersResult struct {
	Open    []limitorder.Order
	History []limitorder.OrderHistoryItem
}

// Trader holds the process-wide handles every request shares.
// Nothing in it is mutated after construction.
type Trader struct {
	provider  limitorder.Provider
	submitter Submitter
	keys      Keyring
	logger    *zap.SugaredLogger

	// NewKeypair generates order base keys
	NewKeypair func() (*crypto.Keypair, error)

	// Clock stamps events
	Clock util.Clock

	// OnEvent is called after each confirmed transaction (optional)
	OnEvent func(Event)
}

// NewTrader wires a Trader
func NewTrader(provider limitorder.Provider, submitter Submitter, keys Keyring, logger *zap.SugaredLogger) *Trader {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Trader{
		provider:   provider,
		submitter:  submitter,
		keys:       keys,
		logger:     logger,
		NewKeypair: crypto.GenerateKeypair,
		Clock:      util.RealClock{},
	}
}

// CreateOrder opens a limit order for req.Owner.
// There is no idempotency key: if submission fails after the network
// accepted the transaction, a retry by the caller places a second order.
func (t *Trader) CreateOrder(ctx context.Context, req *validate.CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validate.ValidateCreateOrderFields(req); err != nil {
		return nil, err
	}

	params, err := createParams(req)
	if err != nil {
		return nil, err
	}

	ownerKey, err := t.keys.Signer(params.Owner)
	if err != nil {
		return nil, external("load owner key", err)
	}

	base, err := t.NewKeypair()
	if err != nil {
		return nil, external("generate base key", err)
	}
	params.Base = base.PublicKey()

	created, err := t.provider.CreateOrder(ctx, params)
	if err != nil {
		return nil, external("create order", err)
	}

	sig, err := t.submitter.SendAndConfirmTransaction(ctx, created.Tx, ownerKey, base)
	if err != nil {
		t.logger.Warnw("order_submit_failed",
			"owner", params.Owner,
			"order", created.OrderPubKey,
			"signature", sig,
			"err", err)
		return nil, external("submit order", err)
	}

	t.logger.Infow("order_placed",
		"owner", params.Owner,
		"order", created.OrderPubKey,
		"signature", sig)

	t.emit(EventOrderCreated, params.Owner, created.OrderPubKey, sig)
	return &CreateOrderResult{Signature: sig, OrderPubKey: created.OrderPubKey}, nil
}

// QueryOrders fetches open orders and one page of order history for owner
func (t *Trader) QueryOrders(ctx context.Context, owner string, take int, cursor string) (*OrdersResult, error) {
	pk, err := crypto.ParsePublicKey(owner)
	if err != nil {
		return nil, &validate.ValidationError{Fields: []validate.FieldError{{
			Field:   "owner",
			Rule:    "pubkey",
			Message: fmt.Sprintf("%q must be a valid base58 public key", "owner"),
		}}}
	}

	var res OrdersResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		open, err := t.provider.GetOrders(gctx, limitorder.OwnerFilter(pk))
		if err != nil {
			return external("get open orders", err)
		}
		res.Open = open
		return nil
	})
	g.Go(func() error {
		history, err := t.provider.GetOrderHistory(gctx, limitorder.HistoryQuery{
			Wallet:     pk,
			Take:       take,
			LastCursor: cursor,
		})
		if err != nil {
			return external("get order history", err)
		}
		res.History = history
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if res.Open == nil {
		res.Open = []limitorder.Order{}
	}
	if res.History == nil {
		res.History = []limitorder.OrderHistoryItem{}
	}
	return &res, nil
}

// CancelOrder closes an order and returns the cancellation signature.
// Whether the order existed is up to the protocol; a confirmed
// transaction is all this reports.
func (t *Trader) CancelOrder(ctx context.Context, req *validate.CancelOrderRequest) (string, error) {
	if err := validate.ValidateCancelOrderFields(req); err != nil {
		return "", err
	}

	owner, err := crypto.ParsePublicKey(req.Owner)
	if err != nil {
		return "", err
	}
	orderKey, err := crypto.ParsePublicKey(req.OrderPubKey)
	if err != nil {
		return "", err
	}

	ownerKey, err := t.keys.Signer(owner)
	if err != nil {
		return "", external("load owner key", err)
	}

	tx, err := t.provider.CancelOrder(ctx, limitorder.CancelOrderParams{Owner: owner, OrderPubKey: orderKey})
	if err != nil {
		return "", external("cancel order", err)
	}

	sig, err := t.submitter.SendAndConfirmTransaction(ctx, tx, ownerKey)
	if err != nil {
		return "", external("submit cancel", err)
	}

	t.logger.Infow("order_cancelled", "owner", owner, "order", orderKey, "signature", sig)
	t.emit(EventOrderCancelled, owner, orderKey, sig)
	return sig, nil
}

func (t *Trader) emit(typ string, owner, order crypto.PublicKey, sig string) {
	if t.OnEvent == nil {
		return
	}
	t.OnEvent(Event{
		Type:        typ,
		Owner:       owner,
		OrderPubKey: order,
		Signature:   sig,
		Timestamp:   t.Clock.Now().UnixMilli(),
	})
}

// createParams converts a validated request; Base is filled in by the caller
func createParams(req *validate.CreateOrderRequest) (limitorder.CreateOrderParams, error) {
	var p limitorder.CreateOrderParams
	var err error

	if p.Owner, err = crypto.ParsePublicKey(req.Owner); err != nil {
		return p, err
	}
	if p.InputMint, err = crypto.ParsePublicKey(req.InputMint); err != nil {
		return p, err
	}
	if p.OutputMint, err = crypto.ParsePublicKey(req.OutputMint); err != nil {
		return p, err
	}
	if p.InAmount, err = decimal.NewFromString(req.InAmount.String()); err != nil {
		return p, fmt.Errorf("inAmount: %w", err)
	}
	if p.OutAmount, err = decimal.NewFromString(req.OutAmount.String()); err != nil {
		return p, fmt.Errorf("outAmount: %w", err)
	}
	return p, nil
}
