package limitorder

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/airship/pkg/chain"
	"github.com/uhyunpark/airship/pkg/crypto"
)

// History page sizes accepted by the limit-order API
const (
	DefaultHistoryTake = 20
	MaxHistoryTake     = 100
)

// CreateOrderParams describes a new limit order.
// Base is a fresh key that identifies the order account and co-signs its creation.
type CreateOrderParams struct {
	Owner      crypto.PublicKey `json:"owner"`
	InAmount   decimal.Decimal  `json:"inAmount"`
	OutAmount  decimal.Decimal  `json:"outAmount"`
	InputMint  crypto.PublicKey `json:"inputMint"`
	OutputMint crypto.PublicKey `json:"outputMint"`
	Base       crypto.PublicKey `json:"base"`
	ExpiredAt  *int64           `json:"expiredAt"` // unix seconds, nil = never
}

// CreateOrderResult is the unsigned creation transaction and the order it will open
type CreateOrderResult struct {
	Tx          *chain.Transaction
	OrderPubKey crypto.PublicKey
}

// CancelOrderParams identifies an order to close
type CancelOrderParams struct {
	Owner       crypto.PublicKey `json:"owner"`
	OrderPubKey crypto.PublicKey `json:"orderPubKey"`
}

// OrderFilter narrows GetOrders; nil fields match everything
type OrderFilter struct {
	Owner      *crypto.PublicKey
	InputMint  *crypto.PublicKey
	OutputMint *crypto.PublicKey
}

// OwnerFilter matches orders made by owner
func OwnerFilter(owner crypto.PublicKey) OrderFilter {
	return OrderFilter{Owner: &owner}
}

// Order is an open order account
type Order struct {
	PublicKey crypto.PublicKey `json:"publicKey"`
	Account   OrderAccount     `json:"account"`
}

// OrderAccount is the on-chain state of an open order
type OrderAccount struct {
	Maker        crypto.PublicKey `json:"maker"`
	InputMint    crypto.PublicKey `json:"inputMint"`
	OutputMint   crypto.PublicKey `json:"outputMint"`
	OriInAmount  decimal.Decimal  `json:"oriInAmount"`
	OriOutAmount decimal.Decimal  `json:"oriOutAmount"`
	InAmount     decimal.Decimal  `json:"inAmount"`
	OutAmount    decimal.Decimal  `json:"outAmount"`
	ExpiredAt    *int64           `json:"expiredAt"`
	Base         crypto.PublicKey `json:"base"`
}

// OrderHistoryItem is a filled, cancelled or expired order
type OrderHistoryItem struct {
	ID           int64            `json:"id"`
	OrderKey     crypto.PublicKey `json:"orderKey"`
	Maker        crypto.PublicKey `json:"maker"`
	InputMint    crypto.PublicKey `json:"inputMint"`
	OutputMint   crypto.PublicKey `json:"outputMint"`
	InAmount     decimal.Decimal  `json:"inAmount"`
	OriInAmount  decimal.Decimal  `json:"oriInAmount"`
	OutAmount    decimal.Decimal  `json:"outAmount"`
	OriOutAmount decimal.Decimal  `json:"oriOutAmount"`
	ExpiredAt    *time.Time       `json:"expiredAt"`
	State        string           `json:"state"` // "Completed" | "Cancelled" | "Expired"
	CreateTxid   string           `json:"createTxid"`
	CancelTxid   string           `json:"cancelTxid,omitempty"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// HistoryQuery pages through a wallet's order history.
// LastCursor is opaque: the id of the last item of the previous page.
type HistoryQuery struct {
	Wallet     crypto.PublicKey
	Take       int
	LastCursor string
}

// PageSize clamps Take into the accepted range
func (q HistoryQuery) PageSize() int {
	switch {
	case q.Take <= 0:
		return DefaultHistoryTake
	case q.Take > MaxHistoryTake:
		return MaxHistoryTake
	}
	return q.Take
}
