// Package limitorder is the client side of the external limit-order protocol.
// Order matching, transaction construction and settlement happen behind it.
package limitorder

import (
	"context"

	"github.com/uhyunpark/airship/pkg/chain"
)

// Provider is the external trading client. Transactions it returns are
// unsigned; the caller co-signs and submits them.
type Provider interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*CreateOrderResult, error)
	GetOrders(ctx context.Context, filters ...OrderFilter) ([]Order, error)
	GetOrderHistory(ctx context.Context, query HistoryQuery) ([]OrderHistoryItem, error)
	CancelOrder(ctx context.Context, params CancelOrderParams) (*chain.Transaction, error)
}
