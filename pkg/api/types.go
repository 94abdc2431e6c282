package api

import (
	"github.com/uhyunpark/airship/pkg/trade"
	"github.com/uhyunpark/airship/pkg/validate"
)

// API response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// CreateOrderResponse is returned by POST /createOrder
type CreateOrderResponse struct {
	Message     string `json:"message"` // "Order placed successfully TRX: <sig>"
	OrderPubKey string `json:"orderPubKey"`
	Txid        string `json:"txid"`
}

// CancelOrderResponse is returned by DELETE /cancel/{orderId}
type CancelOrderResponse struct {
	WasCancelled bool `json:"wasCancelled"`
}

// HealthResponse reports whether the network node is reachable
type HealthResponse struct {
	Status  string `json:"status"`  // "ok" | "degraded"
	Network string `json:"network"` // "ok" or the health check error
}

// ErrorResponse is returned for all errors.
// Errors is set only for validation failures.
type ErrorResponse struct {
	ErrorMessage string                `json:"errorMessage"`
	Errors       []validate.FieldError `json:"errors,omitempty"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["orders:<owner>"]
}

// OrderUpdate is broadcast on orders:<owner> after a confirmed transaction
type OrderUpdate struct {
	Type        string `json:"type"` // "order_created" | "order_cancelled"
	Owner       string `json:"owner"`
	OrderPubKey string `json:"orderPubKey"`
	Signature   string `json:"signature"`
	Timestamp   int64  `json:"timestamp"` // Unix milliseconds
}

func orderUpdate(ev trade.Event) OrderUpdate {
	return OrderUpdate{
		Type:        ev.Type,
		Owner:       ev.Owner.String(),
		OrderPubKey: ev.OrderPubKey.String(),
		Signature:   ev.Signature,
		Timestamp:   ev.Timestamp,
	}
}

// OrdersChannel is the websocket channel carrying owner's order events
func OrdersChannel(owner string) string {
	return "orders:" + owner
}
