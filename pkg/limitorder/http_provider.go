package limitorder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/uhyunpark/airship/pkg/chain"
	"github.com/uhyunpark/airship/pkg/crypto"
)

const headerKeyRequestID = "X-Request-Id"

// APIError is a non-2xx answer from the limit-order API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("limit order api: %d %s", e.StatusCode, e.Message)
}

type requestIDKey struct{}

// WithRequestID tags ctx so outgoing calls carry the inbound request id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// HTTPProvider talks to the limit-order REST API
type HTTPProvider struct {
	baseURL string
	client  *resty.Client
	logger  *zap.SugaredLogger
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider creates a provider rooted at baseURL
func NewHTTPProvider(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *HTTPProvider {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

type txResponse struct {
	Tx          string `json:"tx"`
	OrderPubkey string `json:"orderPubkey,omitempty"`
}

// CreateOrder asks the API to build the order-creation transaction
func (p *HTTPProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*CreateOrderResult, error) {
	var out txResponse
	if err := p.execute(ctx, http.MethodPost, "/createOrder", nil, params, &out); err != nil {
		return nil, err
	}

	tx, err := chain.DecodeTransactionBase64(out.Tx)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	orderKey, err := crypto.ParsePublicKey(out.OrderPubkey)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &CreateOrderResult{Tx: tx, OrderPubKey: orderKey}, nil
}

type cancelRequest struct {
	Owner    crypto.PublicKey   `json:"owner"`
	FeePayer crypto.PublicKey   `json:"feePayer"`
	Orders   []crypto.PublicKey `json:"orders"`
}

// CancelOrder asks the API to build the cancellation transaction; the owner pays fees
func (p *HTTPProvider) CancelOrder(ctx context.Context, params CancelOrderParams) (*chain.Transaction, error) {
	body := cancelRequest{
		Owner:    params.Owner,
		FeePayer: params.Owner,
		Orders:   []crypto.PublicKey{params.OrderPubKey},
	}

	var out txResponse
	if err := p.execute(ctx, http.MethodPost, "/cancelOrders", nil, body, &out); err != nil {
		return nil, err
	}

	tx, err := chain.DecodeTransactionBase64(out.Tx)
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	return tx, nil
}

// GetOrders lists open orders matching every filter
func (p *HTTPProvider) GetOrders(ctx context.Context, filters ...OrderFilter) ([]Order, error) {
	query := map[string]string{}
	for _, f := range filters {
		if f.Owner != nil {
			query["wallet"] = f.Owner.String()
		}
		if f.InputMint != nil {
			query["inputMint"] = f.InputMint.String()
		}
		if f.OutputMint != nil {
			query["outputMint"] = f.OutputMint.String()
		}
	}

	orders := []Order{}
	if err := p.execute(ctx, http.MethodGet, "/openOrders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrderHistory returns one page of a wallet's past orders
func (p *HTTPProvider) GetOrderHistory(ctx context.Context, q HistoryQuery) ([]OrderHistoryItem, error) {
	query := map[string]string{
		"wallet": q.Wallet.String(),
		"take":   strconv.Itoa(q.PageSize()),
	}
	if q.LastCursor != "" {
		query["cursor"] = q.LastCursor
	}

	items := []OrderHistoryItem{}
	if err := p.execute(ctx, http.MethodGet, "/orderHistory", query, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *HTTPProvider) execute(ctx context.Context, method, path string, query map[string]string, body, out interface{}) error {
	req := p.client.R().SetContext(ctx)
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		req.SetHeader(headerKeyRequestID, id)
	}
	if query != nil {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	url := p.baseURL + path
	start := time.Now()
	resp, err := req.Execute(method, url)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	p.logger.Debugw("limit_order_api",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"elapsed", time.Since(start))

	return parseResponse(resp, out)
}

func parseResponse(r *resty.Response, out interface{}) error {
	if !r.IsSuccess() {
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(r.Body()))
		if json.Unmarshal(r.Body(), &body) == nil {
			if body.Error != "" {
				msg = body.Error
			} else if body.Message != "" {
				msg = body.Message
			}
		}
		if msg == "" {
			msg = r.Status()
		}
		return &APIError{StatusCode: r.StatusCode(), Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", r.Request.URL, err)
	}
	return nil
}
