// Package api exposes the order gateway over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/airship/pkg/trade"
	"github.com/uhyunpark/airship/pkg/validate"
)

const (
	healthTimeout   = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

// HealthChecker checks the network node
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options configures a Server
type Options struct {
	AllowedOrigins []string
	TxLogPath      string // "" disables the transaction log
}

// Server handles REST API and WebSocket connections
type Server struct {
	trader  *trade.Trader
	health  HealthChecker
	router  *mux.Router
	hub     *Hub
	metrics *Metrics
	opts    Options
	logger  *zap.SugaredLogger

	stopHub context.CancelFunc

	txMu  sync.Mutex
	txLog *os.File // Transaction log file
}

// NewServer creates a new API server, starts its websocket hub and
// subscribes it to trader's events. Call it before the trader serves any
// request, and Close it when done.
func NewServer(trader *trade.Trader, health HealthChecker, opts Options, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	hub := NewHub(logger)
	s := &Server{
		trader:  trader,
		health:  health,
		router:  mux.NewRouter(),
		hub:     hub,
		metrics: newMetrics(hub),
		opts:    opts,
		logger:  logger,
	}
	s.openTxLog()

	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go hub.Run(hubCtx)

	prev := trader.OnEvent
	trader.OnEvent = func(ev trade.Event) {
		if prev != nil {
			prev(ev)
		}
		s.onEvent(ev)
	}

	s.setupRoutes()
	return s
}

func (s *Server) openTxLog() {
	path := s.opts.TxLogPath
	if path == "" {
		return
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Warnw("tx_log_disabled", "path", path, "err", err)
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		// Continue without tx logging
		s.logger.Warnw("tx_log_disabled", "path", path, "err", err)
		return
	}
	s.txLog = f
	s.logger.Infow("tx_log_opened", "path", path)
}

func (s *Server) setupRoutes() {
	s.router.Use(withRequestID, accessLog(s.logger), s.metrics.middleware)

	// Order endpoints
	s.router.HandleFunc("/createOrder", s.handleCreateOrder).Methods("POST")
	s.router.HandleFunc("/order/{owner}", s.handleQueryOrders).Methods("GET")
	s.router.HandleFunc("/cancel/{orderId}", s.handleCancelOrder).Methods("DELETE")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Operations
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
}

// Handler returns the router wrapped in CORS handling
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Hub returns the websocket hub
func (s *Server) Hub() *Hub { return s.hub }

// Start serves addr until ctx is cancelled, then drains in-flight requests.
// Websocket clients stay connected until Close.
func (s *Server) Start(ctx context.Context, addr string) error {
	// no WriteTimeout: order writes block on network confirmation
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("api_server_listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Infow("api_server_stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close disconnects websocket clients and releases the transaction log
func (s *Server) Close() error {
	s.stopHub()
	<-s.hub.done

	s.txMu.Lock()
	defer s.txMu.Unlock()
	if s.txLog == nil {
		return nil
	}
	err := s.txLog.Close()
	s.txLog = nil
	return err
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	req, err := validate.DecodeCreateOrder(r.Body)
	if err != nil {
		s.fail(w, r, "create_order", err)
		return
	}

	res, err := s.trader.CreateOrder(r.Context(), req)
	if err != nil {
		s.fail(w, r, "create_order", err)
		return
	}

	s.logTransaction(r, "ORDER_CREATE", map[string]interface{}{
		"owner":       req.Owner,
		"order":       res.OrderPubKey.String(),
		"input_mint":  req.InputMint,
		"output_mint": req.OutputMint,
		"in_amount":   req.InAmount.String(),
		"out_amount":  req.OutAmount.String(),
		"signature":   res.Signature,
	})

	respondJSON(w, CreateOrderResponse{
		Message:     "Order placed successfully TRX: " + res.Signature,
		OrderPubKey: res.OrderPubKey.String(),
		Txid:        res.Signature,
	})
}

func (s *Server) handleQueryOrders(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]
	q := r.URL.Query()

	take := 0
	if raw := q.Get("take"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.fail(w, r, "query_orders", &validate.ValidationError{Fields: []validate.FieldError{{
				Field:   "take",
				Rule:    "number",
				Message: fmt.Sprintf("%q must be an unsigned integer", "take"),
			}}})
			return
		}
		take = n
	}

	res, err := s.trader.QueryOrders(r.Context(), owner, take, q.Get("cursor"))
	if err != nil {
		s.fail(w, r, "query_orders", err)
		return
	}

	// history items sit under "0".."n-1" next to the open orders
	body := make(map[string]interface{}, len(res.History)+1)
	for i, item := range res.History {
		body[strconv.Itoa(i)] = item
	}
	body["openOrders"] = res.Open

	respondJSON(w, body)
}

// handleCancelOrder ignores the {orderId} path segment; the body names the order.
func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	req, err := validate.DecodeCancelOrder(r.Body)
	if err != nil {
		s.fail(w, r, "cancel_order", err)
		return
	}

	sig, err := s.trader.CancelOrder(r.Context(), req)
	if err != nil {
		s.fail(w, r, "cancel_order", err)
		return
	}

	s.logTransaction(r, "ORDER_CANCEL", map[string]interface{}{
		"owner":     req.Owner,
		"order":     req.OrderPubKey,
		"path_id":   mux.Vars(r)["orderId"],
		"signature": sig,
	})

	respondJSON(w, CancelOrderResponse{WasCancelled: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		respondJSON(w, HealthResponse{Status: "ok", Network: "unchecked"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.health.Health(ctx); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(HealthResponse{Status: "degraded", Network: err.Error()})
		return
	}
	respondJSON(w, HealthResponse{Status: "ok", Network: "ok"})
}

// ==============================
// Event fan-out (called by the trader)
// ==============================

func (s *Server) onEvent(ev trade.Event) {
	s.metrics.Orders.WithLabelValues(ev.Type).Inc()
	s.hub.BroadcastToChannel(OrdersChannel(ev.Owner.String()), orderUpdate(ev))
}

// ==============================
// Helper Functions
// ==============================

// fail reports err as 500 {errorMessage}. Input errors and upstream
// failures share the status code; only the body tells them apart.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorResponse{ErrorMessage: err.Error()}

	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		resp.Errors = verr.Fields
		s.logger.Infow("request_invalid", "op", op, "request_id", RequestID(r.Context()), "err", err)
	} else {
		s.logger.Errorw("request_failed", "op", op, "request_id", RequestID(r.Context()), "err", err)
	}

	respondError(w, http.StatusInternalServerError, resp)
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// logTransaction writes a transaction event to the log file
func (s *Server) logTransaction(r *http.Request, eventType string, data map[string]interface{}) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if s.txLog == nil {
		return // Logging disabled
	}

	entry := map[string]interface{}{
		"timestamp":  time.Now().Format(time.RFC3339),
		"event":      eventType,
		"request_id": RequestID(r.Context()),
		"data":       data,
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warnw("tx_log_marshal_failed", "event", eventType, "err", err)
		return
	}

	// one JSON object per line
	jsonData = append(jsonData, '\n')
	if _, err := s.txLog.Write(jsonData); err != nil {
		s.logger.Warnw("tx_log_write_failed", "event", eventType, "err", err)
	}
}
