package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/uhyunpark/airship/pkg/crypto"
	"github.com/uhyunpark/airship/pkg/util"
)

// Commitment is how settled a transaction must be before it counts
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

func (c Commitment) rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	}
	return 0
}

// ParseCommitment accepts only the three levels the network reports
func ParseCommitment(s string) (Commitment, error) {
	c := Commitment(s)
	if c.rank() == 0 {
		return "", fmt.Errorf("unknown commitment %q (want processed, confirmed or finalized)", s)
	}
	return c, nil
}

// Reached reports whether status c satisfies target.
// An unknown target is never reached.
func (c Commitment) Reached(target Commitment) bool {
	return c.rank() > 0 && target.rank() > 0 && c.rank() >= target.rank()
}

// ConnectionConfig configures the JSON-RPC connection
type ConnectionConfig struct {
	Endpoint       string
	Commitment     Commitment
	PollInterval   time.Duration
	ConfirmTimeout time.Duration // 0 = bounded by the caller's context only
	Clock          util.Clock
}

// SignatureStatus is one entry of a getSignatureStatuses reply
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus Commitment      `json:"confirmationStatus"`
}

// Failed reports whether the network executed the transaction with an error
func (s *SignatureStatus) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// TransactionError is returned when the network reports an execution error
type TransactionError struct {
	Signature string
	Detail    string
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Detail)
}

// Connection is the process-wide handle to the network's JSON-RPC endpoint.
// Safe for concurrent use.
type Connection struct {
	client *rpc.Client
	cfg    ConnectionConfig
	logger *zap.SugaredLogger
}

// Dial creates a connection; HTTP endpoints are not contacted until the first call
func Dial(ctx context.Context, cfg ConnectionConfig, logger *zap.SugaredLogger) (*Connection, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	client, err := rpc.DialContext(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Endpoint, err)
	}
	return NewConnection(client, cfg, logger)
}

func (cfg *ConnectionConfig) validate() error {
	if cfg.Commitment == "" {
		cfg.Commitment = CommitmentConfirmed
	}
	_, err := ParseCommitment(string(cfg.Commitment))
	return err
}

// NewConnection wraps an existing rpc client
func NewConnection(client *rpc.Client, cfg ConnectionConfig, logger *zap.SugaredLogger) (*Connection, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Connection{client: client, cfg: cfg, logger: logger}, nil
}

func (c *Connection) Close() { c.client.Close() }

// Health calls getHealth; the node answers "ok" when caught up
func (c *Connection) Health(ctx context.Context) error {
	var status string
	if err := c.client.CallContext(ctx, &status, "getHealth"); err != nil {
		return fmt.Errorf("getHealth: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("node unhealthy: %s", status)
	}
	return nil
}

// SendTransaction submits a fully signed transaction and returns its signature
func (c *Connection) SendTransaction(ctx context.Context, tx *Transaction) (string, error) {
	encoded, err := tx.Base64()
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}
	opts := map[string]interface{}{
		"encoding":            "base64",
		"preflightCommitment": c.cfg.Commitment,
	}

	var sig string
	if err := c.client.CallContext(ctx, &sig, "sendTransaction", encoded, opts); err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}
	return sig, nil
}

// SignatureStatus returns the status of sig, or nil if the network has not seen it
func (c *Connection) SignatureStatus(ctx context.Context, sig string) (*SignatureStatus, error) {
	var reply struct {
		Value []*SignatureStatus `json:"value"`
	}
	opts := map[string]bool{"searchTransactionHistory": false}
	if err := c.client.CallContext(ctx, &reply, "getSignatureStatuses", []string{sig}, opts); err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	if len(reply.Value) == 0 {
		return nil, nil
	}
	return reply.Value[0], nil
}

// ConfirmTransaction polls until sig reaches the configured commitment
func (c *Connection) ConfirmTransaction(ctx context.Context, sig string) error {
	if c.cfg.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
		defer cancel()
	}

	start := c.cfg.Clock.Now()
	for {
		status, err := c.SignatureStatus(ctx, sig)
		if err != nil {
			return err
		}
		if status != nil {
			if status.Failed() {
				return &TransactionError{Signature: sig, Detail: string(status.Err)}
			}
			if status.ConfirmationStatus.Reached(c.cfg.Commitment) {
				c.logger.Debugw("tx_confirmed",
					"signature", sig,
					"slot", status.Slot,
					"status", status.ConfirmationStatus,
					"elapsed", c.cfg.Clock.Now().Sub(start))
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s not confirmed: %w", sig, ctx.Err())
		case <-c.cfg.Clock.After(c.cfg.PollInterval):
		}
	}
}

// SendAndConfirmTransaction co-signs tx with signers, submits it and waits
// for confirmation. There is no retry: a failure after submission leaves the
// transaction's fate unknown to the caller.
func (c *Connection) SendAndConfirmTransaction(ctx context.Context, tx *Transaction, signers ...*crypto.Keypair) (string, error) {
	if err := tx.PartialSign(signers...); err != nil {
		return "", err
	}
	if missing := tx.MissingSigners(); len(missing) > 0 {
		return "", fmt.Errorf("transaction is missing signatures from %v", missing)
	}

	sig, err := c.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	c.logger.Infow("tx_submitted", "signature", sig)

	if err := c.ConfirmTransaction(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}
