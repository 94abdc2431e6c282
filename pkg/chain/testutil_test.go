package chain

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/uhyunpark/airship/pkg/chain/chaintest"
	"github.com/uhyunpark/airship/pkg/crypto"
)

func buildMessage(version int, signers []crypto.PublicKey, others ...crypto.PublicKey) []byte {
	return chaintest.Message(version, signers, others...)
}

func buildUnsignedTx(version int, signers []crypto.PublicKey, others ...crypto.PublicKey) []byte {
	return chaintest.UnsignedTx(version, signers, others...)
}

func mustKeypair(t *testing.T) *crypto.Keypair {
	t.Helper()
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcHandler func(method string, params []json.RawMessage) (interface{}, *rpcError)

// fakeNode is an in-process JSON-RPC endpoint recording the methods it served
type fakeNode struct {
	*httptest.Server
	mu    sync.Mutex
	calls []string
}

func newFakeNode(t *testing.T, handle rpcHandler) *fakeNode {
	t.Helper()
	n := &fakeNode{}
	n.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n.mu.Lock()
		n.calls = append(n.calls, req.Method)
		n.mu.Unlock()

		result, rerr := handle(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(n.Close)
	return n
}

func (n *fakeNode) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}
