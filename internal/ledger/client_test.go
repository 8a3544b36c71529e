package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeNode is a scriptable XRPL JSON-RPC endpoint.
type fakeNode struct {
	t *testing.T

	submitResult map[string]any
	txResult     map[string]any

	submitCalls int
	lastTxJSON  map[string]any
}

func (n *fakeNode) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string           `json:"method"`
			Params []map[string]any `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			n.t.Errorf("bad rpc request: %v", err)
		}

		var result map[string]any
		switch req.Method {
		case "wallet_propose":
			result = map[string]any{"status": "success", "account_id": "rOWNER1"}
		case "submit":
			n.submitCalls++
			if tx, ok := req.Params[0]["tx_json"].(map[string]any); ok {
				n.lastTxJSON = tx
			}
			result = n.submitResult
		case "tx":
			result = n.txResult
		default:
			n.t.Errorf("unexpected rpc method %q", req.Method)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	}
}

func newTestClient(t *testing.T, node *fakeNode) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(node.handler())
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, srv.URL+"/accounts", ClientOptions{
		Timeout:      2 * time.Second,
		PollInterval: time.Millisecond,
		PollAttempts: 3,
	}, zap.NewNop())
	return client, srv
}

func acceptedSubmit() map[string]any {
	return map[string]any{
		"status":        "success",
		"engine_result": "tesSUCCESS",
		"tx_json":       map[string]any{"hash": "ABC123"},
	}
}

func TestSubmitEscrowCreate(t *testing.T) {
	node := &fakeNode{
		t:            t,
		submitResult: acceptedSubmit(),
		txResult: map[string]any{
			"status":    "success",
			"validated": true,
			"hash":      "ABC123",
			"Sequence":  float64(5),
		},
	}
	client, _ := newTestClient(t, node)

	res, err := client.SubmitEscrowCreate(context.Background(), NewCredential("sSEED"), "rDEST1", "1000000", "Y29uZA==")
	if err != nil {
		t.Fatalf("SubmitEscrowCreate: %v", err)
	}
	if res.TxHash != "ABC123" {
		t.Errorf("TxHash = %q, want ABC123", res.TxHash)
	}
	if res.OwnerAddress != "rOWNER1" {
		t.Errorf("OwnerAddress = %q, want rOWNER1", res.OwnerAddress)
	}
	if res.OfferSequence != 5 {
		t.Errorf("OfferSequence = %d, want 5", res.OfferSequence)
	}

	if node.lastTxJSON["TransactionType"] != "EscrowCreate" {
		t.Errorf("TransactionType = %v", node.lastTxJSON["TransactionType"])
	}
	if node.lastTxJSON["Condition"] != "Y29uZA==" {
		t.Errorf("Condition = %v", node.lastTxJSON["Condition"])
	}
	if _, ok := node.lastTxJSON["Fulfillment"]; ok {
		t.Error("EscrowCreate must not carry the fulfillment")
	}
}

func TestSubmitEscrowCreateSequenceFallback(t *testing.T) {
	node := &fakeNode{
		t:            t,
		submitResult: acceptedSubmit(),
		txResult: map[string]any{
			"status":    "success",
			"validated": true,
			"hash":      "ABC123",
			"tx_json":   map[string]any{"Sequence": float64(9)},
		},
	}
	client, _ := newTestClient(t, node)

	res, err := client.SubmitEscrowCreate(context.Background(), NewCredential("sSEED"), "rDEST1", "1000000", "Y29uZA==")
	if err != nil {
		t.Fatalf("SubmitEscrowCreate: %v", err)
	}
	if res.OfferSequence != 9 {
		t.Errorf("OfferSequence = %d, want 9 (from tx_json)", res.OfferSequence)
	}
}

func TestSubmitEscrowCreateSequenceUnavailable(t *testing.T) {
	node := &fakeNode{
		t:            t,
		submitResult: acceptedSubmit(),
		txResult: map[string]any{
			"status":    "success",
			"validated": true,
			"hash":      "ABC123",
		},
	}
	client, _ := newTestClient(t, node)

	_, err := client.SubmitEscrowCreate(context.Background(), NewCredential("sSEED"), "rDEST1", "1000000", "Y29uZA==")
	if !errors.Is(err, ErrSequenceUnavailable) {
		t.Fatalf("err = %v, want ErrSequenceUnavailable", err)
	}
}

func TestSubmitRejectedByEngine(t *testing.T) {
	node := &fakeNode{
		t: t,
		submitResult: map[string]any{
			"status":                "success",
			"engine_result":         "tecNO_PERMISSION",
			"engine_result_message": "No permission to finish this escrow.",
		},
	}
	client, _ := newTestClient(t, node)

	_, err := client.SubmitEscrowRelease(context.Background(), NewCredential("sSEED"), "rOWNER1", 5, "c2VjcmV0")
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("err = %v, want ErrSubmissionFailed", err)
	}
}

func TestSubmitNeverValidated(t *testing.T) {
	node := &fakeNode{
		t:            t,
		submitResult: acceptedSubmit(),
		txResult:     map[string]any{"status": "success", "validated": false},
	}
	client, _ := newTestClient(t, node)

	_, err := client.SubmitEscrowRelease(context.Background(), NewCredential("sSEED"), "rOWNER1", 5, "c2VjcmV0")
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("err = %v, want ErrSubmissionFailed after poll budget", err)
	}
}

func TestSubmitEscrowRelease(t *testing.T) {
	node := &fakeNode{
		t:            t,
		submitResult: acceptedSubmit(),
		txResult: map[string]any{
			"status":    "success",
			"validated": true,
			"hash":      "ABC123",
		},
	}
	client, _ := newTestClient(t, node)

	res, err := client.SubmitEscrowRelease(context.Background(), NewCredential("sSEED"), "rOWNER1", 5, "c2VjcmV0")
	if err != nil {
		t.Fatalf("SubmitEscrowRelease: %v", err)
	}
	if res.TxHash != "ABC123" {
		t.Errorf("TxHash = %q, want ABC123", res.TxHash)
	}

	if node.lastTxJSON["TransactionType"] != "EscrowFinish" {
		t.Errorf("TransactionType = %v", node.lastTxJSON["TransactionType"])
	}
	if node.lastTxJSON["Owner"] != "rOWNER1" {
		t.Errorf("Owner = %v", node.lastTxJSON["Owner"])
	}
	if node.lastTxJSON["Fulfillment"] != "c2VjcmV0" {
		t.Errorf("Fulfillment = %v", node.lastTxJSON["Fulfillment"])
	}
}

func TestFundWallet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("faucet called with %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"account": map[string]any{
				"classicAddress": "rNEW1",
				"secret":         "sNEWSEED",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL+"/accounts", ClientOptions{}, zap.NewNop())
	w, err := client.FundWallet(context.Background())
	if err != nil {
		t.Fatalf("FundWallet: %v", err)
	}
	if w.Address != "rNEW1" || w.Seed != "sNEWSEED" {
		t.Errorf("wallet = %+v", w)
	}
}

func TestCredentialRedaction(t *testing.T) {
	cred := NewCredential("sVERYSECRET")
	if got := cred.String(); got != "[redacted]" {
		t.Errorf("String() = %q", got)
	}
	raw, err := json.Marshal(cred)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"[redacted]"` {
		t.Errorf("MarshalJSON = %s", raw)
	}
}
