package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client speaks JSON-RPC to an XRPL node. Submission uses the node's
// sign-and-submit mode (tx_json + secret), then polls the tx method until
// the transaction is validated or the attempt budget runs out.
type Client struct {
	rpcURL       string
	faucetURL    string
	httpClient   *http.Client
	log          *zap.Logger
	pollInterval time.Duration
	pollAttempts int
}

var (
	_ Gateway = (*Client)(nil)
	_ Faucet  = (*Client)(nil)
)

type ClientOptions struct {
	Timeout      time.Duration // per HTTP call
	PollInterval time.Duration // between tx validation polls
	PollAttempts int
}

func NewClient(rpcURL, faucetURL string, opts ClientOptions, log *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = 20
	}
	return &Client{
		rpcURL:       strings.TrimRight(rpcURL, "/"),
		faucetURL:    faucetURL,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		log:          log,
		pollInterval: opts.PollInterval,
		pollAttempts: opts.PollAttempts,
	}
}

func (c *Client) SubmitEscrowCreate(ctx context.Context, cred Credential, destination, amountDrops, conditionB64 string) (*CreateResult, error) {
	account, err := c.resolveAddress(ctx, cred)
	if err != nil {
		return nil, err
	}

	txJSON := map[string]any{
		"TransactionType": "EscrowCreate",
		"Account":         account,
		"Destination":     destination,
		"Amount":          amountDrops,
		"Condition":       conditionB64,
	}

	settled, err := c.submitAndWait(ctx, cred, txJSON)
	if err != nil {
		return nil, err
	}

	hash, ok := stringField(settled, "hash")
	if !ok {
		return nil, fmt.Errorf("%w: validated response missing hash", ErrSubmissionFailed)
	}

	// The sequence that identifies this escrow among the owner's
	// transactions moves around between node versions; check every known
	// location before giving up.
	seq, ok := sequenceField(settled)
	if !ok {
		return nil, fmt.Errorf("%w: tx %s", ErrSequenceUnavailable, hash)
	}

	return &CreateResult{
		TxHash:        hash,
		OwnerAddress:  account,
		OfferSequence: seq,
	}, nil
}

func (c *Client) SubmitEscrowRelease(ctx context.Context, cred Credential, ownerAddress string, offerSequence uint32, fulfillmentB64 string) (*ReleaseResult, error) {
	account, err := c.resolveAddress(ctx, cred)
	if err != nil {
		return nil, err
	}

	txJSON := map[string]any{
		"TransactionType": "EscrowFinish",
		"Account":         account,
		"Owner":           ownerAddress,
		"OfferSequence":   offerSequence,
		"Fulfillment":     fulfillmentB64,
	}

	settled, err := c.submitAndWait(ctx, cred, txJSON)
	if err != nil {
		return nil, err
	}

	hash, ok := stringField(settled, "hash")
	if !ok {
		return nil, fmt.Errorf("%w: validated response missing hash", ErrSubmissionFailed)
	}
	return &ReleaseResult{TxHash: hash}, nil
}

// resolveAddress derives the classic address for a seed via wallet_propose,
// so the caller never has to pass the address alongside the credential.
func (c *Client) resolveAddress(ctx context.Context, cred Credential) (string, error) {
	if cred.Empty() {
		return "", fmt.Errorf("%w: empty credential", ErrSubmissionFailed)
	}
	result, err := c.call(ctx, "wallet_propose", map[string]any{"seed": cred.seed})
	if err != nil {
		return "", err
	}
	addr, ok := stringField(result, "account_id")
	if !ok {
		return "", fmt.Errorf("%w: wallet_propose returned no account_id", ErrSubmissionFailed)
	}
	return addr, nil
}

// submitAndWait signs and submits tx_json, then polls until the transaction
// is validated. Returns the validated tx result object.
func (c *Client) submitAndWait(ctx context.Context, cred Credential, txJSON map[string]any) (map[string]any, error) {
	result, err := c.call(ctx, "submit", map[string]any{
		"tx_json": txJSON,
		"secret":  cred.seed,
	})
	if err != nil {
		return nil, err
	}

	engine, _ := stringField(result, "engine_result")
	if !strings.HasPrefix(engine, "tes") {
		msg, _ := stringField(result, "engine_result_message")
		return nil, fmt.Errorf("%w: %s %s", ErrSubmissionFailed, engine, msg)
	}

	submitted, ok := result["tx_json"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: submit response missing tx_json", ErrSubmissionFailed)
	}
	hash, ok := stringField(submitted, "hash")
	if !ok {
		return nil, fmt.Errorf("%w: submit response missing tx hash", ErrSubmissionFailed)
	}

	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		tx, err := c.call(ctx, "tx", map[string]any{"transaction": hash, "binary": false})
		if err == nil {
			if validated, _ := tx["validated"].(bool); validated {
				if _, ok := stringField(tx, "hash"); !ok {
					tx["hash"] = hash
				}
				return tx, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}

	c.log.Warn("transaction not validated within poll budget",
		zap.String("tx_hash", hash),
		zap.Int("attempts", c.pollAttempts))
	return nil, fmt.Errorf("%w: tx %s not validated in time", ErrSubmissionFailed, hash)
}

type rpcRequest struct {
	Method string           `json:"method"`
	Params []map[string]any `json:"params"`
}

type rpcResponse struct {
	Result map[string]any `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	body, err := json.Marshal(rpcRequest{Method: method, Params: []map[string]any{params}})
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s request: %v", ErrSubmissionFailed, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: node unreachable: %v", ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: node returned %d: %s", ErrSubmissionFailed, resp.StatusCode, string(raw))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", ErrSubmissionFailed, method, err)
	}
	if rpcResp.Result == nil {
		return nil, fmt.Errorf("%w: %s response missing result", ErrSubmissionFailed, method)
	}

	if status, _ := stringField(rpcResp.Result, "status"); status == "error" {
		code, _ := stringField(rpcResp.Result, "error")
		msg, _ := stringField(rpcResp.Result, "error_message")
		return nil, fmt.Errorf("%w: %s: %s %s", ErrSubmissionFailed, method, code, msg)
	}

	return rpcResp.Result, nil
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok && v != ""
}

// sequenceField extracts the escrow-identifying sequence, trying the
// top-level Sequence first and falling back to tx_json.Sequence.
func sequenceField(m map[string]any) (uint32, bool) {
	if v, ok := numberField(m, "Sequence"); ok {
		return v, true
	}
	if tx, ok := m["tx_json"].(map[string]any); ok {
		if v, ok := numberField(tx, "Sequence"); ok {
			return v, true
		}
	}
	return 0, false
}

func numberField(m map[string]any, key string) (uint32, bool) {
	switch v := m[key].(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint32(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil || n < 0 {
			return 0, false
		}
		return uint32(n), true
	default:
		return 0, false
	}
}
