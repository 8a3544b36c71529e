package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// FundWallet asks the testnet faucet for a fresh funded account. The seed in
// the response is handed straight back to the caller; in production users
// bring their own wallet and this endpoint does not exist.
func (c *Client) FundWallet(ctx context.Context) (*Wallet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.faucetURL, strings.NewReader("{}"))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("faucet unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("faucet returned %d: %s", resp.StatusCode, string(raw))
	}

	var payload struct {
		Account struct {
			ClassicAddress string `json:"classicAddress"`
			Address        string `json:"address"`
			Secret         string `json:"secret"`
			Seed           string `json:"seed"`
		} `json:"account"`
		Seed string `json:"seed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode faucet response: %w", err)
	}

	address := payload.Account.ClassicAddress
	if address == "" {
		address = payload.Account.Address
	}
	seed := payload.Account.Secret
	if seed == "" {
		seed = payload.Account.Seed
	}
	if seed == "" {
		seed = payload.Seed
	}
	if address == "" || seed == "" {
		return nil, fmt.Errorf("faucet response missing address or seed")
	}

	c.log.Info("funded testnet wallet", zap.String("address", address))
	return &Wallet{Address: address, Seed: seed}, nil
}
