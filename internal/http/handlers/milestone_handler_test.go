package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freelance-escrow/backend/internal/events"
	"github.com/freelance-escrow/backend/internal/ledger"
	"github.com/freelance-escrow/backend/internal/repositories"
	"github.com/freelance-escrow/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// stubLedger settles everything instantly with fixed identifiers.
type stubLedger struct {
	nextSequence uint32
}

func (s *stubLedger) SubmitEscrowCreate(_ context.Context, _ ledger.Credential, _, _, _ string) (*ledger.CreateResult, error) {
	s.nextSequence++
	return &ledger.CreateResult{TxHash: "ESCROWTX", OwnerAddress: "rOWNER1", OfferSequence: s.nextSequence}, nil
}

func (s *stubLedger) SubmitEscrowRelease(_ context.Context, _ ledger.Credential, _ string, _ uint32, _ string) (*ledger.ReleaseResult, error) {
	return &ledger.ReleaseResult{TxHash: "RELEASETX"}, nil
}

func (s *stubLedger) FundWallet(_ context.Context) (*ledger.Wallet, error) {
	return &ledger.Wallet{Address: "rNEW1", Seed: "sNEWSEED"}, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	log := zap.NewNop()
	repo := repositories.NewMemoryMilestoneRepo()
	bus := events.NewMemoryBus(log)
	gw := &stubLedger{nextSequence: 4}

	escrowService := services.NewEscrowService(repo, gw, bus, log)
	walletService := services.NewWalletService(gw, log)

	app := fiber.New()
	api := app.Group("/api")
	api.Post("/wallet", NewWalletHandler(walletService, log).CreateWallet)

	mh := NewMilestoneHandler(escrowService, log)
	api.Post("/milestone/create", mh.CreateMilestone)
	api.Post("/milestone/approve", mh.ApproveMilestone)
	api.Get("/milestones", mh.ListMilestones)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode response %s: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func TestMilestoneLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)

	// Create
	status, body := doJSON(t, app, http.MethodPost, "/api/milestone/create", map[string]any{
		"employer_seed":      "sSEED",
		"freelancer_address": "rDEST1",
		"amount_drops":       "1000000",
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", status, body)
	}
	milestone := body["milestone"].(map[string]any)
	if milestone["status"] != "LOCKED" {
		t.Errorf("status = %v, want LOCKED", milestone["status"])
	}
	if milestone["owner_address"] != "rOWNER1" || milestone["offer_sequence"] != float64(5) {
		t.Errorf("identity = %v/%v, want rOWNER1/5", milestone["owner_address"], milestone["offer_sequence"])
	}
	if _, ok := milestone["fulfillment"]; ok {
		t.Error("create response leaked the fulfillment")
	}

	// Approve
	status, body = doJSON(t, app, http.MethodPost, "/api/milestone/approve", map[string]any{
		"employer_seed":  "sSEED",
		"owner_address":  "rOWNER1",
		"offer_sequence": 5,
	})
	if status != http.StatusOK {
		t.Fatalf("approve status = %d, body %v", status, body)
	}
	milestone = body["milestone"].(map[string]any)
	if milestone["status"] != "RELEASED" || milestone["tx_hash"] != "RELEASETX" {
		t.Errorf("approve milestone = %v", milestone)
	}

	// Second approve is a conflict; nothing to release.
	status, _ = doJSON(t, app, http.MethodPost, "/api/milestone/approve", map[string]any{
		"employer_seed":  "sSEED",
		"owner_address":  "rOWNER1",
		"offer_sequence": 5,
	})
	if status != http.StatusConflict {
		t.Fatalf("second approve status = %d, want 409", status)
	}

	// List
	status, body = doJSON(t, app, http.MethodGet, "/api/milestones", nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	milestones := body["milestones"].([]any)
	if len(milestones) != 1 {
		t.Fatalf("len(milestones) = %d, want 1", len(milestones))
	}
	first := milestones[0].(map[string]any)
	if first["status"] != "RELEASED" {
		t.Errorf("listed status = %v", first["status"])
	}
	if first["released_at"] == nil || first["released_tx_hash"] != "RELEASETX" {
		t.Errorf("release stamps missing: %v", first)
	}
	if _, ok := first["fulfillment"]; ok {
		t.Error("list response leaked a fulfillment")
	}
}

func TestCreateMilestoneRejectsBadInput(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing seed", map[string]any{"freelancer_address": "rDEST1", "amount_drops": "1000000"}},
		{"bad address", map[string]any{"employer_seed": "sSEED", "freelancer_address": "DEST", "amount_drops": "1000000"}},
		{"bad amount", map[string]any{"employer_seed": "sSEED", "freelancer_address": "rDEST1", "amount_drops": "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doJSON(t, app, http.MethodPost, "/api/milestone/create", tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
		})
	}
}

func TestCreateWallet(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/wallet", nil)
	if status != http.StatusOK {
		t.Fatalf("wallet status = %d", status)
	}
	if body["address"] != "rNEW1" || body["seed"] != "sNEWSEED" {
		t.Errorf("wallet = %v", body)
	}
}
