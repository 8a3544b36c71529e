package handlers

import (
	"github.com/freelance-escrow/backend/internal/http/dto"
	"github.com/freelance-escrow/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WalletHandler struct {
	walletService *services.WalletService
	log           *zap.Logger
}

func NewWalletHandler(walletService *services.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{walletService: walletService, log: log}
}

// CreateWallet creates and funds a fresh testnet wallet. Demo only.
// POST /api/wallet
func (h *WalletHandler) CreateWallet(c *fiber.Ctx) error {
	w, err := h.walletService.CreateWallet(c.Context())
	if err != nil {
		h.log.Error("failed to create wallet", zap.Error(err))
		return errorJSON(c, fiber.StatusBadGateway, "faucet unavailable")
	}
	return c.JSON(dto.WalletResponse{Address: w.Address, Seed: w.Seed})
}
