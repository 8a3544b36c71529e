package services

import (
	"context"

	"github.com/freelance-escrow/backend/internal/ledger"
	"go.uber.org/zap"
)

// WalletService creates funded testnet wallets. Demo convenience with no
// bearing on escrow correctness; in production users sign client-side.
type WalletService struct {
	faucet ledger.Faucet
	log    *zap.Logger
}

func NewWalletService(faucet ledger.Faucet, log *zap.Logger) *WalletService {
	return &WalletService{faucet: faucet, log: log}
}

func (s *WalletService) CreateWallet(ctx context.Context) (*ledger.Wallet, error) {
	w, err := s.faucet.FundWallet(ctx)
	if err != nil {
		return nil, err
	}
	// Address only; the seed belongs to the caller.
	s.log.Info("demo wallet created", zap.String("address", w.Address))
	return w, nil
}
