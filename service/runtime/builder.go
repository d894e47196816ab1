package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/walletwatch/service/config"
	"github.com/brojonat/walletwatch/service/custodial"
	"github.com/brojonat/walletwatch/service/ethereum"
	"github.com/brojonat/walletwatch/service/metrics"
	"github.com/brojonat/walletwatch/service/solana"
	"github.com/brojonat/walletwatch/service/wallet"
)

// BuildMonitors constructs one monitor per enabled backend. Backend
// construction performs the initial connectivity check, so a misconfigured
// wallet fails here rather than limping through the polling loop.
// If m is nil, no metrics are recorded.
func BuildMonitors(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) ([]*wallet.Monitor, error) {
	var monitors []*wallet.Monitor

	if cfg.EthereumEnabled() {
		client, err := ethereum.Dial(ctx, cfg.EthereumRPCURL)
		if err != nil {
			return nil, err
		}
		w, err := ethereum.NewWallet(ctx, client, ethereum.Config{
			Address:           cfg.EthereumAddress,
			PrivateKeyHex:     cfg.EthereumPrivateKey,
			SimulateTransfers: cfg.SimulateTransfers,
		}, m, logger.With("backend", "ethereum"))
		if err != nil {
			return nil, fmt.Errorf("ethereum wallet: %w", err)
		}
		monitors = append(monitors, wallet.NewMonitor(w, wallet.MonitorConfig{
			PrimaryAsset: "eth",
			PollInterval: cfg.PollInterval,
		}, m, logger.With("backend", "ethereum")))
	}

	if cfg.SolanaEnabled() {
		w, err := solana.NewWallet(ctx, solana.NewRPCClient(cfg.SolanaRPCURL), solana.Config{
			Address:          cfg.SolanaAddress,
			PrivateKeyBase58: cfg.SolanaPrivateKey,
		}, m, logger.With("backend", "solana"))
		if err != nil {
			return nil, fmt.Errorf("solana wallet: %w", err)
		}
		monitors = append(monitors, wallet.NewMonitor(w, wallet.MonitorConfig{
			PrimaryAsset: "sol",
			PollInterval: cfg.PollInterval,
		}, m, logger.With("backend", "solana")))
	}

	if cfg.CustodialEnabled() {
		api := custodial.NewAPIClient(cfg.CustodialAPIURL, cfg.CustodialAPIKey, cfg.CustodialAPISecret,
			10*time.Second, logger.With("backend", "custodial"))
		w, err := custodial.NewWallet(ctx, api, custodial.Config{
			WalletID:     cfg.CustodialWalletID,
			PrimaryAsset: cfg.PrimaryAsset,
		}, m, logger.With("backend", "custodial"))
		if err != nil {
			return nil, fmt.Errorf("custodial wallet: %w", err)
		}
		monitors = append(monitors, wallet.NewMonitor(w, wallet.MonitorConfig{
			PrimaryAsset: cfg.PrimaryAsset,
			PollInterval: cfg.PollInterval,
		}, m, logger.With("backend", "custodial")))
	}

	return monitors, nil
}
