package custodial

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/brojonat/walletwatch/service/metrics"
	"github.com/brojonat/walletwatch/service/wallet"
)

const backendName = "custodial"

// balanceCacheTTL bounds how often tight poll loops hit the rate-limited
// custodial API for the same asset.
const balanceCacheTTL = 2 * time.Second

// Config holds the construction parameters for a custodial wallet.
type Config struct {
	// WalletID is the managed account identifier. Required: the custodial
	// API has no unauthenticated read path, so there is no read-only mode
	// and a missing identifier is fatal at construction.
	WalletID string

	// PrimaryAsset is the asset primed at construction. Defaults to "eth".
	PrimaryAsset string
}

// Wallet implements the wallet capability set against a custodial wallet
// service. All operations are mediated by the wallet ID; there is no local
// signing key.
type Wallet struct {
	api      APIClient
	walletID string
	address  string

	logger  *slog.Logger
	metrics *metrics.Metrics
	cache   *gocache.Cache

	mu          sync.Mutex
	lastBalance map[string]decimal.Decimal
}

// NewWallet constructs a custodial wallet. A missing wallet ID, a failed
// wallet fetch or a failed initial balance read is fatal.
// If m is nil, no metrics are recorded.
func NewWallet(ctx context.Context, api APIClient, cfg Config, m *metrics.Metrics, logger *slog.Logger) (*Wallet, error) {
	if cfg.WalletID == "" {
		return nil, fmt.Errorf("custodial wallet ID is required")
	}
	primary := cfg.PrimaryAsset
	if primary == "" {
		primary = "eth"
	}

	start := time.Now()
	info, err := api.GetWallet(ctx, cfg.WalletID)
	recordRPC(m, "GetWallet", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch custodial wallet %s: %w", cfg.WalletID, err)
	}

	w := &Wallet{
		api:         api,
		walletID:    cfg.WalletID,
		address:     info.DefaultAddress,
		logger:      logger,
		metrics:     m,
		cache:       gocache.New(balanceCacheTTL, time.Minute),
		lastBalance: make(map[string]decimal.Decimal),
	}

	balance, err := w.readBalance(ctx, primary)
	if err != nil {
		return nil, fmt.Errorf("initial balance read failed: %w", err)
	}
	w.lastBalance[primary] = balance

	logger.Info("custodial wallet initialized",
		"wallet_id", cfg.WalletID,
		"address", info.DefaultAddress,
		"network", info.Network,
		"balance", balance.String(),
		"asset", primary,
	)
	return w, nil
}

// FetchBalance returns the service-reported balance for the asset. Reads
// are cached briefly; transient API failures are absorbed by returning the
// last known balance for that asset.
func (w *Wallet) FetchBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	if !wallet.SupportsAsset(w, asset) {
		return decimal.Zero, fmt.Errorf("%w: %q", wallet.ErrUnsupportedAsset, asset)
	}

	if cached, ok := w.cache.Get(asset); ok {
		return cached.(decimal.Decimal), nil
	}

	balance, err := w.readBalance(ctx, asset)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.logger.WarnContext(ctx, "balance fetch failed, returning last known balance",
			"wallet_id", w.walletID,
			"asset", asset,
			"error", err,
		)
		return w.lastBalance[asset], nil
	}
	w.lastBalance[asset] = balance
	w.cache.Set(asset, balance, gocache.DefaultExpiration)
	return balance, nil
}

func (w *Wallet) readBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	start := time.Now()
	info, err := w.api.GetBalance(ctx, w.walletID, asset)
	recordRPC(w.metrics, "GetBalance", err, time.Since(start))
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := decimal.NewFromString(info.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparsable balance %q for asset %s: %w", info.Amount, asset, err)
	}
	return balance, nil
}

// Address returns the managed wallet's default address.
func (w *Wallet) Address() string {
	return w.address
}

// SupportedAssets returns the assets the custodial service can serve.
func (w *Wallet) SupportedAssets() []string {
	return []string{"eth", "usdc", "weth", "gwei"}
}

// Transfer submits a service-mediated transfer. The custodial API reports
// completion itself, so unlike the on-chain backends the result may come
// back "completed" rather than "pending".
func (w *Wallet) Transfer(ctx context.Context, toAddress string, amount decimal.Decimal, asset string) *wallet.TransferResult {
	fail := func(err error) *wallet.TransferResult {
		w.logger.ErrorContext(ctx, "transfer failed",
			"to", toAddress,
			"amount", amount.String(),
			"error", err,
		)
		if w.metrics != nil {
			w.metrics.RecordTransfer(backendName, "failed")
		}
		return wallet.FailedTransfer(toAddress, amount, asset, err)
	}

	if !wallet.SupportsAsset(w, asset) {
		return fail(fmt.Errorf("%w: %q", wallet.ErrUnsupportedAsset, asset))
	}
	if err := wallet.ValidateAmount(amount); err != nil {
		return fail(err)
	}
	if !common.IsHexAddress(toAddress) {
		return fail(fmt.Errorf("%w: %q", wallet.ErrInvalidAddress, toAddress))
	}

	w.logger.InfoContext(ctx, "initiating transfer",
		"to", toAddress,
		"amount", amount.String(),
		"asset", asset,
	)

	start := time.Now()
	info, err := w.api.CreateTransfer(ctx, w.walletID, TransferRequest{
		ToAddress: toAddress,
		Amount:    amount.String(),
		Asset:     asset,
	})
	recordRPC(w.metrics, "CreateTransfer", err, time.Since(start))
	if err != nil {
		return fail(fmt.Errorf("transfer rejected: %w", err))
	}

	status := wallet.StatusPending
	if info.Status == "completed" {
		status = wallet.StatusCompleted
	}
	ref := info.TxHash
	if ref == "" {
		ref = info.TransferID
	}

	w.logger.InfoContext(ctx, "transfer submitted", "tx_reference", ref, "status", status)
	if w.metrics != nil {
		w.metrics.RecordTransfer(backendName, string(status))
	}

	return &wallet.TransferResult{
		TxReference: ref,
		Status:      status,
		Amount:      amount,
		Asset:       asset,
		ToAddress:   toAddress,
		FromAddress: w.address,
	}
}

// SignMessage signs the payload through the custodial service.
func (w *Wallet) SignMessage(ctx context.Context, message string) *wallet.SignatureResult {
	start := time.Now()
	info, err := w.api.SignPayload(ctx, w.walletID, message)
	recordRPC(w.metrics, "SignPayload", err, time.Since(start))
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordSignature(backendName, "failed")
		}
		return wallet.FailedSignature(message, w.address, fmt.Errorf("signing failed: %w", err))
	}

	if w.metrics != nil {
		w.metrics.RecordSignature(backendName, string(wallet.StatusSuccess))
	}
	return &wallet.SignatureResult{
		Signature:     info.Signature,
		Message:       message,
		SignerAddress: w.address,
		Status:        wallet.StatusSuccess,
	}
}

func recordRPC(m *metrics.Metrics, method string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RecordRPCCall(backendName, method, status, d.Seconds())
}
