package solana

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/brojonat/walletwatch/service/metrics"
	"github.com/brojonat/walletwatch/service/wallet"
)

const backendName = "solana"

// lamportDecimals is the exponent between lamports and the SOL display unit.
const lamportDecimals = 9

// Config holds the construction parameters for a Solana wallet.
type Config struct {
	// Address is the monitored account, base58-encoded. Construction fails
	// fatally if it cannot be parsed into a public key.
	Address string

	// PrivateKeyBase58 enables transaction signing when set. Without it the
	// wallet operates in read-only mode.
	PrivateKeyBase58 string
}

// Wallet implements the wallet capability set for Solana.
type Wallet struct {
	rpc    RPCClient
	pubkey solana.PublicKey
	key    *solana.PrivateKey

	logger  *slog.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	lastBalance decimal.Decimal
}

// NewWallet constructs a Solana wallet and performs the initial balance
// read. An unparsable address or a failed initial read is fatal.
// If m is nil, no metrics are recorded.
func NewWallet(ctx context.Context, rpcClient RPCClient, cfg Config, m *metrics.Metrics, logger *slog.Logger) (*Wallet, error) {
	pubkey, err := solana.PublicKeyFromBase58(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid Solana address %q: %w", cfg.Address, err)
	}

	w := &Wallet{
		rpc:     rpcClient,
		pubkey:  pubkey,
		logger:  logger,
		metrics: m,
	}

	if cfg.PrivateKeyBase58 != "" {
		key, err := solana.PrivateKeyFromBase58(cfg.PrivateKeyBase58)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Solana private key: %w", err)
		}
		w.key = &key
		logger.Info("solana wallet: transaction signing enabled", "signer", key.PublicKey().String())
	} else {
		logger.Warn("solana wallet: read-only mode (no private key)")
	}

	balance, err := w.readBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial balance read failed: %w", err)
	}
	w.lastBalance = balance

	logger.Info("solana wallet initialized",
		"address", pubkey.String(),
		"balance", balance.String(),
	)
	return w, nil
}

// FetchBalance returns the current SOL balance. Transient RPC failures are
// absorbed by returning the last known balance.
func (w *Wallet) FetchBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	if asset != "sol" {
		return decimal.Zero, fmt.Errorf("%w: %q (solana wallet supports sol only)", wallet.ErrUnsupportedAsset, asset)
	}

	balance, err := w.readBalance(ctx)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.logger.WarnContext(ctx, "balance fetch failed, returning last known balance",
			"address", w.pubkey.String(),
			"error", err,
		)
		return w.lastBalance, nil
	}
	w.lastBalance = balance
	return balance, nil
}

func (w *Wallet) readBalance(ctx context.Context) (decimal.Decimal, error) {
	start := time.Now()
	out, err := w.rpc.GetBalance(ctx, w.pubkey, rpc.CommitmentConfirmed)
	w.recordRPC("GetBalance", err, time.Since(start))
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromUint64(out.Value).Shift(-lamportDecimals), nil
}

// Address returns the monitored account address, base58-encoded.
func (w *Wallet) Address() string {
	return w.pubkey.String()
}

// SupportedAssets returns the assets this backend can serve.
func (w *Wallet) SupportedAssets() []string {
	return []string{"sol"}
}

// Transfer submits a system-program SOL transfer. A fresh blockhash is
// fetched immediately before submission. The result is "pending":
// submission succeeded but finality is not tracked here.
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

	if asset != "sol" {
		return fail(fmt.Errorf("%w: %q", wallet.ErrUnsupportedAsset, asset))
	}
	if err := wallet.ValidateAmount(amount); err != nil {
		return fail(err)
	}
	recipient, err := solana.PublicKeyFromBase58(toAddress)
	if err != nil {
		return fail(fmt.Errorf("%w: %q: %v", wallet.ErrInvalidAddress, toAddress, err))
	}
	if w.key == nil {
		return fail(wallet.ErrReadOnly)
	}

	w.logger.InfoContext(ctx, "initiating transfer",
		"to", toAddress,
		"amount", amount.String(),
		"asset", asset,
	)

	payer := w.key.PublicKey()
	lamports := uint64(amount.Shift(lamportDecimals).IntPart())

	blockhashStart := time.Now()
	recent, err := w.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	w.recordRPC("GetLatestBlockhash", err, time.Since(blockhashStart))
	if err != nil {
		return fail(fmt.Errorf("failed to fetch recent blockhash: %w", err))
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, payer, recipient).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return fail(fmt.Errorf("failed to build transaction: %w", err))
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return w.key
		}
		return nil
	}); err != nil {
		return fail(fmt.Errorf("failed to sign transaction: %w", err))
	}

	sendStart := time.Now()
	sig, err := w.rpc.SendTransaction(ctx, tx)
	w.recordRPC("SendTransaction", err, time.Since(sendStart))
	if err != nil {
		return fail(fmt.Errorf("transaction rejected: %w", err))
	}

	w.logger.InfoContext(ctx, "transaction submitted", "signature", sig.String())
	if w.metrics != nil {
		w.metrics.RecordTransfer(backendName, string(wallet.StatusPending))
	}

	return &wallet.TransferResult{
		TxReference: sig.String(),
		Status:      wallet.StatusPending,
		Amount:      amount,
		Asset:       asset,
		ToAddress:   toAddress,
		FromAddress: payer.String(),
	}
}

// SignMessage signs the raw UTF-8 message bytes with the wallet's ed25519 key.
func (w *Wallet) SignMessage(ctx context.Context, message string) *wallet.SignatureResult {
	if w.key == nil {
		w.logger.ErrorContext(ctx, "cannot sign: no private key configured")
		if w.metrics != nil {
			w.metrics.RecordSignature(backendName, "failed")
		}
		return wallet.FailedSignature(message, w.pubkey.String(), wallet.ErrReadOnly)
	}

	sig, err := w.key.Sign([]byte(message))
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordSignature(backendName, "failed")
		}
		return wallet.FailedSignature(message, w.key.PublicKey().String(), fmt.Errorf("signing failed: %w", err))
	}

	if w.metrics != nil {
		w.metrics.RecordSignature(backendName, string(wallet.StatusSuccess))
	}
	return &wallet.SignatureResult{
		Signature:     sig.String(),
		Message:       message,
		SignerAddress: w.key.PublicKey().String(),
		Status:        wallet.StatusSuccess,
	}
}

func (w *Wallet) recordRPC(method string, err error, d time.Duration) {
	if w.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	w.metrics.RecordRPCCall(backendName, method, status, d.Seconds())
}
