package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"

	"github.com/brojonat/walletwatch/service/metrics"
	"github.com/brojonat/walletwatch/service/wallet"
)

const backendName = "ethereum"

// weiDecimals is the exponent between wei and the ETH display unit.
const weiDecimals = 18

// Config holds the construction parameters for an Ethereum wallet.
type Config struct {
	// Address is the monitored account, hex-encoded.
	Address string

	// PrivateKeyHex enables transaction signing when set. Without it the
	// wallet operates in read-only mode: balance monitoring works, transfer
	// and sign fail with a clean result.
	PrivateKeyHex string

	// SimulateTransfers injects a synthetic +1.0 ETH credit on roughly 20%
	// of fetches. Demo/testing only; never enabled by default.
	SimulateTransfers bool
}

// Wallet implements the wallet capability set for Ethereum. Identity is
// immutable after construction: one client, one address, optional key.
type Wallet struct {
	client  Client
	address common.Address
	key     *ecdsa.PrivateKey
	signer  common.Address // derived from key; zero if read-only
	chainID *big.Int

	simulate bool
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu          sync.Mutex
	lastBalance decimal.Decimal
}

// NewWallet constructs an Ethereum wallet and performs the initial balance
// read. Construction fails if the address is malformed, the key does not
// parse, or the endpoint cannot serve that first read: a wallet that never
// saw a balance has nothing to diff against.
// If m is nil, no metrics are recorded.
func NewWallet(ctx context.Context, client Client, cfg Config, m *metrics.Metrics, logger *slog.Logger) (*Wallet, error) {
	if !common.IsHexAddress(cfg.Address) {
		return nil, fmt.Errorf("invalid Ethereum address %q", cfg.Address)
	}

	w := &Wallet{
		client:   client,
		address:  common.HexToAddress(cfg.Address),
		simulate: cfg.SimulateTransfers,
		logger:   logger,
		metrics:  m,
	}

	if cfg.PrivateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse Ethereum private key: %w", err)
		}
		w.key = key
		w.signer = crypto.PubkeyToAddress(key.PublicKey)
		logger.Info("ethereum wallet: transaction signing enabled", "signer", w.signer.Hex())
	} else {
		logger.Warn("ethereum wallet: read-only mode (no private key)")
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chain ID: %w", err)
	}
	w.chainID = chainID

	balance, err := w.readBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial balance read failed: %w", err)
	}
	w.lastBalance = balance

	logger.Info("ethereum wallet initialized",
		"address", w.address.Hex(),
		"chain_id", chainID.String(),
		"balance", balance.String(),
	)
	return w, nil
}

// FetchBalance returns the current ETH balance. Transient RPC failures are
// absorbed by returning the last known balance; the sampler sees a zero
// delta for that cycle instead of an error.
func (w *Wallet) FetchBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	if asset != "eth" {
		return decimal.Zero, fmt.Errorf("%w: %q (ethereum wallet supports eth only)", wallet.ErrUnsupportedAsset, asset)
	}

	balance, err := w.readBalance(ctx)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.logger.WarnContext(ctx, "balance fetch failed, returning last known balance",
			"address", w.address.Hex(),
			"error", err,
		)
		return w.lastBalance, nil
	}
	w.lastBalance = balance

	if w.simulate && rand.IntN(10) >= 8 {
		w.logger.InfoContext(ctx, "simulating +1.0 ETH transfer", "address", w.address.Hex())
		balance = balance.Add(decimal.NewFromInt(1))
	}

	return balance, nil
}

func (w *Wallet) readBalance(ctx context.Context) (decimal.Decimal, error) {
	start := time.Now()
	wei, err := w.client.BalanceAt(ctx, w.address, nil)
	w.recordRPC("BalanceAt", err, time.Since(start))
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(wei, -weiDecimals), nil
}

// Address returns the monitored account address.
func (w *Wallet) Address() string {
	return w.address.Hex()
}

// SupportedAssets returns the assets this backend can serve.
func (w *Wallet) SupportedAssets() []string {
	return []string{"eth"}
}

// Transfer submits a native ETH transfer. Nonce and gas price are resolved
// from the network immediately before submission; the race window between
// read and submit is accepted. The result is "pending": submission succeeded
// but finality is not tracked here.
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

	if asset != "eth" {
		return fail(fmt.Errorf("%w: %q", wallet.ErrUnsupportedAsset, asset))
	}
	if err := wallet.ValidateAmount(amount); err != nil {
		return fail(err)
	}
	if !common.IsHexAddress(toAddress) {
		return fail(fmt.Errorf("%w: %q", wallet.ErrInvalidAddress, toAddress))
	}
	if w.key == nil {
		return fail(wallet.ErrReadOnly)
	}

	w.logger.InfoContext(ctx, "initiating transfer",
		"to", toAddress,
		"amount", amount.String(),
		"asset", asset,
	)

	nonce, err := w.client.PendingNonceAt(ctx, w.signer)
	if err != nil {
		return fail(fmt.Errorf("failed to resolve nonce: %w", err))
	}
	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to resolve gas price: %w", err))
	}

	to := common.HexToAddress(toAddress)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amount.Shift(weiDecimals).BigInt(),
		Gas:      params.TxGas, // standard ETH transfer
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return fail(fmt.Errorf("failed to sign transaction: %w", err))
	}

	start := time.Now()
	err = w.client.SendTransaction(ctx, signed)
	w.recordRPC("SendTransaction", err, time.Since(start))
	if err != nil {
		return fail(fmt.Errorf("transaction rejected: %w", err))
	}

	w.logger.InfoContext(ctx, "transaction submitted", "tx_hash", signed.Hash().Hex())
	if w.metrics != nil {
		w.metrics.RecordTransfer(backendName, string(wallet.StatusPending))
	}

	return &wallet.TransferResult{
		TxReference: signed.Hash().Hex(),
		Status:      wallet.StatusPending,
		Amount:      amount,
		Asset:       asset,
		ToAddress:   toAddress,
		FromAddress: w.signer.Hex(),
	}
}

// SignMessage signs the message with the EIP-191 personal-message scheme.
func (w *Wallet) SignMessage(ctx context.Context, message string) *wallet.SignatureResult {
	if w.key == nil {
		w.logger.ErrorContext(ctx, "cannot sign: no private key configured")
		if w.metrics != nil {
			w.metrics.RecordSignature(backendName, "failed")
		}
		return wallet.FailedSignature(message, w.address.Hex(), wallet.ErrReadOnly)
	}

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordSignature(backendName, "failed")
		}
		return wallet.FailedSignature(message, w.signer.Hex(), fmt.Errorf("signing failed: %w", err))
	}
	// transform V from 0/1 to the 27/28 convention used by eth_sign
	sig[64] += 27

	if w.metrics != nil {
		w.metrics.RecordSignature(backendName, string(wallet.StatusSuccess))
	}
	return &wallet.SignatureResult{
		Signature:     hexutil.Encode(sig),
		Message:       message,
		SignerAddress: w.signer.Hex(),
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
