// Package wallet defines the uniform wallet capability set and the
// polling/diff/buffer pipeline that turns raw balance samples into discrete
// "received funds" summaries. Chain-specific behavior lives in the backend
// packages (service/ethereum, service/solana, service/custodial); everything
// here operates only through the Wallet interface.
package wallet

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
)

// Wallet is the capability set shared by all chain backends. Implementations
// wrap exactly one RPC/SDK client and are immutable after construction: one
// endpoint, one address, one optional signing credential.
type Wallet interface {
	// FetchBalance returns the current balance for the given asset in the
	// chain's display unit. It must be safe to call repeatedly. On transient
	// network failure it returns the last known balance with a nil error;
	// only construction-time connectivity failures are fatal.
	FetchBalance(ctx context.Context, asset string) (decimal.Decimal, error)

	// Address returns the configured or derived wallet address. No I/O.
	Address() string

	// SupportedAssets returns the static, ordered list of asset identifiers
	// this backend supports.
	SupportedAssets() []string

	// Transfer constructs, signs and submits a value transfer. Failures of
	// any kind (validation, missing credential, chain rejection) are reported
	// in the result's Status and Error fields, never as a returned error.
	Transfer(ctx context.Context, toAddress string, amount decimal.Decimal, asset string) *TransferResult

	// SignMessage signs the message using the chain family's standard
	// message-signing convention. Same failure reporting as Transfer.
	SignMessage(ctx context.Context, message string) *SignatureResult
}

// ValidateAmount rejects zero and negative transfer amounts. Backends call
// this before touching the network.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// SupportsAsset reports whether asset is in the wallet's supported set.
func SupportsAsset(w Wallet, asset string) bool {
	return slices.Contains(w.SupportedAssets(), asset)
}
