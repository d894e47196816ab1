package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the terminal state of a wallet operation from the caller's
// perspective. "pending" is a valid terminal state: submission succeeded but
// on-chain finality is not tracked here.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSuccess   Status = "success"
)

// BalanceSample is one observation of a wallet's balance.
// Delta is the signed difference against the immediately preceding sample of
// the same wallet and asset; it is zero on the first cycle.
type BalanceSample struct {
	ObservedAt time.Time       `json:"observed_at"`
	Asset      string          `json:"asset"`
	Value      decimal.Decimal `json:"value"`
	Delta      decimal.Decimal `json:"delta"`
}

// ReceiptEvent is a recorded positive balance delta pending aggregation.
type ReceiptEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Amount    decimal.Decimal `json:"amount"`
}

// Summary aggregates all receipt events recorded since the previous flush.
// Timestamp is the latest buffered event's timestamp.
type Summary struct {
	Timestamp time.Time       `json:"timestamp"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Text      string          `json:"text"`
}

// TransferResult is the outcome of a transfer call. Failures are reported
// here, never as panics or errors past the backend boundary: callers branch
// on Status, and Error is populated iff Status is "failed".
type TransferResult struct {
	TxReference string          `json:"tx_reference,omitempty"`
	Status      Status          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Asset       string          `json:"asset"`
	ToAddress   string          `json:"to_address"`
	FromAddress string          `json:"from_address,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// SignatureResult is the outcome of a message signing call.
type SignatureResult struct {
	Signature     string `json:"signature,omitempty"`
	Message       string `json:"message"`
	SignerAddress string `json:"signer_address"`
	Status        Status `json:"status"`
	Error         string `json:"error,omitempty"`
}

// FailedTransfer builds a failed TransferResult carrying the error text.
func FailedTransfer(toAddress string, amount decimal.Decimal, asset string, err error) *TransferResult {
	return &TransferResult{
		Status:    StatusFailed,
		Amount:    amount,
		Asset:     asset,
		ToAddress: toAddress,
		Error:     err.Error(),
	}
}

// FailedSignature builds a failed SignatureResult carrying the error text.
func FailedSignature(message, signerAddress string, err error) *SignatureResult {
	return &SignatureResult{
		Message:       message,
		SignerAddress: signerAddress,
		Status:        StatusFailed,
		Error:         err.Error(),
	}
}
