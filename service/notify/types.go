package notify

import (
	"time"

	"github.com/brojonat/walletwatch/service/wallet"
)

// SummaryEvent is a flushed receipt summary published to NATS.
// It is published to the subject "wallets.summary.{wallet_address}" in
// JetStream. Amount is a decimal string so consumers never see float
// rounding.
type SummaryEvent struct {
	WalletAddress string    `json:"wallet_address"`
	Asset         string    `json:"asset"`
	Amount        string    `json:"amount"`
	Text          string    `json:"text"`
	Timestamp     time.Time `json:"timestamp"`
	PublishedAt   time.Time `json:"published_at"`
}

// FromSummary converts a flushed wallet summary to a SummaryEvent for
// publishing.
func FromSummary(walletAddress string, s *wallet.Summary) *SummaryEvent {
	return &SummaryEvent{
		WalletAddress: walletAddress,
		Asset:         s.Asset,
		Amount:        s.Amount.String(),
		Text:          s.Text,
		Timestamp:     s.Timestamp,
		PublishedAt:   time.Now().UTC(),
	}
}
