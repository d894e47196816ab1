package notify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/brojonat/walletwatch/service/wallet"
)

func TestFromSummary(t *testing.T) {
	ts := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	summary := &wallet.Summary{
		Timestamp: ts,
		Asset:     "sol",
		Amount:    decimal.RequireFromString("0.30"),
		Text:      "You just received 0.30000 SOL.",
	}

	event := FromSummary("4Nd1mYvNQ7kyqa3eM7Yu7jVZJ1cLSPrqcx2bYDkPvEa4", summary)
	assert.Equal(t, "4Nd1mYvNQ7kyqa3eM7Yu7jVZJ1cLSPrqcx2bYDkPvEa4", event.WalletAddress)
	assert.Equal(t, "sol", event.Asset)
	// decimal string, not a float
	assert.Equal(t, "0.3", event.Amount)
	assert.Equal(t, summary.Text, event.Text)
	assert.Equal(t, ts, event.Timestamp)
	assert.False(t, event.PublishedAt.IsZero())
}
