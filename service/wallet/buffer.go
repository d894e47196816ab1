package wallet

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Buffer accumulates positive-delta samples as timestamped receipt events
// until the next flush. The event list is exclusively owned by the wallet
// instance: Record and Flush are the only mutators, and the Monitor confines
// both to a single execution context.
type Buffer struct {
	asset  string
	events []ReceiptEvent
}

// NewBuffer creates an empty buffer for one asset.
func NewBuffer(asset string) *Buffer {
	return &Buffer{asset: asset}
}

// Record appends a receipt event iff the sample carries a positive delta.
// Zero and negative deltas are a no-op. Returns whether an event was recorded.
func (b *Buffer) Record(sample BalanceSample) bool {
	if sample.Delta.Sign() <= 0 {
		return false
	}
	b.events = append(b.events, ReceiptEvent{
		Timestamp: sample.ObservedAt,
		Amount:    sample.Delta,
	})
	return true
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Flush aggregates all buffered events into one summary and clears the
// buffer. The reported amount is the exact arithmetic sum of every recorded
// delta since the last flush; the timestamp is the latest event's. Returns
// nil when nothing was recorded, so flushing twice in a row yields nil the
// second time.
func (b *Buffer) Flush() *Summary {
	if len(b.events) == 0 {
		return nil
	}

	sum := decimal.Zero
	for _, ev := range b.events {
		sum = sum.Add(ev.Amount)
	}
	last := b.events[len(b.events)-1]
	b.events = nil

	return &Summary{
		Timestamp: last.Timestamp,
		Asset:     b.asset,
		Amount:    sum,
		Text:      FormatReceipt(sum, b.asset),
	}
}

// FormatReceipt renders the receipt line consumed by downstream text
// pipelines. The phrasing and 5-decimal precision are load-bearing: do not
// change them without coordinating with consumers.
func FormatReceipt(amount decimal.Decimal, asset string) string {
	return fmt.Sprintf("You just received %s %s.", amount.StringFixed(5), strings.ToUpper(asset))
}
