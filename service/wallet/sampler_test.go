package wallet

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWallet implements Wallet for testing the pipeline without a chain
// backend. It replays a scripted balance sequence and repeats the last value
// once the script runs out.
type fakeWallet struct {
	balances  []string
	calls     int
	transfers []*TransferResult
}

func (f *fakeWallet) FetchBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	i := f.calls
	if i >= len(f.balances) {
		i = len(f.balances) - 1
	}
	f.calls++
	return decimal.RequireFromString(f.balances[i]), nil
}

func (f *fakeWallet) Address() string { return "0xFAKE" }

func (f *fakeWallet) SupportedAssets() []string { return []string{"eth"} }

func (f *fakeWallet) Transfer(ctx context.Context, to string, amount decimal.Decimal, asset string) *TransferResult {
	result := &TransferResult{
		TxReference: "0xtx",
		Status:      StatusPending,
		Amount:      amount,
		Asset:       asset,
		ToAddress:   to,
		FromAddress: "0xFAKE",
	}
	f.transfers = append(f.transfers, result)
	return result
}

func (f *fakeWallet) SignMessage(ctx context.Context, message string) *SignatureResult {
	return &SignatureResult{
		Signature:     "fakesig",
		Message:       message,
		SignerAddress: "0xFAKE",
		Status:        StatusSuccess,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSampler_PreviousAdvancesUnconditionally(t *testing.T) {
	ctx := context.Background()
	fw := &fakeWallet{balances: []string{"10", "10", "12.5", "12.5", "11"}}
	s := NewSampler(fw, "eth", time.Millisecond, testLogger())

	wantDeltas := []string{"0", "0", "2.5", "0", "-1.5"}
	wantValues := []string{"10", "10", "12.5", "12.5", "11"}

	for i := range wantDeltas {
		sample, err := s.Sample(ctx)
		require.NoError(t, err)
		assert.True(t, sample.Delta.Equal(decimal.RequireFromString(wantDeltas[i])),
			"cycle %d: delta %s", i, sample.Delta)
		assert.True(t, sample.Value.Equal(decimal.RequireFromString(wantValues[i])),
			"cycle %d: value %s", i, sample.Value)
		// previous always tracks the last observed value, whatever the
		// delta's sign
		assert.True(t, s.previous.Equal(sample.Value), "cycle %d: previous %s", i, s.previous)
	}
}

func TestSampler_FirstCycleHasZeroDelta(t *testing.T) {
	fw := &fakeWallet{balances: []string{"42.7"}}
	s := NewSampler(fw, "eth", time.Millisecond, testLogger())

	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.True(t, sample.Delta.IsZero())
	assert.True(t, sample.Value.Equal(decimal.RequireFromString("42.7")))
}

func TestSampler_CancellationLeavesStateUntouched(t *testing.T) {
	fw := &fakeWallet{balances: []string{"5", "9"}}
	s := NewSampler(fw, "eth", time.Millisecond, testLogger())

	_, err := s.Sample(context.Background())
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Sample(cancelled)
	require.ErrorIs(t, err, context.Canceled)

	// cancelled cycle did not advance previous: the next sample diffs
	// against the last completed fetch
	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.True(t, sample.Delta.Equal(decimal.RequireFromString("4")), "delta %s", sample.Delta)
}

func TestSampler_DefaultInterval(t *testing.T) {
	s := NewSampler(&fakeWallet{balances: []string{"0"}}, "eth", 0, testLogger())
	assert.Equal(t, DefaultPollInterval, s.Interval())
}
