package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(fw *fakeWallet) *Monitor {
	return NewMonitor(fw, MonitorConfig{PollInterval: time.Millisecond}, nil, testLogger())
}

func TestMonitor_PollFeedsBuffer(t *testing.T) {
	ctx := context.Background()
	fw := &fakeWallet{balances: []string{"10", "10", "12.5", "12.5", "11"}}
	mon := newTestMonitor(fw)

	for range fw.balances {
		_, err := mon.PollOnce(ctx)
		require.NoError(t, err)
	}

	summary := mon.LatestSummary()
	require.NotNil(t, summary)
	assert.Equal(t, "You just received 2.50000 ETH.", summary.Text)

	// flushed: nothing new until another positive delta shows up
	assert.Nil(t, mon.LatestSummary())
}

func TestMonitor_NoSummaryWithoutReceipts(t *testing.T) {
	ctx := context.Background()
	fw := &fakeWallet{balances: []string{"10", "10", "9.5"}}
	mon := newTestMonitor(fw)

	for range fw.balances {
		_, err := mon.PollOnce(ctx)
		require.NoError(t, err)
	}
	assert.Nil(t, mon.LatestSummary())
}

func TestMonitor_DefaultsToFirstSupportedAsset(t *testing.T) {
	fw := &fakeWallet{balances: []string{"1"}}
	mon := NewMonitor(fw, MonitorConfig{PollInterval: time.Millisecond}, nil, testLogger())
	assert.Equal(t, "eth", mon.PrimaryAsset())
}

func TestMonitor_TransferPassThrough(t *testing.T) {
	fw := &fakeWallet{balances: []string{"10"}}
	mon := newTestMonitor(fw)

	result := mon.Transfer(context.Background(), "0xdead", decimal.RequireFromString("1.5"), "eth")
	require.NotNil(t, result)
	assert.Equal(t, StatusPending, result.Status)
	assert.Len(t, fw.transfers, 1)

	sig := mon.SignMessage(context.Background(), "hello")
	require.NotNil(t, sig)
	assert.Equal(t, StatusSuccess, sig.Status)
	assert.Equal(t, "hello", sig.Message)
}

func TestMonitor_TransferDuringPolling(t *testing.T) {
	// a transfer issued while the poll loop is live must not deadlock or
	// corrupt the buffer
	fw := &fakeWallet{balances: []string{"10", "11", "12", "13"}}
	mon := newTestMonitor(fw)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = mon.Run(ctx)
	}()

	for range 5 {
		result := mon.Transfer(context.Background(), "0xdead", decimal.New(1, 0), "eth")
		require.Equal(t, StatusPending, result.Status)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	summary := mon.LatestSummary()
	require.NotNil(t, summary)
	// 10 -> 13 over however many cycles ran before cancellation
	assert.Equal(t, "You just received 3.00000 ETH.", summary.Text)
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	fw := &fakeWallet{balances: []string{"10"}}
	mon := newTestMonitor(fw)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
}
