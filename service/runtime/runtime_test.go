package runtime

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/walletwatch/service/notify"
	"github.com/brojonat/walletwatch/service/wallet"
)

// stubWallet credits itself a fixed step on every fetch, so every polling
// cycle after the first produces a receipt.
type stubWallet struct {
	mu      sync.Mutex
	balance decimal.Decimal
	step    decimal.Decimal
}

func (s *stubWallet) FetchBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = s.balance.Add(s.step)
	return s.balance, nil
}

func (s *stubWallet) Address() string { return "stub-wallet-1" }

func (s *stubWallet) SupportedAssets() []string { return []string{"eth"} }

func (s *stubWallet) Transfer(ctx context.Context, to string, amount decimal.Decimal, asset string) *wallet.TransferResult {
	return &wallet.TransferResult{Status: wallet.StatusPending}
}

func (s *stubWallet) SignMessage(ctx context.Context, message string) *wallet.SignatureResult {
	return &wallet.SignatureResult{Status: wallet.StatusSuccess}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_NoMonitors(t *testing.T) {
	r := New(nil, time.Second, testLogger())
	err := r.Run(context.Background())
	require.Error(t, err)
}

func TestRun_DeliversSummaries(t *testing.T) {
	sw := &stubWallet{step: decimal.RequireFromString("0.1")}
	mon := wallet.NewMonitor(sw, wallet.MonitorConfig{PollInterval: 5 * time.Millisecond}, nil, testLogger())

	var out bytes.Buffer
	pub := notify.NewMockPublisher()
	r := New([]*wallet.Monitor{mon}, 25*time.Millisecond, testLogger(),
		WithOutput(&out),
		WithPublisher(pub),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	assert.Contains(t, out.String(), "You just received")
	assert.Contains(t, out.String(), "ETH.")

	events := pub.GetPublishedEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, "stub-wallet-1", events[0].WalletAddress)
	assert.Equal(t, "eth", events[0].Asset)
}

func TestRun_FinalDrainOnShutdown(t *testing.T) {
	sw := &stubWallet{step: decimal.RequireFromString("0.5")}
	mon := wallet.NewMonitor(sw, wallet.MonitorConfig{PollInterval: 5 * time.Millisecond}, nil, testLogger())

	var out bytes.Buffer
	// flush cadence far beyond the test duration: only the shutdown drain
	// can deliver anything
	r := New([]*wallet.Monitor{mon}, time.Hour, testLogger(), WithOutput(&out))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	lines := strings.Count(out.String(), "You just received")
	assert.Equal(t, 1, lines, "exactly one summary from the final drain, got output %q", out.String())
}

func TestRun_PublishFailureIsNotFatal(t *testing.T) {
	sw := &stubWallet{step: decimal.RequireFromString("1")}
	mon := wallet.NewMonitor(sw, wallet.MonitorConfig{PollInterval: 5 * time.Millisecond}, nil, testLogger())

	var out bytes.Buffer
	pub := notify.NewMockPublisher()
	pub.SetPublishError(assert.AnError)
	r := New([]*wallet.Monitor{mon}, 25*time.Millisecond, testLogger(),
		WithOutput(&out),
		WithPublisher(pub),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	// summaries still reach the text pipeline
	assert.Contains(t, out.String(), "You just received")
}
