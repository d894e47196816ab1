package wallet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/brojonat/walletwatch/service/metrics"
	"github.com/shopspring/decimal"
)

// Monitor is the composition root for one wallet instance: one backend, one
// sampler, one buffer. PollOnce and LatestSummary are serialized by an
// internal mutex so record and flush never interleave; Transfer and
// SignMessage bypass that lock entirely since they touch neither the diff
// state nor the buffer.
type Monitor struct {
	wallet  Wallet
	sampler *Sampler
	buffer  *Buffer
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu sync.Mutex
}

// MonitorConfig carries the host-supplied options for one wallet instance.
type MonitorConfig struct {
	// PrimaryAsset is the asset polled for balance changes.
	// Defaults to the backend's first supported asset.
	PrimaryAsset string

	// PollInterval is the suspension between polling cycles.
	// Defaults to DefaultPollInterval.
	PollInterval time.Duration
}

// NewMonitor creates a monitor for one wallet. If m is nil, no metrics are
// recorded.
func NewMonitor(w Wallet, cfg MonitorConfig, m *metrics.Metrics, logger *slog.Logger) *Monitor {
	asset := cfg.PrimaryAsset
	if asset == "" {
		asset = w.SupportedAssets()[0]
	}
	return &Monitor{
		wallet:  w,
		sampler: NewSampler(w, asset, cfg.PollInterval, logger),
		buffer:  NewBuffer(asset),
		logger:  logger,
		metrics: m,
	}
}

// Wallet returns the underlying backend.
func (mon *Monitor) Wallet() Wallet {
	return mon.wallet
}

// PrimaryAsset returns the asset this monitor polls.
func (mon *Monitor) PrimaryAsset() string {
	return mon.sampler.asset
}

// PollOnce drives one sampling cycle and feeds the resulting delta into the
// buffer. It returns the sample for callers that want the raw observation.
func (mon *Monitor) PollOnce(ctx context.Context) (BalanceSample, error) {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	start := time.Now()
	sample, err := mon.sampler.Sample(ctx)
	if err != nil {
		if mon.metrics != nil && !errors.Is(err, context.Canceled) {
			mon.metrics.RecordPollCycle(mon.wallet.Address(), "error", time.Since(start).Seconds())
		}
		return BalanceSample{}, err
	}

	if mon.buffer.Record(sample) {
		mon.logger.InfoContext(ctx, "received funds",
			"wallet", mon.wallet.Address(),
			"asset", sample.Asset,
			"amount", sample.Delta.String(),
		)
		if mon.metrics != nil {
			mon.metrics.RecordReceipt(mon.wallet.Address(), sample.Asset)
		}
	}

	if mon.metrics != nil {
		mon.metrics.RecordPollCycle(mon.wallet.Address(), "success", time.Since(start).Seconds())
		bal, _ := sample.Value.Float64()
		mon.metrics.RecordBalance(mon.wallet.Address(), sample.Asset, bal)
	}

	return sample, nil
}

// LatestSummary flushes the buffer and returns the aggregated summary, or
// nil if no receipt events were recorded since the last flush.
func (mon *Monitor) LatestSummary() *Summary {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	summary := mon.buffer.Flush()
	if summary != nil && mon.metrics != nil {
		mon.metrics.RecordSummaryFlushed(mon.wallet.Address(), summary.Asset)
	}
	return summary
}

// Transfer passes through to the backend. No buffering is involved; outgoing
// value shows up as a negative delta on a later cycle and is ignored there.
func (mon *Monitor) Transfer(ctx context.Context, toAddress string, amount decimal.Decimal, asset string) *TransferResult {
	return mon.wallet.Transfer(ctx, toAddress, amount, asset)
}

// SignMessage passes through to the backend.
func (mon *Monitor) SignMessage(ctx context.Context, message string) *SignatureResult {
	return mon.wallet.SignMessage(ctx, message)
}

// Run polls until the context is cancelled. It is the single dedicated task
// the ordering guarantee in the capability contract asks callers to provide:
// one Run goroutine per wallet instance, no concurrent PollOnce calls.
func (mon *Monitor) Run(ctx context.Context) error {
	mon.logger.InfoContext(ctx, "starting wallet monitor",
		"wallet", mon.wallet.Address(),
		"asset", mon.sampler.asset,
		"poll_interval", mon.sampler.Interval(),
	)
	for {
		if _, err := mon.PollOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				mon.logger.InfoContext(ctx, "wallet monitor stopped", "wallet", mon.wallet.Address())
				return nil
			}
			// fetch_balance degrades to a stale read rather than erroring, so
			// anything else reaching this point is unexpected
			mon.logger.ErrorContext(ctx, "poll cycle failed",
				"wallet", mon.wallet.Address(),
				"error", err,
			)
		}
	}
}
