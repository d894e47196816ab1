package wallet

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPollInterval is the suspension between polling cycles when the
// configuration does not specify one.
const DefaultPollInterval = 500 * time.Millisecond

// Sampler drives one wallet on a fixed interval and turns raw balance reads
// into (balance, delta) samples. The previous value advances unconditionally
// after every completed fetch, including zero and negative deltas, so each
// delta is measured against the immediately preceding sample.
//
// Sampler is not safe for concurrent use; callers serialize Sample calls per
// wallet instance (the Monitor does this).
type Sampler struct {
	wallet   Wallet
	asset    string
	interval time.Duration
	logger   *slog.Logger

	previous decimal.Decimal
	primed   bool
}

// NewSampler creates a sampler for one wallet and one asset. If interval is
// non-positive, DefaultPollInterval is used.
func NewSampler(w Wallet, asset string, interval time.Duration, logger *slog.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Sampler{
		wallet:   w,
		asset:    asset,
		interval: interval,
		logger:   logger,
	}
}

// Interval returns the configured polling interval.
func (s *Sampler) Interval() time.Duration {
	return s.interval
}

// Sample suspends for the polling interval, fetches the current balance and
// emits a sample. The first cycle primes the previous value and reports a
// zero delta. Cancellation mid-wait or mid-fetch leaves the previous value
// untouched; state only advances after a fetch completes.
func (s *Sampler) Sample(ctx context.Context) (BalanceSample, error) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return BalanceSample{}, ctx.Err()
	case <-timer.C:
	}

	current, err := s.wallet.FetchBalance(ctx, s.asset)
	if err != nil {
		return BalanceSample{}, err
	}

	sample := BalanceSample{
		ObservedAt: time.Now().UTC(),
		Asset:      s.asset,
		Value:      current,
	}
	if s.primed {
		sample.Delta = current.Sub(s.previous)
	}
	s.previous = current
	s.primed = true

	s.logger.DebugContext(ctx, "balance sampled",
		"wallet", s.wallet.Address(),
		"asset", s.asset,
		"balance", current.String(),
		"delta", sample.Delta.String(),
	)

	return sample, nil
}
