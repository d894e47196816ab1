// Package runtime is the host: it owns the wallet monitors, runs each one's
// polling loop in a dedicated goroutine, flushes receipt buffers on a fixed
// cadence and fans the resulting summaries out to the text pipeline and the
// optional downstream consumers (NATS, Postgres).
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/walletwatch/service/db"
	"github.com/brojonat/walletwatch/service/notify"
	"github.com/brojonat/walletwatch/service/wallet"
)

// Runtime drives a set of wallet monitors until shutdown.
type Runtime struct {
	monitors      []*wallet.Monitor
	publisher     notify.Publisher
	store         *db.Store
	flushInterval time.Duration
	metricsAddr   string
	out           io.Writer
	logger        *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithPublisher attaches a NATS publisher for flushed summaries.
func WithPublisher(p notify.Publisher) Option {
	return func(r *Runtime) { r.publisher = p }
}

// WithStore attaches a Postgres audit store for flushed summaries.
func WithStore(s *db.Store) Option {
	return func(r *Runtime) { r.store = s }
}

// WithMetricsAddr serves Prometheus metrics on the given address.
func WithMetricsAddr(addr string) Option {
	return func(r *Runtime) { r.metricsAddr = addr }
}

// WithOutput redirects the summary text pipeline (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) { r.out = w }
}

// New creates a runtime for the given monitors. flushInterval controls how
// often each monitor's buffer is flushed into a summary.
func New(monitors []*wallet.Monitor, flushInterval time.Duration, logger *slog.Logger, opts ...Option) *Runtime {
	r := &Runtime{
		monitors:      monitors,
		flushInterval: flushInterval,
		out:           os.Stdout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts one polling goroutine and one flushing goroutine per monitor
// and blocks until the context is cancelled. On shutdown each buffer is
// flushed one final time so buffered receipts are not lost.
func (r *Runtime) Run(ctx context.Context) error {
	if len(r.monitors) == 0 {
		return fmt.Errorf("no wallet monitors configured")
	}

	var metricsServer *http.Server
	if r.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: r.metricsAddr, Handler: mux}
		go func() {
			r.logger.Info("serving metrics", "addr", r.metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	var wg sync.WaitGroup
	for _, mon := range r.monitors {
		wg.Add(2)

		// one dedicated polling task per wallet; PollOnce calls are never
		// concurrent for the same instance
		go func(mon *wallet.Monitor) {
			defer wg.Done()
			_ = mon.Run(ctx)
		}(mon)

		go func(mon *wallet.Monitor) {
			defer wg.Done()
			r.flushLoop(ctx, mon)
		}(mon)
	}

	<-ctx.Done()
	r.logger.Info("shutting down runtime")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	wg.Wait()
	return nil
}

// flushLoop drains one monitor's buffer on the flush cadence.
func (r *Runtime) flushLoop(ctx context.Context, mon *wallet.Monitor) {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// final drain so receipts buffered since the last tick survive
			// shutdown
			r.deliver(context.WithoutCancel(ctx), mon, mon.LatestSummary())
			return
		case <-ticker.C:
			r.deliver(ctx, mon, mon.LatestSummary())
		}
	}
}

// deliver fans one summary out to the text pipeline and the optional
// consumers. Delivery failures are logged, never fatal: the next flush
// carries new events regardless.
func (r *Runtime) deliver(ctx context.Context, mon *wallet.Monitor, summary *wallet.Summary) {
	if summary == nil {
		return
	}
	addr := mon.Wallet().Address()

	fmt.Fprintln(r.out, summary.Text)
	r.logger.InfoContext(ctx, "receipt summary",
		"wallet", addr,
		"asset", summary.Asset,
		"amount", summary.Amount.String(),
	)

	if r.publisher != nil {
		if err := r.publisher.PublishSummary(ctx, notify.FromSummary(addr, summary)); err != nil {
			r.logger.ErrorContext(ctx, "failed to publish summary", "wallet", addr, "error", err)
		}
	}
	if r.store != nil {
		if _, err := r.store.CreateSummary(ctx, addr, summary); err != nil {
			r.logger.ErrorContext(ctx, "failed to persist summary", "wallet", addr, "error", err)
		}
	}
}
