// Package db persists flushed receipt summaries and transfer results as an
// audit trail. The polling pipeline itself is purely in-memory; the store is
// an optional downstream consumer.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/brojonat/walletwatch/service/metrics"
	"github.com/brojonat/walletwatch/service/wallet"
)

// Store provides database operations for the service.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If m is nil, no metrics are recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{pool: pool, metrics: m}
}

const schema = `
CREATE TABLE IF NOT EXISTS receipt_summaries (
	id             BIGSERIAL PRIMARY KEY,
	wallet_address TEXT        NOT NULL,
	asset          TEXT        NOT NULL,
	amount         NUMERIC     NOT NULL,
	summary_text   TEXT        NOT NULL,
	summarized_at  TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_receipt_summaries_wallet
	ON receipt_summaries (wallet_address, summarized_at DESC);

CREATE TABLE IF NOT EXISTS transfers (
	id             BIGSERIAL PRIMARY KEY,
	wallet_address TEXT        NOT NULL,
	tx_reference   TEXT,
	status         TEXT        NOT NULL,
	amount         NUMERIC     NOT NULL,
	asset          TEXT        NOT NULL,
	to_address     TEXT        NOT NULL,
	error          TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transfers_wallet
	ON transfers (wallet_address, created_at DESC);
`

// EnsureSchema creates the audit tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SummaryRecord is one persisted receipt summary.
type SummaryRecord struct {
	ID            int64           `json:"id"`
	WalletAddress string          `json:"wallet_address"`
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	SummaryText   string          `json:"summary_text"`
	SummarizedAt  time.Time       `json:"summarized_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransferRecord is one persisted transfer outcome.
type TransferRecord struct {
	ID            int64           `json:"id"`
	WalletAddress string          `json:"wallet_address"`
	TxReference   *string         `json:"tx_reference,omitempty"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Asset         string          `json:"asset"`
	ToAddress     string          `json:"to_address"`
	Error         *string         `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CreateSummary inserts a flushed summary for the given wallet.
func (s *Store) CreateSummary(ctx context.Context, walletAddress string, summary *wallet.Summary) (*SummaryRecord, error) {
	start := time.Now()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO receipt_summaries (wallet_address, asset, amount, summary_text, summarized_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		walletAddress, summary.Asset, summary.Amount, summary.Text, summary.Timestamp,
	)

	rec := &SummaryRecord{
		WalletAddress: walletAddress,
		Asset:         summary.Asset,
		Amount:        summary.Amount,
		SummaryText:   summary.Text,
		SummarizedAt:  summary.Timestamp,
	}
	err := row.Scan(&rec.ID, &rec.CreatedAt)
	if s.metrics != nil {
		s.metrics.RecordDBQuery("insert", "receipt_summaries", time.Since(start).Seconds(), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert summary: %w", err)
	}
	return rec, nil
}

// ListSummariesByWallet returns the most recent summaries for a wallet,
// newest first.
func (s *Store) ListSummariesByWallet(ctx context.Context, walletAddress string, limit int32) ([]*SummaryRecord, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT id, wallet_address, asset, amount, summary_text, summarized_at, created_at
		FROM receipt_summaries
		WHERE wallet_address = $1
		ORDER BY summarized_at DESC
		LIMIT $2`,
		walletAddress, limit,
	)
	if s.metrics != nil {
		s.metrics.RecordDBQuery("select", "receipt_summaries", time.Since(start).Seconds(), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var records []*SummaryRecord
	for rows.Next() {
		rec := &SummaryRecord{}
		if err := rows.Scan(&rec.ID, &rec.WalletAddress, &rec.Asset, &rec.Amount,
			&rec.SummaryText, &rec.SummarizedAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CreateTransfer inserts a transfer outcome for the given wallet.
func (s *Store) CreateTransfer(ctx context.Context, walletAddress string, result *wallet.TransferResult) (*TransferRecord, error) {
	var txRef, errText *string
	if result.TxReference != "" {
		txRef = &result.TxReference
	}
	if result.Error != "" {
		errText = &result.Error
	}

	start := time.Now()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO transfers (wallet_address, tx_reference, status, amount, asset, to_address, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		walletAddress, txRef, string(result.Status), result.Amount, result.Asset, result.ToAddress, errText,
	)

	rec := &TransferRecord{
		WalletAddress: walletAddress,
		TxReference:   txRef,
		Status:        string(result.Status),
		Amount:        result.Amount,
		Asset:         result.Asset,
		ToAddress:     result.ToAddress,
		Error:         errText,
	}
	err := row.Scan(&rec.ID, &rec.CreatedAt)
	if s.metrics != nil {
		s.metrics.RecordDBQuery("insert", "transfers", time.Since(start).Seconds(), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert transfer: %w", err)
	}
	return rec, nil
}

// ListTransfersByWallet returns the most recent transfers for a wallet,
// newest first.
func (s *Store) ListTransfersByWallet(ctx context.Context, walletAddress string, limit int32) ([]*TransferRecord, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT id, wallet_address, tx_reference, status, amount, asset, to_address, error, created_at
		FROM transfers
		WHERE wallet_address = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		walletAddress, limit,
	)
	if s.metrics != nil {
		s.metrics.RecordDBQuery("select", "transfers", time.Since(start).Seconds(), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var records []*TransferRecord
	for rows.Next() {
		rec := &TransferRecord{}
		if err := rows.Scan(&rec.ID, &rec.WalletAddress, &rec.TxReference, &rec.Status,
			&rec.Amount, &rec.Asset, &rec.ToAddress, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
