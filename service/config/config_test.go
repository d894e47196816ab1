package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearWalletEnv blanks every variable Load reads so tests are insulated
// from the invoking shell.
func clearWalletEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOG_LEVEL", "METRICS_ADDR", "POLL_INTERVAL", "FLUSH_INTERVAL",
		"PRIMARY_ASSET", "NATS_URL", "DATABASE_URL",
		"ETH_RPC_URL", "ETH_ADDRESS", "ETH_PRIVATE_KEY", "SIMULATE_TRANSFERS",
		"SOLANA_RPC_URL", "SOLANA_WALLET_ADDRESS", "SOLANA_PRIVATE_KEY",
		"CUSTODIAL_API_URL", "COINBASE_WALLET_ID", "COINBASE_API_KEY", "COINBASE_API_SECRET",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("ETH_ADDRESS", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.FlushInterval)
	assert.Equal(t, "eth", cfg.PrimaryAsset)
	assert.Equal(t, "https://eth.llamarpc.com", cfg.EthereumRPCURL)
	assert.True(t, cfg.EthereumEnabled())
	assert.False(t, cfg.SolanaEnabled())
	assert.False(t, cfg.CustodialEnabled())
	assert.False(t, cfg.SimulateTransfers)
}

func TestLoad_NoWalletConfigured(t *testing.T) {
	clearWalletEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no wallet configured")
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("ETH_ADDRESS", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	t.Setenv("POLL_INTERVAL", "fast")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLL_INTERVAL")
}

func TestLoad_InvalidBool(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("ETH_ADDRESS", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	t.Setenv("SIMULATE_TRANSFERS", "definitely")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIMULATE_TRANSFERS")
}

func TestLoad_CustodialRequiresCredentials(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("COINBASE_WALLET_ID", "wlt_8f3a2c")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COINBASE_API_KEY")
}

func TestLoad_CustodialComplete(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("COINBASE_WALLET_ID", "wlt_8f3a2c")
	t.Setenv("COINBASE_API_KEY", "key")
	t.Setenv("COINBASE_API_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.CustodialEnabled())
	assert.Equal(t, "https://api.cdp.coinbase.com", cfg.CustodialAPIURL)
}

func TestValidate_FlushShorterThanPoll(t *testing.T) {
	cfg := &Config{
		EthereumAddress: "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
		PollInterval:    time.Second,
		FlushInterval:   100 * time.Millisecond,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FLUSH_INTERVAL")
}

func TestValidate_MultipleBackends(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("ETH_ADDRESS", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	t.Setenv("SOLANA_WALLET_ADDRESS", "4Nd1mYvNQ7kyqa3eM7Yu7jVZJ1cLSPrqcx2bYDkPvEa4")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("FLUSH_INTERVAL", "10s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.EthereumEnabled())
	assert.True(t, cfg.SolanaEnabled())
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.FlushInterval)
}
