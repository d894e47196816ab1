package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
//
// A chain backend is enabled when its account identifier is present:
// ETH_ADDRESS, SOLANA_WALLET_ADDRESS or COINBASE_WALLET_ID. The credential
// variables are optional for the on-chain backends (read-only mode) and
// required for the custodial backend.
type Config struct {
	LogLevel    string
	MetricsAddr string

	// Polling configuration
	PollInterval  time.Duration
	FlushInterval time.Duration
	PrimaryAsset  string

	// Optional downstream consumers
	NATSURL     string
	DatabaseURL string

	// Ethereum configuration
	EthereumRPCURL     string
	EthereumAddress    string
	EthereumPrivateKey string
	SimulateTransfers  bool

	// Solana configuration
	SolanaRPCURL     string
	SolanaAddress    string
	SolanaPrivateKey string

	// Custodial configuration
	CustodialAPIURL    string
	CustodialWalletID  string
	CustodialAPIKey    string
	CustodialAPISecret string
}

// Load reads configuration from environment variables and validates all
// required fields. Returns an error if any required configuration is missing
// or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9090")

	pollInterval, err := parseDuration("POLL_INTERVAL", "500ms")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PollInterval = pollInterval
	}

	flushInterval, err := parseDuration("FLUSH_INTERVAL", "5s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.FlushInterval = flushInterval
	}

	cfg.PrimaryAsset = getEnvOrDefault("PRIMARY_ASSET", "eth")

	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	// Ethereum
	cfg.EthereumRPCURL = getEnvOrDefault("ETH_RPC_URL", "https://eth.llamarpc.com")
	cfg.EthereumAddress = os.Getenv("ETH_ADDRESS")
	cfg.EthereumPrivateKey = os.Getenv("ETH_PRIVATE_KEY")
	simulate, err := parseBool("SIMULATE_TRANSFERS", false)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SimulateTransfers = simulate
	}

	// Solana
	cfg.SolanaRPCURL = getEnvOrDefault("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	cfg.SolanaAddress = os.Getenv("SOLANA_WALLET_ADDRESS")
	cfg.SolanaPrivateKey = os.Getenv("SOLANA_PRIVATE_KEY")

	// Custodial
	cfg.CustodialAPIURL = getEnvOrDefault("CUSTODIAL_API_URL", "https://api.cdp.coinbase.com")
	cfg.CustodialWalletID = os.Getenv("COINBASE_WALLET_ID")
	cfg.CustodialAPIKey = os.Getenv("COINBASE_API_KEY")
	cfg.CustodialAPISecret = os.Getenv("COINBASE_API_SECRET")

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for startup paths where misconfiguration should halt the process.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if !c.EthereumEnabled() && !c.SolanaEnabled() && !c.CustodialEnabled() {
		errs = append(errs, fmt.Errorf("no wallet configured: set at least one of ETH_ADDRESS, SOLANA_WALLET_ADDRESS, COINBASE_WALLET_ID"))
	}

	if c.CustodialWalletID != "" {
		if c.CustodialAPIKey == "" || c.CustodialAPISecret == "" {
			errs = append(errs, fmt.Errorf("COINBASE_API_KEY and COINBASE_API_SECRET are required when COINBASE_WALLET_ID is set"))
		}
	}

	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive"))
	}
	if c.FlushInterval < c.PollInterval {
		errs = append(errs, fmt.Errorf("FLUSH_INTERVAL (%v) cannot be shorter than POLL_INTERVAL (%v)",
			c.FlushInterval, c.PollInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%v", errs)
	}
	return nil
}

// EthereumEnabled reports whether an Ethereum wallet is configured.
func (c *Config) EthereumEnabled() bool {
	return c.EthereumAddress != ""
}

// SolanaEnabled reports whether a Solana wallet is configured.
func (c *Config) SolanaEnabled() bool {
	return c.SolanaAddress != ""
}

// CustodialEnabled reports whether a custodial wallet is configured.
func (c *Config) CustodialEnabled() bool {
	return c.CustodialWalletID != ""
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
