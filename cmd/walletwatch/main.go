package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "walletwatch",
		Usage: "Multi-chain wallet balance monitoring CLI",
		Description: `Monitors Ethereum, Solana and custodial wallets for incoming funds,
and exposes one-shot balance, transfer and message-signing operations.

Wallet credentials are read from the environment (or a .env file in the
working directory): ETH_ADDRESS/ETH_PRIVATE_KEY, SOLANA_WALLET_ADDRESS/
SOLANA_PRIVATE_KEY, COINBASE_WALLET_ID/COINBASE_API_KEY/COINBASE_API_SECRET.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Before: func(c *cli.Context) error {
			// missing .env is fine; the environment may already be populated
			_ = godotenv.Load()
			return nil
		},
		Commands: []*cli.Command{
			runCommand(),
			balanceCommand(),
			addressCommand(),
			assetsCommand(),
			transferCommand(),
			signCommand(),
			historyCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setupLogger builds the CLI logger with a tint handler.
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
}
