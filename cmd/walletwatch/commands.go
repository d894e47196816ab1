package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itchyny/gojq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/walletwatch/service/config"
	"github.com/brojonat/walletwatch/service/custodial"
	"github.com/brojonat/walletwatch/service/db"
	"github.com/brojonat/walletwatch/service/ethereum"
	"github.com/brojonat/walletwatch/service/metrics"
	"github.com/brojonat/walletwatch/service/notify"
	"github.com/brojonat/walletwatch/service/runtime"
	"github.com/brojonat/walletwatch/service/solana"
	"github.com/brojonat/walletwatch/service/wallet"
)

func backendFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "backend",
		Aliases:  []string{"b"},
		Usage:    "Wallet backend: ethereum, solana or custodial",
		Required: true,
	}
}

func filterFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "filter",
		Usage: "jq expression applied to the JSON output",
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the monitoring loop for all configured wallets",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m := metrics.NewMetrics(nil)

			monitors, err := runtime.BuildMonitors(ctx, cfg, m, logger)
			if err != nil {
				return err
			}

			opts := []runtime.Option{runtime.WithMetricsAddr(cfg.MetricsAddr)}

			if cfg.NATSURL != "" {
				publisher, err := notify.NewPublisher(cfg.NATSURL, m, logger)
				if err != nil {
					return err
				}
				defer publisher.Close()
				opts = append(opts, runtime.WithPublisher(publisher))
			}

			if cfg.DatabaseURL != "" {
				pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer pool.Close()
				store := db.NewStore(pool, m)
				if err := store.EnsureSchema(ctx); err != nil {
					return err
				}
				logger.Info("audit store enabled")
				opts = append(opts, runtime.WithStore(store))
			}

			return runtime.New(monitors, cfg.FlushInterval, logger, opts...).Run(ctx)
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Fetch the current balance for one wallet backend",
		Flags: []cli.Flag{
			backendFlag(),
			&cli.StringFlag{
				Name:  "asset",
				Usage: "Asset identifier (defaults to the backend's primary asset)",
			},
			filterFlag(),
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, time.Minute)
			defer cancel()
			w, err := oneShotWallet(ctx, c)
			if err != nil {
				return err
			}
			asset := c.String("asset")
			if asset == "" {
				asset = w.SupportedAssets()[0]
			}
			balance, err := w.FetchBalance(ctx, asset)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]string{
				"address": w.Address(),
				"asset":   asset,
				"balance": balance.String(),
			})
		},
	}
}

func addressCommand() *cli.Command {
	return &cli.Command{
		Name:  "address",
		Usage: "Print the wallet address for one backend",
		Flags: []cli.Flag{backendFlag(), filterFlag()},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, time.Minute)
			defer cancel()
			w, err := oneShotWallet(ctx, c)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]string{"address": w.Address()})
		},
	}
}

func assetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "assets",
		Usage: "List the supported assets for one backend",
		Flags: []cli.Flag{backendFlag(), filterFlag()},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, time.Minute)
			defer cancel()
			w, err := oneShotWallet(ctx, c)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]any{
				"address": w.Address(),
				"assets":  w.SupportedAssets(),
			})
		},
	}
}

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Usage:     "Transfer funds from a configured wallet",
		ArgsUsage: "TO_ADDRESS AMOUNT",
		Flags: []cli.Flag{
			backendFlag(),
			&cli.StringFlag{
				Name:  "asset",
				Usage: "Asset to transfer (defaults to the backend's primary asset)",
			},
			filterFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("expected TO_ADDRESS and AMOUNT arguments")
			}
			amount, err := decimal.NewFromString(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", c.Args().Get(1), err)
			}

			ctx, cancel := context.WithTimeout(c.Context, time.Minute)
			defer cancel()
			w, err := oneShotWallet(ctx, c)
			if err != nil {
				return err
			}
			asset := c.String("asset")
			if asset == "" {
				asset = w.SupportedAssets()[0]
			}

			result := w.Transfer(ctx, c.Args().Get(0), amount, asset)

			if store, closeStore, err := auditStore(ctx); err != nil {
				return err
			} else if store != nil {
				defer closeStore()
				if _, err := store.CreateTransfer(ctx, w.Address(), result); err != nil {
					return fmt.Errorf("failed to record transfer: %w", err)
				}
			}

			if err := printJSON(c, result); err != nil {
				return err
			}
			if result.Status == wallet.StatusFailed {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded summaries and transfers for a wallet address",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "wallet",
				Aliases:  []string{"w"},
				Usage:    "Wallet address to look up",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum rows per table",
				Value: 20,
			},
			filterFlag(),
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, time.Minute)
			defer cancel()

			store, closeStore, err := auditStore(ctx)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("DATABASE_URL is not set; the history command needs the audit store")
			}
			defer closeStore()

			addr := c.String("wallet")
			limit := int32(c.Int("limit"))
			summaries, err := store.ListSummariesByWallet(ctx, addr, limit)
			if err != nil {
				return err
			}
			transfers, err := store.ListTransfersByWallet(ctx, addr, limit)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]any{
				"wallet":    addr,
				"summaries": summaries,
				"transfers": transfers,
			})
		},
	}
}

// auditStore opens the audit store when DATABASE_URL is set. Returns a nil
// store (and no error) when it is not.
func auditStore(ctx context.Context) (*db.Store, func(), error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, nil, nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store := db.NewStore(pool, nil)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

func signCommand() *cli.Command {
	return &cli.Command{
		Name:      "sign",
		Usage:     "Sign a message with a configured wallet",
		ArgsUsage: "MESSAGE",
		Flags:     []cli.Flag{backendFlag(), filterFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected MESSAGE argument")
			}
			ctx, cancel := context.WithTimeout(c.Context, time.Minute)
			defer cancel()
			w, err := oneShotWallet(ctx, c)
			if err != nil {
				return err
			}
			result := w.SignMessage(ctx, c.Args().Get(0))
			if err := printJSON(c, result); err != nil {
				return err
			}
			if result.Status == wallet.StatusFailed {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// oneShotWallet builds a single backend wallet for the one-shot commands.
func oneShotWallet(ctx context.Context, c *cli.Context) (wallet.Wallet, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(c.String("log-level"))

	switch c.String("backend") {
	case "ethereum", "eth":
		if !cfg.EthereumEnabled() {
			return nil, fmt.Errorf("ETH_ADDRESS is not set")
		}
		client, err := ethereum.Dial(ctx, cfg.EthereumRPCURL)
		if err != nil {
			return nil, err
		}
		return ethereum.NewWallet(ctx, client, ethereum.Config{
			Address:       cfg.EthereumAddress,
			PrivateKeyHex: cfg.EthereumPrivateKey,
		}, nil, logger)
	case "solana", "sol":
		if !cfg.SolanaEnabled() {
			return nil, fmt.Errorf("SOLANA_WALLET_ADDRESS is not set")
		}
		return solana.NewWallet(ctx, solana.NewRPCClient(cfg.SolanaRPCURL), solana.Config{
			Address:          cfg.SolanaAddress,
			PrivateKeyBase58: cfg.SolanaPrivateKey,
		}, nil, logger)
	case "custodial", "coinbase":
		if !cfg.CustodialEnabled() {
			return nil, fmt.Errorf("COINBASE_WALLET_ID is not set")
		}
		api := custodial.NewAPIClient(cfg.CustodialAPIURL, cfg.CustodialAPIKey, cfg.CustodialAPISecret, 10*time.Second, logger)
		return custodial.NewWallet(ctx, api, custodial.Config{
			WalletID:     cfg.CustodialWalletID,
			PrimaryAsset: cfg.PrimaryAsset,
		}, nil, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q (want ethereum, solana or custodial)", c.String("backend"))
	}
}

// printJSON renders v as indented JSON on stdout, optionally filtered
// through a jq expression.
func printJSON(c *cli.Context, v any) error {
	filter := c.String("filter")
	if filter == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	// round-trip through encoding/json so gojq sees plain maps and slices
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	iter := code.Run(doc)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			return fmt.Errorf("jq filter failed: %w", err)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}
