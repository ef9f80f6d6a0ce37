package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evm-performance-test/client"
	"evm-performance-test/load"
)

const envPrefix = "EVMPERF"

var (
	configPath     string
	resultPath     string
	logLevel       string
	fundingDisplay string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "evm-load",
		Short: "Synthetic transaction load generator for EVM chains",
		Long: `Provisions a batch of ephemeral accounts, funds them from a single
funder account in one bulk transfer, and drives each account through one
light (counter increment) or heavy (array write) chain operation in
bounded-concurrency batches.`,
	}

	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one load test",
		Long: `Run one load test against the configured RPC endpoint.

Example:
  evm-load run --rpc-url http://127.0.0.1:8545 \
    --funder-private-key $FUNDER_KEY \
    --funding-amount 1000000000000000000 \
    --num-accounts 250 --workload light`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return run(config)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config-file", "f", "", "Path to an optional JSON configuration file")
	cmd.Flags().StringVar(&resultPath, "result", "result.json", "Path of the JSON result file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (trace|debug|info|warn|error)")

	cmd.Flags().StringP("rpc-url", "r", "", "JSON-RPC endpoint of the target node")
	cmd.Flags().StringP("funder-private-key", "k", "", "Hex private key of the pre-funded account")
	cmd.Flags().Uint64P("funding-amount", "a", 0, "Seed amount per account, in wei")
	cmd.Flags().StringVar(&fundingDisplay, "funding-amount-eth", "", "Seed amount per account, in the 18-decimal display unit (e.g. 0.5)")
	cmd.Flags().Uint64P("num-accounts", "n", 0, "Number of ephemeral accounts to provision")
	cmd.Flags().StringP("workload", "t", "light", "Workload kind: light or heavy")
	cmd.Flags().Int("max-batch-size", load.DefaultMaxBatchSize, "Maximum concurrently dispatched tasks")
	cmd.Flags().Uint64("load-count", 0, "Heavy-call magnitude (defaults to the ceiling)")
	cmd.Flags().Uint64("max-load-count", load.DefaultMaxLoadCount, "Per-block heavy-call ceiling")
	cmd.Flags().Bool("clamp-load", false, "Clamp the heavy-call magnitude at the ceiling instead of failing")
	cmd.Flags().Bool("preflight", true, "Check each signer's balance against the estimated heavy-call cost")
	cmd.Flags().String("counter-address", "", "Address of the counter contract")
	cmd.Flags().String("load-address", "", "Address of the load contract")
	cmd.Flags().String("fund-address", "", "Address of the bulk funding contract")
	cmd.Flags().Bool("abort-on-failure", false, "Stop launching batches after a batch has a failed task")
	cmd.Flags().Int("target-tps", 0, "Throttle task launches to this rate (0 = unlimited)")
	cmd.Flags().Bool("log-private-keys", false, "Log generated private keys (insecure, explicit opt-in)")
	cmd.Flags().Duration("receipt-timeout", client.DefaultReceiptTimeout, "How long to wait for a transaction receipt")

	return cmd
}

// loadConfig merges flags, environment variables (EVMPERF_*) and the
// optional config file, in that precedence order.
func loadConfig(cmd *cobra.Command) (*load.LoadConfig, error) {
	v := viper.New()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	config := &load.LoadConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if fundingDisplay != "" {
		if cmd.Flags().Changed("funding-amount") {
			return nil, fmt.Errorf("--funding-amount and --funding-amount-eth are mutually exclusive")
		}
		amount, err := load.ParseFundingAmount(fundingDisplay)
		if err != nil {
			return nil, fmt.Errorf("invalid --funding-amount-eth: %w", err)
		}
		config.FundingAmount = amount
	}

	return config, nil
}

func run(config *load.LoadConfig) error {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "evm-load",
		Level: hclog.LevelFromString(logLevel),
	})

	ctx := context.Background()

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return err
	}

	chain, err := client.NewEthClient(ctx, &client.Config{
		RPCURL:         config.RPCURL,
		CounterAddress: common.HexToAddress(config.CounterAddress),
		LoadAddress:    common.HexToAddress(config.LoadAddress),
		FundAddress:    common.HexToAddress(config.FundAddress),
		ReceiptTimeout: config.ReceiptTimeout,
	}, logger)
	if err != nil {
		return err
	}

	orchestrator, err := load.NewOrchestrator(config, chain, nil, logger)
	if err != nil {
		return err
	}

	result, err := orchestrator.Load(ctx)
	if err != nil {
		return err
	}

	if err := writeResult(result, resultPath); err != nil {
		return err
	}

	logger.Info("done",
		"succeeded", result.SucceededTasks,
		"failed", result.FailedTasks,
		"elapsed", result.EndTime.Sub(*result.StartTime).Round(time.Millisecond),
		"result", resultPath,
	)

	// Isolated task failures still exit non-zero, but are summarized so
	// they read differently from a run that never completed.
	if summary := result.FailureSummary(); summary != "" {
		logger.Error("run completed with task failures",
			"succeeded", result.SucceededTasks,
			"failed", result.FailedTasks,
			"batches", result.BatchCount,
			"aborted", result.Aborted,
		)
		return fmt.Errorf("%s", summary)
	}

	return nil
}

func writeResult(result *load.Result, path string) error {
	resultJSON, err := json.MarshalIndent(result, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal result json: %w", err)
	}

	if err := os.WriteFile(path, resultJSON, 0o644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	return nil
}
