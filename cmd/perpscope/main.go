package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"perpscope/internal/chain"
	"perpscope/internal/collector"
	"perpscope/internal/config"
	"perpscope/internal/model"
	"perpscope/internal/ratelimit"
	"perpscope/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "perpscope",
		Short:        "Perp contract event collector",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Scan a block range and print decoded events",
		RunE:  runQuery,
	}

	queryCmd.Flags().String("rpc", "", "RPC URL")
	queryCmd.Flags().Uint64("chain-id", 1, "fallback chain id when the provider probe fails")
	queryCmd.Flags().String("contract", "", "perp contract address")
	queryCmd.Flags().StringSlice("event-type", nil, "event names to keep (comma-separated, default all)")
	queryCmd.Flags().String("user", "", "keep only events about this address")
	queryCmd.Flags().Uint64("from", 0, "start block (inclusive), 0 means look-back window")
	queryCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	queryCmd.Flags().Int("limit", 0, "maximum events returned, 0 means all")
	queryCmd.Flags().Uint64("batch-size", 50, "initial blocks per getLogs window")
	queryCmd.Flags().Uint64("min-block-range", 10, "window floor when shrinking")
	queryCmd.Flags().Uint64("max-block-range", 500, "window ceiling")
	queryCmd.Flags().Uint64("lookback-blocks", 1000, "default scan depth when --from is 0")
	queryCmd.Flags().Int("max-retries", 3, "attempts per window for transient errors")
	queryCmd.Flags().Duration("retry-delay", time.Second, "base of the linear retry backoff")
	queryCmd.Flags().Duration("inter-batch-delay", 500*time.Millisecond, "pause between successful windows")
	queryCmd.Flags().Duration("rate-limit-interval", 100*time.Millisecond, "minimum spacing between RPC calls")
	queryCmd.Flags().String("out", "", "optional JSONL output path for events")
	queryCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(queryCmd)

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check provider connectivity",
		RunE:  runHealth,
	}

	healthCmd.Flags().String("rpc", "", "RPC URL")
	healthCmd.Flags().Duration("rate-limit-interval", 100*time.Millisecond, "minimum spacing between RPC calls")
	healthCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(healthCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runQuery(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Contract == "" {
		return fmt.Errorf("contract address is required")
	}

	eventTypes, err := model.ParseEventNames(cfg.EventTypes)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.NewInterval(cfg.RateLimitInterval)
	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, limiter)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	coll, err := collector.New(chainClient, collector.Config{
		DefaultChainID:   cfg.ChainID,
		DefaultBatchSize: cfg.BatchSize,
		MinBlockRange:    cfg.MinBlockRange,
		MaxBlockRange:    cfg.MaxBlockRange,
		LookbackBlocks:   cfg.LookbackBlocks,
		MaxRetries:       cfg.MaxRetries,
		RetryDelay:       cfg.RetryDelay,
		InterBatchDelay:  cfg.InterBatchDelay,
	}, logger)
	if err != nil {
		return err
	}

	filter := model.EventFilter{
		ContractAddress: cfg.Contract,
		EventTypes:      eventTypes,
		UserAddress:     cfg.User,
		Limit:           cfg.Limit,
	}
	if cfg.FromBlock != 0 {
		from := cfg.FromBlock
		filter.FromBlock = &from
	}
	if cfg.ToBlock != 0 {
		to := cfg.ToBlock
		filter.ToBlock = &to
	}

	logger.Info("query start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", cfg.Contract),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Int("event_types", len(eventTypes)),
	)

	result := coll.QueryEvents(ctx, filter)

	if cfg.Out != "" {
		sink := storage.NewJsonlStorage(cfg.Out)
		if err := sink.PutEventBatch(result.Events); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
		logger.Info("events written", zap.String("out", cfg.Out), zap.Int("events", len(result.Events)))
	}

	return printJSON(result)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	rpcURL, _ := cmd.Flags().GetString("rpc")
	interval, _ := cmd.Flags().GetDuration("rate-limit-interval")
	level, _ := cmd.Flags().GetString("log-level")

	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if rpcURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, rpcURL, ratelimit.NewInterval(interval))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	coll, err := collector.New(chainClient, collector.DefaultConfig(), logger)
	if err != nil {
		return err
	}

	return printJSON(coll.CheckHealth(ctx))
}

func printJSON(value interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
