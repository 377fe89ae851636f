// Package collector reconstructs typed perp domain events from an RPC
// node's eth_getLogs, adapting the query window size to whatever block range
// limit the provider happens to enforce.
package collector

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"perpscope/internal/decode"
	"perpscope/internal/model"
)

// ChainReader is the subset of the RPC client the collector depends on.
// Implementations are expected to rate-limit internally.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Collector is the public entry point. All per-scan state (window size,
// fetched logs) is local to one QueryEvents call; concurrent scans only
// share the chain client and its rate limiter.
type Collector struct {
	chain      ChainReader
	classifier RangeLimitClassifier
	decoder    *decode.Decoder
	cfg        Config
	logger     *zap.Logger
}

// New builds a Collector. A zero-value field in cfg falls back to its
// default.
func New(chainReader ChainReader, cfg Config, logger *zap.Logger) (*Collector, error) {
	if chainReader == nil {
		return nil, fmt.Errorf("chain reader is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	decoder, err := decode.NewDecoder(chainReader, logger)
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}

	return &Collector{
		chain:      chainReader,
		classifier: DefaultRangeLimitClassifier(),
		decoder:    decoder,
		cfg:        cfg.withDefaults(),
		logger:     logger,
	}, nil
}

// QueryEvents scans the filter's block range and returns the decoded events,
// most recent first. It never panics and never returns an error value:
// validation and initial connectivity failures populate QueryResult.Error,
// everything else degrades completeness.
func (c *Collector) QueryEvents(ctx context.Context, filter model.EventFilter) model.QueryResult {
	started := time.Now()
	result := model.QueryResult{Events: []model.DomainEvent{}}
	finish := func() model.QueryResult {
		result.QueryTimeMs = time.Since(started).Milliseconds()
		return result
	}

	if !common.IsHexAddress(filter.ContractAddress) {
		result.Error = fmt.Sprintf("invalid contract address: %q", filter.ContractAddress)
		return finish()
	}
	if filter.FromBlock != nil && filter.ToBlock != nil && *filter.FromBlock > *filter.ToBlock {
		result.Error = fmt.Sprintf("fromBlock %d is greater than toBlock %d", *filter.FromBlock, *filter.ToBlock)
		return finish()
	}

	head, err := c.chain.BlockNumber(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("block height probe failed: %v", err)
		return finish()
	}

	chainID := c.resolveChainID(ctx)
	fromBlock, toBlock := c.resolveRange(filter, head)
	if fromBlock > toBlock {
		result.Error = fmt.Sprintf("resolved fromBlock %d is greater than toBlock %d", fromBlock, toBlock)
		return finish()
	}
	result.FromBlock = fromBlock
	result.ToBlock = toBlock

	batchSize := filter.BatchSize
	if batchSize == 0 {
		batchSize = c.cfg.DefaultBatchSize
	}

	contract := common.HexToAddress(filter.ContractAddress)
	fetcher := newLogFetcher(
		func(ctx context.Context, from, to uint64) ([]types.Log, error) {
			return c.chain.FilterLogs(ctx, from, to, []common.Address{contract}, nil)
		},
		c.classifier, c.cfg.MaxRetries, c.cfg.RetryDelay, c.logger,
	)
	planner := newBatchPlanner(fetcher, c.classifier, c.cfg, c.logger)

	rawLogs := planner.scan(ctx, fromBlock, toBlock, batchSize)

	decodeFilter := decode.Filter{
		EventTypes:  filter.EventTypes,
		UserAddress: filter.UserAddress,
	}
	for _, rawLog := range rawLogs {
		record := buildRawRecord(chainID, rawLog)
		// Foreign logs from the contract are expected; skip them before
		// paying for topic parsing and a block-timestamp lookup.
		if len(record.Topics) == 0 || !c.decoder.CanDecode(record.Topics[0]) {
			c.logger.Debug("unrecognized log skipped",
				zap.Uint64("block_number", record.BlockNumber),
				zap.String("tx_hash", record.TxHash),
				zap.Uint64("log_index", record.LogIndex),
			)
			continue
		}
		event, err := c.decoder.Decode(ctx, record, decodeFilter)
		if err != nil {
			c.logger.Warn("log dropped",
				zap.Uint64("block_number", record.BlockNumber),
				zap.String("tx_hash", record.TxHash),
				zap.Uint64("log_index", record.LogIndex),
				zap.Error(err),
			)
			continue
		}
		if event == nil {
			continue
		}
		result.Events = append(result.Events, *event)
	}

	result.Events = aggregate(result.Events, filter.Limit)
	result.TotalLogs = len(result.Events)
	return finish()
}

// resolveChainID probes the provider, falling back to the configured default
// so a degraded provider still yields events with a chain id.
func (c *Collector) resolveChainID(ctx context.Context) uint64 {
	chainID, err := c.chain.ChainID(ctx)
	if err != nil || !chainID.IsUint64() {
		c.logger.Warn("chain id probe failed, using configured default",
			zap.Uint64("default_chain_id", c.cfg.DefaultChainID),
			zap.Error(err),
		)
		return c.cfg.DefaultChainID
	}
	return chainID.Uint64()
}

func (c *Collector) resolveRange(filter model.EventFilter, head uint64) (uint64, uint64) {
	toBlock := head
	if filter.ToBlock != nil {
		toBlock = *filter.ToBlock
	}

	var fromBlock uint64
	if filter.FromBlock != nil {
		fromBlock = *filter.FromBlock
	} else if toBlock >= c.cfg.LookbackBlocks {
		fromBlock = toBlock - c.cfg.LookbackBlocks + 1
	}
	return fromBlock, toBlock
}

func buildRawRecord(chainID uint64, log types.Log) model.RawLogRecord {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}

	return model.RawLogRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Removed:     log.Removed,
	}
}
