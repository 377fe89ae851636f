package collector

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// batchPlanner walks a block range in windows of a mutable size. The size
// lives only for one scan: range-limit errors halve it (floored at minRange)
// and retry the same start, other exhausted failures skip the window and move
// on. A scan therefore never fails outright, it degrades completeness.
type batchPlanner struct {
	fetcher         *logFetcher
	classifier      RangeLimitClassifier
	minRange        uint64
	maxRange        uint64
	interBatchDelay time.Duration
	logger          *zap.Logger
	sleep           sleepFunc
}

func newBatchPlanner(fetcher *logFetcher, classifier RangeLimitClassifier, cfg Config, logger *zap.Logger) *batchPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &batchPlanner{
		fetcher:         fetcher,
		classifier:      classifier,
		minRange:        cfg.MinBlockRange,
		maxRange:        cfg.MaxBlockRange,
		interBatchDelay: cfg.InterBatchDelay,
		logger:          logger,
		sleep:           sleepContext,
	}
}

// scan fetches [fromBlock, toBlock] and returns raw logs in arrival order.
// Sorting is the aggregator's job.
func (p *batchPlanner) scan(ctx context.Context, fromBlock, toBlock, batchSize uint64) []types.Log {
	batchSize = p.clampBatchSize(batchSize)

	var collected []types.Log
	start := fromBlock
	for start <= toBlock {
		if ctx.Err() != nil {
			p.logger.Warn("scan cancelled",
				zap.Uint64("next_start", start),
				zap.Uint64("to", toBlock),
				zap.Error(ctx.Err()),
			)
			break
		}

		end := start + batchSize - 1
		if end > toBlock {
			end = toBlock
		}

		logs, err := p.fetcher.fetchWindow(ctx, start, end)
		if err == nil {
			collected = append(collected, logs...)
			p.logger.Debug("window complete",
				zap.Uint64("from", start),
				zap.Uint64("to", end),
				zap.Int("logs", len(logs)),
			)
			if end >= toBlock {
				break
			}
			if p.interBatchDelay > 0 {
				if err := p.sleep(ctx, p.interBatchDelay); err != nil {
					break
				}
			}
			start = end + 1
			continue
		}

		if p.classifier.IsRangeLimit(err) && batchSize > p.minRange {
			next := batchSize / 2
			if next < p.minRange {
				next = p.minRange
			}
			p.logger.Warn("provider range limit hit, shrinking batch",
				zap.Uint64("from", start),
				zap.Uint64("batch_size", batchSize),
				zap.Uint64("next_batch_size", next),
			)
			batchSize = next
			// Same start, smaller window on the next iteration.
			continue
		}

		p.logger.Warn("window skipped",
			zap.Uint64("from", start),
			zap.Uint64("to", end),
			zap.Error(err),
		)
		start = end + 1
	}

	return collected
}

func (p *batchPlanner) clampBatchSize(batchSize uint64) uint64 {
	if batchSize < p.minRange {
		return p.minRange
	}
	if batchSize > p.maxRange {
		return p.maxRange
	}
	return batchSize
}
