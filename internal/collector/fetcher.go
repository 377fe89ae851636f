package collector

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

type fetchFunc func(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error)

type sleepFunc func(ctx context.Context, d time.Duration) error

// logFetcher issues one getLogs request per window and retries transient
// failures with linear backoff. Range-limit errors are returned immediately
// and undelayed: retrying the same window size cannot help, the planner has
// to shrink it.
type logFetcher struct {
	fetch      fetchFunc
	classifier RangeLimitClassifier
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	sleep      sleepFunc
}

func newLogFetcher(fetch fetchFunc, classifier RangeLimitClassifier, maxRetries int, retryDelay time.Duration, logger *zap.Logger) *logFetcher {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logFetcher{
		fetch:      fetch,
		classifier: classifier,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
		sleep:      sleepContext,
	}
}

func (f *logFetcher) fetchWindow(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		logs, err := f.fetch(ctx, fromBlock, toBlock)
		if err == nil {
			return logs, nil
		}
		lastErr = err

		// A dead context is not a transient provider failure; stop
		// without the retry warning or backoff.
		if ctx.Err() != nil {
			return nil, err
		}

		if f.classifier.IsRangeLimit(err) {
			return nil, err
		}

		f.logger.Warn("fetch logs failed",
			zap.Uint64("from", fromBlock),
			zap.Uint64("to", toBlock),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", f.maxRetries),
			zap.Error(err),
		)

		if attempt < f.maxRetries {
			if err := f.sleep(ctx, f.retryDelay*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
