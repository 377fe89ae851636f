package collector

import "time"

// Config holds the collector's tuning knobs. Callers pass it explicitly;
// nothing is read from ambient state.
type Config struct {
	// DefaultChainID is used when the chain-id probe fails; events still
	// need a chain id even on a degraded provider.
	DefaultChainID uint64
	// DefaultBatchSize is the initial query window. Conservative because
	// provider limits are unknown and vary.
	DefaultBatchSize uint64
	// MinBlockRange and MaxBlockRange bound every window attempted.
	MinBlockRange uint64
	MaxBlockRange uint64
	// LookbackBlocks is the default scan depth when the filter supplies no
	// fromBlock.
	LookbackBlocks uint64
	// MaxRetries is the attempt ceiling per window for transient errors.
	MaxRetries int
	// RetryDelay is the base of the linear retry backoff.
	RetryDelay time.Duration
	// InterBatchDelay smooths provider load between successful windows.
	InterBatchDelay time.Duration
}

// DefaultConfig returns the collector defaults.
func DefaultConfig() Config {
	return Config{
		DefaultChainID:   1,
		DefaultBatchSize: 50,
		MinBlockRange:    10,
		MaxBlockRange:    500,
		LookbackBlocks:   1000,
		MaxRetries:       3,
		RetryDelay:       time.Second,
		InterBatchDelay:  500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DefaultChainID == 0 {
		c.DefaultChainID = def.DefaultChainID
	}
	if c.DefaultBatchSize == 0 {
		c.DefaultBatchSize = def.DefaultBatchSize
	}
	if c.MinBlockRange == 0 {
		c.MinBlockRange = def.MinBlockRange
	}
	if c.MaxBlockRange == 0 {
		c.MaxBlockRange = def.MaxBlockRange
	}
	if c.MaxBlockRange < c.MinBlockRange {
		c.MaxBlockRange = c.MinBlockRange
	}
	if c.LookbackBlocks == 0 {
		c.LookbackBlocks = def.LookbackBlocks
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.InterBatchDelay == 0 {
		c.InterBatchDelay = def.InterBatchDelay
	}
	return c
}
