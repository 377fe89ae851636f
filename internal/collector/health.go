package collector

import (
	"context"
	"fmt"
	"time"

	"perpscope/internal/model"
)

// CheckHealth probes the provider's block height and network identity so
// operators can validate connectivity before running a scan. It never
// returns an error: failures set Connected false with the cause captured,
// and the response time is measured either way.
func (c *Collector) CheckHealth(ctx context.Context) model.HealthCheckResult {
	started := time.Now()
	result := model.HealthCheckResult{}
	finish := func() model.HealthCheckResult {
		result.ResponseTimeMs = time.Since(started).Milliseconds()
		return result
	}

	blockNumber, err := c.chain.BlockNumber(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("block height probe failed: %v", err)
		return finish()
	}

	chainID, err := c.chain.ChainID(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("chain id probe failed: %v", err)
		return finish()
	}
	if !chainID.IsUint64() {
		result.Error = fmt.Sprintf("chain id does not fit in uint64: %s", chainID)
		return finish()
	}

	result.Connected = true
	result.BlockNumber = blockNumber
	result.ChainID = chainID.Uint64()
	result.NetworkName = networkName(result.ChainID)
	return finish()
}

func networkName(chainID uint64) string {
	switch chainID {
	case 1:
		return "mainnet"
	case 10:
		return "optimism"
	case 56:
		return "bsc"
	case 137:
		return "polygon"
	case 8453:
		return "base"
	case 42161:
		return "arbitrum"
	case 11155111:
		return "sepolia"
	case 31337:
		return "anvil"
	default:
		return fmt.Sprintf("chain-%d", chainID)
	}
}
