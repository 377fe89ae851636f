package collector

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHealthConnected(t *testing.T) {
	chain := &fakeChain{head: 123456, chainID: big.NewInt(42161)}
	c := newTestCollector(t, chain)

	result := c.CheckHealth(context.Background())

	assert.True(t, result.Connected)
	assert.Equal(t, uint64(123456), result.BlockNumber)
	assert.Equal(t, uint64(42161), result.ChainID)
	assert.Equal(t, "arbitrum", result.NetworkName)
	assert.Empty(t, result.Error)
	assert.GreaterOrEqual(t, result.ResponseTimeMs, int64(0))
}

func TestCheckHealthProbeFailure(t *testing.T) {
	chain := &fakeChain{headErr: errors.New("dial tcp: connection refused")}
	c := newTestCollector(t, chain)

	result := c.CheckHealth(context.Background())

	assert.False(t, result.Connected)
	assert.NotEmpty(t, result.Error)
	assert.GreaterOrEqual(t, result.ResponseTimeMs, int64(0))
}

func TestCheckHealthChainIDFailure(t *testing.T) {
	chain := &fakeChain{head: 99, chainIDErr: errors.New("method not supported")}
	c := newTestCollector(t, chain)

	result := c.CheckHealth(context.Background())

	assert.False(t, result.Connected)
	assert.NotEmpty(t, result.Error)
}

func TestNetworkName(t *testing.T) {
	require.Equal(t, "mainnet", networkName(1))
	require.Equal(t, "base", networkName(8453))
	require.Equal(t, "chain-777", networkName(777))
}
