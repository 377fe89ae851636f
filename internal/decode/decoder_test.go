package decode

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpscope/internal/model"
)

var (
	trader     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	liquidator = common.HexToAddress("0x2222222222222222222222222222222222222222")
	contract   = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type fixedTimestamps struct {
	ts  uint64
	err error
}

func (f fixedTimestamps) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	return f.ts, f.err
}

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	decoder, err := NewDecoder(fixedTimestamps{ts: 1700000000}, nil)
	require.NoError(t, err)
	return decoder
}

// encodeLog builds a RawLogRecord for the named event with the given indexed
// topics and non-indexed values, ABI-encoded the way a node would return it.
func encodeLog(t *testing.T, name model.EventName, indexed []common.Hash, values ...interface{}) model.RawLogRecord {
	t.Helper()
	perpABI, err := PerpABI()
	require.NoError(t, err)
	event, ok := perpABI.Events[string(name)]
	require.True(t, ok)

	data, err := event.Inputs.NonIndexed().Pack(values...)
	require.NoError(t, err)

	topics := []string{event.ID.Hex()}
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}

	return model.RawLogRecord{
		ChainID:     8453,
		BlockNumber: 1234,
		BlockHash:   common.HexToHash("0xaa").Hex(),
		TxHash:      common.HexToHash("0xbb").Hex(),
		LogIndex:    3,
		Address:     contract.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
	}
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func TestDecodePositionOpened(t *testing.T) {
	decoder := newTestDecoder(t)
	record := encodeLog(t, model.PositionOpened,
		[]common.Hash{addressTopic(trader), common.BigToHash(big.NewInt(42))},
		true, big.NewInt(1500000), big.NewInt(50000), big.NewInt(30000_00000000), big.NewInt(20),
	)

	got, err := decoder.Decode(context.Background(), record, Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, model.PositionOpened, got.Name)
	assert.Equal(t, uint64(8453), got.ChainID)
	assert.Equal(t, uint64(1234), got.BlockNumber)
	assert.Equal(t, uint64(3), got.LogIndex)
	assert.Equal(t, uint64(1700000000), got.Timestamp)
	assert.Equal(t, contract.Hex(), got.Address)

	data, ok := got.Data.(model.PositionOpenedData)
	require.True(t, ok)
	assert.Equal(t, trader.Hex(), data.Trader)
	assert.Equal(t, "42", data.PositionID)
	assert.True(t, data.IsLong)
	assert.Equal(t, "1500000", data.Size)
	assert.Equal(t, "50000", data.Margin)
	assert.Equal(t, "3000000000000", data.EntryPrice)
	assert.Equal(t, "20", data.Leverage)
}

func TestDecodePositionClosedNegativePnl(t *testing.T) {
	decoder := newTestDecoder(t)
	record := encodeLog(t, model.PositionClosed,
		[]common.Hash{addressTopic(trader), common.BigToHash(big.NewInt(42))},
		big.NewInt(1500000), big.NewInt(29000), big.NewInt(-12345), big.NewInt(40000),
	)

	got, err := decoder.Decode(context.Background(), record, Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)

	data, ok := got.Data.(model.PositionClosedData)
	require.True(t, ok)
	assert.Equal(t, "-12345", data.Pnl)
	assert.Equal(t, "40000", data.MarginReturned)
}

func TestDecodePositionLiquidated(t *testing.T) {
	decoder := newTestDecoder(t)
	record := encodeLog(t, model.PositionLiquidated,
		[]common.Hash{addressTopic(trader), addressTopic(liquidator)},
		big.NewInt(42), big.NewInt(1500000), big.NewInt(28000), big.NewInt(750),
	)

	got, err := decoder.Decode(context.Background(), record, Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)

	data, ok := got.Data.(model.PositionLiquidatedData)
	require.True(t, ok)
	assert.Equal(t, trader.Hex(), data.Trader)
	assert.Equal(t, liquidator.Hex(), data.Liquidator)
	assert.Equal(t, "42", data.PositionID)
	assert.Equal(t, "750", data.Penalty)
}

func TestDecodeFundingUpdated(t *testing.T) {
	decoder := newTestDecoder(t)
	record := encodeLog(t, model.FundingUpdated, nil,
		big.NewInt(-875), big.NewInt(30100), big.NewInt(30150),
	)

	got, err := decoder.Decode(context.Background(), record, Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)

	data, ok := got.Data.(model.FundingUpdatedData)
	require.True(t, ok)
	assert.Equal(t, "-875", data.FundingRate)
	assert.Equal(t, "30100", data.IndexPrice)
	assert.Equal(t, "30150", data.MarkPrice)
	assert.Empty(t, data.Subject())
}

func TestDecodeFundingPaid(t *testing.T) {
	decoder := newTestDecoder(t)
	record := encodeLog(t, model.FundingPaid,
		[]common.Hash{addressTopic(trader)},
		big.NewInt(42), big.NewInt(-99),
	)

	got, err := decoder.Decode(context.Background(), record, Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)

	data, ok := got.Data.(model.FundingPaidData)
	require.True(t, ok)
	assert.Equal(t, "-99", data.Amount)
}

func TestDecodeTradingFeeCollected(t *testing.T) {
	decoder := newTestDecoder(t)
	record := encodeLog(t, model.TradingFeeCollected,
		[]common.Hash{addressTopic(trader)},
		big.NewInt(55),
	)

	got, err := decoder.Decode(context.Background(), record, Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)

	data, ok := got.Data.(model.TradingFeeCollectedData)
	require.True(t, ok)
	assert.Equal(t, "55", data.Amount)
}

func TestDecodeCollateralEvents(t *testing.T) {
	decoder := newTestDecoder(t)

	deposit := encodeLog(t, model.CollateralDeposited,
		[]common.Hash{addressTopic(trader)},
		big.NewInt(1000), big.NewInt(5000),
	)
	got, err := decoder.Decode(context.Background(), deposit, Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)
	depositData, ok := got.Data.(model.CollateralDepositedData)
	require.True(t, ok)
	assert.Equal(t, "1000", depositData.Amount)
	assert.Equal(t, "5000", depositData.Balance)

	withdraw := encodeLog(t, model.CollateralWithdrawn,
		[]common.Hash{addressTopic(trader)},
		big.NewInt(300), big.NewInt(4700),
	)
	got, err = decoder.Decode(context.Background(), withdraw, Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)
	withdrawData, ok := got.Data.(model.CollateralWithdrawnData)
	require.True(t, ok)
	assert.Equal(t, "300", withdrawData.Amount)
	assert.Equal(t, "4700", withdrawData.Balance)
}

func TestDecodeUnrecognizedTopicIsError(t *testing.T) {
	decoder := newTestDecoder(t)
	record := encodeLog(t, model.PositionOpened,
		[]common.Hash{addressTopic(trader), common.BigToHash(big.NewInt(1))},
		true, big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1),
	)
	record.Topics[0] = common.HexToHash("0xdead").Hex()

	got, err := decoder.Decode(context.Background(), record, Filter{})
	assert.Error(t, err)
	assert.Nil(t, got)
	assert.False(t, decoder.CanDecode(record.Topics[0]))
}

func TestDecodeEventTypeFilter(t *testing.T) {
	decoder := newTestDecoder(t)
	record := encodeLog(t, model.TradingFeeCollected,
		[]common.Hash{addressTopic(trader)},
		big.NewInt(55),
	)

	got, err := decoder.Decode(context.Background(), record, Filter{
		EventTypes: []model.EventName{model.PositionOpened},
	})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = decoder.Decode(context.Background(), record, Filter{
		EventTypes: []model.EventName{model.TradingFeeCollected},
	})
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestDecodeUserFilter(t *testing.T) {
	decoder := newTestDecoder(t)
	record := encodeLog(t, model.CollateralDeposited,
		[]common.Hash{addressTopic(trader)},
		big.NewInt(1000), big.NewInt(5000),
	)

	// Case-insensitive match keeps the event.
	got, err := decoder.Decode(context.Background(), record, Filter{
		UserAddress: "0x1111111111111111111111111111111111111111",
	})
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = decoder.Decode(context.Background(), record, Filter{
		UserAddress: liquidator.Hex(),
	})
	require.NoError(t, err)
	assert.Nil(t, got)

	// Events without a subject never match a user filter.
	funding := encodeLog(t, model.FundingUpdated, nil,
		big.NewInt(1), big.NewInt(2), big.NewInt(3),
	)
	got, err = decoder.Decode(context.Background(), funding, Filter{
		UserAddress: trader.Hex(),
	})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeTimestampFailurePropagates(t *testing.T) {
	decoder, err := NewDecoder(fixedTimestamps{err: errors.New("header fetch failed")}, nil)
	require.NoError(t, err)

	record := encodeLog(t, model.TradingFeeCollected,
		[]common.Hash{addressTopic(trader)},
		big.NewInt(55),
	)
	got, err := decoder.Decode(context.Background(), record, Filter{})
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestDecodeMalformedDataIsError(t *testing.T) {
	decoder := newTestDecoder(t)
	record := encodeLog(t, model.PositionOpened,
		[]common.Hash{addressTopic(trader), common.BigToHash(big.NewInt(1))},
		true, big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1),
	)
	record.Data = "0x01"

	got, err := decoder.Decode(context.Background(), record, Filter{})
	assert.Error(t, err)
	assert.Nil(t, got)
}
