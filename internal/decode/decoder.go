package decode

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"perpscope/internal/model"
)

// BlockTimestamper resolves a block number to its wall-clock timestamp.
// Implementations are expected to rate-limit and cache internally.
type BlockTimestamper interface {
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Filter restricts which parsed events are kept. Filters run after name
// resolution and argument parsing but before the block timestamp lookup, so
// dropped events cost no extra RPC.
type Filter struct {
	// EventTypes keeps only the listed names. Empty keeps everything.
	EventTypes []model.EventName
	// UserAddress keeps only events whose subject matches it,
	// case-insensitive. Events without a subject are dropped.
	UserAddress string
}

func (f Filter) allowsName(name model.EventName) bool {
	if len(f.EventTypes) == 0 {
		return true
	}
	for _, allowed := range f.EventTypes {
		if allowed == name {
			return true
		}
	}
	return false
}

func (f Filter) allowsSubject(data model.EventData) bool {
	if f.UserAddress == "" {
		return true
	}
	return strings.EqualFold(data.Subject(), f.UserAddress)
}

// Decoder parses raw perp contract logs into DomainEvents.
type Decoder struct {
	perpABI     abi.ABI
	topicToName map[string]model.EventName
	timestamps  BlockTimestamper
	logger      *zap.Logger
}

// NewDecoder builds a decoder over the perp event ABI.
func NewDecoder(timestamps BlockTimestamper, logger *zap.Logger) (*Decoder, error) {
	perpABI, err := PerpABI()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	topicToName := make(map[string]model.EventName, 8)
	for _, name := range model.KnownEventNames() {
		event, ok := perpABI.Events[string(name)]
		if !ok {
			return nil, fmt.Errorf("abi missing event: %s", name)
		}
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}

	return &Decoder{
		perpABI:     perpABI,
		topicToName: topicToName,
		timestamps:  timestamps,
		logger:      logger,
	}, nil
}

// CanDecode checks if the topic0 belongs to a known perp event.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a RawLogRecord into a DomainEvent. A (nil, nil) return
// means the log was filtered out; an error means it could not be decoded.
// Logs whose topic0 matches no known event are an error, never coerced.
func (d *Decoder) Decode(ctx context.Context, record model.RawLogRecord, filter Filter) (*model.DomainEvent, error) {
	if len(record.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(record.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unrecognized event topic0: %s", record.Topics[0])
	}

	if !filter.allowsName(name) {
		return nil, nil
	}

	data, err := d.decodeData(name, record)
	if err != nil {
		return nil, err
	}

	if !filter.allowsSubject(data) {
		return nil, nil
	}

	if d.timestamps == nil {
		return nil, fmt.Errorf("timestamp source is nil")
	}
	timestamp, err := d.timestamps.BlockTimestamp(ctx, record.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("block timestamp %d: %w", record.BlockNumber, err)
	}

	return &model.DomainEvent{
		Name:        name,
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		BlockHash:   record.BlockHash,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Timestamp:   timestamp,
		Data:        data,
	}, nil
}

func (d *Decoder) decodeData(name model.EventName, record model.RawLogRecord) (model.EventData, error) {
	switch name {
	case model.PositionOpened:
		return d.decodePositionOpened(record)
	case model.PositionClosed:
		return d.decodePositionClosed(record)
	case model.PositionLiquidated:
		return d.decodePositionLiquidated(record)
	case model.FundingUpdated:
		return d.decodeFundingUpdated(record)
	case model.FundingPaid:
		return d.decodeFundingPaid(record)
	case model.TradingFeeCollected:
		return d.decodeTradingFeeCollected(record)
	case model.CollateralDeposited:
		return d.decodeCollateralDeposited(record)
	case model.CollateralWithdrawn:
		return d.decodeCollateralWithdrawn(record)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func (d *Decoder) decodePositionOpened(record model.RawLogRecord) (model.EventData, error) {
	event := d.perpABI.Events[string(model.PositionOpened)]
	indexedTopics, err := parseIndexedTopics(event, record.Topics)
	if err != nil {
		return nil, err
	}

	var indexed struct {
		Trader     common.Address
		PositionId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, record.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("unexpected PositionOpened values: %d", len(values))
	}

	isLong, err := asBool(values[0])
	if err != nil {
		return nil, err
	}
	size, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}
	margin, err := asBigInt(values[2])
	if err != nil {
		return nil, err
	}
	entryPrice, err := asBigInt(values[3])
	if err != nil {
		return nil, err
	}
	leverage, err := asBigInt(values[4])
	if err != nil {
		return nil, err
	}

	return model.PositionOpenedData{
		Trader:     indexed.Trader.Hex(),
		PositionID: indexed.PositionId.String(),
		IsLong:     isLong,
		Size:       size.String(),
		Margin:     margin.String(),
		EntryPrice: entryPrice.String(),
		Leverage:   leverage.String(),
	}, nil
}

func (d *Decoder) decodePositionClosed(record model.RawLogRecord) (model.EventData, error) {
	event := d.perpABI.Events[string(model.PositionClosed)]
	indexedTopics, err := parseIndexedTopics(event, record.Topics)
	if err != nil {
		return nil, err
	}

	var indexed struct {
		Trader     common.Address
		PositionId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, record.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unexpected PositionClosed values: %d", len(values))
	}

	size, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	exitPrice, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}
	pnl, err := asBigInt(values[2])
	if err != nil {
		return nil, err
	}
	marginReturned, err := asBigInt(values[3])
	if err != nil {
		return nil, err
	}

	return model.PositionClosedData{
		Trader:         indexed.Trader.Hex(),
		PositionID:     indexed.PositionId.String(),
		Size:           size.String(),
		ExitPrice:      exitPrice.String(),
		Pnl:            pnl.String(),
		MarginReturned: marginReturned.String(),
	}, nil
}

func (d *Decoder) decodePositionLiquidated(record model.RawLogRecord) (model.EventData, error) {
	event := d.perpABI.Events[string(model.PositionLiquidated)]
	indexedTopics, err := parseIndexedTopics(event, record.Topics)
	if err != nil {
		return nil, err
	}

	var indexed struct {
		Trader     common.Address
		Liquidator common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, record.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unexpected PositionLiquidated values: %d", len(values))
	}

	positionID, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	size, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}
	markPrice, err := asBigInt(values[2])
	if err != nil {
		return nil, err
	}
	penalty, err := asBigInt(values[3])
	if err != nil {
		return nil, err
	}

	return model.PositionLiquidatedData{
		Trader:     indexed.Trader.Hex(),
		Liquidator: indexed.Liquidator.Hex(),
		PositionID: positionID.String(),
		Size:       size.String(),
		MarkPrice:  markPrice.String(),
		Penalty:    penalty.String(),
	}, nil
}

func (d *Decoder) decodeFundingUpdated(record model.RawLogRecord) (model.EventData, error) {
	event := d.perpABI.Events[string(model.FundingUpdated)]
	if _, err := parseIndexedTopics(event, record.Topics); err != nil {
		return nil, err
	}

	values, err := unpackNonIndexed(event, record.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unexpected FundingUpdated values: %d", len(values))
	}

	fundingRate, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	indexPrice, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}
	markPrice, err := asBigInt(values[2])
	if err != nil {
		return nil, err
	}

	return model.FundingUpdatedData{
		FundingRate: fundingRate.String(),
		IndexPrice:  indexPrice.String(),
		MarkPrice:   markPrice.String(),
	}, nil
}

func (d *Decoder) decodeFundingPaid(record model.RawLogRecord) (model.EventData, error) {
	event := d.perpABI.Events[string(model.FundingPaid)]
	indexedTopics, err := parseIndexedTopics(event, record.Topics)
	if err != nil {
		return nil, err
	}

	var indexed struct {
		Trader common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, record.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected FundingPaid values: %d", len(values))
	}

	positionID, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	amount, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}

	return model.FundingPaidData{
		Trader:     indexed.Trader.Hex(),
		PositionID: positionID.String(),
		Amount:     amount.String(),
	}, nil
}

func (d *Decoder) decodeTradingFeeCollected(record model.RawLogRecord) (model.EventData, error) {
	event := d.perpABI.Events[string(model.TradingFeeCollected)]
	indexedTopics, err := parseIndexedTopics(event, record.Topics)
	if err != nil {
		return nil, err
	}

	var indexed struct {
		Trader common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, record.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected TradingFeeCollected values: %d", len(values))
	}

	amount, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}

	return model.TradingFeeCollectedData{
		Trader: indexed.Trader.Hex(),
		Amount: amount.String(),
	}, nil
}

func (d *Decoder) decodeCollateralDeposited(record model.RawLogRecord) (model.EventData, error) {
	trader, amount, balance, err := d.decodeCollateralChange(model.CollateralDeposited, record)
	if err != nil {
		return nil, err
	}
	return model.CollateralDepositedData{Trader: trader, Amount: amount, Balance: balance}, nil
}

func (d *Decoder) decodeCollateralWithdrawn(record model.RawLogRecord) (model.EventData, error) {
	trader, amount, balance, err := d.decodeCollateralChange(model.CollateralWithdrawn, record)
	if err != nil {
		return nil, err
	}
	return model.CollateralWithdrawnData{Trader: trader, Amount: amount, Balance: balance}, nil
}

// CollateralDeposited and CollateralWithdrawn share one argument layout.
func (d *Decoder) decodeCollateralChange(name model.EventName, record model.RawLogRecord) (string, string, string, error) {
	event := d.perpABI.Events[string(name)]
	indexedTopics, err := parseIndexedTopics(event, record.Topics)
	if err != nil {
		return "", "", "", err
	}

	var indexed struct {
		Trader common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return "", "", "", fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, record.Data)
	if err != nil {
		return "", "", "", err
	}
	if len(values) != 2 {
		return "", "", "", fmt.Errorf("unexpected %s values: %d", name, len(values))
	}

	amount, err := asBigInt(values[0])
	if err != nil {
		return "", "", "", err
	}
	balance, err := asBigInt(values[1])
	if err != nil {
		return "", "", "", err
	}

	return indexed.Trader.Hex(), amount.String(), balance.String(), nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported numeric type %T", value)
	}
}

func asBool(value interface{}) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
	return v, nil
}
