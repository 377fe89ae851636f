package model

import (
	"fmt"
	"strings"
)

// EventName identifies one of the known perp contract events.
type EventName string

const (
	PositionOpened      EventName = "PositionOpened"
	PositionClosed      EventName = "PositionClosed"
	PositionLiquidated  EventName = "PositionLiquidated"
	FundingUpdated      EventName = "FundingUpdated"
	FundingPaid         EventName = "FundingPaid"
	TradingFeeCollected EventName = "TradingFeeCollected"
	CollateralDeposited EventName = "CollateralDeposited"
	CollateralWithdrawn EventName = "CollateralWithdrawn"
)

// KnownEventNames lists every event this collector can decode.
func KnownEventNames() []EventName {
	return []EventName{
		PositionOpened,
		PositionClosed,
		PositionLiquidated,
		FundingUpdated,
		FundingPaid,
		TradingFeeCollected,
		CollateralDeposited,
		CollateralWithdrawn,
	}
}

// ParseEventNames converts string event names into EventName values.
func ParseEventNames(inputs []string) ([]EventName, error) {
	known := make(map[string]EventName, 8)
	for _, name := range KnownEventNames() {
		known[strings.ToLower(string(name))] = name
	}

	names := make([]EventName, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		name, ok := known[strings.ToLower(input)]
		if !ok {
			return nil, fmt.Errorf("unknown event type: %s", input)
		}
		names = append(names, name)
	}
	return names, nil
}

// EventData is the variant-specific payload of a DomainEvent. The set is
// closed: exactly one implementation exists per known event name, and logs
// that match none of them are dropped, never coerced into a variant.
type EventData interface {
	// Subject returns the address the event is about, or "" when the event
	// has no per-user subject (FundingUpdated).
	Subject() string
}

// DomainEvent is a decoded perp contract event enriched with block metadata.
// All large numeric fields are decimal strings.
type DomainEvent struct {
	Name        EventName `json:"event_name"`
	ChainID     uint64    `json:"chain_id"`
	BlockNumber uint64    `json:"block_number"`
	BlockHash   string    `json:"block_hash"`
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint64    `json:"log_index"`
	Address     string    `json:"address"`
	Timestamp   uint64    `json:"timestamp"`
	Data        EventData `json:"data"`
}

// PositionOpenedData is the decoded PositionOpened payload.
type PositionOpenedData struct {
	Trader     string `json:"trader"`
	PositionID string `json:"position_id"`
	IsLong     bool   `json:"is_long"`
	Size       string `json:"size"`
	Margin     string `json:"margin"`
	EntryPrice string `json:"entry_price"`
	Leverage   string `json:"leverage"`
}

func (d PositionOpenedData) Subject() string { return d.Trader }

// PositionClosedData is the decoded PositionClosed payload.
type PositionClosedData struct {
	Trader         string `json:"trader"`
	PositionID     string `json:"position_id"`
	Size           string `json:"size"`
	ExitPrice      string `json:"exit_price"`
	Pnl            string `json:"pnl"`
	MarginReturned string `json:"margin_returned"`
}

func (d PositionClosedData) Subject() string { return d.Trader }

// PositionLiquidatedData is the decoded PositionLiquidated payload.
type PositionLiquidatedData struct {
	Trader     string `json:"trader"`
	Liquidator string `json:"liquidator"`
	PositionID string `json:"position_id"`
	Size       string `json:"size"`
	MarkPrice  string `json:"mark_price"`
	Penalty    string `json:"penalty"`
}

func (d PositionLiquidatedData) Subject() string { return d.Trader }

// FundingUpdatedData is the decoded FundingUpdated payload. It has no
// per-user subject, so a user filter drops these events.
type FundingUpdatedData struct {
	FundingRate string `json:"funding_rate"`
	IndexPrice  string `json:"index_price"`
	MarkPrice   string `json:"mark_price"`
}

func (d FundingUpdatedData) Subject() string { return "" }

// FundingPaidData is the decoded FundingPaid payload. Amount is signed:
// negative means the trader received funding.
type FundingPaidData struct {
	Trader     string `json:"trader"`
	PositionID string `json:"position_id"`
	Amount     string `json:"amount"`
}

func (d FundingPaidData) Subject() string { return d.Trader }

// TradingFeeCollectedData is the decoded TradingFeeCollected payload.
type TradingFeeCollectedData struct {
	Trader string `json:"trader"`
	Amount string `json:"amount"`
}

func (d TradingFeeCollectedData) Subject() string { return d.Trader }

// CollateralDepositedData is the decoded CollateralDeposited payload.
type CollateralDepositedData struct {
	Trader  string `json:"trader"`
	Amount  string `json:"amount"`
	Balance string `json:"balance"`
}

func (d CollateralDepositedData) Subject() string { return d.Trader }

// CollateralWithdrawnData is the decoded CollateralWithdrawn payload.
type CollateralWithdrawnData struct {
	Trader  string `json:"trader"`
	Amount  string `json:"amount"`
	Balance string `json:"balance"`
}

func (d CollateralWithdrawnData) Subject() string { return d.Trader }
