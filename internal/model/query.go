package model

// EventFilter describes one collector query.
type EventFilter struct {
	// ContractAddress is the perp contract to scan. Required.
	ContractAddress string
	// EventTypes restricts the result to the listed event names. Empty
	// means all known events.
	EventTypes []EventName
	// UserAddress keeps only events whose subject matches, case-insensitive.
	UserAddress string
	// FromBlock and ToBlock bound the scan, inclusive. When nil they default
	// to a fixed look-back window ending at the current chain height.
	FromBlock *uint64
	ToBlock   *uint64
	// Limit truncates the sorted result. Zero means no limit.
	Limit int
	// BatchSize overrides the initial query window for this call only.
	BatchSize uint64
}

// QueryResult is what the collector returns. Error is set only when the scan
// could not even begin; partial provider failures degrade Events instead.
type QueryResult struct {
	FromBlock   uint64        `json:"from_block"`
	ToBlock     uint64        `json:"to_block"`
	Events      []DomainEvent `json:"events"`
	TotalLogs   int           `json:"total_logs"`
	QueryTimeMs int64         `json:"query_time_ms"`
	Error       string        `json:"error,omitempty"`
}

// HealthCheckResult reports provider connectivity.
type HealthCheckResult struct {
	Connected      bool   `json:"connected"`
	ChainID        uint64 `json:"chain_id"`
	BlockNumber    uint64 `json:"block_number"`
	NetworkName    string `json:"network_name"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}
