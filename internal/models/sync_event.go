package models

import "time"

// Sync event type constants
const (
	SyncEventPricesSynced = "PRICES_SYNCED"
)

// SyncEvent represents a Kafka event published after a sync run
type SyncEvent struct {
	EventType       string    `json:"event_type"`
	Mode            string    `json:"mode"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	SymbolsTotal    int       `json:"symbols_total"`
	SymbolsWithData int       `json:"symbols_with_data"`
	SymbolsFailed   []string  `json:"symbols_failed,omitempty"`
	RowsInserted    int64     `json:"rows_inserted"`
	Timestamp       time.Time `json:"timestamp"`
}
