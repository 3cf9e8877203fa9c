package models

// Symbol is a row of the externally managed symbol directory
type Symbol struct {
	ID     int    `json:"id"`
	Ticker string `json:"ticker"`
}

// SymbolEvent represents a Kafka event emitted by the symbol management process
type SymbolEvent struct {
	EventType string `json:"event_type"`
	Ticker    string `json:"ticker"`
	// optional ISO date; when empty the configured backfill window is used
	Since string `json:"since,omitempty"`
}

// Symbol event type constants
const (
	SymbolEventAdded   = "SYMBOL_ADDED"
	SymbolEventRemoved = "SYMBOL_REMOVED"
)
