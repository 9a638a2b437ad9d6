package models

import "encoding/json"

// Watchlist event types published by the stats service.
const (
	EventPlayerAdded   = "PLAYER_ADDED"
	EventPlayerRemoved = "PLAYER_REMOVED"
)

// WatchlistEvent is the Pub/Sub payload on the watchlist channel. Only
// eventType and playerName are relied on; the publisher also sends the user
// and watchlist IDs and a LocalDateTime whose encoding varies.
type WatchlistEvent struct {
	EventType   string          `json:"eventType" validate:"required"`
	PlayerName  string          `json:"playerName" validate:"required,notblank,max=255"`
	UserID      *int64          `json:"userId,omitempty"`
	WatchlistID *int64          `json:"watchlistId,omitempty"`
	Timestamp   json.RawMessage `json:"timestamp,omitempty"`
}
