package events

import "venusadapter/core/types"

// Event represents a structured state change emitted by a contract or the adapter.
type Event interface {
	EventType() string
	Event() *types.Event
}
