// internal/events/types.go
package events

import (
	"time"

	"github.com/cardexlabs/cardex/internal/bridge"
)

// EventType represents the type of event.
type EventType string

const (
	// Discovery events
	TokenListUpdated EventType = "discovery.tokens_updated"

	// Portfolio events
	BalanceRefreshed EventType = "portfolio.balance_refreshed"

	// Migration events
	MigrationStarted   EventType = "migration.started"
	MigrationProgress  EventType = "migration.progress"
	MigrationCompleted EventType = "migration.completed"
	MigrationFailed    EventType = "migration.failed"

	// Wallet session events
	SessionOpened EventType = "session.opened"
	SessionClosed EventType = "session.closed"

	// Swap events
	SwapSubmitted EventType = "swap.submitted"

	// Diagnostics events
	DiagnosticsCompleted EventType = "diagnostics.completed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event envelope with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TokenListUpdatedEvent is emitted after every discovery refresh. On a
// failed refresh Count is zero and Err carries the reason.
type TokenListUpdatedEvent struct {
	BaseEvent
	Count        int
	LowLiquidity int
	Err          string
}

// BalanceRefreshedEvent is emitted when a wallet balance aggregation
// completes.
type BalanceRefreshedEvent struct {
	BaseEvent
	Wallet     string
	Lovelace   uint64
	AssetCount int
}

// MigrationStartedEvent is emitted when an implementation switch begins.
type MigrationStartedEvent struct {
	BaseEvent
	From bridge.Impl
	To   bridge.Impl
}

// MigrationProgressEvent reports a stage of an in-flight switch.
type MigrationProgressEvent struct {
	BaseEvent
	From     bridge.Impl
	To       bridge.Impl
	Progress int
	Stage    string
}

// MigrationCompletedEvent is emitted when a switch lands.
type MigrationCompletedEvent struct {
	BaseEvent
	From bridge.Impl
	To   bridge.Impl
}

// MigrationFailedEvent is emitted when a switch fails. FellBack tells
// whether the previous implementation was restored.
type MigrationFailedEvent struct {
	BaseEvent
	From     bridge.Impl
	To       bridge.Impl
	Err      error
	FellBack bool
}

// SessionOpenedEvent is emitted when a wallet session is enabled.
type SessionOpenedEvent struct {
	BaseEvent
	Wallet string
	Impl   bridge.Impl
}

// SessionClosedEvent is emitted when a wallet session ends.
type SessionClosedEvent struct {
	BaseEvent
	Wallet string
	Reason string
}

// SwapSubmittedEvent is emitted after a swap transaction is accepted.
type SwapSubmittedEvent struct {
	BaseEvent
	Wallet string
	Pair   string
	TxHash string
}

// DiagnosticsCompletedEvent summarizes a diagnostic battery run.
type DiagnosticsCompletedEvent struct {
	BaseEvent
	Passes   int
	Warnings int
	Failures int
}
