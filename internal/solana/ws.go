package solana

import "context"

// WSClient defines the Solana WebSocket subscription surface.
type WSClient interface {
	// SubscribeLogs subscribes to logs matching the filter. Delivery is
	// at-least-once; consumers deduplicate by signature.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close closes the connection and all subscription channels.
	Close() error
}

// LogsFilter selects which logs a subscription receives.
type LogsFilter struct {
	// Mentions filters logs mentioning any of these account addresses.
	// Empty subscribes to all logs.
	Mentions []string
}

// LogNotification is one logsNotification message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
