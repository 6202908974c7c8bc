package broker

import (
	"context"
	"log/slog"
)

// EventChannel abstracts publishing structured application events to one
// backing transport (queue broker, stream broker, SQL database, flat file).
// Library users may provide their own implementation and register it with
// the eventbroker factory under a custom type name.
type EventChannel interface {
	// Publish sends a single event to the transport. The call is
	// synchronous and may block on network I/O; errors are returned to the
	// caller as-is, without retry or suppression.
	Publish(ctx context.Context, event Event) error

	// Close releases any transport state held across publish calls.
	// Channels that hold no such state return nil.
	Close() error
}

// Builder constructs a channel from a configuration record. Builders must
// not mutate cfg. A nil cfg yields a nil channel and no error.
type Builder func(cfg *Config, logger *slog.Logger) (EventChannel, error)
