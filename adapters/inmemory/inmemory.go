package inmemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/next-trace/scg-event-broker/contract/broker"
	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

// Channel is a thread-safe in-memory event channel. It records published
// events for testing and examples.
type Channel struct {
	mu     sync.Mutex
	Events []broker.Event
}

var _ broker.EventChannel = (*Channel)(nil)

// New creates a new in-memory channel instance.
func New() *Channel { return &Channel{} }

// Build constructs an in-memory channel from a configuration record. Use
// it with eventbroker.Register to exercise the factory extension point in
// tests.
func Build(cfg *broker.Config, logger *slog.Logger) (broker.EventChannel, error) {
	_ = logger

	if cfg == nil {
		return nil, nil
	}

	return New(), nil
}

// Publish records a deep copy of the event, taken through the same JSON
// encoding the real transports apply, so the caller keeps ownership of
// the original map and everything nested in it.
func (c *Channel) Publish(ctx context.Context, event broker.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("inmemory publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	var copied broker.Event
	if err = json.Unmarshal(data, &copied); err != nil {
		return fmt.Errorf("inmemory publish decode: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	c.mu.Lock()
	c.Events = append(c.Events, copied)
	c.mu.Unlock()

	return nil
}

// Published returns a snapshot of the recorded events.
func (c *Channel) Published() []broker.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]broker.Event(nil), c.Events...)
}

func (c *Channel) Close() error { return nil }
