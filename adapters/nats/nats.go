// Package nats provides a NATS-backed event channel. It is not one of the
// factory built-ins; register it under a name of your choosing:
//
//	eventbroker.Register("nats", nats.Build)
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/next-trace/scg-event-broker/contract/broker"
	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

// DefaultSubject is the subject events are published to when the
// configuration names none.
const DefaultSubject = "rasa_core_events"

// Client is a minimal NATS-like publisher interface decoupled from any
// concrete library. Users can provide a wrapper around their NATS
// connection to satisfy this.
type Client interface {
	Publish(subject string, data []byte) error
	Close() error
}

// Channel publishes events to a NATS subject over a connection held open
// across publish calls.
type Channel struct {
	Subject string
	Client  Client
	Logger  *slog.Logger
}

var _ broker.EventChannel = (*Channel)(nil)

// New creates a channel over an existing client.
func New(c Client, subject string, logger *slog.Logger) *Channel {
	if subject == "" {
		subject = DefaultSubject
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Channel{Subject: subject, Client: c, Logger: logger}
}

// Build constructs a NATS channel from a configuration record, dialing
// cfg.URL.
func Build(cfg *broker.Config, logger *slog.Logger) (broker.EventChannel, error) {
	if cfg == nil {
		return nil, nil
	}

	client, err := dial(Config{URL: cfg.URL, Name: cfg.String("name", "scg-event-broker")})
	if err != nil {
		return nil, err
	}

	return New(client, cfg.String("subject", DefaultSubject), logger), nil
}

// Publish sends the JSON-encoded event to the configured subject.
func (c *Channel) Publish(ctx context.Context, event broker.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.Client == nil {
		return fmt.Errorf("nats publish: %w: no client", berr.ErrPublishFailed)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("nats publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	if err = c.Client.Publish(c.Subject, data); err != nil {
		return fmt.Errorf("nats publish to %q: %w", c.Subject, errors.Join(berr.ErrPublishFailed, err))
	}

	c.Logger.Debug("published event", "subject", c.Subject)

	return nil
}

// Close releases the underlying connection.
func (c *Channel) Close() error {
	if c.Client == nil {
		return nil
	}

	return c.Client.Close()
}
