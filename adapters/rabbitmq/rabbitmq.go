package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/next-trace/scg-event-broker/contract/broker"
	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

const (
	// DefaultPort is the standard AMQP listener port.
	DefaultPort = 5672

	// DefaultQueue is the queue events are published to when the
	// configuration names none.
	DefaultQueue = "rasa_core_events"
)

// Session is one live connection to the broker. It exists for the duration
// of a single publish call.
type Session interface {
	// DeclareQueue declares the queue durable. Declaration is idempotent
	// and repeated on every publish.
	DeclareQueue(name string) error
	// Publish sends body to the default exchange with the queue name as
	// routing key.
	Publish(ctx context.Context, queue string, body []byte) error
	Close() error
}

// Connector opens a Session for a channel. Users can swap it to adapt a
// different AMQP client; the default dials via rabbitmq/amqp091-go.
type Connector interface {
	Connect(ctx context.Context, ch *Channel) (Session, error)
}

// Channel publishes events to a queue broker, one connection per call.
// Distinct Publish calls share no state and are safely concurrent.
type Channel struct {
	// Host is either a full amqp:// (or amqps://) URL carrying all
	// connection parameters, or a bare hostname combined with Port.
	Host     string
	Port     int
	Username string
	Password string
	Queue    string

	Connector Connector
	Logger    *slog.Logger
}

var _ broker.EventChannel = (*Channel)(nil)

// New returns a channel with defaults applied: zero Port becomes
// DefaultPort, empty Queue becomes DefaultQueue, nil Connector dials with
// the amqp091 client.
func New(ch Channel) *Channel {
	if ch.Port == 0 {
		ch.Port = DefaultPort
	}

	if ch.Queue == "" {
		ch.Queue = DefaultQueue
	}

	if ch.Connector == nil {
		ch.Connector = amqpConnector{}
	}

	if ch.Logger == nil {
		ch.Logger = slog.Default()
	}

	return &ch
}

// Build constructs a queue channel from a configuration record.
func Build(cfg *broker.Config, logger *slog.Logger) (broker.EventChannel, error) {
	if cfg == nil {
		return nil, nil
	}

	return New(Channel{
		Host:     cfg.URL,
		Port:     cfg.Int("port", DefaultPort),
		Username: cfg.String("username", ""),
		Password: cfg.String("password", ""),
		Queue:    cfg.String("queue", DefaultQueue),
		Logger:   logger,
	}), nil
}

// Publish connects, declares the queue, sends the event, and closes the
// connection. A failure mid-publish returns without closing; the per-call
// connect pattern means no state survives into the next call either way.
func (c *Channel) Publish(ctx context.Context, event broker.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	s, err := c.Connector.Connect(ctx, c)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq connect %q: %w", c.Host, errors.Join(berr.ErrConnectFailed, err))
	}

	if err = s.DeclareQueue(c.Queue); err != nil {
		return fmt.Errorf("rabbitmq declare queue %q: %w", c.Queue, errors.Join(berr.ErrPublishFailed, err))
	}

	if err = s.Publish(ctx, c.Queue, body); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq publish to %q: %w", c.Queue, errors.Join(berr.ErrPublishFailed, err))
	}

	c.Logger.Debug("published event", "queue", c.Queue, "host", c.Host)

	return s.Close()
}

// Close is a no-op; the channel holds no connection between publishes.
func (c *Channel) Close() error { return nil }
