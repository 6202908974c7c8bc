package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/next-trace/scg-event-broker/contract/broker"
	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

// DefaultTopic is the topic events are published to when the configuration
// names none.
const DefaultTopic = "rasa_core_events"

// Supported security protocol selectors.
const (
	ProtocolSASLPlaintext = "SASL_PLAINTEXT"
	ProtocolSSL           = "SSL"
)

// Producer is one live client for the stream broker, created per publish
// call and closed afterwards.
type Producer interface {
	// Produce sends value to topic synchronously with no partition key;
	// the broker applies its default partitioning.
	Produce(ctx context.Context, topic string, value []byte) error
	Close() error
}

// ProducerFactory creates a Producer configured per the channel's security
// protocol. The default is backed by twmb/franz-go.
type ProducerFactory interface {
	NewProducer(ch *Channel) (Producer, error)
}

// Channel publishes events to a stream broker. Each publish creates and
// closes its own producer; distinct calls share no state and are safely
// concurrent at the cost of repeated client startup.
type Channel struct {
	Host             string
	SASLUsername     string
	SASLPassword     string
	SSLCAFile        string
	SSLCertFile      string
	SSLKeyFile       string
	SecurityProtocol string
	Topic            string

	Factory ProducerFactory
	Logger  *slog.Logger
}

var _ broker.EventChannel = (*Channel)(nil)

// New returns a channel with defaults applied and the security protocol
// validated. An unrecognized protocol fails here rather than surfacing as
// a nil producer at publish time.
func New(ch Channel) (*Channel, error) {
	if ch.Topic == "" {
		ch.Topic = DefaultTopic
	}

	if ch.SecurityProtocol == "" {
		ch.SecurityProtocol = ProtocolSASLPlaintext
	}

	switch ch.SecurityProtocol {
	case ProtocolSASLPlaintext, ProtocolSSL:
	default:
		return nil, fmt.Errorf("kafka security protocol %q: %w", ch.SecurityProtocol, berr.ErrUnsupportedProtocol)
	}

	if ch.Factory == nil {
		ch.Factory = kgoFactory{}
	}

	if ch.Logger == nil {
		ch.Logger = slog.Default()
	}

	return &ch, nil
}

// Build constructs a stream channel from a configuration record.
func Build(cfg *broker.Config, logger *slog.Logger) (broker.EventChannel, error) {
	if cfg == nil {
		return nil, nil
	}

	ch, err := New(Channel{
		Host:             cfg.URL,
		SASLUsername:     cfg.String("sasl_username", ""),
		SASLPassword:     cfg.String("sasl_password", ""),
		SSLCAFile:        cfg.String("ssl_cafile", ""),
		SSLCertFile:      cfg.String("ssl_certfile", ""),
		SSLKeyFile:       cfg.String("ssl_keyfile", ""),
		SecurityProtocol: cfg.String("security_protocol", ProtocolSASLPlaintext),
		Topic:            cfg.String("topic", DefaultTopic),
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	return ch, nil
}

// Publish creates a producer, sends the JSON-encoded event, and closes the
// producer. A failure mid-send returns without closing.
func (c *Channel) Publish(ctx context.Context, event broker.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	p, err := c.Factory.NewProducer(c)
	if err != nil {
		return fmt.Errorf("kafka producer %q: %w", c.Host, errors.Join(berr.ErrConnectFailed, err))
	}

	if err = p.Produce(ctx, c.Topic, value); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("kafka publish to %q: %w", c.Topic, errors.Join(berr.ErrPublishFailed, err))
	}

	c.Logger.Debug("published event", "topic", c.Topic, "host", c.Host)

	return p.Close()
}

// Close is a no-op; the channel holds no producer between publishes.
func (c *Channel) Close() error { return nil }
