package nats

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

// Concrete NATS connection-backed Client.

// Config carries the connection parameters for dial.
type Config struct {
	URL           string
	Name          string
	ConnTimeout   time.Duration
	MaxReconnects int
}

type natsClient struct{ nc *nats.Conn }

func (c natsClient) Publish(subject string, data []byte) error {
	if err := c.nc.Publish(subject, data); err != nil {
		return err
	}

	return c.nc.Flush()
}

func (c natsClient) Close() error {
	if c.nc != nil && !c.nc.IsClosed() {
		_ = c.nc.Drain() //nolint:errcheck // best-effort shutdown; cannot return error here
		c.nc.Close()
	}

	return nil
}

func dial(cfg Config) (Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url required: %w", berr.ErrInvalidConfig)
	}

	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}

	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", errors.Join(berr.ErrConnectFailed, err))
	}

	return natsClient{nc: nc}, nil
}
