// Package filelog provides the file-backed event channel: one JSON object
// per line, appended and synced on every publish.
package filelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/next-trace/scg-event-broker/contract/broker"
	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

// DefaultPath is the event log written when the configuration names none.
const DefaultPath = "rasa_event.log"

// Channel appends events to a dedicated log file. The handle is opened at
// construction and shared across publishes; concurrent publishers must
// serialize access externally.
type Channel struct {
	path   string
	f      *os.File
	logger *slog.Logger
}

var _ broker.EventChannel = (*Channel)(nil)

// New opens (or creates) the log file in append mode.
func New(path string, logger *slog.Logger) (*Channel, error) {
	if path == "" {
		path = DefaultPath
	}

	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filelog open %q: %w", path, errors.Join(berr.ErrInvalidConfig, err))
	}

	logger.Info("logging events to file", "path", path)

	return &Channel{path: path, f: f, logger: logger}, nil
}

// Build constructs a file channel from a configuration record.
func Build(cfg *broker.Config, logger *slog.Logger) (broker.EventChannel, error) {
	if cfg == nil {
		return nil, nil
	}

	ch, err := New(cfg.String("path", DefaultPath), logger)
	if err != nil {
		return nil, err
	}

	return ch, nil
}

// Publish appends one JSON line and forces a sync so the event is durable
// when the call returns.
func (c *Channel) Publish(ctx context.Context, event broker.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("filelog publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	if _, err = c.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("filelog write %q: %w", c.path, errors.Join(berr.ErrPublishFailed, err))
	}

	if err = c.f.Sync(); err != nil {
		return fmt.Errorf("filelog sync %q: %w", c.path, errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

// Close releases the log handle.
func (c *Channel) Close() error { return c.f.Close() }
