package eventbroker

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/next-trace/scg-event-broker/adapters/filelog"
	"github.com/next-trace/scg-event-broker/adapters/kafka"
	"github.com/next-trace/scg-event-broker/adapters/rabbitmq"
	"github.com/next-trace/scg-event-broker/adapters/sqlstore"
	"github.com/next-trace/scg-event-broker/contract/broker"
	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

// Built-in channel type names. Matching is case-insensitive; an empty type
// selects the queue channel.
const (
	TypeQueue  = "queue"
	TypeSQL    = "sql"
	TypeFile   = "file"
	TypeStream = "stream"
)

type registry struct {
	mu       sync.RWMutex
	builders map[string]broker.Builder
}

var global = &registry{builders: make(map[string]broker.Builder)}

func init() {
	for name, b := range map[string]broker.Builder{
		TypeQueue:  rabbitmq.Build,
		TypeSQL:    sqlstore.Build,
		TypeFile:   filelog.Build,
		TypeStream: kafka.Build,
	} {
		if err := Register(name, b); err != nil {
			panic(err)
		}
	}
}

// Register adds a channel builder under name. Names are case-insensitive
// and must be unique; registering an already-taken name returns
// ErrChannelTypeExists. Built-ins occupy "queue", "sql", "file", and
// "stream".
func Register(name string, b broker.Builder) error {
	key := strings.ToLower(name)

	global.mu.Lock()
	defer global.mu.Unlock()

	if _, exists := global.builders[key]; exists {
		return fmt.Errorf("register channel type %q: %w", name, berr.ErrChannelTypeExists)
	}

	global.builders[key] = b

	return nil
}

// Resolve instantiates an event channel from its configuration record.
//
// A nil cfg yields (nil, nil): no channel is configured. A type naming no
// registered builder also yields (nil, nil), after a logged warning — the
// host application keeps running without event publishing. Errors from a
// matched builder (malformed parameters, unreachable database, unsupported
// security protocol) propagate to the caller.
func Resolve(cfg *broker.Config, logger *slog.Logger) (broker.EventChannel, error) {
	if cfg == nil {
		return nil, nil
	}

	if logger == nil {
		logger = slog.Default()
	}

	key := strings.ToLower(cfg.Type)
	if key == "" {
		key = TypeQueue
	}

	global.mu.RLock()
	b, ok := global.builders[key]
	global.mu.RUnlock()

	if !ok {
		logger.Warn("event channel type not found; events will not be published", "type", cfg.Type)
		return nil, nil
	}

	return b(cfg, logger)
}
