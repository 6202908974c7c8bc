package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doug-martin/goqu/v9"

	"github.com/next-trace/scg-event-broker/contract/broker"
	berr "github.com/next-trace/scg-event-broker/contract/errors"

	// Registered goqu dialects and database/sql drivers for the supported
	// engines.
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DefaultDialect is a local embedded database.
	DefaultDialect = "sqlite"

	// DefaultDatabase is the database name (or file path, for sqlite) used
	// when the configuration names none.
	DefaultDatabase = "events.db"
)

// Schema describes the events table. It is passed explicitly into New so
// that channels with different schemas can coexist in one process.
type Schema struct {
	Table        string
	IDColumn     string
	SenderColumn string
	DataColumn   string
}

// DefaultSchema is the conventional events table layout: a surrogate
// integer id, the sender id, and the JSON-serialized event text.
func DefaultSchema() Schema {
	return Schema{
		Table:        "events",
		IDColumn:     "id",
		SenderColumn: "sender_id",
		DataColumn:   "data",
	}
}

// Config carries the connection parameters for the backing engine.
type Config struct {
	Dialect  string
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// Channel stores events as rows in a SQL table. Unlike the queue and
// stream channels it holds a single persistent connection pool across
// publishes; concurrent publishers must serialize access externally.
type Channel struct {
	db     *sql.DB
	gq     *goqu.Database
	schema Schema
	logger *slog.Logger
}

var _ broker.EventChannel = (*Channel)(nil)

// New opens the engine and ensures the events table exists. Table creation
// is idempotent; constructing two channels against the same database is
// safe. Connection and schema failures propagate to the caller.
func New(cfg Config, schema Schema, logger *slog.Logger) (*Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, dsn, dialect, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("connecting to event database", "dialect", dialect, "database", cfg.Database)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open %s: %w", dialect, errors.Join(berr.ErrConnectFailed, err))
	}

	if _, err = db.Exec(schema.createStmt(dialect)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql ensure table %q: %w", schema.Table, errors.Join(berr.ErrConnectFailed, err))
	}

	return &Channel{
		db:     db,
		gq:     goqu.New(dialect, db),
		schema: schema,
		logger: logger,
	}, nil
}

// Build constructs a SQL channel from a configuration record.
func Build(cfg *broker.Config, logger *slog.Logger) (broker.EventChannel, error) {
	if cfg == nil {
		return nil, nil
	}

	ch, err := New(Config{
		Dialect:  cfg.String("dialect", DefaultDialect),
		Host:     cfg.URL,
		Port:     cfg.Int("port", 0),
		Database: cfg.String("db", DefaultDatabase),
		Username: cfg.String("username", ""),
		Password: cfg.String("password", ""),
	}, DefaultSchema(), logger)
	if err != nil {
		return nil, err
	}

	return ch, nil
}

// Publish inserts one row and commits immediately. The sender id column is
// NULL when the event carries no sender_id field.
func (c *Channel) Publish(ctx context.Context, event broker.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sql publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	rec := goqu.Record{c.schema.DataColumn: string(data)}
	if id, ok := event.SenderID(); ok {
		rec[c.schema.SenderColumn] = id
	} else {
		rec[c.schema.SenderColumn] = nil
	}

	if _, err = c.gq.Insert(c.schema.Table).Rows(rec).Executor().ExecContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("sql publish insert: %w", errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

// Close releases the connection pool.
func (c *Channel) Close() error { return c.db.Close() }

func (s Schema) createStmt(dialect string) string {
	var id string

	switch dialect {
	case "mysql":
		id = "INTEGER PRIMARY KEY AUTO_INCREMENT"
	case "postgres":
		id = "SERIAL PRIMARY KEY"
	default:
		id = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s %s, %s VARCHAR(255), %s TEXT)",
		s.Table, s.IDColumn, id, s.SenderColumn, s.DataColumn,
	)
}
