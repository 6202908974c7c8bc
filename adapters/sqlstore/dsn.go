package sqlstore

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	berr "github.com/next-trace/scg-event-broker/contract/errors"
)

const (
	defaultHost         = "localhost"
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// dataSource maps a Config onto a database/sql driver name, its DSN, and
// the matching goqu dialect.
func dataSource(cfg Config) (driver, dsn, dialect string, err error) {
	db := cfg.Database
	if db == "" {
		db = DefaultDatabase
	}

	d := strings.ToLower(cfg.Dialect)
	if d == "" {
		d = DefaultDialect
	}

	switch d {
	case "sqlite", "sqlite3":
		// db is a file path, or ":memory:" for a transient store
		return "sqlite3", db, "sqlite3", nil
	case "mysql":
		return "mysql", mysqlDSN(cfg, db), "mysql", nil
	case "postgres", "postgresql":
		return "postgres", postgresDSN(cfg, db), "postgres", nil
	default:
		return "", "", "", fmt.Errorf("sql dialect %q: %w", cfg.Dialect, berr.ErrInvalidConfig)
	}
}

func mysqlDSN(cfg Config, db string) string {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}

	port := cfg.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	var cred string
	if cfg.Username != "" {
		cred = cfg.Username
		if cfg.Password != "" {
			cred += ":" + cfg.Password
		}

		cred += "@"
	}

	return fmt.Sprintf("%stcp(%s)/%s", cred, net.JoinHostPort(host, strconv.Itoa(port)), db)
}

func postgresDSN(cfg Config, db string) string {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + db,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}

	return u.String()
}
