// Package adapter defines the database adapter contract used to execute
// test queries against an engine.
//
// Concrete adapter implementations live in pkg/adapters/ subdirectories and
// register themselves via init(), so importing an adapter package with a
// blank identifier is enough to make its engine available.
package adapter

import (
	"context"
	"database/sql"
)

// Config holds connection settings for an engine target.
type Config struct {
	// Type selects the registered adapter ("duckdb", "postgres", "sqlite").
	Type string
	// Path is the database file for embedded engines. Empty means in-memory.
	Path string
	Host string
	Port int

	Database string
	Username string
	Password string

	// Options carries driver-level string settings such as sslmode.
	Options map[string]string
	// Params carries adapter-specific structured settings, decoded by each
	// adapter with mapstructure.
	Params map[string]any
}

// Rows wraps sql.Rows to keep callers off the driver types.
type Rows struct {
	*sql.Rows
}

// Adapter is the interface every engine adapter implements.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// DialectName identifies the engine's SQL dialect.
	DialectName() string
}
