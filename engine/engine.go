// Package engine runs statements against a database. It defines the
// Engine interface consumed by the query builders and a shared
// implementation over database/sql; the driver subpackages construct it
// for each supported dialect.
package engine

import (
	"context"

	osql "github.com/ostinato-db/ostinato/dialect/sql"
)

// Row is a single result row keyed by output column name.
type Row = map[string]any

// Engine executes compiled statements for one dialect.
type Engine interface {
	// Dialect returns the dialect name statements are compiled for.
	Dialect() string

	// Query runs a statement returning rows.
	Query(ctx context.Context, qs osql.QueryString) ([]Row, error)

	// Exec runs a statement with no result rows.
	Exec(ctx context.Context, qs osql.QueryString) error

	// DDL runs a raw schema-change statement.
	DDL(ctx context.Context, stmt string) error

	// Transaction runs fn atomically. If ctx already carries a
	// transaction started by this engine, fn joins it instead of
	// opening a nested one.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	// ExclusiveTransaction runs fn in a fresh transaction and fails
	// when ctx already carries one, for work that must not join an
	// outer transaction.
	ExclusiveTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// InTransaction reports whether ctx carries an open transaction.
	InTransaction(ctx context.Context) bool

	// Node returns the named extra node, for routing reads or writes to
	// a replica.
	Node(name string) (Engine, bool)

	// Close releases the underlying connections.
	Close() error
}
