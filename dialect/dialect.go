// Package dialect names the database backends supported by ostinato and
// records the capability differences the rest of the library branches on.
//
// Three dialects are supported:
//
//   - dialect.Postgres  – PostgreSQL
//   - dialect.Cockroach – CockroachDB (shares most of Postgres's grammar)
//   - dialect.SQLite    – SQLite (embedded, weaker type system)
package dialect

import "fmt"

// Dialect name constants. These are the values reported by
// engine.Engine.Dialect and used to key per-dialect renderers.
const (
	Postgres  = "postgres"
	Cockroach = "cockroach"
	SQLite    = "sqlite"
)

// All returns the supported dialect names.
func All() []string {
	return []string{Postgres, Cockroach, SQLite}
}

// Supported reports whether name is a known dialect.
func Supported(name string) bool {
	switch name {
	case Postgres, Cockroach, SQLite:
		return true
	}
	return false
}

// MultiClauseAlter reports whether the dialect accepts a single ALTER TABLE
// statement with multiple comma-separated clauses. SQLite accepts one clause
// per statement only.
func MultiClauseAlter(name string) bool {
	return name == Postgres || name == Cockroach
}

// NativeArrays reports whether the dialect has a first-class array type with
// index and ANY/ALL operators.
func NativeArrays(name string) bool {
	return name == Postgres || name == Cockroach
}

// NativeInterval reports whether the dialect has an interval literal grammar.
// SQLite stores durations as seconds and renders interval arithmetic with
// strftime.
func NativeInterval(name string) bool {
	return name == Postgres || name == Cockroach
}

// Unrecognized returns the error used when a dialect name is not one of the
// supported constants.
func Unrecognized(name string) error {
	return fmt.Errorf("dialect: unrecognized dialect %q", name)
}
