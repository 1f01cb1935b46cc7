// Package sqlite opens SQLite engines over the modernc.org driver,
// which needs no cgo.
package sqlite

import (
	"context"
	stdsql "database/sql"

	_ "modernc.org/sqlite"

	"github.com/ostinato-db/ostinato/dialect"
	"github.com/ostinato-db/ostinato/engine"
)

// Open opens the SQLite database at the config's DSN, which is a file
// path or ":memory:". Foreign key enforcement is switched on, matching
// the behaviour of the server dialects.
func Open(cfg *engine.Config) (*engine.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := stdsql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	var opts []engine.Option
	if cfg.LogQueries {
		opts = append(opts, engine.WithQueryLogging())
	}
	return engine.NewDB(db, dialect.SQLite, opts...)
}
