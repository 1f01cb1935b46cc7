// Package cockroach opens CockroachDB engines over the pgx driver.
package cockroach

import (
	stdsql "database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ostinato-db/ostinato/dialect"
	"github.com/ostinato-db/ostinato/engine"
)

// Open connects to CockroachDB using the config's DSN. DDL always runs
// outside explicit transactions, since Cockroach restricts schema
// changes inside them.
func Open(cfg *engine.Config) (*engine.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []engine.Option{engine.WithDDLAutocommit()}
	if cfg.LogQueries {
		opts = append(opts, engine.WithQueryLogging())
	}
	for name, dsn := range cfg.Nodes {
		db, err := stdsql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		node, err := engine.NewDB(db, dialect.Cockroach, engine.WithDDLAutocommit())
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithNode(name, node))
	}
	db, err := stdsql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	return engine.NewDB(db, dialect.Cockroach, opts...)
}
