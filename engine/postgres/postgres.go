// Package postgres opens Postgres engines over the lib/pq driver.
package postgres

import (
	stdsql "database/sql"

	_ "github.com/lib/pq"

	"github.com/ostinato-db/ostinato/dialect"
	"github.com/ostinato-db/ostinato/engine"
)

// Open connects to Postgres using the config's DSN. Extra nodes become
// named engines reachable through Node.
func Open(cfg *engine.Config) (*engine.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := nodeOptions(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.LogQueries {
		opts = append(opts, engine.WithQueryLogging())
	}
	db, err := stdsql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	return engine.NewDB(db, dialect.Postgres, opts...)
}

func nodeOptions(cfg *engine.Config) ([]engine.Option, error) {
	var opts []engine.Option
	for name, dsn := range cfg.Nodes {
		db, err := stdsql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		node, err := engine.NewDB(db, dialect.Postgres)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithNode(name, node))
	}
	return opts, nil
}
