// Package query builds and dispatches SQL statements from table
// definitions: selects with relationship traversal, row mutations,
// table creation, and schema alteration. Rendering is dialect driven:
// each query type keeps a renderer per dialect with a default entry,
// and compiles lazily for whichever dialect the bound engine speaks.
package query

import (
	"context"

	"github.com/ostinato-db/ostinato"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/engine"
	"github.com/ostinato-db/ostinato/schema"
)

// renderFn renders a query into one or more statements for a dialect.
type renderFn func(dialectName string) ([]osql.QueryString, error)

// rendererMap routes a dialect name to its renderer. The "default"
// entry serves any dialect without a dedicated one; a dialect that
// matches neither is an error, never a silent fallback.
type rendererMap map[string]renderFn

func (m rendererMap) render(dialectName string) ([]osql.QueryString, error) {
	if fn, ok := m[dialectName]; ok {
		return fn(dialectName)
	}
	if fn, ok := m["default"]; ok {
		return fn(dialectName)
	}
	return nil, ostinato.NewDialectError(dialectName, "rendering this query")
}

// boundEngine returns the engine a table's queries run against.
func boundEngine(t *schema.Table) (engine.Engine, error) {
	if t.Engine() == nil {
		return nil, ostinato.ErrNoEngine
	}
	return t.Engine(), nil
}

// Runnable is any query that executes for side effects.
type Runnable interface {
	Run(ctx context.Context) error
}

// Atomic runs every query inside a single transaction on e, reusing an
// outer transaction when ctx already carries one.
func Atomic(ctx context.Context, e engine.Engine, queries ...Runnable) error {
	return e.Transaction(ctx, func(ctx context.Context) error {
		for _, q := range queries {
			if err := q.Run(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
