package query

import (
	"context"

	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/engine"
	"github.com/ostinato-db/ostinato/schema"
)

// RawQuery runs hand-written SQL against a table's engine. The template
// uses {} placeholders, compiled to the dialect's parameter markers.
type RawQuery struct {
	table *schema.Table
	qs    osql.QueryString
}

// Raw builds a raw statement.
func Raw(t *schema.Table, template string, args ...any) *RawQuery {
	return &RawQuery{table: t, qs: osql.NewQueryString(template, args...)}
}

// QueryStrings returns the raw statement unchanged.
func (q *RawQuery) QueryStrings(dialectName string) ([]osql.QueryString, error) {
	return []osql.QueryString{q.qs}, nil
}

// Run executes the statement and returns any rows.
func (q *RawQuery) Run(ctx context.Context) ([]engine.Row, error) {
	e, err := boundEngine(q.table)
	if err != nil {
		return nil, err
	}
	return e.Query(ctx, q.qs)
}

// Exec executes the statement, discarding rows.
func (q *RawQuery) Exec(ctx context.Context) error {
	e, err := boundEngine(q.table)
	if err != nil {
		return err
	}
	return e.Exec(ctx, q.qs)
}
