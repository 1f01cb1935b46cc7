package query

import (
	"context"
	"strings"

	"github.com/ostinato-db/ostinato"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/schema"
	"github.com/ostinato-db/ostinato/schema/column"
)

// DeleteQuery removes rows. A delete with no predicate refuses to run
// unless forced.
type DeleteQuery struct {
	table  *schema.Table
	wheres []column.Where
	force  bool
	err    error
}

// Delete starts a delete on t.
func Delete(t *schema.Table) *DeleteQuery {
	return &DeleteQuery{table: t}
}

// Where restricts which rows delete.
func (q *DeleteQuery) Where(w column.Where) *DeleteQuery {
	if q.err != nil {
		return q
	}
	if err := w.Err(); err != nil {
		q.err = err
		return q
	}
	q.wheres = append(q.wheres, w)
	return q
}

// Force allows a delete with no predicate.
func (q *DeleteQuery) Force() *DeleteQuery {
	q.force = true
	return q
}

// QueryStrings renders the delete for a dialect.
func (q *DeleteQuery) QueryStrings(dialectName string) ([]osql.QueryString, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.wheres) == 0 && !q.force {
		return nil, ostinato.NewConfigError("delete on %q has no where clause; call Force to delete every row", q.table.Name())
	}
	return rendererMap{"default": q.render}.render(dialectName)
}

func (q *DeleteQuery) render(dialectName string) ([]osql.QueryString, error) {
	qs := osql.NewQueryString("DELETE FROM " + q.table.QualifiedName())
	if len(q.wheres) > 0 {
		holes := make([]string, len(q.wheres))
		args := make([]any, len(q.wheres))
		for i, w := range q.wheres {
			wqs, err := w.QueryString()
			if err != nil {
				return nil, err
			}
			holes[i] = "{}"
			args[i] = wqs
		}
		qs = qs.Append(" WHERE "+strings.Join(holes, " AND "), args...)
	}
	return []osql.QueryString{qs}, nil
}

// Run executes the delete.
func (q *DeleteQuery) Run(ctx context.Context) error {
	if q.err != nil {
		return q.err
	}
	e, err := boundEngine(q.table)
	if err != nil {
		return err
	}
	stmts, err := q.QueryStrings(e.Dialect())
	if err != nil {
		return err
	}
	return e.Exec(ctx, stmts[0])
}
