package query

import (
	"context"
	"strings"

	"github.com/ostinato-db/ostinato"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/schema"
	"github.com/ostinato-db/ostinato/schema/column"
)

type assignment struct {
	name string
	val  any
	expr *osql.QueryString
}

// UpdateQuery modifies existing rows. An update with no predicate
// refuses to run unless forced, since it would touch the whole table.
type UpdateQuery struct {
	table  *schema.Table
	sets   []assignment
	wheres []column.Where
	force  bool
	err    error
}

// Update starts an update on t.
func Update(t *schema.Table) *UpdateQuery {
	return &UpdateQuery{table: t}
}

// Set assigns a value to the named column.
func (q *UpdateQuery) Set(name string, v any) *UpdateQuery {
	if q.err != nil {
		return q
	}
	if _, ok := q.table.Column(name); !ok {
		q.err = ostinato.NewConfigError("table %q has no column %q", q.table.Name(), name)
		return q
	}
	q.sets = append(q.sets, assignment{name: name, val: v})
	return q
}

// SetExpr assigns a computed expression, such as duration arithmetic
// from Column.Add, to the named column.
func (q *UpdateQuery) SetExpr(name string, expr osql.QueryString, err error) *UpdateQuery {
	if q.err != nil {
		return q
	}
	if err != nil {
		q.err = err
		return q
	}
	if _, ok := q.table.Column(name); !ok {
		q.err = ostinato.NewConfigError("table %q has no column %q", q.table.Name(), name)
		return q
	}
	q.sets = append(q.sets, assignment{name: name, expr: &expr})
	return q
}

// Where restricts which rows update.
func (q *UpdateQuery) Where(w column.Where) *UpdateQuery {
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

// Force allows an update with no predicate.
func (q *UpdateQuery) Force() *UpdateQuery {
	q.force = true
	return q
}

// QueryStrings renders the update for a dialect.
func (q *UpdateQuery) QueryStrings(dialectName string) ([]osql.QueryString, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.sets) == 0 {
		return nil, ostinato.NewConfigError("update on %q assigns no columns", q.table.Name())
	}
	if len(q.wheres) == 0 && !q.force {
		return nil, ostinato.NewConfigError("update on %q has no where clause; call Force to update every row", q.table.Name())
	}
	return rendererMap{"default": q.render}.render(dialectName)
}

func (q *UpdateQuery) render(dialectName string) ([]osql.QueryString, error) {
	var (
		holes []string
		args  []any
	)
	for _, a := range q.sets {
		if a.expr != nil {
			holes = append(holes, osql.QuoteIdentifier(a.name)+" = {}")
			args = append(args, *a.expr)
			continue
		}
		holes = append(holes, osql.QuoteIdentifier(a.name)+" = {}")
		args = append(args, a.val)
	}
	qs := osql.NewQueryString("UPDATE "+q.table.QualifiedName()+" SET "+strings.Join(holes, ", "), args...)

	if len(q.wheres) > 0 {
		wholes := make([]string, len(q.wheres))
		wargs := make([]any, len(q.wheres))
		for i, w := range q.wheres {
			wqs, err := w.QueryString()
			if err != nil {
				return nil, err
			}
			wholes[i] = "{}"
			wargs[i] = wqs
		}
		qs = qs.Append(" WHERE "+strings.Join(wholes, " AND "), wargs...)
	}
	return []osql.QueryString{qs}, nil
}

// Run executes the update.
func (q *UpdateQuery) Run(ctx context.Context) error {
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
