package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/ostinato-db/ostinato"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/engine"
	"github.com/ostinato-db/ostinato/schema"
)

// InsertQuery writes new rows and reports their assigned primary keys.
type InsertQuery struct {
	table *schema.Table
	rows  []*schema.Object
	err   error
}

// Insert starts an insert of the given unsaved rows.
func Insert(t *schema.Table, rows ...*schema.Object) *InsertQuery {
	q := &InsertQuery{table: t}
	return q.Rows(rows...)
}

// Rows adds rows to the insert.
func (q *InsertQuery) Rows(rows ...*schema.Object) *InsertQuery {
	if q.err != nil {
		return q
	}
	for _, o := range rows {
		if o.Table() != q.table {
			q.err = ostinato.NewConfigError("cannot insert a %q row into %q", o.Table().Name(), q.table.Name())
			return q
		}
		q.rows = append(q.rows, o)
	}
	return q
}

// insertColumns is the column order of the statement: every column
// except an unassigned primary key.
func (q *InsertQuery) insertColumns() []string {
	pk := q.table.PrimaryKey()
	assigned := false
	for _, o := range q.rows {
		if o.PK() != nil {
			assigned = true
			break
		}
	}
	var names []string
	for _, c := range q.table.Columns() {
		if c == pk && !assigned {
			continue
		}
		names = append(names, c.Name())
	}
	return names
}

// QueryStrings renders the insert for a dialect.
func (q *InsertQuery) QueryStrings(dialectName string) ([]osql.QueryString, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.rows) == 0 {
		return nil, ostinato.NewConfigError("insert into %q has no rows", q.table.Name())
	}
	return rendererMap{"default": q.render}.render(dialectName)
}

func (q *InsertQuery) render(dialectName string) ([]osql.QueryString, error) {
	names := q.insertColumns()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = osql.QuoteIdentifier(n)
	}

	var (
		tuples []string
		args   []any
	)
	for _, o := range q.rows {
		vals, err := o.InsertValues()
		if err != nil {
			return nil, err
		}
		holes := make([]string, len(names))
		for i, n := range names {
			holes[i] = "{}"
			args = append(args, vals[n])
		}
		tuples = append(tuples, "("+strings.Join(holes, ", ")+")")
	}

	pk := q.table.PrimaryKey()
	qs := osql.NewQueryString(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s RETURNING %s",
		q.table.QualifiedName(),
		strings.Join(quoted, ", "),
		strings.Join(tuples, ", "),
		osql.QuoteIdentifier(pk.Name()),
	), args...)
	return []osql.QueryString{qs}, nil
}

// Run executes the insert. Each inserted object is marked saved with
// its database-assigned primary key.
func (q *InsertQuery) Run(ctx context.Context) error {
	_, err := q.RunReturning(ctx)
	return err
}

// RunReturning executes the insert and returns the primary key rows.
func (q *InsertQuery) RunReturning(ctx context.Context) ([]engine.Row, error) {
	if q.err != nil {
		return nil, q.err
	}
	e, err := boundEngine(q.table)
	if err != nil {
		return nil, err
	}
	stmts, err := q.QueryStrings(e.Dialect())
	if err != nil {
		return nil, err
	}
	rows, err := e.Query(ctx, stmts[0])
	if err != nil {
		return nil, err
	}
	pkName := q.table.PrimaryKey().Name()
	for i, o := range q.rows {
		if i < len(rows) {
			o.MarkSaved(rows[i][pkName])
		}
	}
	return rows, nil
}
