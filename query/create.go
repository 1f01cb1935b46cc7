package query

import (
	"context"
	"fmt"
	"strings"

	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/engine"
	"github.com/ostinato-db/ostinato/schema"
)

// CreateTableQuery renders and runs the CREATE TABLE statement for a
// definition, plus CREATE INDEX statements for its indexed columns.
type CreateTableQuery struct {
	table       *schema.Table
	ifNotExists bool
}

// CreateTable builds the create statement for t.
func CreateTable(t *schema.Table) *CreateTableQuery {
	return &CreateTableQuery{table: t}
}

// IfNotExists makes the statement a no-op when the table exists.
func (q *CreateTableQuery) IfNotExists() *CreateTableQuery {
	q.ifNotExists = true
	return q
}

// Statements renders the DDL for a dialect.
func (q *CreateTableQuery) Statements(dialectName string) ([]string, error) {
	fkNames := map[string]bool{}
	for _, fk := range q.table.ForeignKeys() {
		fkNames[fk.Name()] = true
	}

	frags := make([]string, 0, len(q.table.Columns()))
	for _, c := range q.table.Columns() {
		if fkNames[c.Name()] {
			continue
		}
		frag, err := c.DDLFragment(dialectName)
		if err != nil {
			return nil, err
		}
		frags = append(frags, frag)
	}
	for _, fk := range q.table.ForeignKeys() {
		frag, err := fk.DDLFragment(dialectName)
		if err != nil {
			return nil, err
		}
		frags = append(frags, frag)
	}

	keyword := "CREATE TABLE"
	if q.ifNotExists {
		keyword = "CREATE TABLE IF NOT EXISTS"
	}
	stmts := []string{fmt.Sprintf("%s %s (%s)", keyword, q.table.QualifiedName(), strings.Join(frags, ", "))}

	for _, c := range q.table.Columns() {
		if !c.IsIndexed() || c.IsPrimary() || c.IsUnique() {
			continue
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX %s ON %s (%s)",
			osql.QuoteIdentifier(q.table.Name()+"_"+c.Name()+"_idx"),
			q.table.QualifiedName(),
			osql.QuoteIdentifier(c.Name()),
		))
	}
	return stmts, nil
}

// Run executes the DDL on the bound engine.
func (q *CreateTableQuery) Run(ctx context.Context) error {
	e, err := boundEngine(q.table)
	if err != nil {
		return err
	}
	stmts, err := q.Statements(e.Dialect())
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := e.DDL(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateAll creates every table in foreign key dependency order on e,
// binding each table to the engine first.
func CreateAll(ctx context.Context, e engine.Engine, tables []*schema.Table) error {
	sorted, err := schema.Sort(tables)
	if err != nil {
		return err
	}
	for _, t := range sorted {
		t.Bind(e)
		if err := CreateTable(t).IfNotExists().Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DropTableQuery removes a table.
type DropTableQuery struct {
	table    *schema.Table
	cascade  bool
	ifExists bool
}

// DropTable builds the drop statement for t.
func DropTable(t *schema.Table) *DropTableQuery {
	return &DropTableQuery{table: t}
}

// Cascade drops dependent objects along with the table.
func (q *DropTableQuery) Cascade() *DropTableQuery {
	q.cascade = true
	return q
}

// IfExists makes the statement a no-op when the table is absent.
func (q *DropTableQuery) IfExists() *DropTableQuery {
	q.ifExists = true
	return q
}

// Statements renders the DDL for a dialect.
func (q *DropTableQuery) Statements(dialectName string) ([]string, error) {
	stmt := "DROP TABLE"
	if q.ifExists {
		stmt += " IF EXISTS"
	}
	stmt += " " + q.table.QualifiedName()
	if q.cascade {
		stmt += " CASCADE"
	}
	return []string{stmt}, nil
}

// Run executes the DDL on the bound engine.
func (q *DropTableQuery) Run(ctx context.Context) error {
	e, err := boundEngine(q.table)
	if err != nil {
		return err
	}
	stmts, err := q.Statements(e.Dialect())
	if err != nil {
		return err
	}
	return e.DDL(ctx, stmts[0])
}
