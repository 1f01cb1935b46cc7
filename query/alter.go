package query

import (
	"context"
	"fmt"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/schema"
	"github.com/ostinato-db/ostinato/schema/column"
)

// alterClause renders one ALTER TABLE clause for a dialect. A clause
// may opt out on a dialect by returning ok=false.
type alterClause func(dialectName string) (clause string, ok bool, err error)

// AlterQuery accumulates schema changes to one table. Statements render
// the accumulated clauses in a fixed order: added columns first, then
// foreign key constraints, renames, drops, and the column property
// changes, so a single Alter can both add a column and constrain it.
// Postgres and Cockroach run every clause in one statement; SQLite only
// accepts one clause per statement, so each renders separately.
type AlterQuery struct {
	table *schema.Table

	add           []alterClause
	addFK         []alterClause
	renameColumns []alterClause
	renameTable   []alterClause
	renameConstr  []alterClause
	drop          []alterClause
	dropConstr    []alterClause
	dropDefault   []alterClause
	setColumnType []alterClause
	setUnique     []alterClause
	setNull       []alterClause
	setLength     []alterClause
	setDefault    []alterClause
	setDigits     []alterClause
	setSchema     []alterClause

	dropTable *DropTableQuery

	err error
}

// Alter starts a schema change on t.
func Alter(t *schema.Table) *AlterQuery {
	return &AlterQuery{table: t}
}

func (q *AlterQuery) fail(err error) *AlterQuery {
	if q.err == nil {
		q.err = err
	}
	return q
}

func serialKind(k column.Kind) bool {
	return k == column.TypeSerial || k == column.TypeBigSerial
}

func always(clause string) alterClause {
	return func(string) (string, bool, error) { return clause, true, nil }
}

// AddColumn adds a plain column.
func (q *AlterQuery) AddColumn(c *column.Column) *AlterQuery {
	if err := c.Err(); err != nil {
		return q.fail(err)
	}
	q.add = append(q.add, func(dialectName string) (string, bool, error) {
		frag, err := c.DDLFragment(dialectName)
		return "ADD COLUMN " + frag, true, err
	})
	return q
}

// AddForeignKeyColumn adds a foreign key column, including its
// REFERENCES clause.
func (q *AlterQuery) AddForeignKeyColumn(fk *column.ForeignKey) *AlterQuery {
	if err := fk.Err(); err != nil {
		return q.fail(err)
	}
	q.add = append(q.add, func(dialectName string) (string, bool, error) {
		frag, err := fk.DDLFragment(dialectName)
		return "ADD COLUMN " + frag, true, err
	})
	return q
}

// DropColumn removes a column.
func (q *AlterQuery) DropColumn(name string) *AlterQuery {
	q.drop = append(q.drop, always("DROP COLUMN "+osql.QuoteIdentifier(name)))
	return q
}

// DropDefault removes a column's default.
func (q *AlterQuery) DropDefault(name string) *AlterQuery {
	q.dropDefault = append(q.dropDefault, always(
		"ALTER COLUMN "+osql.QuoteIdentifier(name)+" DROP DEFAULT"))
	return q
}

// RenameTable renames the table.
func (q *AlterQuery) RenameTable(newName string) *AlterQuery {
	if !osql.ValidIdentifier(newName) {
		return q.fail(ostinato.NewConfigError("invalid table name %q", newName))
	}
	q.renameTable = append(q.renameTable, always("RENAME TO "+osql.QuoteIdentifier(newName)))
	return q
}

// RenameColumn renames a column.
func (q *AlterQuery) RenameColumn(oldName, newName string) *AlterQuery {
	if !osql.ValidIdentifier(newName) {
		return q.fail(ostinato.NewConfigError("invalid column name %q", newName))
	}
	q.renameColumns = append(q.renameColumns, always(
		"RENAME COLUMN "+osql.QuoteIdentifier(oldName)+" TO "+osql.QuoteIdentifier(newName)))
	return q
}

// RenameConstraint renames a constraint.
func (q *AlterQuery) RenameConstraint(oldName, newName string) *AlterQuery {
	q.renameConstr = append(q.renameConstr, always(
		"RENAME CONSTRAINT "+osql.QuoteIdentifier(oldName)+" TO "+osql.QuoteIdentifier(newName)))
	return q
}

// SetColumnType changes a column's type to the new column's. The using
// expression tells the database how to convert values the cast cannot
// handle alone, e.g. `"popularity"::integer`.
func (q *AlterQuery) SetColumnType(name string, newCol *column.Column, usingExpression string) *AlterQuery {
	if err := newCol.Err(); err != nil {
		return q.fail(err)
	}
	if old, ok := q.table.Column(name); ok && serialKind(old.Kind()) && serialKind(newCol.Kind()) {
		q.setColumnType = append(q.setColumnType, func(string) (string, bool, error) {
			ostinato.Warnf("column %q: no automatic conversion between auto-increment kinds %s and %s; skipping", name, old.Kind(), newCol.Kind())
			return "", false, nil
		})
		return q
	}
	q.setColumnType = append(q.setColumnType, func(dialectName string) (string, bool, error) {
		typeName, err := newCol.TypeName(dialectName)
		if err != nil {
			return "", false, err
		}
		clause := "ALTER COLUMN " + osql.QuoteIdentifier(name) + " TYPE " + typeName
		if usingExpression != "" {
			clause += " USING " + usingExpression
		}
		return clause, true, nil
	})
	return q
}

// SetDefault changes a column's default.
func (q *AlterQuery) SetDefault(name string, value any) *AlterQuery {
	q.setDefault = append(q.setDefault, func(dialectName string) (string, bool, error) {
		lit, err := column.SQLValue(value, dialectName)
		if err != nil {
			return "", false, err
		}
		return "ALTER COLUMN " + osql.QuoteIdentifier(name) + " SET DEFAULT " + lit, true, nil
	})
	return q
}

// SetNull switches a column between nullable and not.
func (q *AlterQuery) SetNull(name string, null bool) *AlterQuery {
	clause := "ALTER COLUMN " + osql.QuoteIdentifier(name)
	if null {
		clause += " DROP NOT NULL"
	} else {
		clause += " SET NOT NULL"
	}
	q.setNull = append(q.setNull, always(clause))
	return q
}

// SetUnique adds or removes a uniqueness constraint. Removal assumes
// the conventional "<table>_<column>_key" constraint name.
func (q *AlterQuery) SetUnique(name string, unique bool) *AlterQuery {
	if unique {
		q.setUnique = append(q.setUnique, always("ADD UNIQUE ("+osql.QuoteIdentifier(name)+")"))
		return q
	}
	key := q.table.Name() + "_" + name + "_key"
	q.setUnique = append(q.setUnique, always("DROP CONSTRAINT "+osql.QuoteIdentifier(key)))
	return q
}

// SetLength changes a varchar column's maximum length. SQLite neither
// supports nor enforces length limits, so the clause is skipped there
// with a warning.
func (q *AlterQuery) SetLength(name string, length int) *AlterQuery {
	if c, ok := q.table.Column(name); ok && c.Kind() != column.TypeVarchar {
		return q.fail(ostinato.NewConfigError("column %q: only varchar columns can change length", name))
	}
	q.setLength = append(q.setLength, func(dialectName string) (string, bool, error) {
		if dialectName == dialect.SQLite {
			ostinato.Warnf("sqlite does not support length changes and enforces no length limits; skipping")
			return "", false, nil
		}
		return fmt.Sprintf("ALTER COLUMN %s TYPE VARCHAR(%d)", osql.QuoteIdentifier(name), length), true, nil
	})
	return q
}

// SetDigits changes a numeric column's precision and scale. Nil digits
// removes the constraint.
func (q *AlterQuery) SetDigits(name string, digits []int) *AlterQuery {
	if digits != nil && len(digits) != 2 {
		return q.fail(ostinato.NewConfigError("column %q: digits must be a precision and a scale pair, got %d values", name, len(digits)))
	}
	q.setDigits = append(q.setDigits, func(dialectName string) (string, bool, error) {
		clause := "ALTER COLUMN " + osql.QuoteIdentifier(name) + " TYPE NUMERIC"
		if digits != nil && dialectName != dialect.Cockroach {
			clause += fmt.Sprintf("(%d, %d)", digits[0], digits[1])
		}
		return clause, true, nil
	})
	return q
}

// SetSchema moves the table to another database schema.
func (q *AlterQuery) SetSchema(schemaName string) *AlterQuery {
	if !osql.ValidIdentifier(schemaName) {
		return q.fail(ostinato.NewConfigError("invalid schema name %q", schemaName))
	}
	q.setSchema = append(q.setSchema, always("SET SCHEMA "+osql.QuoteIdentifier(schemaName)))
	return q
}

// constraintName is the conventional foreign key constraint name.
func (q *AlterQuery) constraintName(columnName string) string {
	return q.table.Name() + "_" + columnName + "_fkey"
}

// DropConstraint removes a named constraint.
func (q *AlterQuery) DropConstraint(name string) *AlterQuery {
	q.dropConstr = append(q.dropConstr, always("DROP CONSTRAINT IF EXISTS "+osql.QuoteIdentifier(name)))
	return q
}

// DropForeignKeyConstraint removes the conventional constraint on a
// foreign key column.
func (q *AlterQuery) DropForeignKeyConstraint(columnName string) *AlterQuery {
	return q.DropConstraint(q.constraintName(columnName))
}

// AddForeignKeyConstraint constrains an existing column against the
// foreign key's target.
func (q *AlterQuery) AddForeignKeyConstraint(fk *column.ForeignKey) *AlterQuery {
	if err := fk.Err(); err != nil {
		return q.fail(err)
	}
	target, err := fk.ReferencedTable()
	if err != nil {
		return q.fail(err)
	}
	tc, err := fk.TargetColumn()
	if err != nil {
		return q.fail(err)
	}
	clause := fmt.Sprintf(
		"ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		osql.QuoteIdentifier(q.constraintName(fk.Name())),
		osql.QuoteIdentifier(fk.Name()),
		target.QualifiedName(), osql.QuoteIdentifier(tc.Name()),
		fk.DeleteAction(), fk.UpdateAction(),
	)
	q.addFK = append(q.addFK, always(clause))
	return q
}

// DropTable discards every other clause and drops the table instead.
func (q *AlterQuery) DropTable(cascade, ifExists bool) *AlterQuery {
	dt := DropTable(q.table)
	if cascade {
		dt.Cascade()
	}
	if ifExists {
		dt.IfExists()
	}
	q.dropTable = dt
	return q
}

// ordered returns every clause in rendering order.
func (q *AlterQuery) ordered() []alterClause {
	var out []alterClause
	for _, group := range [][]alterClause{
		q.add,
		q.addFK,
		q.renameColumns,
		q.renameTable,
		q.renameConstr,
		q.drop,
		q.dropConstr,
		q.dropDefault,
		q.setColumnType,
		q.setUnique,
		q.setNull,
		q.setLength,
		q.setDefault,
		q.setDigits,
		q.setSchema,
	} {
		out = append(out, group...)
	}
	return out
}

func (q *AlterQuery) clauses(dialectName string) ([]string, error) {
	var out []string
	for _, c := range q.ordered() {
		clause, ok, err := c(dialectName)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, clause)
		}
	}
	return out, nil
}

// renderMulti joins every clause into one ALTER TABLE statement.
func (q *AlterQuery) renderMulti(dialectName string) ([]osql.QueryString, error) {
	clauses, err := q.clauses(dialectName)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		return nil, nil
	}
	stmt := "ALTER TABLE " + q.table.QualifiedName()
	for i, c := range clauses {
		if i > 0 {
			stmt += ","
		}
		stmt += " " + c
	}
	return []osql.QueryString{osql.NewQueryString(stmt)}, nil
}

// renderSingle emits one ALTER TABLE statement per clause.
func (q *AlterQuery) renderSingle(dialectName string) ([]osql.QueryString, error) {
	clauses, err := q.clauses(dialectName)
	if err != nil {
		return nil, err
	}
	out := make([]osql.QueryString, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, osql.NewQueryString("ALTER TABLE "+q.table.QualifiedName()+" "+c))
	}
	return out, nil
}

// QueryStrings renders the accumulated changes for a dialect.
func (q *AlterQuery) QueryStrings(dialectName string) ([]osql.QueryString, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.dropTable != nil {
		stmts, err := q.dropTable.Statements(dialectName)
		if err != nil {
			return nil, err
		}
		return []osql.QueryString{osql.NewQueryString(stmts[0])}, nil
	}
	return rendererMap{
		dialect.SQLite: q.renderSingle,
		"default":      q.renderMulti,
	}.render(dialectName)
}

// Statements renders the DDL text for a dialect.
func (q *AlterQuery) Statements(dialectName string) ([]string, error) {
	qss, err := q.QueryStrings(dialectName)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(qss))
	for i, qs := range qss {
		stmt, _, err := qs.Compile(dialectName)
		if err != nil {
			return nil, err
		}
		out[i] = stmt
	}
	return out, nil
}

// Run executes the statements on the bound engine.
func (q *AlterQuery) Run(ctx context.Context) error {
	if q.err != nil {
		return q.err
	}
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
