package column

import (
	"fmt"

	"github.com/ostinato-db/ostinato/dialect"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
)

// DDLFragment renders the column definition clause used by CREATE TABLE
// and ADD COLUMN: name, type, constraints, and default.
func (c *Column) DDLFragment(dialectName string) (string, error) {
	if err := c.err; err != nil {
		return "", err
	}
	typeName, err := c.TypeName(dialectName)
	if err != nil {
		return "", err
	}
	return c.ddlFragment(typeName, "", dialectName)
}

// DDLFragment renders the key column's definition clause, including the
// REFERENCES clause with its delete and update policies.
func (fk *ForeignKey) DDLFragment(dialectName string) (string, error) {
	if err := fk.err; err != nil {
		return "", err
	}
	typeName, err := fk.TypeName(dialectName)
	if err != nil {
		return "", err
	}
	target, err := fk.ReferencedTable()
	if err != nil {
		return "", err
	}
	tc, err := fk.TargetColumn()
	if err != nil {
		return "", err
	}
	refs := fmt.Sprintf(
		" REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		target.QualifiedName(), osql.QuoteIdentifier(tc.Name()),
		fk.onDelete, fk.onUpdate,
	)
	return fk.ddlFragment(typeName, refs, dialectName)
}

func (c *Column) ddlFragment(typeName, refs, dialectName string) (string, error) {
	q := osql.QuoteIdentifier(c.name) + " " + typeName
	if c.primary {
		q += " PRIMARY KEY"
	} else if c.unique {
		q += " UNIQUE"
	}
	if !c.null && !c.primary {
		q += " NOT NULL"
	}
	q += refs
	switch {
	case c.kind == TypeSerial || c.kind == TypeBigSerial:
		// Serials assign through their sequence; the exception is
		// Cockroach, where the generator must be spelled out.
		if dialectName == dialect.Cockroach {
			q += " DEFAULT unique_rowid()"
		}
	case c.primary:
	case c.hasDef:
		lit, err := c.DefaultLiteral(dialectName)
		if err != nil {
			return "", err
		}
		q += " DEFAULT " + lit
	}
	return q, nil
}
