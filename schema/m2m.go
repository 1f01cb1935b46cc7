package schema

import (
	"fmt"
	"strings"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/schema/column"
)

// M2MSuffix marks aggregated relationship columns in result rows on
// dialects without native arrays, so readers know to split the value.
const M2MSuffix = " [M2M]"

// M2M declares a many-to-many relationship reachable through a joining
// table carrying one foreign key back to the declaring table and one to
// the related table.
type M2M struct {
	name  string
	join  *column.TableRef
	owner *Table
}

// NewM2M declares a relationship. The joining table reference may be
// deferred when the joining table is defined later.
func NewM2M(name string, join *column.TableRef) *M2M {
	return &M2M{name: name, join: join}
}

func (m *M2M) attach(t *Table) { m.owner = t }

// Name returns the relationship name, used as the output column name in
// selects.
func (m *M2M) Name() string { return m.name }

// Owner returns the table the relationship is declared on.
func (m *M2M) Owner() *Table { return m.owner }

// JoiningTable resolves the joining table definition.
func (m *M2M) JoiningTable() (column.Table, error) {
	if m.owner == nil {
		return nil, ostinato.NewConfigError("m2m %q is not attached to a table", m.name)
	}
	return m.join.Resolve(m.owner)
}

// Keys resolves the joining table's two roles: primary points back at
// the owning table, secondary at the related table. The joining table
// must carry exactly one of each among its first two foreign keys.
func (m *M2M) Keys() (primary, secondary *column.ForeignKey, err error) {
	join, err := m.JoiningTable()
	if err != nil {
		return nil, nil, err
	}
	fks := join.ForeignKeys()
	if len(fks) < 2 {
		return nil, nil, ostinato.NewConfigError("m2m %q: joining table %q has %d foreign keys, want two", m.name, join.Name(), len(fks))
	}
	fks = fks[:2]
	for _, fk := range fks {
		ref, err := fk.ReferencedTable()
		if err != nil {
			return nil, nil, err
		}
		if ref == column.Table(m.owner) {
			if primary != nil {
				return nil, nil, ostinato.NewConfigError("m2m %q: both foreign keys on %q point at %q", m.name, join.Name(), m.owner.Name())
			}
			primary = fk
		} else {
			if secondary != nil {
				return nil, nil, ostinato.NewConfigError("m2m %q: no foreign key on %q points at %q", m.name, join.Name(), m.owner.Name())
			}
			secondary = fk
		}
	}
	if primary == nil || secondary == nil {
		return nil, nil, ostinato.NewConfigError("m2m %q: joining table %q must reference both sides", m.name, join.Name())
	}
	return primary, secondary, nil
}

// RelatedTable resolves the table on the far side of the relationship.
func (m *M2M) RelatedTable() (column.Table, error) {
	_, secondary, err := m.Keys()
	if err != nil {
		return nil, err
	}
	return secondary.ReferencedTable()
}

// transportSafe reports whether every column's value survives the
// string round trip of an aggregated readout. Structured document
// kinds do not; foreign keys mirror their target's integer form and
// do.
func transportSafe(cols []*column.Column) bool {
	for _, c := range cols {
		if c.Kind() == column.TypeForeignKey {
			continue
		}
		if !c.Kind().TransportSafe() {
			return false
		}
	}
	return true
}

// readoutColumns applies the default readout, every column of the
// related table, when the caller requests none.
func (m *M2M) readoutColumns(cols []*column.Column) ([]*column.Column, error) {
	if len(cols) > 0 {
		return cols, nil
	}
	related, err := m.RelatedTable()
	if err != nil {
		return nil, err
	}
	return related.Columns(), nil
}

// ResultKind reports how the aggregated readout rides in a result row
// on the given dialect, so readers know whether to revive the value as
// an array or a JSON document.
func (m *M2M) ResultKind(cols []*column.Column, asList bool, dialectName string) (column.Kind, error) {
	cols, err := m.readoutColumns(cols)
	if err != nil {
		return column.TypeInvalid, err
	}
	if !dialect.NativeArrays(dialectName) {
		return column.TypeText, nil
	}
	if asList || !transportSafe(cols) {
		return column.TypeArray, nil
	}
	return column.TypeJSON, nil
}

// SelectString renders the relationship as a single aggregated select
// column. With no requested columns every column of the related table
// is read out. With asList set and a single requested column, dialects
// with native arrays return a flat array; otherwise rows aggregate to
// JSON objects. SQLite always falls back to a delimited string column
// tagged with M2MSuffix.
func (m *M2M) SelectString(cols []*column.Column, asList bool, dialectName string) (osql.QueryString, error) {
	cols, err := m.readoutColumns(cols)
	if err != nil {
		return osql.QueryString{}, err
	}
	if asList && len(cols) > 1 {
		return osql.QueryString{}, ostinato.NewConfigError("m2m %q: a flat list needs exactly one column, got %d", m.name, len(cols))
	}
	primary, secondary, err := m.Keys()
	if err != nil {
		return osql.QueryString{}, err
	}
	join, err := m.JoiningTable()
	if err != nil {
		return osql.QueryString{}, err
	}
	near, err := primary.ReferencedTable()
	if err != nil {
		return osql.QueryString{}, err
	}
	far, err := secondary.ReferencedTable()
	if err != nil {
		return osql.QueryString{}, err
	}

	q := osql.QuoteIdentifier
	nearAlias := q("inner_" + near.Name())
	farAlias := q("inner_" + far.Name())
	inner := fmt.Sprintf(
		"%s JOIN %s %s ON (%s.%s = %s.%s) JOIN %s %s ON (%s.%s = %s.%s) WHERE %s.%s = %s.%s",
		join.QualifiedName(),
		near.QualifiedName(), nearAlias,
		join.QualifiedName(), q(primary.Name()), nearAlias, q(near.PrimaryKey().Name()),
		far.QualifiedName(), farAlias,
		join.QualifiedName(), q(secondary.Name()), farAlias, q(far.PrimaryKey().Name()),
		join.QualifiedName(), q(primary.Name()), q(near.Name()), q(near.PrimaryKey().Name()),
	)
	safe := transportSafe(cols)

	switch dialectName {
	case dialect.Postgres, dialect.Cockroach:
		if asList {
			return osql.NewQueryString(fmt.Sprintf(
				"ARRAY(SELECT %s.%s FROM %s) AS %s",
				farAlias, q(cols[0].Name()), inner, q(m.name),
			)), nil
		}
		if !safe {
			// Structured values cannot ride along in one statement, so
			// only the related primary keys come back; rows hydrate in
			// a follow-up query.
			return osql.NewQueryString(fmt.Sprintf(
				"ARRAY(SELECT %s.%s FROM %s) AS %s",
				farAlias, q(far.PrimaryKey().Name()), inner, q(m.name),
			)), nil
		}
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = farAlias + "." + q(c.Name())
		}
		results := q(m.name + "_results")
		return osql.NewQueryString(fmt.Sprintf(
			"(SELECT JSON_AGG(%s) FROM (SELECT %s FROM %s) AS %s) AS %s",
			results, strings.Join(names, ", "), inner, results, q(m.name),
		)), nil
	case dialect.SQLite:
		name := far.PrimaryKey().Name()
		if len(cols) == 1 && safe {
			name = cols[0].Name()
		}
		return osql.NewQueryString(fmt.Sprintf(
			"(SELECT group_concat(%s.%s) FROM %s) AS %s",
			farAlias, q(name), inner, q(m.name+M2MSuffix),
		)), nil
	}
	return osql.QueryString{}, dialect.Unrecognized(dialectName)
}
