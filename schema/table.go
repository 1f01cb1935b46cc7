// Package schema holds table definitions: named, ordered collections of
// typed columns with a single primary key, optionally bound to an
// execution engine. Definitions register in a Registry so deferred
// references between them resolve by name.
package schema

import (
	"fmt"

	"github.com/go-openapi/inflect"

	"github.com/ostinato-db/ostinato"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/engine"
	"github.com/ostinato-db/ostinato/schema/column"
)

// Table is a table definition. Build one with New; the zero value is
// not usable.
type Table struct {
	name       string
	schemaName string
	cols       []*column.Column
	fks        []*column.ForeignKey
	m2ms       []*M2M
	byName     map[string]*column.Column
	pk         *column.Column
	reg        *Registry
	eng        engine.Engine
}

// Option configures a table under construction.
type Option func(*builder)

type builder struct {
	dbName     string
	schemaName string
	cols       []*column.Column
	fks        []*column.ForeignKey
	m2ms       []*M2M
	eng        engine.Engine
}

// Columns declares the table's plain columns, in order.
func Columns(cols ...*column.Column) Option {
	return func(b *builder) { b.cols = append(b.cols, cols...) }
}

// ForeignKeys declares the table's foreign key columns, in order. They
// follow the plain columns in the table's column order.
func ForeignKeys(fks ...*column.ForeignKey) Option {
	return func(b *builder) { b.fks = append(b.fks, fks...) }
}

// M2Ms declares many-to-many relationships reachable through a joining
// table.
func M2Ms(ms ...*M2M) Option {
	return func(b *builder) { b.m2ms = append(b.m2ms, ms...) }
}

// WithSchema places the table in a named database schema.
func WithSchema(name string) Option {
	return func(b *builder) { b.schemaName = name }
}

// WithTableName overrides the table name derived from the definition
// name.
func WithTableName(name string) Option {
	return func(b *builder) { b.dbName = name }
}

// WithEngine binds the execution engine at construction time.
func WithEngine(e engine.Engine) Option {
	return func(b *builder) { b.eng = e }
}

// New builds a table definition. The table name is the definition name
// converted to snake case, so "ConcertVenue" becomes "concert_venue".
// A table declaring no primary key gets an auto-incrementing "id"
// column prepended.
func New(name string, opts ...Option) (*Table, error) {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	dbName := b.dbName
	if dbName == "" {
		dbName = inflect.Underscore(name)
	}
	if !osql.ValidIdentifier(dbName) {
		return nil, ostinato.NewConfigError("invalid table name %q", dbName)
	}
	if b.schemaName != "" && !osql.ValidIdentifier(b.schemaName) {
		return nil, ostinato.NewConfigError("invalid schema name %q", b.schemaName)
	}

	t := &Table{
		name:       dbName,
		schemaName: b.schemaName,
		byName:     map[string]*column.Column{},
		eng:        b.eng,
	}

	ordered := make([]*column.Column, 0, len(b.cols)+len(b.fks)+1)
	ordered = append(ordered, b.cols...)
	for _, fk := range b.fks {
		ordered = append(ordered, &fk.Column)
		t.fks = append(t.fks, fk)
	}

	var primaries []*column.Column
	for _, c := range ordered {
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("table %q: %w", dbName, err)
		}
		if c.Table() != nil {
			return nil, ostinato.NewConfigError("table %q: column %q already belongs to table %q", dbName, c.Name(), c.Table().Name())
		}
		if _, dup := t.byName[c.Name()]; dup {
			return nil, ostinato.NewConfigError("table %q: duplicate column %q", dbName, c.Name())
		}
		t.byName[c.Name()] = c
		if c.IsPrimary() {
			primaries = append(primaries, c)
		}
	}
	switch len(primaries) {
	case 0:
		id := column.Serial("id").Primary()
		if _, dup := t.byName[id.Name()]; dup {
			return nil, ostinato.NewConfigError("table %q: column \"id\" exists but is not the primary key", dbName)
		}
		ordered = append([]*column.Column{id}, ordered...)
		t.byName[id.Name()] = id
		t.pk = id
	case 1:
		t.pk = primaries[0]
	default:
		return nil, ostinato.NewConfigError("table %q: %d primary key columns declared, want one", dbName, len(primaries))
	}

	t.cols = ordered
	for _, c := range t.cols {
		c.Attach(t)
	}
	for _, m := range b.m2ms {
		m.attach(t)
		t.m2ms = append(t.m2ms, m)
	}
	return t, nil
}

// Name returns the table's database name.
func (t *Table) Name() string { return t.name }

// SchemaName returns the database schema the table lives in, empty for
// the default schema.
func (t *Table) SchemaName() string { return t.schemaName }

// QualifiedName returns the quoted, schema-qualified table name.
func (t *Table) QualifiedName() string {
	if t.schemaName != "" {
		return osql.QuoteIdentifier(t.schemaName) + "." + osql.QuoteIdentifier(t.name)
	}
	return osql.QuoteIdentifier(t.name)
}

// Columns returns the table's columns in declaration order, primary key
// first when it was auto-generated.
func (t *Table) Columns() []*column.Column { return t.cols }

// Column returns the named column.
func (t *Table) Column(name string) (*column.Column, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// C returns the named column, or a column carrying a lookup error. It
// keeps query construction chainable; the error surfaces when the
// query renders.
func (t *Table) C(name string) *column.Column {
	if c, ok := t.byName[name]; ok {
		return c
	}
	missing := column.Errored(name, ostinato.NewConfigError("table %q has no column %q", t.name, name))
	missing.Attach(t)
	return missing
}

// PrimaryKey returns the primary key column.
func (t *Table) PrimaryKey() *column.Column { return t.pk }

// ForeignKeys returns the table's foreign key columns.
func (t *Table) ForeignKeys() []*column.ForeignKey { return t.fks }

// FK returns the named foreign key.
func (t *Table) FK(name string) (*column.ForeignKey, bool) {
	for _, fk := range t.fks {
		if fk.Name() == name {
			return fk, true
		}
	}
	return nil, false
}

// M2M returns the named many-to-many relationship.
func (t *Table) M2M(name string) (*M2M, bool) {
	for _, m := range t.m2ms {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

// M2Ms returns the table's many-to-many relationships.
func (t *Table) M2Ms() []*M2M { return t.m2ms }

// Ref returns a direct reference to the table for foreign key
// declarations.
func (t *Table) Ref() *column.TableRef { return column.RefTo(t) }

// Bind attaches the execution engine queries run against.
func (t *Table) Bind(e engine.Engine) { t.eng = e }

// Engine returns the bound engine, nil when unbound.
func (t *Table) Engine() engine.Engine { return t.eng }

// Dialect returns the bound engine's dialect, empty when unbound.
func (t *Table) Dialect() string {
	if t.eng == nil {
		return ""
	}
	return t.eng.Dialect()
}

// Registry returns the registry the table is registered in.
func (t *Table) Registry() column.Registry {
	if t.reg == nil {
		return nil
	}
	return t.reg
}
