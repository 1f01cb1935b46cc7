package schema

import (
	"github.com/ostinato-db/ostinato"
)

// Object is a single row of a table held as a value map. Objects track
// whether they exist in the database yet, which insert-or-reuse logic
// relies on.
type Object struct {
	table  *Table
	values map[string]any
	exists bool
}

// NewObject builds an unsaved row. Missing columns fall back to their
// declared defaults when the row is inserted.
func (t *Table) NewObject(values map[string]any) *Object {
	vals := make(map[string]any, len(values))
	for k, v := range values {
		vals[k] = v
	}
	return &Object{table: t, values: vals}
}

// FromRow builds an object from a row already read from the database.
func (t *Table) FromRow(row map[string]any) *Object {
	o := t.NewObject(row)
	o.exists = true
	return o
}

// Table returns the owning table definition.
func (o *Object) Table() *Table { return o.table }

// Get returns the named column's value.
func (o *Object) Get(name string) (any, bool) {
	v, ok := o.values[name]
	return v, ok
}

// Set assigns the named column's value. Unknown columns are rejected.
func (o *Object) Set(name string, v any) error {
	if _, ok := o.table.Column(name); !ok {
		return ostinato.NewConfigError("table %q has no column %q", o.table.Name(), name)
	}
	o.values[name] = v
	return nil
}

// Values returns a copy of the row's values.
func (o *Object) Values() map[string]any {
	out := make(map[string]any, len(o.values))
	for k, v := range o.values {
		out[k] = v
	}
	return out
}

// PK returns the primary key value, nil when unassigned.
func (o *Object) PK() any {
	return o.values[o.table.PrimaryKey().Name()]
}

// ExistsInDB reports whether the row has been stored.
func (o *Object) ExistsInDB() bool { return o.exists }

// MarkSaved records the assigned primary key after an insert.
func (o *Object) MarkSaved(pk any) {
	o.values[o.table.PrimaryKey().Name()] = pk
	o.exists = true
}

// InsertValues resolves the full value set for an insert: explicit
// values first, then column defaults. The primary key is omitted when
// unassigned so auto-increment columns self-assign.
func (o *Object) InsertValues() (map[string]any, error) {
	out := map[string]any{}
	for _, c := range o.table.Columns() {
		if v, ok := o.values[c.Name()]; ok {
			out[c.Name()] = v
			continue
		}
		if c == o.table.PrimaryKey() {
			continue
		}
		if v, ok := c.ResolveDefault(); ok {
			out[c.Name()] = v
		} else if _, has := c.Default(); !has && !c.Null() {
			return nil, ostinato.NewConfigError("table %q: no value or default for non-nullable column %q", o.table.Name(), c.Name())
		}
	}
	return out, nil
}
