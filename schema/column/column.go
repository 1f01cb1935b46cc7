// Package column implements the typed column model shared by every table
// definition. A column knows its logical kind, its per-dialect SQL type
// name, its default, and, once traversed through one or more foreign
// keys, the join chain that produced it.
package column

import (
	"fmt"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
)

// MaxJoinDepth caps how many foreign key hops a traversal may cross.
const MaxJoinDepth = 10

// Table is the view of an owning table a column needs. It is implemented
// by the schema package; depending on it as an interface keeps the column
// model free of an import cycle with table definitions.
type Table interface {
	Name() string
	SchemaName() string
	QualifiedName() string
	Columns() []*Column
	Column(name string) (*Column, bool)
	PrimaryKey() *Column
	ForeignKeys() []*ForeignKey
	Dialect() string
	Registry() Registry
}

// Column is a single typed column. The zero value is not usable; build
// columns with the kind constructors (Varchar, Integer, Timestamp, ...).
type Column struct {
	kind    Kind
	name    string
	null    bool
	primary bool
	unique  bool
	index   bool

	def    any
	hasDef bool

	length int
	digits []int
	base   *Column

	table Table
	chain JoinChain

	err error
}

func newColumn(kind Kind, name string) *Column {
	c := &Column{kind: kind, name: name}
	if !osql.ValidIdentifier(name) {
		c.err = invalidName(name)
	}
	return c
}

// Varchar builds a variable length string column. A zero length renders
// an unbounded VARCHAR.
func Varchar(name string, length int) *Column {
	c := newColumn(TypeVarchar, name)
	if length < 0 {
		c.fail(ostinato.NewConfigError("varchar %q: negative length %d", name, length))
	}
	c.length = length
	c.def, c.hasDef = "", true
	return c
}

// Text builds an unbounded string column.
func Text(name string) *Column {
	c := newColumn(TypeText, name)
	c.def, c.hasDef = "", true
	return c
}

// UUID builds a column holding an RFC 4122 identifier. It defaults to a
// freshly generated value on insert.
func UUID(name string) *Column {
	c := newColumn(TypeUUID, name)
	c.def, c.hasDef = UUID4(), true
	return c
}

// Integer builds a 32 bit integer column.
func Integer(name string) *Column {
	c := newColumn(TypeInteger, name)
	c.def, c.hasDef = 0, true
	return c
}

// SmallInt builds a 16 bit integer column.
func SmallInt(name string) *Column {
	c := newColumn(TypeSmallInt, name)
	c.def, c.hasDef = 0, true
	return c
}

// BigInt builds a 64 bit integer column.
func BigInt(name string) *Column {
	c := newColumn(TypeBigInt, name)
	c.def, c.hasDef = 0, true
	return c
}

// Serial builds an auto-incrementing integer column.
func Serial(name string) *Column {
	c := newColumn(TypeSerial, name)
	c.def, c.hasDef = serialDefault{}, true
	return c
}

// BigSerial builds an auto-incrementing 64 bit integer column.
func BigSerial(name string) *Column {
	c := newColumn(TypeBigSerial, name)
	c.def, c.hasDef = serialDefault{big: true}, true
	return c
}

// Timestamp builds a timestamp column without a time zone. It defaults
// to the current time.
func Timestamp(name string) *Column {
	c := newColumn(TypeTimestamp, name)
	c.def, c.hasDef = Now(), true
	return c
}

// Timestamptz builds a timestamp column with a time zone.
func Timestamptz(name string) *Column {
	c := newColumn(TypeTimestamptz, name)
	c.def, c.hasDef = Now(), true
	return c
}

// Date builds a calendar date column.
func Date(name string) *Column {
	c := newColumn(TypeDate, name)
	c.def, c.hasDef = Today(), true
	return c
}

// Time builds a time-of-day column.
func Time(name string) *Column {
	c := newColumn(TypeTime, name)
	c.def, c.hasDef = TimeNow(), true
	return c
}

// Interval builds a duration column. SQLite has no interval type, so
// values are stored as a floating number of seconds there.
func Interval(name string) *Column {
	c := newColumn(TypeInterval, name)
	c.def, c.hasDef = 0, true
	return c
}

// Boolean builds a true/false column.
func Boolean(name string) *Column {
	c := newColumn(TypeBoolean, name)
	c.def, c.hasDef = false, true
	return c
}

// Numeric builds an arbitrary precision decimal column. Pass no digits
// for an unconstrained NUMERIC, or exactly a precision and a scale.
func Numeric(name string, digits ...int) *Column {
	c := newColumn(TypeNumeric, name)
	switch len(digits) {
	case 0:
	case 2:
		c.digits = []int{digits[0], digits[1]}
	default:
		c.fail(ostinato.NewConfigError("numeric %q: digits must be a precision and a scale pair, got %d values", name, len(digits)))
	}
	c.def, c.hasDef = 0, true
	return c
}

// Real builds a single precision float column.
func Real(name string) *Column {
	c := newColumn(TypeReal, name)
	c.def, c.hasDef = 0.0, true
	return c
}

// DoublePrecision builds a double precision float column.
func DoublePrecision(name string) *Column {
	c := newColumn(TypeDoublePrecision, name)
	c.def, c.hasDef = 0.0, true
	return c
}

// JSON builds a column storing a JSON document as text.
func JSON(name string) *Column {
	c := newColumn(TypeJSON, name)
	c.def, c.hasDef = "{}", true
	return c
}

// JSONB builds a column storing a JSON document in binary form.
func JSONB(name string) *Column {
	c := newColumn(TypeJSONB, name)
	c.def, c.hasDef = "{}", true
	return c
}

// Bytea builds a raw byte column.
func Bytea(name string) *Column {
	c := newColumn(TypeBytea, name)
	c.def, c.hasDef = []byte{}, true
	return c
}

// Array builds a column holding a list of values of the base column's
// kind. Nested arrays are allowed on Postgres and Cockroach only.
func Array(name string, base *Column) *Column {
	c := newColumn(TypeArray, name)
	if base == nil {
		c.fail(ostinato.NewConfigError("array %q: nil base column", name))
		return c
	}
	if base.kind == TypeForeignKey {
		c.fail(ostinato.NewConfigError("array %q: foreign key base columns are not allowed", name))
	}
	if base.err != nil {
		c.fail(base.err)
	}
	c.base = base
	c.def, c.hasDef = []any{}, true
	return c
}

// Errored returns a column that carries err and fails any query it is
// used in. It keeps lookup-by-name APIs chainable.
func Errored(name string, err error) *Column {
	c := &Column{kind: TypeInvalid, name: name}
	c.err = err
	return c
}

func (c *Column) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Nullable marks the column as accepting NULL. Columns reject NULL by
// default.
func (c *Column) Nullable() *Column {
	c.null = true
	return c
}

// Primary marks the column as the table's primary key.
func (c *Column) Primary() *Column {
	c.primary = true
	c.unique = true
	return c
}

// Unique adds a uniqueness constraint.
func (c *Column) Unique() *Column {
	c.unique = true
	return c
}

// Indexed requests a secondary index on the column.
func (c *Column) Indexed() *Column {
	c.index = true
	return c
}

// WithDefault replaces the kind's implicit default. A nil default on a
// non-nullable column is rejected, since inserts could then produce an
// absent value the constraint forbids.
func (c *Column) WithDefault(v any) *Column {
	if v == nil && !c.null {
		c.fail(ostinato.NewConfigError("column %q: nil default on a non-nullable column", c.name))
		return c
	}
	c.def, c.hasDef = v, true
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the column's logical kind.
func (c *Column) Kind() Kind { return c.kind }

// Null reports whether the column accepts NULL.
func (c *Column) Null() bool { return c.null }

// IsPrimary reports whether the column is its table's primary key.
func (c *Column) IsPrimary() bool { return c.primary }

// IsUnique reports whether the column carries a uniqueness constraint.
func (c *Column) IsUnique() bool { return c.unique }

// IsIndexed reports whether a secondary index was requested.
func (c *Column) IsIndexed() bool { return c.index }

// Length returns the declared length of a varchar column, zero when
// unbounded.
func (c *Column) Length() int { return c.length }

// Digits returns the precision and scale of a numeric column, or nil
// when unconstrained.
func (c *Column) Digits() []int {
	if c.digits == nil {
		return nil
	}
	return []int{c.digits[0], c.digits[1]}
}

// Base returns the element column of an array column.
func (c *Column) Base() *Column { return c.base }

// Default returns the column default and whether one is set.
func (c *Column) Default() (any, bool) { return c.def, c.hasDef }

// Err returns the first configuration error recorded while building the
// column. Table construction surfaces it.
func (c *Column) Err() error { return c.err }

// Table returns the owning table, nil before the column is attached.
func (c *Column) Table() Table { return c.table }

// Attach binds the column to its owning table. The schema package calls
// it exactly once during table construction.
func (c *Column) Attach(t Table) { c.table = t }

// Chain returns the foreign key hops crossed to reach this column, nil
// on a column read directly off its table.
func (c *Column) Chain() JoinChain { return c.chain }

// Params returns the free-form parameter map used for DDL rendering.
func (c *Column) Params() map[string]any {
	p := map[string]any{}
	if c.length > 0 {
		p["length"] = c.length
	}
	if c.digits != nil {
		p["digits"] = c.Digits()
	}
	if c.base != nil {
		p["base"] = c.base.kind.String()
	}
	return p
}

// Copy returns a detached copy sharing the owning table but owning its
// join chain, so traversal never mutates the table's own columns.
func (c *Column) Copy() *Column {
	cp := *c
	cp.chain = c.chain.clone()
	if c.digits != nil {
		cp.digits = []int{c.digits[0], c.digits[1]}
	}
	return &cp
}

// TypeName returns the SQL type this column renders to under the named
// dialect.
func (c *Column) TypeName(dialectName string) (string, error) {
	if !dialect.Supported(dialectName) {
		return "", dialect.Unrecognized(dialectName)
	}
	switch c.kind {
	case TypeVarchar:
		if c.length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.length), nil
		}
		return "VARCHAR", nil
	case TypeText:
		return "TEXT", nil
	case TypeUUID:
		if dialectName == dialect.SQLite {
			return "VARCHAR", nil
		}
		return "UUID", nil
	case TypeInteger:
		return "INTEGER", nil
	case TypeSmallInt:
		if dialectName == dialect.SQLite {
			return "INTEGER", nil
		}
		return "SMALLINT", nil
	case TypeBigInt:
		if dialectName == dialect.SQLite {
			return "INTEGER", nil
		}
		return "BIGINT", nil
	case TypeSerial:
		switch dialectName {
		case dialect.Postgres:
			return "SERIAL", nil
		default:
			return "INTEGER", nil
		}
	case TypeBigSerial:
		switch dialectName {
		case dialect.Postgres:
			return "BIGSERIAL", nil
		case dialect.Cockroach:
			return "BIGINT", nil
		default:
			return "INTEGER", nil
		}
	case TypeTimestamp:
		return "TIMESTAMP", nil
	case TypeTimestamptz:
		return "TIMESTAMPTZ", nil
	case TypeDate:
		return "DATE", nil
	case TypeTime:
		return "TIME", nil
	case TypeInterval:
		if dialectName == dialect.SQLite {
			return "SECONDS", nil
		}
		return "INTERVAL", nil
	case TypeBoolean:
		return "BOOLEAN", nil
	case TypeNumeric:
		if c.digits != nil && dialectName != dialect.Cockroach {
			return fmt.Sprintf("NUMERIC(%d, %d)", c.digits[0], c.digits[1]), nil
		}
		return "NUMERIC", nil
	case TypeReal:
		return "REAL", nil
	case TypeDoublePrecision:
		return "DOUBLE PRECISION", nil
	case TypeJSON:
		if dialectName == dialect.Cockroach {
			return "JSONB", nil
		}
		return "JSON", nil
	case TypeJSONB:
		return "JSONB", nil
	case TypeBytea:
		if dialectName == dialect.SQLite {
			return "BLOB", nil
		}
		return "BYTEA", nil
	case TypeArray:
		return c.arrayTypeName(dialectName)
	}
	return "", ostinato.NewConfigError("column %q: no SQL type for kind %s", c.name, c.kind)
}

func (c *Column) arrayTypeName(dialectName string) (string, error) {
	if dialect.NativeArrays(dialectName) {
		inner, err := c.base.TypeName(dialectName)
		if err != nil {
			return "", err
		}
		return inner + "[]", nil
	}
	// SQLite stores arrays as serialised text. Temporal element kinds
	// get a distinguishing suffix so values can be revived on read.
	if c.base.kind.Temporal() {
		inner, err := c.base.TypeName(dialectName)
		if err != nil {
			return "", err
		}
		return "ARRAY_" + inner, nil
	}
	return "ARRAY", nil
}

func (c *Column) dialectName() (string, error) {
	if c.table == nil || c.table.Dialect() == "" {
		return "", noEngine(c.name)
	}
	return c.table.Dialect(), nil
}

// tableAlias is the alias of the table this column is read from in a
// joined select. Traversed columns use the chain's alias.
func (c *Column) tableAlias() string {
	if len(c.chain) == 0 {
		return c.table.Name()
	}
	return c.chain.TableAlias()
}

// PathName is the dotted-path output name of the column: "name" on a
// plain column, "manager$name" after traversal.
func (c *Column) PathName() string {
	return c.chain.PathName(c.name)
}

// SelectString renders the column for a select list.
func (c *Column) SelectString(dialectName string, withAlias bool) (osql.QueryString, error) {
	if !dialect.Supported(dialectName) {
		return osql.QueryString{}, dialect.Unrecognized(dialectName)
	}
	expr := fmt.Sprintf("%s.%s", osql.QuoteIdentifier(c.tableAlias()), osql.QuoteIdentifier(c.name))
	if withAlias && len(c.chain) > 0 {
		expr += fmt.Sprintf(" AS %s", osql.QuoteIdentifier(c.PathName()))
	}
	return osql.NewQueryString(expr), nil
}

func invalidName(name string) error {
	return ostinato.NewConfigError("invalid column name %q", name)
}

func noEngine(name string) error {
	return fmt.Errorf("column %q: %w", name, ostinato.ErrNoEngine)
}
