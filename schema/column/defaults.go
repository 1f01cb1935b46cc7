package column

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
)

// DialectDefault is a column default whose DDL literal differs per
// dialect, such as the current-time expression.
type DialectDefault interface {
	DefaultLiteral(dialectName string) (string, error)
}

// Producer is a column default computed freshly for every insert.
type Producer func() any

type nowDefault struct{}

func (nowDefault) DefaultLiteral(dialectName string) (string, error) {
	switch dialectName {
	case dialect.Postgres, dialect.Cockroach:
		return "now()", nil
	case dialect.SQLite:
		return "CURRENT_TIMESTAMP", nil
	}
	return "", dialect.Unrecognized(dialectName)
}

// Now is the current-timestamp default.
func Now() DialectDefault { return nowDefault{} }

type todayDefault struct{}

func (todayDefault) DefaultLiteral(dialectName string) (string, error) {
	if !dialect.Supported(dialectName) {
		return "", dialect.Unrecognized(dialectName)
	}
	return "CURRENT_DATE", nil
}

// Today is the current-date default.
func Today() DialectDefault { return todayDefault{} }

type timeNowDefault struct{}

func (timeNowDefault) DefaultLiteral(dialectName string) (string, error) {
	if !dialect.Supported(dialectName) {
		return "", dialect.Unrecognized(dialectName)
	}
	return "CURRENT_TIME", nil
}

// TimeNow is the current time-of-day default.
func TimeNow() DialectDefault { return timeNowDefault{} }

type uuidDefault struct{}

func (uuidDefault) DefaultLiteral(dialectName string) (string, error) {
	switch dialectName {
	case dialect.Postgres:
		return "uuid_generate_v4()", nil
	case dialect.Cockroach:
		return "gen_random_uuid()", nil
	case dialect.SQLite:
		// No generator function; inserts supply the value instead.
		return "''", nil
	}
	return "", dialect.Unrecognized(dialectName)
}

// Produce returns a freshly generated identifier for inserts.
func (uuidDefault) Produce() any { return uuid.New() }

// UUID4 is the generated-identifier default used by UUID columns.
func UUID4() DialectDefault { return uuidDefault{} }

// serialDefault marks auto-increment columns. Postgres serials carry
// their own sequence, Cockroach uses unique_rowid(), and SQLite leaves
// assignment to the rowid machinery.
type serialDefault struct {
	big bool
}

func (serialDefault) DefaultLiteral(dialectName string) (string, error) {
	switch dialectName {
	case dialect.Postgres:
		return "DEFAULT", nil
	case dialect.Cockroach:
		return "unique_rowid()", nil
	case dialect.SQLite:
		return "null", nil
	}
	return "", dialect.Unrecognized(dialectName)
}

// SQLValue renders a Go value as a literal for DDL statements such as
// DEFAULT clauses. Dialect-sensitive defaults resolve through their
// DefaultLiteral method; producers are invoked and their result
// rendered.
func SQLValue(v any, dialectName string) (string, error) {
	if !dialect.Supported(dialectName) {
		return "", dialect.Unrecognized(dialectName)
	}
	switch t := v.(type) {
	case nil:
		return "null", nil
	case DialectDefault:
		return t.DefaultLiteral(dialectName)
	case Producer:
		return SQLValue(t(), dialectName)
	case func() any:
		return SQLValue(t(), dialectName)
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case string:
		return "'" + osql.EscapeString(t) + "'", nil
	case []byte:
		return "'" + osql.EscapeString(string(t)) + "'", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t), nil
	case float32:
		return decimal.NewFromFloat32(t).String(), nil
	case float64:
		return decimal.NewFromFloat(t).String(), nil
	case decimal.Decimal:
		return t.String(), nil
	case uuid.UUID:
		return "'" + t.String() + "'", nil
	case time.Time:
		return "'" + t.Format("2006-01-02 15:04:05.999999") + "'", nil
	case time.Duration:
		return durationLiteral(t, dialectName)
	case []any:
		return arrayLiteral(t, dialectName)
	case []string:
		vs := make([]any, len(t))
		for i, s := range t {
			vs[i] = s
		}
		return arrayLiteral(vs, dialectName)
	case []int:
		vs := make([]any, len(t))
		for i, n := range t {
			vs[i] = n
		}
		return arrayLiteral(vs, dialectName)
	case fmt.Stringer:
		return "'" + osql.EscapeString(t.String()) + "'", nil
	}
	return "", ostinato.NewConfigError("cannot render %T as a SQL literal", v)
}

func durationLiteral(d time.Duration, dialectName string) (string, error) {
	if dialect.NativeInterval(dialectName) {
		return "'" + intervalSpec(d) + "'", nil
	}
	return decimal.NewFromFloat(d.Seconds()).String(), nil
}

func arrayLiteral(vs []any, dialectName string) (string, error) {
	parts := make([]string, len(vs))
	for i, v := range vs {
		s, err := SQLValue(v, dialectName)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	if dialect.NativeArrays(dialectName) {
		return "ARRAY[" + strings.Join(parts, ", ") + "]", nil
	}
	return "'[" + strings.Join(parts, ", ") + "]'", nil
}

// DefaultLiteral renders the column's default for a DDL clause.
func (c *Column) DefaultLiteral(dialectName string) (string, error) {
	if !c.hasDef {
		return "", ostinato.NewConfigError("column %q has no default", c.name)
	}
	return SQLValue(c.def, dialectName)
}

// ResolveDefault materialises the insert-time value of the column's
// default: producers run, everything else passes through. Defaults that
// only exist as SQL expressions report ok=false.
func (c *Column) ResolveDefault() (v any, ok bool) {
	if !c.hasDef {
		return nil, false
	}
	switch t := c.def.(type) {
	case Producer:
		return t(), true
	case func() any:
		return t(), true
	case interface{ Produce() any }:
		return t.Produce(), true
	case DialectDefault:
		return nil, false
	}
	return c.def, true
}
