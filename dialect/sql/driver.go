package sql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores,
// dots for schema.name).
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// ValidIdentifier checks if the string is a valid SQL identifier.
func ValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// QuoteIdentifier wraps an identifier in double quotes, doubling any embedded
// quote characters.
func QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// EscapeString escapes a string value for safe embedding in statement text.
// Single quotes are doubled and backslashes escaped.
func EscapeString(s string) string {
	// Fast path: if no escaping needed, return as-is
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// ExecQuerier wraps the standard Exec and Query methods. Both *sql.DB and
// *sql.Tx satisfy it.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn runs compiled statements against an ExecQuerier and converts the
// dialect-native rows into the uniform map representation the query layer
// consumes.
type Conn struct {
	ExecQuerier
	dialect string
}

// NewConn wraps an ExecQuerier with its dialect name.
func NewConn(dialectName string, ex ExecQuerier) Conn {
	return Conn{ExecQuerier: ex, dialect: dialectName}
}

// Dialect returns the connection's dialect name.
func (c Conn) Dialect() string { return c.dialect }

// Query compiles and runs the fragment, returning each row as a column-name
// keyed map.
func (c Conn) Query(ctx context.Context, qs QueryString) ([]map[string]any, error) {
	text, args, err := qs.Compile(c.dialect)
	if err != nil {
		return nil, err
	}
	rows, err := c.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	defer rows.Close()
	return ScanRows(rows)
}

// Exec compiles and runs the fragment, discarding any result rows.
func (c Conn) Exec(ctx context.Context, qs QueryString) error {
	text, args, err := qs.Compile(c.dialect)
	if err != nil {
		return err
	}
	if _, err := c.ExecContext(ctx, text, args...); err != nil {
		return fmt.Errorf("dialect/sql: exec: %w", err)
	}
	return nil
}

// ExecDDL runs raw DDL text. DDL is never parameterised.
func (c Conn) ExecDDL(ctx context.Context, ddl string) error {
	if _, err := c.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("dialect/sql: ddl: %w", err)
	}
	return nil
}

// ScanRows drains a *sql.Rows into column-name keyed maps. []byte values are
// converted to string so that callers can treat text uniformly across
// drivers.
func ScanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: columns: %w", err)
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("dialect/sql: scan: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, name := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[name] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialect/sql: rows: %w", err)
	}
	return out, nil
}

// Selectable is anything that can appear in a select list: a plain column, a
// path-traversed column copy, or a correlated sub-query fragment.
type Selectable interface {
	// SelectString renders the select-list expression for the dialect,
	// including an output alias when withAlias is true.
	SelectString(dialectName string, withAlias bool) (QueryString, error)
}
