package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ostinato-db/ostinato/dialect"
)

// QueryString is one statement fragment: a template using {} placeholders and
// the argument values bound to them. Fragments stay unrendered until Compile
// is called with a dialect, at which point placeholders become the dialect's
// parameter markers ($1... on Postgres and Cockroach, ? on SQLite).
//
// Arguments may themselves be QueryStrings, in which case the nested template
// is spliced in and its arguments flattened into the parent's argument list.
type QueryString struct {
	template string
	args     []any
}

// NewQueryString returns a fragment for the given template and arguments.
// The number of {} placeholders must match len(args); the mismatch surfaces
// as an error at compile time rather than at construction.
func NewQueryString(template string, args ...any) QueryString {
	return QueryString{template: template, args: args}
}

// Template returns the raw template with {} placeholders.
func (q QueryString) Template() string { return q.template }

// Args returns the bound arguments.
func (q QueryString) Args() []any { return q.args }

// Append returns a new fragment with extra template text and arguments
// concatenated onto this one.
func (q QueryString) Append(template string, args ...any) QueryString {
	return QueryString{
		template: q.template + template,
		args:     append(append([]any{}, q.args...), args...),
	}
}

// flatten splices nested QueryString arguments into a single template and a
// flat argument list.
func (q QueryString) flatten() (string, []any, error) {
	var (
		b    strings.Builder
		args []any
		n    int
	)
	for i := 0; i < len(q.template); i++ {
		if q.template[i] == '{' && i+1 < len(q.template) && q.template[i+1] == '}' {
			if n >= len(q.args) {
				return "", nil, fmt.Errorf("sql: template %q has more placeholders than arguments", q.template)
			}
			switch arg := q.args[n].(type) {
			case QueryString:
				nested, nestedArgs, err := arg.flatten()
				if err != nil {
					return "", nil, err
				}
				b.WriteString(nested)
				args = append(args, nestedArgs...)
			case *QueryString:
				nested, nestedArgs, err := arg.flatten()
				if err != nil {
					return "", nil, err
				}
				b.WriteString(nested)
				args = append(args, nestedArgs...)
			default:
				b.WriteString("{}")
				args = append(args, arg)
			}
			n++
			i++
			continue
		}
		b.WriteByte(q.template[i])
	}
	if n != len(q.args) {
		return "", nil, fmt.Errorf("sql: template %q has fewer placeholders than arguments", q.template)
	}
	return b.String(), args, nil
}

// Compile renders the fragment for a dialect, returning the statement text
// with native parameter markers and the flat argument list.
func (q QueryString) Compile(dialectName string) (string, []any, error) {
	if !dialect.Supported(dialectName) {
		return "", nil, dialect.Unrecognized(dialectName)
	}
	template, args, err := q.flatten()
	if err != nil {
		return "", nil, err
	}
	var (
		b strings.Builder
		n int
	)
	for i := 0; i < len(template); i++ {
		if template[i] == '{' && i+1 < len(template) && template[i+1] == '}' {
			n++
			if dialectName == dialect.SQLite {
				b.WriteString("?")
			} else {
				b.WriteString("$" + strconv.Itoa(n))
			}
			i++
			continue
		}
		b.WriteByte(template[i])
	}
	return b.String(), args, nil
}

// String interpolates the arguments into the template for display. The output
// is for logging and tests, never for execution.
func (q QueryString) String() string {
	template, args, err := q.flatten()
	if err != nil {
		return q.template
	}
	var (
		b strings.Builder
		n int
	)
	for i := 0; i < len(template); i++ {
		if template[i] == '{' && i+1 < len(template) && template[i+1] == '}' {
			b.WriteString(displayValue(args[n]))
			n++
			i++
			continue
		}
		b.WriteByte(template[i])
	}
	return b.String()
}

func displayValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + EscapeString(v) + "'"
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return "'" + EscapeString(v.String()) + "'"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// SelectString lets a raw fragment appear directly in a select list.
func (qs QueryString) SelectString(dialectName string, withAlias bool) (QueryString, error) {
	return qs, nil
}
