package column

import (
	"fmt"
	"strings"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
)

// A Where is a composable filter predicate. Building one never fails
// loudly; errors are carried and surfaced when the owning query
// renders.
type Where struct {
	qs     osql.QueryString
	chains []JoinChain
	err    error
}

// QueryString returns the rendered predicate fragment.
func (w Where) QueryString() (osql.QueryString, error) {
	return w.qs, w.err
}

// Chains returns the join chains of every traversed column referenced
// by the predicate, so queries know which joins to emit.
func (w Where) Chains() []JoinChain { return w.chains }

// Err returns the error recorded while building the predicate.
func (w Where) Err() error { return w.err }

// And combines two predicates conjunctively.
func (w Where) And(other Where) Where {
	if w.err != nil {
		return w
	}
	if other.err != nil {
		return other
	}
	return Where{
		qs:     osql.NewQueryString("({} AND {})", w.qs, other.qs),
		chains: append(append([]JoinChain{}, w.chains...), other.chains...),
	}
}

// Or combines two predicates disjunctively.
func (w Where) Or(other Where) Where {
	if w.err != nil {
		return w
	}
	if other.err != nil {
		return other
	}
	return Where{
		qs:     osql.NewQueryString("({} OR {})", w.qs, other.qs),
		chains: append(append([]JoinChain{}, w.chains...), other.chains...),
	}
}

// Not negates the predicate.
func (w Where) Not() Where {
	if w.err != nil {
		return w
	}
	return Where{qs: osql.NewQueryString("NOT ({})", w.qs), chains: w.chains}
}

func (c *Column) expr() string {
	return fmt.Sprintf("%s.%s", osql.QuoteIdentifier(c.tableAlias()), osql.QuoteIdentifier(c.name))
}

// where wraps a rendered fragment with the column's join chain.
func (c *Column) where(qs osql.QueryString) Where {
	var chains []JoinChain
	if len(c.chain) > 0 {
		chains = []JoinChain{c.chain.clone()}
	}
	return Where{qs: qs, chains: chains}
}

func (c *Column) compare(op string, v any) Where {
	if c.err != nil {
		return Where{err: c.err}
	}
	return c.where(osql.NewQueryString(c.expr()+" "+op+" {}", v))
}

// Eq matches rows whose column equals v. A nil v matches NULL.
func (c *Column) Eq(v any) Where {
	if v == nil {
		return c.IsNull()
	}
	return c.compare("=", v)
}

// Ne matches rows whose column differs from v. A nil v matches NOT
// NULL.
func (c *Column) Ne(v any) Where {
	if v == nil {
		return c.IsNotNull()
	}
	return c.compare("!=", v)
}

// Lt matches rows whose column is less than v.
func (c *Column) Lt(v any) Where { return c.compare("<", v) }

// Le matches rows whose column is at most v.
func (c *Column) Le(v any) Where { return c.compare("<=", v) }

// Gt matches rows whose column is greater than v.
func (c *Column) Gt(v any) Where { return c.compare(">", v) }

// Ge matches rows whose column is at least v.
func (c *Column) Ge(v any) Where { return c.compare(">=", v) }

// IsNull matches rows whose column is NULL.
func (c *Column) IsNull() Where {
	if c.err != nil {
		return Where{err: c.err}
	}
	return c.where(osql.NewQueryString(c.expr() + " IS NULL"))
}

// IsNotNull matches rows whose column is not NULL.
func (c *Column) IsNotNull() Where {
	if c.err != nil {
		return Where{err: c.err}
	}
	return c.where(osql.NewQueryString(c.expr() + " IS NOT NULL"))
}

func (c *Column) membership(op string, vs []any) Where {
	if c.err != nil {
		return Where{err: c.err}
	}
	if len(vs) == 0 {
		return Where{err: ostinato.NewConfigError("column %q: %s requires at least one value", c.name, op)}
	}
	holes := make([]string, len(vs))
	for i := range vs {
		holes[i] = "{}"
	}
	tmpl := fmt.Sprintf("%s %s (%s)", c.expr(), op, strings.Join(holes, ", "))
	return c.where(osql.NewQueryString(tmpl, vs...))
}

// In matches rows whose column equals one of vs.
func (c *Column) In(vs ...any) Where { return c.membership("IN", vs) }

// NotIn matches rows whose column equals none of vs.
func (c *Column) NotIn(vs ...any) Where { return c.membership("NOT IN", vs) }

func (c *Column) patternMatch(op, pattern string) Where {
	if c.err != nil {
		return Where{err: c.err}
	}
	if !strings.Contains(pattern, "%") {
		return Where{err: ostinato.NewConfigError("column %q: %s pattern %q contains no %% wildcard", c.name, op, pattern)}
	}
	return c.where(osql.NewQueryString(c.expr()+" "+op+" {}", pattern))
}

// Like matches rows against a SQL pattern. The pattern must contain a
// "%" wildcard.
func (c *Column) Like(pattern string) Where { return c.patternMatch("LIKE", pattern) }

// NotLike is the negation of Like.
func (c *Column) NotLike(pattern string) Where { return c.patternMatch("NOT LIKE", pattern) }

// ILike matches case-insensitively. SQLite has no ILIKE operator; its
// LIKE is already case-insensitive for ASCII, so the predicate degrades
// to LIKE there with a warning.
func (c *Column) ILike(pattern string) Where {
	dialectName, err := c.dialectName()
	if err != nil {
		return Where{err: err}
	}
	if dialectName == dialect.SQLite {
		ostinato.Warnf("column %q: sqlite has no ILIKE operator, using LIKE instead", c.name)
		return c.patternMatch("LIKE", pattern)
	}
	return c.patternMatch("ILIKE", pattern)
}

// NotILike is the negation of ILike.
func (c *Column) NotILike(pattern string) Where {
	dialectName, err := c.dialectName()
	if err != nil {
		return Where{err: err}
	}
	if dialectName == dialect.SQLite {
		ostinato.Warnf("column %q: sqlite has no ILIKE operator, using LIKE instead", c.name)
		return c.patternMatch("NOT LIKE", pattern)
	}
	return c.patternMatch("NOT ILIKE", pattern)
}

// Any matches rows whose array column contains v. SQLite stores arrays
// as serialised text, so the match degrades to a substring search
// there.
func (c *Column) Any(v any) Where {
	if c.kind != TypeArray {
		return Where{err: ostinato.NewConfigError("column %q: Any requires an array column", c.name)}
	}
	dialectName, err := c.dialectName()
	if err != nil {
		return Where{err: err}
	}
	if dialect.NativeArrays(dialectName) {
		return c.where(osql.NewQueryString("{} = ANY ("+c.expr()+")", v))
	}
	return c.where(osql.NewQueryString(c.expr()+" LIKE {}", fmt.Sprintf("%%%v%%", v)))
}

// NotAny matches rows whose array column does not contain v.
func (c *Column) NotAny(v any) Where {
	if c.kind != TypeArray {
		return Where{err: ostinato.NewConfigError("column %q: NotAny requires an array column", c.name)}
	}
	dialectName, err := c.dialectName()
	if err != nil {
		return Where{err: err}
	}
	if dialect.NativeArrays(dialectName) {
		return c.where(osql.NewQueryString("NOT {} = ANY ("+c.expr()+")", v))
	}
	return c.where(osql.NewQueryString(c.expr()+" NOT LIKE {}", fmt.Sprintf("%%%v%%", v)))
}

// All matches rows where every element of the array column equals v.
// Only dialects with native arrays support it.
func (c *Column) All(v any) Where {
	if c.kind != TypeArray {
		return Where{err: ostinato.NewConfigError("column %q: All requires an array column", c.name)}
	}
	dialectName, err := c.dialectName()
	if err != nil {
		return Where{err: err}
	}
	if !dialect.NativeArrays(dialectName) {
		return Where{err: ostinato.NewDialectError(dialectName, "ALL on array columns")}
	}
	return c.where(osql.NewQueryString("{} = ALL ("+c.expr()+")", v))
}

// Index returns an expression selecting the zero-based i-th element of
// an array column. SQL array subscripts are one-based, so the index is
// shifted. Only dialects with native arrays support subscripting.
func (c *Column) Index(i int) (osql.QueryString, error) {
	if c.kind != TypeArray {
		return osql.QueryString{}, ostinato.NewConfigError("column %q: Index requires an array column", c.name)
	}
	if i < 0 {
		return osql.QueryString{}, ostinato.NewConfigError("column %q: negative array index %d", c.name, i)
	}
	dialectName, err := c.dialectName()
	if err != nil {
		return osql.QueryString{}, err
	}
	if !dialect.NativeArrays(dialectName) {
		return osql.QueryString{}, ostinato.NewDialectError(dialectName, "array subscripting")
	}
	return osql.NewQueryString(fmt.Sprintf("%s[%d]", c.expr(), i+1)), nil
}
