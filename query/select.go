package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ostinato-db/ostinato"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/engine"
	"github.com/ostinato-db/ostinato/schema"
	"github.com/ostinato-db/ostinato/schema/column"
)

// joinSet accumulates the LEFT JOINs implied by traversed columns. Each
// chain prefix joins once, keyed by its table alias.
type joinSet struct {
	order   []string
	byAlias map[string]column.JoinChain
}

func newJoinSet() *joinSet {
	return &joinSet{byAlias: map[string]column.JoinChain{}}
}

func (js *joinSet) add(chain column.JoinChain) {
	for i := 1; i <= len(chain); i++ {
		prefix := chain[:i]
		alias := prefix.TableAlias()
		if _, seen := js.byAlias[alias]; seen {
			continue
		}
		js.byAlias[alias] = prefix
		js.order = append(js.order, alias)
	}
}

func (js *joinSet) clauses() (string, error) {
	var b strings.Builder
	for _, alias := range js.order {
		chain := js.byAlias[alias]
		hop := chain[len(chain)-1]
		target, err := hop.ReferencedTable()
		if err != nil {
			return "", err
		}
		tc, err := hop.TargetColumn()
		if err != nil {
			return "", err
		}
		left := hop.Table().Name()
		if len(chain) > 1 {
			left = chain[:len(chain)-1].TableAlias()
		}
		fmt.Fprintf(&b, " LEFT JOIN %s %s ON (%s.%s = %s.%s)",
			target.QualifiedName(), osql.QuoteIdentifier(alias),
			osql.QuoteIdentifier(left), osql.QuoteIdentifier(hop.Name()),
			osql.QuoteIdentifier(alias), osql.QuoteIdentifier(tc.Name()),
		)
	}
	return b.String(), nil
}

// m2mOutput renders a many-to-many relationship in a select list.
type m2mOutput struct {
	m      *schema.M2M
	cols   []*column.Column
	asList bool
}

func (o m2mOutput) SelectString(dialectName string, withAlias bool) (osql.QueryString, error) {
	return o.m.SelectString(o.cols, o.asList, dialectName)
}

type order struct {
	col       *column.Column
	ascending bool
}

// SelectQuery reads rows from a table, optionally traversing
// relationships. Build it with Select, chain modifiers, then Run.
type SelectQuery struct {
	table    *schema.Table
	outputs  []osql.Selectable
	chains   []column.JoinChain
	wheres   []column.Where
	orders   []order
	limit    *int
	offset   *int
	distinct bool
	nested   bool
	loadJSON bool
	hook     func([]engine.Row) ([]engine.Row, error)
	cache    ostinato.Cache
	cacheTTL time.Duration

	frozen        bool
	frozenStmt    osql.QueryString
	frozenDialect string

	err error
}

// Select starts a read on t. With no columns, every column of the table
// is returned.
func Select(t *schema.Table, cols ...*column.Column) *SelectQuery {
	s := &SelectQuery{table: t}
	return s.Columns(cols...)
}

func (s *SelectQuery) mutate() bool {
	if s.err != nil {
		return false
	}
	if s.frozen {
		s.err = ostinato.ErrFrozen
		return false
	}
	return true
}

// Columns adds output columns, which may be traversed.
func (s *SelectQuery) Columns(cols ...*column.Column) *SelectQuery {
	if !s.mutate() {
		return s
	}
	for _, c := range cols {
		if err := c.Err(); err != nil {
			s.err = err
			return s
		}
		s.outputs = append(s.outputs, c)
		if chain := c.Chain(); len(chain) > 0 {
			s.chains = append(s.chains, chain)
		}
	}
	return s
}

// Output adds a raw selectable expression to the output list.
func (s *SelectQuery) Output(sel osql.Selectable) *SelectQuery {
	if !s.mutate() {
		return s
	}
	s.outputs = append(s.outputs, sel)
	return s
}

// M2M adds an aggregated relationship readout of the given related
// columns.
func (s *SelectQuery) M2M(m *schema.M2M, cols ...*column.Column) *SelectQuery {
	if !s.mutate() {
		return s
	}
	s.outputs = append(s.outputs, m2mOutput{m: m, cols: cols})
	return s
}

// M2MList adds a flattened list readout of a single related column.
func (s *SelectQuery) M2MList(m *schema.M2M, col *column.Column) *SelectQuery {
	if !s.mutate() {
		return s
	}
	s.outputs = append(s.outputs, m2mOutput{m: m, cols: []*column.Column{col}, asList: true})
	return s
}

// Where adds a filter predicate. Multiple predicates combine with AND.
func (s *SelectQuery) Where(w column.Where) *SelectQuery {
	if !s.mutate() {
		return s
	}
	if err := w.Err(); err != nil {
		s.err = err
		return s
	}
	s.wheres = append(s.wheres, w)
	s.chains = append(s.chains, w.Chains()...)
	return s
}

// OrderBy sorts the result by the given column, ascending.
func (s *SelectQuery) OrderBy(c *column.Column) *SelectQuery {
	return s.orderBy(c, true)
}

// OrderByDesc sorts the result by the given column, descending.
func (s *SelectQuery) OrderByDesc(c *column.Column) *SelectQuery {
	return s.orderBy(c, false)
}

func (s *SelectQuery) orderBy(c *column.Column, asc bool) *SelectQuery {
	if !s.mutate() {
		return s
	}
	if err := c.Err(); err != nil {
		s.err = err
		return s
	}
	s.orders = append(s.orders, order{col: c, ascending: asc})
	if chain := c.Chain(); len(chain) > 0 {
		s.chains = append(s.chains, chain)
	}
	return s
}

// Limit caps the number of rows returned.
func (s *SelectQuery) Limit(n int) *SelectQuery {
	if !s.mutate() {
		return s
	}
	s.limit = &n
	return s
}

// Offset skips the first n rows.
func (s *SelectQuery) Offset(n int) *SelectQuery {
	if !s.mutate() {
		return s
	}
	s.offset = &n
	return s
}

// Distinct removes duplicate rows.
func (s *SelectQuery) Distinct() *SelectQuery {
	if !s.mutate() {
		return s
	}
	s.distinct = true
	return s
}

// Nested makes Run return traversed values as nested maps rather than
// flat "manager$name" keys.
func (s *SelectQuery) Nested() *SelectQuery {
	if !s.mutate() {
		return s
	}
	s.nested = true
	return s
}

// LoadJSON decodes JSON string values in the result into Go values.
func (s *SelectQuery) LoadJSON() *SelectQuery {
	if !s.mutate() {
		return s
	}
	s.loadJSON = true
	return s
}

// ResponseHook reshapes the row list after normalisation, before rows
// reach the caller or the cache.
func (s *SelectQuery) ResponseHook(fn func([]engine.Row) ([]engine.Row, error)) *SelectQuery {
	if !s.mutate() {
		return s
	}
	s.hook = fn
	return s
}

// WithCache serves repeat runs of the same statement from the cache.
// A zero ttl means entries do not expire.
func (s *SelectQuery) WithCache(c ostinato.Cache, ttl time.Duration) *SelectQuery {
	if !s.mutate() {
		return s
	}
	s.cache = c
	s.cacheTTL = ttl
	return s
}

// QueryStrings renders the select for a dialect.
func (s *SelectQuery) QueryStrings(dialectName string) ([]osql.QueryString, error) {
	if s.err != nil {
		return nil, s.err
	}
	return rendererMap{"default": s.render}.render(dialectName)
}

// outputKinds maps result row keys to the selected columns' kinds, so
// row normalisation only rewrites values it understands. Raw
// selectable outputs carry no kind and pass through untouched.
func (s *SelectQuery) outputKinds(dialectName string) map[string]column.Kind {
	outputs := s.outputs
	if len(outputs) == 0 {
		for _, c := range s.table.Columns() {
			outputs = append(outputs, c)
		}
	}
	kinds := make(map[string]column.Kind, len(outputs))
	for _, sel := range outputs {
		switch o := sel.(type) {
		case *column.Column:
			kinds[o.PathName()] = o.Kind()
		case m2mOutput:
			if k, err := o.m.ResultKind(o.cols, o.asList, dialectName); err == nil {
				kinds[o.m.Name()] = k
			}
		}
	}
	return kinds
}

func (s *SelectQuery) render(dialectName string) ([]osql.QueryString, error) {
	outputs := s.outputs
	if len(outputs) == 0 {
		for _, c := range s.table.Columns() {
			outputs = append(outputs, c)
		}
	}
	parts := make([]string, len(outputs))
	for i, sel := range outputs {
		qs, err := sel.SelectString(dialectName, true)
		if err != nil {
			return nil, err
		}
		compiledTemplate := qs.Template()
		if len(qs.Args()) > 0 {
			return nil, ostinato.NewConfigError("select outputs cannot carry bound arguments: %q", compiledTemplate)
		}
		parts[i] = compiledTemplate
	}

	keyword := "SELECT"
	if s.distinct {
		keyword = "SELECT DISTINCT"
	}
	qs := osql.NewQueryString(fmt.Sprintf("%s %s FROM %s", keyword, strings.Join(parts, ", "), s.table.QualifiedName()))

	js := newJoinSet()
	for _, chain := range s.chains {
		js.add(chain)
	}
	joins, err := js.clauses()
	if err != nil {
		return nil, err
	}
	if joins != "" {
		qs = qs.Append(joins)
	}

	if len(s.wheres) > 0 {
		holes := make([]string, len(s.wheres))
		args := make([]any, len(s.wheres))
		for i, w := range s.wheres {
			wqs, err := w.QueryString()
			if err != nil {
				return nil, err
			}
			holes[i] = "{}"
			args[i] = wqs
		}
		qs = qs.Append(" WHERE "+strings.Join(holes, " AND "), args...)
	}

	if len(s.orders) > 0 {
		terms := make([]string, len(s.orders))
		for i, o := range s.orders {
			oqs, err := o.col.SelectString(dialectName, false)
			if err != nil {
				return nil, err
			}
			dir := "ASC"
			if !o.ascending {
				dir = "DESC"
			}
			terms[i] = oqs.Template() + " " + dir
		}
		qs = qs.Append(" ORDER BY " + strings.Join(terms, ", "))
	}

	if s.limit != nil {
		qs = qs.Append(fmt.Sprintf(" LIMIT %d", *s.limit))
	}
	if s.offset != nil {
		qs = qs.Append(fmt.Sprintf(" OFFSET %d", *s.offset))
	}
	return []osql.QueryString{qs}, nil
}

// Freeze renders the statement for the bound engine's dialect once and
// pins it. A frozen query reruns without re-rendering; any further
// structural change fails with ErrFrozen.
func (s *SelectQuery) Freeze() (*SelectQuery, error) {
	if s.err != nil {
		return nil, s.err
	}
	e, err := boundEngine(s.table)
	if err != nil {
		return nil, err
	}
	stmts, err := s.QueryStrings(e.Dialect())
	if err != nil {
		return nil, err
	}
	s.frozen = true
	s.frozenStmt = stmts[0]
	s.frozenDialect = e.Dialect()
	return s, nil
}

// Frozen reports whether the query has been frozen.
func (s *SelectQuery) Frozen() bool { return s.frozen }

// Run executes the select and post-processes the rows.
func (s *SelectQuery) Run(ctx context.Context) ([]engine.Row, error) {
	if s.err != nil {
		return nil, s.err
	}
	e, err := boundEngine(s.table)
	if err != nil {
		return nil, err
	}
	var qs osql.QueryString
	if s.frozen {
		if e.Dialect() != s.frozenDialect {
			return nil, ostinato.NewDialectError(e.Dialect(), fmt.Sprintf("running a query frozen for %s", s.frozenDialect))
		}
		qs = s.frozenStmt
	} else {
		stmts, err := s.QueryStrings(e.Dialect())
		if err != nil {
			return nil, err
		}
		qs = stmts[0]
	}

	var key string
	if s.cache != nil {
		key = ostinato.CacheKey{Table: s.table.Name(), Dialect: e.Dialect(), Statement: qs.String()}.String()
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != nil {
			if rows, err := ostinato.DecodeRows(raw); err == nil {
				return rows, nil
			}
			_ = s.cache.Delete(ctx, key)
		}
	}

	rows, err := e.Query(ctx, qs)
	if err != nil {
		return nil, err
	}
	rows, err = processRows(rows, e.Dialect(), s.outputKinds(e.Dialect()), s.loadJSON, s.nested)
	if err != nil {
		return nil, err
	}
	if s.hook != nil {
		rows, err = s.hook(rows)
		if err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		if raw, err := ostinato.EncodeRows(rows); err == nil {
			_ = s.cache.Set(ctx, key, raw, s.cacheTTL)
		}
	}
	return rows, nil
}

// RunObjects executes the select and hydrates each row as an object of
// the queried table.
func (s *SelectQuery) RunObjects(ctx context.Context) ([]*schema.Object, error) {
	rows, err := s.Run(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Object, len(rows))
	for i, row := range rows {
		out[i] = s.table.FromRow(row)
	}
	return out, nil
}
