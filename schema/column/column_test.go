package column

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
)

// tbl is a minimal Table used to exercise traversal without pulling in
// the schema package.
type tbl struct {
	name    string
	dialect string
	cols    []*Column
	fks     []*ForeignKey
}

func newTbl(name, dialectName string, members ...any) *tbl {
	t := &tbl{name: name, dialect: dialectName}
	for _, m := range members {
		switch c := m.(type) {
		case *ForeignKey:
			c.Attach(t)
			t.fks = append(t.fks, c)
			t.cols = append(t.cols, &c.Column)
		case *Column:
			c.Attach(t)
			t.cols = append(t.cols, c)
		}
	}
	return t
}

func (t *tbl) Name() string          { return t.name }
func (t *tbl) SchemaName() string    { return "" }
func (t *tbl) QualifiedName() string { return osql.QuoteIdentifier(t.name) }
func (t *tbl) Columns() []*Column    { return t.cols }

func (t *tbl) Column(name string) (*Column, bool) {
	for _, c := range t.cols {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

func (t *tbl) PrimaryKey() *Column {
	for _, c := range t.cols {
		if c.IsPrimary() {
			return c
		}
	}
	return nil
}

func (t *tbl) ForeignKeys() []*ForeignKey { return t.fks }
func (t *tbl) Dialect() string            { return t.dialect }
func (t *tbl) Registry() Registry         { return nil }

// bandFixture builds the manager <- band pair used across tests.
func bandFixture(dialectName string) (band, manager *tbl, fk *ForeignKey) {
	manager = newTbl("manager", dialectName,
		Serial("id").Primary(),
		Varchar("name", 100),
	)
	fk = ForeignKeyTo("manager", RefTo(manager))
	band = newTbl("band", dialectName,
		Serial("id").Primary(),
		Varchar("name", 100),
		fk,
	)
	return band, manager, fk
}

func TestConstructorValidation(t *testing.T) {
	assert.Error(t, Numeric("price", 5).Err())
	assert.Error(t, Numeric("price", 5, 2, 1).Err())
	assert.NoError(t, Numeric("price", 5, 2).Err())
	assert.NoError(t, Numeric("price").Err())

	assert.Error(t, Varchar("name", -1).Err())
	assert.Error(t, Array("tags", nil).Err())
	assert.Error(t, Text("bad name!").Err())

	c := Integer("count").WithDefault(nil)
	assert.True(t, ostinato.IsConfigError(c.Err()))
	assert.NoError(t, Integer("count").Nullable().WithDefault(nil).Err())
}

func TestTypeNames(t *testing.T) {
	cases := []struct {
		col      *Column
		postgres string
		crdb     string
		sqlite   string
	}{
		{Varchar("v", 255), "VARCHAR(255)", "VARCHAR(255)", "VARCHAR(255)"},
		{Varchar("v", 0), "VARCHAR", "VARCHAR", "VARCHAR"},
		{Text("t"), "TEXT", "TEXT", "TEXT"},
		{UUID("u"), "UUID", "UUID", "VARCHAR"},
		{SmallInt("s"), "SMALLINT", "SMALLINT", "INTEGER"},
		{BigInt("b"), "BIGINT", "BIGINT", "INTEGER"},
		{Serial("id"), "SERIAL", "INTEGER", "INTEGER"},
		{BigSerial("id"), "BIGSERIAL", "BIGINT", "INTEGER"},
		{Interval("i"), "INTERVAL", "INTERVAL", "SECONDS"},
		{Numeric("n", 5, 2), "NUMERIC(5, 2)", "NUMERIC", "NUMERIC(5, 2)"},
		{Numeric("n"), "NUMERIC", "NUMERIC", "NUMERIC"},
		{JSON("j"), "JSON", "JSONB", "JSON"},
		{JSONB("j"), "JSONB", "JSONB", "JSONB"},
		{Bytea("raw"), "BYTEA", "BYTEA", "BLOB"},
		{Array("tags", Varchar("tag", 0)), "VARCHAR[]", "VARCHAR[]", "ARRAY"},
		{Array("times", Timestamp("at")), "TIMESTAMP[]", "TIMESTAMP[]", "ARRAY_TIMESTAMP"},
	}
	for _, tc := range cases {
		for d, want := range map[string]string{
			dialect.Postgres:  tc.postgres,
			dialect.Cockroach: tc.crdb,
			dialect.SQLite:    tc.sqlite,
		} {
			got, err := tc.col.TypeName(d)
			require.NoError(t, err, "%s on %s", tc.col.Kind(), d)
			assert.Equal(t, want, got, "%s on %s", tc.col.Kind(), d)
		}
	}

	_, err := Text("t").TypeName("mysql")
	assert.Error(t, err)
}

func TestSQLValue(t *testing.T) {
	got, err := SQLValue(decimal.NewFromFloat(0.0), dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "0", got)

	got, err = SQLValue(0.0, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "0", got)

	got, err = SQLValue("it's", dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, "'it''s'", got)

	got, err = SQLValue(true, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "true", got)

	got, err = SQLValue(nil, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "null", got)

	got, err = SQLValue(Now(), dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "now()", got)

	got, err = SQLValue(Now(), dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, "CURRENT_TIMESTAMP", got)

	got, err = SQLValue(serialDefault{}, dialect.Cockroach)
	require.NoError(t, err)
	assert.Equal(t, "unique_rowid()", got)

	got, err = SQLValue(25*time.Hour+30*time.Second, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "'1 DAYS 3630 SECONDS'", got)

	got, err = SQLValue(90*time.Second, dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, "90", got)
}

func TestDDLFragments(t *testing.T) {
	band, _, _ := bandFixture(dialect.Postgres)
	id, _ := band.Column("id")
	name, _ := band.Column("name")

	got, err := id.DDLFragment(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `"id" SERIAL PRIMARY KEY`, got)

	got, err = id.DDLFragment(dialect.Cockroach)
	require.NoError(t, err)
	assert.Equal(t, `"id" INTEGER PRIMARY KEY DEFAULT unique_rowid()`, got)

	got, err = name.DDLFragment(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `"name" VARCHAR(100) NOT NULL DEFAULT ''`, got)

	got, err = Integer("popularity").WithDefault(10).DDLFragment(dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, `"popularity" INTEGER NOT NULL DEFAULT 10`, got)
}

func TestSerialDDLCarriesNoDefaultClause(t *testing.T) {
	counter := Serial("counter")

	got, err := counter.DDLFragment(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `"counter" SERIAL NOT NULL`, got)

	got, err = counter.DDLFragment(dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, `"counter" INTEGER NOT NULL`, got)

	got, err = counter.DDLFragment(dialect.Cockroach)
	require.NoError(t, err)
	assert.Equal(t, `"counter" INTEGER NOT NULL DEFAULT unique_rowid()`, got)
}

func TestFollowAliasing(t *testing.T) {
	_, _, fk := bandFixture(dialect.Postgres)

	name, err := fk.Follow("name")
	require.NoError(t, err)
	assert.Equal(t, "manager$name", name.PathName())
	assert.Equal(t, 1, name.Chain().Depth())

	qs, err := name.SelectString(dialect.Postgres, true)
	require.NoError(t, err)
	s, args, err := qs.Compile(dialect.Postgres)
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Equal(t, `"band$manager"."name" AS "manager$name"`, s)
}

func TestFollowUnknownColumn(t *testing.T) {
	_, _, fk := bandFixture(dialect.Postgres)
	_, err := fk.Follow("nope")
	assert.True(t, ostinato.IsTraversalError(err))
}

func TestChainDepthCap(t *testing.T) {
	parent := ForeignKeyTo("parent", SelfRef()).Unique()
	newTbl("node", dialect.Postgres, Serial("id").Primary(), parent)

	fk := parent
	var err error
	for i := 0; i < MaxJoinDepth-1; i++ {
		fk, err = fk.Traverse("parent")
		require.NoError(t, err)
	}
	// Ten hops resolve.
	leaf, err := fk.Follow("id")
	require.NoError(t, err)
	assert.Equal(t, MaxJoinDepth, leaf.Chain().Depth())

	// The eleventh does not.
	fk, err = fk.Traverse("parent")
	require.NoError(t, err) // ten hops again, still legal
	_, err = fk.Follow("id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ostinato.ErrChainTooLong))
}

func TestAllColumns(t *testing.T) {
	_, _, fk := bandFixture(dialect.Postgres)
	cols, err := fk.AllColumns("id")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "manager$name", cols[0].PathName())
}

func TestReverse(t *testing.T) {
	_, manager, fk := bandFixture(dialect.Postgres)

	_, err := fk.Reverse()
	assert.True(t, ostinato.IsConfigError(err), "non-unique keys must not reverse")

	fk.Unique()
	rev, err := fk.Reverse()
	require.NoError(t, err)
	assert.Equal(t, manager.Name(), rev.Table().Name())

	back, err := rev.Follow("name")
	require.NoError(t, err)
	assert.Equal(t, "id$name", back.PathName())
}

func TestForeignKeyMirrorsTarget(t *testing.T) {
	_, _, fk := bandFixture(dialect.Postgres)

	got, err := fk.TypeName(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "INTEGER", got)

	kind, err := fk.ValueKind()
	require.NoError(t, err)
	assert.Equal(t, TypeInteger, kind)
}

func TestWherePredicates(t *testing.T) {
	band, _, _ := bandFixture(dialect.Postgres)
	name, _ := band.Column("name")

	qs, err := name.Eq("Pythonistas").QueryString()
	require.NoError(t, err)
	s, args, err := qs.Compile(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `"band"."name" = $1`, s)
	assert.Equal(t, []any{"Pythonistas"}, args)

	qs, err = name.Eq(nil).QueryString()
	require.NoError(t, err)
	s, _, err = qs.Compile(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `"band"."name" IS NULL`, s)

	combined := name.Eq("a").Or(name.Eq("b"))
	qs, err = combined.QueryString()
	require.NoError(t, err)
	s, args, err = qs.Compile(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `(("band"."name" = $1) OR ("band"."name" = $2))`, s)
	assert.Len(t, args, 2)

	assert.Error(t, name.Like("no-wildcard").Err())
	assert.Error(t, name.In().Err())
}

func TestILikeFallsBackOnSQLite(t *testing.T) {
	band, _, _ := bandFixture(dialect.SQLite)
	name, _ := band.Column("name")

	qs, err := name.ILike("%py%").QueryString()
	require.NoError(t, err)
	s, _, err := qs.Compile(dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, `"band"."name" LIKE ?`, s)
}

func TestArrayPredicates(t *testing.T) {
	pg := newTbl("ticket", dialect.Postgres, Serial("id").Primary(), Array("prices", Integer("price")))
	prices, _ := pg.Column("prices")

	qs, err := prices.Any(10).QueryString()
	require.NoError(t, err)
	s, _, err := qs.Compile(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `$1 = ANY ("ticket"."prices")`, s)

	idx, err := prices.Index(0)
	require.NoError(t, err)
	s, _, err = idx.Compile(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `"ticket"."prices"[1]`, s)

	lite := newTbl("ticket", dialect.SQLite, Serial("id").Primary(), Array("prices", Integer("price")))
	prices, _ = lite.Column("prices")

	err = prices.All(10).Err()
	assert.True(t, ostinato.IsDialectError(err))

	_, err = prices.Index(0)
	assert.True(t, ostinato.IsDialectError(err))
}

func TestDurationArithmetic(t *testing.T) {
	pg := newTbl("concert", dialect.Postgres, Serial("id").Primary(), Timestamp("starts"))
	starts, _ := pg.Column("starts")

	qs, err := starts.Add(24*time.Hour + 5*time.Second)
	require.NoError(t, err)
	s, _, err := qs.Compile(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `"concert"."starts" + INTERVAL '1 DAYS 5 SECONDS'`, s)

	lite := newTbl("concert", dialect.SQLite, Serial("id").Primary(), Timestamp("starts"), Interval("length"))
	starts, _ = lite.Column("starts")
	length, _ := lite.Column("length")

	qs, err = starts.Add(24*time.Hour + 500*time.Millisecond)
	require.NoError(t, err)
	s, _, err = qs.Compile(dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, `strftime('%Y-%m-%d %H:%M:%f', "concert"."starts", '+1 DAYS', '+0.5 SECONDS')`, s)

	_, err = starts.Add(10*time.Second + 5*time.Microsecond)
	assert.True(t, ostinato.IsPrecisionError(err))

	qs, err = length.Add(90 * time.Second)
	require.NoError(t, err)
	s, _, err = qs.Compile(dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, `CAST("concert"."length" AS REAL) + 90`, s)
}

func TestUnboundColumnHasNoDialect(t *testing.T) {
	c := Timestamp("starts")
	_, err := c.Add(time.Hour)
	assert.True(t, errors.Is(err, ostinato.ErrNoEngine))
}
