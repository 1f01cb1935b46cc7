package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
	"github.com/ostinato-db/ostinato/query"
	"github.com/ostinato-db/ostinato/schema"
	"github.com/ostinato-db/ostinato/schema/column"
)

func TestAlterSingleStatementOnPostgres(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))

	stmts, err := query.Alter(band).
		AddColumn(column.Varchar("genre", 100)).
		SetNull("name", true).
		Statements(dialect.Postgres)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t,
		`ALTER TABLE "band" ADD COLUMN "genre" VARCHAR(100) NOT NULL DEFAULT '',`+
			` ALTER COLUMN "name" DROP NOT NULL`,
		stmts[0])
}

func TestAlterClauseOrderIsFixed(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))

	// Declared out of order; added columns always render first so later
	// clauses can refer to them.
	stmts, err := query.Alter(band).
		SetNull("name", false).
		DropColumn("popularity").
		AddColumn(column.Varchar("genre", 100)).
		Statements(dialect.Postgres)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	add := indexOf(stmts[0], "ADD COLUMN")
	drop := indexOf(stmts[0], "DROP COLUMN")
	null := indexOf(stmts[0], "SET NOT NULL")
	assert.True(t, add < drop && drop < null, stmts[0])
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestAlterSplitsStatementsOnSQLite(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.SQLite))

	stmts, err := query.Alter(band).
		AddColumn(column.Varchar("genre", 100)).
		DropColumn("popularity").
		Statements(dialect.SQLite)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, `ALTER TABLE "band" ADD COLUMN "genre" VARCHAR(100) NOT NULL DEFAULT ''`, stmts[0])
	assert.Equal(t, `ALTER TABLE "band" DROP COLUMN "popularity"`, stmts[1])
}

func TestAlterSetLength(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))

	stmts, err := query.Alter(band).SetLength("name", 512).Statements(dialect.Postgres)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, `ALTER TABLE "band" ALTER COLUMN "name" TYPE VARCHAR(512)`, stmts[0])

	// SQLite ignores varchar lengths; the clause is skipped.
	stmts, err = query.Alter(band).SetLength("name", 512).Statements(dialect.SQLite)
	require.NoError(t, err)
	assert.Empty(t, stmts)

	_, err = query.Alter(band).SetLength("popularity", 512).Statements(dialect.Postgres)
	assert.True(t, ostinato.IsConfigError(err))
}

func TestAlterColumnProperties(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))

	stmts, err := query.Alter(band).
		SetDefault("popularity", 10).
		SetUnique("name", true).
		Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Contains(t, stmts[0], `ADD UNIQUE ("name")`)
	assert.Contains(t, stmts[0], `ALTER COLUMN "popularity" SET DEFAULT 10`)

	stmts, err = query.Alter(band).SetUnique("name", false).Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "band" DROP CONSTRAINT "band_name_key"`, stmts[0])

	stmts, err = query.Alter(band).DropDefault("popularity").Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "band" ALTER COLUMN "popularity" DROP DEFAULT`, stmts[0])
}

func TestAlterRenames(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))

	stmts, err := query.Alter(band).
		RenameColumn("name", "title").
		RenameTable("group").
		Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		`ALTER TABLE "band" RENAME COLUMN "name" TO "title", RENAME TO "group"`,
		stmts[0])
}

func TestAlterSetColumnTypeWithUsing(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))

	stmts, err := query.Alter(band).
		SetColumnType("popularity", column.BigInt("popularity"), `"popularity"::bigint`).
		Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		`ALTER TABLE "band" ALTER COLUMN "popularity" TYPE BIGINT USING "popularity"::bigint`,
		stmts[0])
}

func TestAlterSkipsSerialConversions(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))

	stmts, err := query.Alter(band).
		SetColumnType("id", column.BigSerial("id"), "").
		Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Empty(t, stmts, "auto-increment kinds have no safe conversion")
}

func TestAlterSetDigits(t *testing.T) {
	tbl, err := schema.New("Product", schema.Columns(column.Numeric("price", 5, 2)))
	require.NoError(t, err)

	stmts, err := query.Alter(tbl).SetDigits("price", []int{6, 3}).Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "product" ALTER COLUMN "price" TYPE NUMERIC(6, 3)`, stmts[0])

	// Cockroach does not accept parameterised NUMERIC.
	stmts, err = query.Alter(tbl).SetDigits("price", []int{6, 3}).Statements(dialect.Cockroach)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "product" ALTER COLUMN "price" TYPE NUMERIC`, stmts[0])

	stmts, err = query.Alter(tbl).SetDigits("price", nil).Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "product" ALTER COLUMN "price" TYPE NUMERIC`, stmts[0])

	_, err = query.Alter(tbl).SetDigits("price", []int{6}).Statements(dialect.Postgres)
	assert.True(t, ostinato.IsConfigError(err))
}

func TestAlterForeignKeyConstraints(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))
	fk, ok := band.FK("manager")
	require.True(t, ok)

	stmts, err := query.Alter(band).AddForeignKeyConstraint(fk).Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		`ALTER TABLE "band" ADD CONSTRAINT "band_manager_fkey" FOREIGN KEY ("manager")`+
			` REFERENCES "manager" ("id") ON DELETE NO ACTION ON UPDATE NO ACTION`,
		stmts[0])

	stmts, err = query.Alter(band).DropForeignKeyConstraint("manager").Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "band" DROP CONSTRAINT IF EXISTS "band_manager_fkey"`, stmts[0])
}

func TestAlterSetSchema(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))

	stmts, err := query.Alter(band).SetSchema("music").Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "band" SET SCHEMA "music"`, stmts[0])
}

func TestAlterDropTableShortCircuits(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))

	stmts, err := query.Alter(band).
		AddColumn(column.Varchar("genre", 100)).
		DropTable(false, true).
		Statements(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, []string{`DROP TABLE IF EXISTS "band"`}, stmts)
}

func TestAlterRunExecutesEachStatement(t *testing.T) {
	stub := newStub(dialect.SQLite)
	band, _ := bandTables(t, stub)

	err := query.Alter(band).
		AddColumn(column.Varchar("genre", 100)).
		DropColumn("popularity").
		Run(context.Background())
	require.NoError(t, err)
	require.Len(t, stub.ddls, 2)
	assert.Contains(t, stub.ddls[0], "ADD COLUMN")
	assert.Contains(t, stub.ddls[1], "DROP COLUMN")
}

func TestAlterRejectsInvalidNames(t *testing.T) {
	band, _ := bandTables(t, newStub(dialect.Postgres))

	_, err := query.Alter(band).RenameTable(`bad"name`).Statements(dialect.Postgres)
	assert.True(t, ostinato.IsConfigError(err))
}
