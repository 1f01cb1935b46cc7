package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
	"github.com/ostinato-db/ostinato/schema/column"
)

func TestNewDerivesTableName(t *testing.T) {
	tbl, err := New("ConcertVenue")
	require.NoError(t, err)
	assert.Equal(t, "concert_venue", tbl.Name())
	assert.Equal(t, `"concert_venue"`, tbl.QualifiedName())

	tbl, err = New("Band", WithSchema("music"))
	require.NoError(t, err)
	assert.Equal(t, `"music"."band"`, tbl.QualifiedName())
}

func TestNewAddsPrimaryKey(t *testing.T) {
	tbl, err := New("Band", Columns(column.Varchar("name", 100)))
	require.NoError(t, err)

	pk := tbl.PrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, "id", pk.Name())
	assert.Equal(t, column.TypeSerial, pk.Kind())
	assert.Same(t, pk, tbl.Columns()[0])
}

func TestNewKeepsDeclaredPrimaryKey(t *testing.T) {
	tbl, err := New("Token", Columns(
		column.UUID("key").Primary(),
		column.Varchar("label", 50),
	))
	require.NoError(t, err)
	assert.Equal(t, "key", tbl.PrimaryKey().Name())
	assert.Len(t, tbl.Columns(), 2)
}

func TestNewRejectsBadDefinitions(t *testing.T) {
	_, err := New("Band", Columns(
		column.Varchar("name", 100),
		column.Integer("name"),
	))
	assert.True(t, ostinato.IsConfigError(err), "duplicate column names")

	_, err = New("Band", Columns(
		column.Serial("a").Primary(),
		column.Serial("b").Primary(),
	))
	assert.True(t, ostinato.IsConfigError(err), "two primary keys")

	_, err = New("Band", Columns(column.Numeric("price", 1)))
	assert.True(t, ostinato.IsConfigError(err), "column errors surface at build")
}

func TestErroredLookupSurfacesInPredicates(t *testing.T) {
	tbl, err := New("Band", Columns(column.Varchar("name", 100)))
	require.NoError(t, err)
	assert.Error(t, tbl.C("nope").Eq(1).Err())
}

func TestDeferredReferenceResolvesThroughRegistry(t *testing.T) {
	reg := NewRegistry()

	band, err := New("Band",
		Columns(column.Varchar("name", 100)),
		ForeignKeys(column.ForeignKeyTo("manager", column.RefByName("manager", ""))),
	)
	require.NoError(t, err)
	require.NoError(t, reg.Add(band))

	fk, ok := band.FK("manager")
	require.True(t, ok)

	// The target is not registered yet; resolution fails but is retried.
	_, err = fk.ReferencedTable()
	require.Error(t, err)

	manager, err := New("Manager", Columns(column.Varchar("name", 100)))
	require.NoError(t, err)
	require.NoError(t, reg.Add(manager))

	got, err := fk.ReferencedTable()
	require.NoError(t, err)
	assert.Equal(t, "manager", got.Name())

	name, err := fk.Follow("name")
	require.NoError(t, err)
	assert.Equal(t, "manager$name", name.PathName())
}

func TestRegistryReverseIndex(t *testing.T) {
	reg := NewRegistry()
	manager, err := New("Manager", Columns(column.Varchar("name", 100)))
	require.NoError(t, err)
	band, err := New("Band", ForeignKeys(column.ForeignKeyTo("manager", manager.Ref())))
	require.NoError(t, err)
	require.NoError(t, reg.Add(manager))
	require.NoError(t, reg.Add(band))

	fks := reg.ReferencesTo(manager)
	require.Len(t, fks, 1)
	assert.Equal(t, "manager", fks[0].Name())
	assert.Empty(t, reg.ReferencesTo(band))
}

func TestSortOrdersDependenciesFirst(t *testing.T) {
	manager, err := New("Manager")
	require.NoError(t, err)
	band, err := New("Band", ForeignKeys(column.ForeignKeyTo("manager", manager.Ref())))
	require.NoError(t, err)
	genre, err := New("Genre")
	require.NoError(t, err)
	join, err := New("GenreToBand", ForeignKeys(
		column.ForeignKeyTo("band", band.Ref()),
		column.ForeignKeyTo("genre", genre.Ref()),
	))
	require.NoError(t, err)

	sorted, err := Sort([]*Table{join, band, genre, manager})
	require.NoError(t, err)
	names := make([]string, len(sorted))
	for i, tb := range sorted {
		names[i] = tb.Name()
	}
	assert.Equal(t, []string{"genre", "manager", "band", "genre_to_band"}, names)
}

func TestSortIgnoresSelfReferences(t *testing.T) {
	node, err := New("Node", ForeignKeys(column.ForeignKeyTo("parent", column.SelfRef())))
	require.NoError(t, err)
	sorted, err := Sort([]*Table{node})
	require.NoError(t, err)
	assert.Len(t, sorted, 1)
}

// m2mFixture wires Band <-> Genre through GenreToBand.
func m2mFixture(t *testing.T) (band, genre *Table, genres *M2M) {
	t.Helper()
	genres = NewM2M("genres", column.RefByName("genre_to_band", ""))
	reg := NewRegistry()

	band, err := New("Band", Columns(column.Varchar("name", 100)), M2Ms(genres))
	require.NoError(t, err)
	genre, err = New("Genre", Columns(column.Varchar("name", 100)))
	require.NoError(t, err)
	join, err := New("GenreToBand", ForeignKeys(
		column.ForeignKeyTo("band", band.Ref()),
		column.ForeignKeyTo("genre", genre.Ref()),
	))
	require.NoError(t, err)
	for _, tb := range []*Table{band, genre, join} {
		require.NoError(t, reg.Add(tb))
	}
	return band, genre, genres
}

func TestM2MKeyRoles(t *testing.T) {
	_, genre, genres := m2mFixture(t)

	primary, secondary, err := genres.Keys()
	require.NoError(t, err)
	assert.Equal(t, "band", primary.Name())
	assert.Equal(t, "genre", secondary.Name())

	related, err := genres.RelatedTable()
	require.NoError(t, err)
	assert.Equal(t, genre.Name(), related.Name())
}

func TestM2MSelectStringPostgres(t *testing.T) {
	_, genre, genres := m2mFixture(t)
	name, _ := genre.Column("name")

	qs, err := genres.SelectString([]*column.Column{name}, true, dialect.Postgres)
	require.NoError(t, err)
	s, _, err := qs.Compile(dialect.Postgres)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, `ARRAY(SELECT "inner_genre"."name" FROM "genre_to_band"`), s)
	assert.True(t, strings.HasSuffix(s, `) AS "genres"`), s)
	assert.Contains(t, s, `JOIN "band" "inner_band" ON ("genre_to_band"."band" = "inner_band"."id")`)
	assert.Contains(t, s, `JOIN "genre" "inner_genre" ON ("genre_to_band"."genre" = "inner_genre"."id")`)
	assert.Contains(t, s, `WHERE "genre_to_band"."band" = "band"."id"`)

	// Several columns aggregate to JSON objects.
	id, _ := genre.Column("id")
	qs, err = genres.SelectString([]*column.Column{id, name}, false, dialect.Postgres)
	require.NoError(t, err)
	s, _, err = qs.Compile(dialect.Postgres)
	require.NoError(t, err)
	assert.Contains(t, s, `JSON_AGG("genres_results")`)
	assert.Contains(t, s, `SELECT "inner_genre"."id", "inner_genre"."name" FROM`)
}

func TestM2MSelectStringSQLite(t *testing.T) {
	_, genre, genres := m2mFixture(t)
	name, _ := genre.Column("name")

	qs, err := genres.SelectString([]*column.Column{name}, true, dialect.SQLite)
	require.NoError(t, err)
	s, _, err := qs.Compile(dialect.SQLite)
	require.NoError(t, err)
	assert.Contains(t, s, `group_concat("inner_genre"."name")`)
	assert.True(t, strings.HasSuffix(s, `AS "genres [M2M]"`), s)
}

func TestM2MSelectStringDefaultsToAllColumns(t *testing.T) {
	_, _, genres := m2mFixture(t)

	qs, err := genres.SelectString(nil, false, dialect.Postgres)
	require.NoError(t, err)
	s, _, err := qs.Compile(dialect.Postgres)
	require.NoError(t, err)
	assert.Contains(t, s, `JSON_AGG("genres_results")`)
	assert.Contains(t, s, `SELECT "inner_genre"."id", "inner_genre"."name" FROM`)

	qs, err = genres.SelectString(nil, false, dialect.SQLite)
	require.NoError(t, err)
	s, _, err = qs.Compile(dialect.SQLite)
	require.NoError(t, err)
	assert.Contains(t, s, `group_concat(`)
	assert.True(t, strings.HasSuffix(s, `AS "genres [M2M]"`), s)
}

func TestM2MResultKind(t *testing.T) {
	_, genre, genres := m2mFixture(t)
	name, _ := genre.Column("name")

	k, err := genres.ResultKind([]*column.Column{name}, true, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, column.TypeArray, k)

	k, err = genres.ResultKind(nil, false, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, column.TypeJSON, k)

	k, err = genres.ResultKind(nil, false, dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, column.TypeText, k)
}

func TestM2MSelectStringFallsBackForUnsafeKinds(t *testing.T) {
	reg := NewRegistry()
	doc := NewM2M("docs", column.RefByName("doc_to_band", ""))
	band, err := New("Band", M2Ms(doc))
	require.NoError(t, err)
	document, err := New("Document", Columns(column.JSONB("body")))
	require.NoError(t, err)
	join, err := New("DocToBand", WithTableName("doc_to_band"), ForeignKeys(
		column.ForeignKeyTo("band", band.Ref()),
		column.ForeignKeyTo("document", document.Ref()),
	))
	require.NoError(t, err)
	for _, tb := range []*Table{band, document, join} {
		require.NoError(t, reg.Add(tb))
	}

	body, _ := document.Column("body")
	qs, err := doc.SelectString([]*column.Column{body}, false, dialect.Postgres)
	require.NoError(t, err)
	s, _, err := qs.Compile(dialect.Postgres)
	require.NoError(t, err)
	// Structured kinds come back as primary keys only.
	assert.Contains(t, s, `ARRAY(SELECT "inner_document"."id"`)
}

func TestObjectInsertValues(t *testing.T) {
	band, err := New("Band", Columns(
		column.Varchar("name", 100),
		column.Integer("popularity"),
	))
	require.NoError(t, err)

	o := band.NewObject(map[string]any{"name": "Pythonistas"})
	assert.False(t, o.ExistsInDB())
	assert.Nil(t, o.PK())

	vals, err := o.InsertValues()
	require.NoError(t, err)
	assert.Equal(t, "Pythonistas", vals["name"])
	assert.Equal(t, 0, vals["popularity"])
	_, hasPK := vals["id"]
	assert.False(t, hasPK, "unassigned primary keys stay with the database")

	o.MarkSaved(7)
	assert.True(t, o.ExistsInDB())
	assert.Equal(t, 7, o.PK())

	assert.Error(t, o.Set("nope", 1))
}
