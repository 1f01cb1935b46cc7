// Package ostinato is a schema and query modeling layer for relational
// databases. Tables are declared as typed collections of columns, foreign-key
// relationships resolve into traversable join paths, and the same declarative
// surface renders dialect-correct DDL and DML for PostgreSQL, CockroachDB and
// SQLite.
//
// The root package holds the error taxonomy shared by every sub-package and
// the optional query-result cache contract. The interesting parts live below:
//
//   - schema/column: column kinds, defaults, foreign keys and join chains
//   - schema: table metadata, the table registry and many-to-many descriptors
//   - query: select/insert/update/delete builders, the alter/DDL batch and
//     result processing
//   - engine, engine/postgres, engine/cockroach, engine/sqlite: the execution
//     engines queries dispatch through
package ostinato
