package engine

import (
	"context"
	stdsql "database/sql"
	"fmt"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
)

type txKey struct{}

func txFrom(ctx context.Context) *stdsql.Tx {
	tx, _ := ctx.Value(txKey{}).(*stdsql.Tx)
	return tx
}

// DB is the shared Engine implementation over database/sql. The driver
// subpackages construct it with the right driver and options.
type DB struct {
	db           *stdsql.DB
	dialect      string
	logQueries   bool
	ddlOutsideTx bool
	nodes        map[string]*DB
}

// Option configures a DB.
type Option func(*DB)

// WithQueryLogging makes the engine log every statement it runs.
func WithQueryLogging() Option {
	return func(d *DB) { d.logQueries = true }
}

// WithDDLAutocommit makes DDL statements run on their own connection,
// outside any open transaction. Cockroach needs this: schema changes
// inside explicit transactions are heavily restricted there.
func WithDDLAutocommit() Option {
	return func(d *DB) { d.ddlOutsideTx = true }
}

// WithNode registers an extra named node, such as a read replica.
func WithNode(name string, node *DB) Option {
	return func(d *DB) { d.nodes[name] = node }
}

// NewDB wraps an open database handle for the named dialect.
func NewDB(db *stdsql.DB, dialectName string, opts ...Option) (*DB, error) {
	if !dialect.Supported(dialectName) {
		return nil, dialect.Unrecognized(dialectName)
	}
	d := &DB{db: db, dialect: dialectName, nodes: map[string]*DB{}}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dialect returns the dialect name.
func (d *DB) Dialect() string { return d.dialect }

// Node returns the named extra node.
func (d *DB) Node(name string) (Engine, bool) {
	n, ok := d.nodes[name]
	return n, ok
}

// InTransaction reports whether ctx carries a transaction.
func (d *DB) InTransaction(ctx context.Context) bool {
	return txFrom(ctx) != nil
}

// conn returns a connection bound to the transaction in ctx, or to the
// pool when none is open.
func (d *DB) conn(ctx context.Context) osql.Conn {
	if tx := txFrom(ctx); tx != nil {
		return osql.NewConn(d.dialect, tx)
	}
	return osql.NewConn(d.dialect, d.db)
}

func (d *DB) log(qs osql.QueryString) {
	if d.logQueries {
		ostinato.Logger.Info().Str("dialect", d.dialect).Msg(qs.String())
	}
}

// Query runs a statement returning rows.
func (d *DB) Query(ctx context.Context, qs osql.QueryString) ([]Row, error) {
	d.log(qs)
	return d.conn(ctx).Query(ctx, qs)
}

// Exec runs a statement with no result rows.
func (d *DB) Exec(ctx context.Context, qs osql.QueryString) error {
	d.log(qs)
	return d.conn(ctx).Exec(ctx, qs)
}

// DDL runs a raw schema-change statement.
func (d *DB) DDL(ctx context.Context, stmt string) error {
	if d.logQueries {
		ostinato.Logger.Info().Str("dialect", d.dialect).Msg(stmt)
	}
	if d.ddlOutsideTx && d.InTransaction(ctx) {
		return osql.NewConn(d.dialect, d.db).ExecDDL(ctx, stmt)
	}
	return d.conn(ctx).ExecDDL(ctx, stmt)
}

// Transaction runs fn atomically, joining an existing transaction when
// ctx already carries one.
func (d *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.InTransaction(ctx) {
		return fn(ctx)
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// ExclusiveTransaction runs fn in a fresh transaction, refusing to
// join an outer one.
func (d *DB) ExclusiveTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.InTransaction(ctx) {
		return ostinato.NewConfigError("a transaction is already open on this context")
	}
	return d.Transaction(ctx, fn)
}

// Close closes the pool and every extra node.
func (d *DB) Close() error {
	err := d.db.Close()
	for _, n := range d.nodes {
		if nErr := n.Close(); err == nil {
			err = nErr
		}
	}
	return err
}
