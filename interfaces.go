package habanero

import (
	"context"
	"database/sql"

	"github.com/habanero-go/habanero/dialect"
)

// Dialector opens the connection pool and picks the SQL dialect of a database
type Dialector interface {
	Name() string
	Initialize(*DB) error
}

// ConnPool db conns pool interface
type ConnPool interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxBeginner a ConnPool able to start a *sql.Tx, *sql.DB and *sql.Conn implement it
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// DataAccessor entry point of an application into the persistence layer
type DataAccessor interface {
	CreateTransactionCommitter() *TransactionCommitter
	BusinessObjectLoader() *BusinessObjectLoader
}

var (
	_ DataAccessor = (*DB)(nil)
	_ ConnPool     = (*sql.DB)(nil)
	_ TxBeginner   = (*sql.DB)(nil)
)

type sqlDialector struct {
	driverName string
	dsn        string
	conn       ConnPool
}

// NewDialector opens dsn with the database/sql driver registered as driverName
func NewDialector(driverName, dsn string) Dialector {
	return &sqlDialector{driverName: driverName, dsn: dsn}
}

// NewConnDialector uses an existing connection, e.g. a *sql.DB or a sqlmock connection
func NewConnDialector(dialectName string, conn ConnPool) Dialector {
	return &sqlDialector{driverName: dialectName, conn: conn}
}

func (d *sqlDialector) Name() string {
	return d.driverName
}

func (d *sqlDialector) Initialize(db *DB) (err error) {
	if db.Dialect == nil {
		if db.Dialect, err = dialect.New(d.driverName); err != nil {
			return err
		}
	}

	if d.conn == nil {
		if d.conn, err = sql.Open(d.driverName, d.dsn); err != nil {
			return err
		}
	}
	db.ConnPool = d.conn
	return nil
}
