package habanero

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/habanero-go/habanero/errtranslator"
	"github.com/habanero-go/habanero/internal/stmtcache"
	"github.com/habanero-go/habanero/logger"
	"github.com/habanero-go/habanero/sqlgen"
)

var (
	postgresPlaceholder = regexp.MustCompile(`\$(\d+)`)
	mssqlPlaceholder    = regexp.MustCompile(`@p(\d+)`)
)

type execResult struct {
	RowsAffected int64
	// GeneratedKey key generated by the store for stmt.AutoIncrement
	GeneratedKey interface{}
}

// explain renders sql with its vars inlined for logs
func (db *DB) explain(sql string, vars ...interface{}) string {
	var placeholder *regexp.Regexp
	switch db.Dialect.GetName() {
	case "postgres":
		placeholder = postgresPlaceholder
	case "mssql":
		placeholder = mssqlPlaceholder
	}
	return logger.ExplainSQL(sql, placeholder, `'`, vars...)
}

// exec executes one generated statement on conn. vars replace stmt.Vars once
// generated keys are substituted. In dry run mode the statement is only logged.
func (db *DB) exec(ctx context.Context, conn ConnPool, stmt *sqlgen.Statement, vars []interface{}) (result execResult, err error) {
	if vars == nil {
		vars = stmt.Vars
	}

	begin := time.Now()
	defer func() {
		db.Logger.Trace(ctx, begin, func() (string, int64) {
			return db.explain(stmt.String(), vars...), result.RowsAffected
		}, err)
	}()

	if db.DryRun {
		result.RowsAffected = stmt.ExpectRowsAffected
		return result, nil
	}
	db.metrics.StatementsExecuted.Inc(1)

	prepared, err := db.prepared(ctx, conn, stmt.String())
	if err != nil {
		return result, db.translate(err)
	}

	if stmt.AutoIncrement != nil && stmt.Returning {
		var (
			key interface{}
			row *sql.Row
		)
		if prepared != nil {
			row = prepared.QueryRowContext(ctx, vars...)
		} else {
			row = conn.QueryRowContext(ctx, stmt.String(), vars...)
		}
		if err = row.Scan(&key); err != nil {
			return result, db.translate(err)
		}
		result.RowsAffected, result.GeneratedKey = 1, key
		return result, nil
	}

	var res sql.Result
	if prepared != nil {
		res, err = prepared.ExecContext(ctx, vars...)
	} else {
		res, err = conn.ExecContext(ctx, stmt.String(), vars...)
	}
	if err != nil {
		return result, db.translate(err)
	}

	if result.RowsAffected, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("%w: %w", ErrStoreExecution, err)
	}

	if stmt.AutoIncrement != nil {
		var id int64
		if id, err = res.LastInsertId(); err != nil {
			return result, fmt.Errorf("%w: %w", ErrStoreExecution, err)
		}
		result.GeneratedKey = id
	}
	return result, nil
}

// query runs a select statement, rows must be closed by the caller
func (db *DB) query(ctx context.Context, stmt *sqlgen.Statement) (rows *sql.Rows, err error) {
	begin := time.Now()
	defer func() {
		db.Logger.Trace(ctx, begin, func() (string, int64) {
			return db.explain(stmt.String(), stmt.Vars...), -1
		}, err)
	}()

	prepared, err := db.prepared(ctx, db.ConnPool, stmt.String())
	if err == nil {
		if prepared != nil {
			rows, err = prepared.QueryContext(ctx, stmt.Vars...)
		} else {
			rows, err = db.ConnPool.QueryContext(ctx, stmt.String(), stmt.Vars...)
		}
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStoreExecution, err)
	}
	return rows, err
}

// prepared returns the cached statement for query bound to conn, nil when
// PrepareStmt is off or the pool cannot prepare statements
func (db *DB) prepared(ctx context.Context, conn ConnPool, query string) (*sql.Stmt, error) {
	if db.stmts == nil {
		return nil, nil
	}

	preparer, ok := db.ConnPool.(stmtcache.Preparer)
	if !ok {
		return nil, nil
	}

	stmt, err := db.stmts.Prepare(ctx, preparer, query)
	if err != nil {
		return nil, err
	}

	if tx, ok := conn.(*sql.Tx); ok {
		return tx.StmtContext(ctx, stmt), nil
	}
	return stmt, nil
}

// translate maps driver errors to portable ones, duplicate keys become errtranslator.ErrDuplicatedKey
func (db *DB) translate(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreExecution, errtranslator.Translate(db.Dialect.GetName(), err))
}
