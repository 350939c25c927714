package errtranslator

import (
	"fmt"
	"strings"
)

// ErrTranslator turns a driver specific error into a portable one
type ErrTranslator interface {
	Translate(err error) error
}

// ErrDuplicatedKey reports a unique or primary key violation raised by the store
type ErrDuplicatedKey struct {
	Code    interface{}
	Message string
	// Columns holds the offending column names when the driver reports them
	Columns []string
}

func (e ErrDuplicatedKey) Error() string {
	if len(e.Columns) > 0 {
		return fmt.Sprintf("duplicated key not allowed, code: %v, columns: %s, message: %s", e.Code, strings.Join(e.Columns, ", "), e.Message)
	}
	return fmt.Sprintf("duplicated key not allowed, code: %v, message: %s", e.Code, e.Message)
}

// New returns the translator registered for a dialect name, nil when unknown
func New(dialect string) ErrTranslator {
	switch dialect {
	case "sqlite", "sqlite3":
		return &SqliteErrTranslator{}
	case "postgres":
		return &PostgresErrTranslator{}
	case "mysql":
		return &MysqlErrTranslator{}
	case "mssql", "sqlserver":
		return &MssqlErrTranslator{}
	}
	return nil
}

// Translate runs the dialect translator when one exists
func Translate(dialect string, err error) error {
	if err == nil {
		return nil
	}
	if t := New(dialect); t != nil {
		return t.Translate(err)
	}
	return err
}
