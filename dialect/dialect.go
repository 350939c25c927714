package dialect

import (
	"fmt"
	"strings"
	"sync"

	"github.com/habanero-go/habanero/schema"
)

// Dialect interface contains behaviors that differ across SQL databases
type Dialect interface {
	// GetName get dialect's name
	GetName() string
	// BindVar return the placeholder for the i-th (1-based) actual value
	BindVar(i int) string
	// Quote quotes field name to avoid SQL parsing exceptions by using a reserved word as a field name
	Quote(key string) string
	// DataTypeOf return data's sql type
	DataTypeOf(prop *schema.PropDef) string
	// SupportLastInsertID whether sql.Result.LastInsertId reports generated keys
	SupportLastInsertID() bool
	// LastInsertIDOutputInterstitial most dbs support LastInsertId, but mssql needs to use `OUTPUT`
	LastInsertIDOutputInterstitial(tableName, columnName string) string
	// LastInsertIDReturningSuffix most dbs support LastInsertId, but postgres needs to use `RETURNING`
	LastInsertIDReturningSuffix(tableName, columnName string) string
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// RegisterDialect register new dialect
func RegisterDialect(name string, dialect Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[name] = dialect
}

// GetDialect gets the dialect for the specified dialect name
func GetDialect(name string) (dialect Dialect, ok bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	dialect, ok = dialects[name]
	return
}

// New returns the registered dialect for name
func New(name string) (Dialect, error) {
	if d, ok := GetDialect(name); ok {
		return d, nil
	}
	return nil, fmt.Errorf("dialect %q is not registered", name)
}

func init() {
	RegisterDialect("sqlite3", &sqlite3{})
	RegisterDialect("sqlite", &sqlite3{})
	RegisterDialect("mysql", &mysql{})
	RegisterDialect("postgres", &postgres{})
	RegisterDialect("mssql", &mssql{})
	RegisterDialect("sqlserver", &mssql{})
}

type commonDialect struct{}

func (commonDialect) BindVar(i int) string {
	return "?"
}

func (commonDialect) Quote(key string) string {
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(key, `"`, `""`))
}

func (commonDialect) SupportLastInsertID() bool {
	return true
}

func (commonDialect) LastInsertIDOutputInterstitial(tableName, columnName string) string {
	return ""
}

func (commonDialect) LastInsertIDReturningSuffix(tableName, columnName string) string {
	return ""
}

func varchar(size, limit int, fallback string) string {
	if size > 0 && size < limit {
		return fmt.Sprintf("varchar(%d)", size)
	}
	return fallback
}
