package habanero

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/uber-go/tally/v4"

	"github.com/habanero-go/habanero/dialect"
	"github.com/habanero-go/habanero/internal/stmtcache"
	"github.com/habanero-go/habanero/logger"
	"github.com/habanero-go/habanero/migrator"
	"github.com/habanero-go/habanero/schema"
)

// Config persistence config
type Config struct {
	// NamingStrategy default table and column names
	NamingStrategy schema.Namer
	// Logger
	Logger logger.Interface
	// NowFunc the function to be used when creating a new timestamp
	NowFunc func() time.Time
	// DryRun generate and log sql without executing it
	DryRun bool
	// UserName recorded as lock owner and last updating user
	UserName string
	// LockDuration pessimistic lock expiry for classes that do not set one
	LockDuration time.Duration
	// PrepareStmt executes generated statements as cached prepared statements
	PrepareStmt bool
	// PrepareStmtMaxSize prepared statements kept, 0 keeps every statement
	PrepareStmtMaxSize int
	// PrepareStmtTTL prepared statement expiry
	PrepareStmtTTL time.Duration
	// MetricsScope tally scope metrics are reported under
	MetricsScope tally.Scope
	// BusinessObjectManager identity map, share one between DBs to share loaded objects
	BusinessObjectManager *BusinessObjectManager
	// Registry class definitions
	Registry *schema.Registry
	// ConnPool db conn pool
	ConnPool ConnPool
	// Dialect placeholder and quoting rules
	Dialect dialect.Dialect
	// Dialector database dialector
	Dialector
}

// DB data accessor over one database
type DB struct {
	*Config
	metrics   *Metrics
	sessionID string
	loader    *BusinessObjectLoader
	stmts     *stmtcache.Cache
}

// Open initialize db session based on dialector
func Open(dialector Dialector, config *Config) (db *DB, err error) {
	if config == nil {
		config = &Config{}
	}

	if config.NamingStrategy == nil {
		config.NamingStrategy = schema.NamingStrategy{}
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}

	if config.NowFunc == nil {
		config.NowFunc = func() time.Time { return time.Now().UTC() }
	}

	if config.LockDuration == 0 {
		config.LockDuration = 15 * time.Minute
	}

	if config.MetricsScope == nil {
		config.MetricsScope = tally.NoopScope
	}

	if config.Registry == nil {
		config.Registry = schema.NewRegistry(config.NamingStrategy)
	}

	if dialector != nil {
		config.Dialector = dialector
	}

	db = &DB{
		Config:    config,
		metrics:   NewMetrics(config.MetricsScope),
		sessionID: uuid.NewString(),
	}

	if config.BusinessObjectManager == nil {
		config.BusinessObjectManager = NewBusinessObjectManager(db.metrics)
	}
	db.loader = &BusinessObjectLoader{db: db}

	if config.PrepareStmt {
		db.stmts = stmtcache.New(config.PrepareStmtMaxSize, config.PrepareStmtTTL)
	}

	if config.Dialector != nil {
		err = config.Dialector.Initialize(db)
	}

	if err == nil && (db.ConnPool == nil || db.Dialect == nil) {
		err = fmt.Errorf("open: %w", ErrInvalidTransaction)
	}
	return
}

// Register adds class definitions to the registry
func (db *DB) Register(cds ...*schema.ClassDef) error {
	return db.Registry.Add(cds...)
}

// ClassDef registered class definition by name
func (db *DB) ClassDef(className string) (*schema.ClassDef, bool) {
	return db.Registry.Get(className)
}

// CreateTransactionCommitter returns an empty committer
func (db *DB) CreateTransactionCommitter() *TransactionCommitter {
	return &TransactionCommitter{db: db}
}

// BusinessObjectLoader loader reading through the identity map
func (db *DB) BusinessObjectLoader() *BusinessObjectLoader {
	return db.loader
}

// Metrics metrics of this DB
func (db *DB) Metrics() *Metrics {
	return db.metrics
}

// LockOwner value written to pessimistic lock columns, unique per DB
func (db *DB) LockOwner() string {
	if db.UserName == "" {
		return db.sessionID
	}
	return db.UserName + "|" + db.sessionID
}

// Migrator creates and drops the tables of class definitions on this DB
func (db *DB) Migrator() migrator.Migrator {
	return migrator.New(&migrator.Config{
		CheckExistsBeforeDropping: true,
		Dialect:                   db.Dialect,
		Conn:                      db.ConnPool,
		Namer:                     db.NamingStrategy,
		Logger:                    db.Logger,
	})
}

// Save commits one business object
func (db *DB) Save(ctx context.Context, bo *BusinessObject) error {
	committer := db.CreateTransactionCommitter()
	committer.AddBusinessObject(bo)
	return committer.CommitTransaction(ctx)
}

// PreparedStmts SQL of the cached prepared statements, oldest first
func (db *DB) PreparedStmts() []string {
	if db.stmts == nil {
		return nil
	}
	return db.stmts.Keys()
}

// Close closes the prepared statements and the connection pool when it can be closed
func (db *DB) Close() error {
	if db.stmts != nil {
		db.stmts.Purge()
	}
	if closer, ok := db.ConnPool.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
