package stmtcache

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultTTL = time.Hour * 24
)

// Preparer prepares statements, *sql.DB and *sql.Conn implement it
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Stmt a prepared statement, ready once prepared is closed
type Stmt struct {
	*sql.Stmt
	prepared   chan struct{}
	prepareErr error
}

func (stmt *Stmt) Error() error {
	return stmt.prepareErr
}

// Close waits for the preparation to finish and closes the statement
func (stmt *Stmt) Close() error {
	<-stmt.prepared

	if stmt.Stmt != nil {
		return stmt.Stmt.Close()
	}
	return nil
}

// Cache prepared statements keyed by SQL text, least recently used
// statements are closed once size is exceeded or ttl passes
type Cache struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, *Stmt]
}

// New size <= 0 keeps every statement, ttl <= 0 uses one day
func New(size int, ttl time.Duration) *Cache {
	if size < 0 {
		size = 0
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}

	onEvicted := func(_ string, v *Stmt) {
		if v != nil {
			go v.Close()
		}
	}
	return &Cache{lru: expirable.NewLRU[string, *Stmt](size, onEvicted, ttl)}
}

// Prepare returns the statement cached for query, preparing it on conn the
// first time. Concurrent callers for one query share a single preparation.
func (c *Cache) Prepare(ctx context.Context, conn Preparer, query string) (*sql.Stmt, error) {
	c.mu.Lock()
	if stmt, ok := c.lru.Get(query); ok {
		c.mu.Unlock()
		// wait for other goroutines prepared
		<-stmt.prepared
		if stmt.prepareErr != nil {
			return nil, stmt.prepareErr
		}
		return stmt.Stmt, nil
	}

	stmt := &Stmt{prepared: make(chan struct{})}
	c.lru.Add(query, stmt)
	c.mu.Unlock()

	defer close(stmt.prepared)

	stmt.Stmt, stmt.prepareErr = conn.PrepareContext(ctx, query)
	if stmt.prepareErr != nil {
		c.lru.Remove(query)
		return nil, stmt.prepareErr
	}
	return stmt.Stmt, nil
}

// Keys cached queries from oldest to newest
func (c *Cache) Keys() []string {
	return c.lru.Keys()
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge closes and forgets every statement
func (c *Cache) Purge() {
	c.lru.Purge()
}
