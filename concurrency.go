package habanero

import (
	"context"
	"errors"
	"time"

	"github.com/habanero-go/habanero/clause"
	"github.com/habanero-go/habanero/logger"
	"github.com/habanero-go/habanero/schema"
	"github.com/habanero-go/habanero/sqlgen"
)

// ConcurrencyControl strategy guarding a business object against concurrent edits
type ConcurrencyControl interface {
	// CheckConcurrencyBeforeBeginEditing runs when a persisted object is first edited
	CheckConcurrencyBeforeBeginEditing(ctx context.Context) error
	// CheckConcurrencyBeforeCommitting runs before the commit statements are generated
	CheckConcurrencyBeforeCommitting(ctx context.Context) error
	// UpdateConcurrencyControlPropertyValues sets concurrency properties written by the commit
	UpdateConcurrencyControlPropertyValues()
	// ReleaseWriteLocks releases locks held without committing
	ReleaseWriteLocks(ctx context.Context) error
}

var (
	_ ConcurrencyControl = NullConcurrencyControl{}
	_ ConcurrencyControl = (*OptimisticLockingVersionNumber)(nil)
	_ ConcurrencyControl = (*PessimisticLockingDB)(nil)
)

func newConcurrencyControl(bo *BusinessObject) ConcurrencyControl {
	def := bo.classDef.ConcurrencyDef()
	switch def.Kind {
	case schema.OptimisticVersion:
		return &OptimisticLockingVersionNumber{bo: bo, def: def}
	case schema.PessimisticLock:
		return &PessimisticLockingDB{bo: bo, def: def}
	default:
		return NullConcurrencyControl{}
	}
}

// NullConcurrencyControl last writer wins
type NullConcurrencyControl struct{}

func (NullConcurrencyControl) CheckConcurrencyBeforeBeginEditing(context.Context) error { return nil }
func (NullConcurrencyControl) CheckConcurrencyBeforeCommitting(context.Context) error   { return nil }
func (NullConcurrencyControl) UpdateConcurrencyControlPropertyValues()                  {}
func (NullConcurrencyControl) ReleaseWriteLocks(context.Context) error                  { return nil }

// OptimisticLockingVersionNumber detects concurrent saves through a version
// number incremented by every commit
type OptimisticLockingVersionNumber struct {
	bo  *BusinessObject
	def schema.ConcurrencyDef
}

// CheckConcurrencyBeforeBeginEditing fails when the stored version moved on since the object was loaded
func (c *OptimisticLockingVersionNumber) CheckConcurrencyBeforeBeginEditing(ctx context.Context) error {
	return c.check(ctx, "begin edit", ErrBeginEditConcurrency)
}

// CheckConcurrencyBeforeCommitting fails when another user saved or deleted the object
func (c *OptimisticLockingVersionNumber) CheckConcurrencyBeforeCommitting(ctx context.Context) error {
	return c.check(ctx, "save", ErrEditedByAnother)
}

func (c *OptimisticLockingVersionNumber) check(ctx context.Context, operation string, changed error) error {
	bo := c.bo
	if bo.status.IsNew {
		return nil
	}

	stored, err := bo.db.loader.storedValues(ctx, bo)
	if errors.Is(err, ErrNotFound) {
		return c.conflict(ctx, operation, ErrDeletedByAnother)
	}
	if err != nil {
		return err
	}

	if !valuesEqual(stored[c.def.VersionProp], bo.PersistedValue(c.def.VersionProp)) {
		return c.conflict(ctx, operation, changed)
	}
	return nil
}

func (c *OptimisticLockingVersionNumber) conflict(ctx context.Context, operation string, cause error) error {
	bo := c.bo
	bo.db.metrics.ConcurrencyConflict.Inc(1)
	err := &ConcurrencyError{ClassName: bo.classDef.ClassName, ID: bo.PersistedID(), Operation: operation, Err: cause}
	bo.db.Logger.Warn(ctx, "%v", err)
	return err
}

// UpdateConcurrencyControlPropertyValues increments the version and stamps the last update
func (c *OptimisticLockingVersionNumber) UpdateConcurrencyControlPropertyValues() {
	bo := c.bo
	if prop, ok := bo.props.Get(c.def.VersionProp); ok {
		version, _ := prop.persisted.(int64)
		prop.setValue(version + 1)
	}

	if prop, ok := bo.props.Get(c.def.DateLastUpdatedProp); ok {
		prop.setValue(bo.db.NowFunc())
	}

	if prop, ok := bo.props.Get(c.def.UserLastUpdatedProp); ok && bo.db.UserName != "" {
		prop.setValue(bo.db.UserName)
	}
}

func (c *OptimisticLockingVersionNumber) ReleaseWriteLocks(context.Context) error {
	return nil
}

// PessimisticLockingDB holds a lock stored in the object's row from the first
// edit until commit or cancel. Locks older than the lock duration are treated as released.
type PessimisticLockingDB struct {
	bo  *BusinessObject
	def schema.ConcurrencyDef
}

func (c *PessimisticLockingDB) duration() time.Duration {
	if c.def.LockDuration > 0 {
		return c.def.LockDuration
	}
	return c.bo.db.LockDuration
}

// CheckConcurrencyBeforeBeginEditing acquires the lock
func (c *PessimisticLockingDB) CheckConcurrencyBeforeBeginEditing(ctx context.Context) error {
	if c.bo.status.IsNew {
		return nil
	}
	return c.acquire(ctx, "begin edit")
}

// CheckConcurrencyBeforeCommitting verifies the lock is still held, a lost but
// free lock is acquired again
func (c *PessimisticLockingDB) CheckConcurrencyBeforeCommitting(ctx context.Context) error {
	bo := c.bo
	if bo.status.IsNew {
		return nil
	}

	stored, err := bo.db.loader.storedValues(ctx, bo)
	if errors.Is(err, ErrNotFound) {
		return c.deleted(ctx, "save")
	}
	if err != nil {
		return err
	}

	if stored[c.def.LockUserProp] == bo.db.LockOwner() {
		return nil
	}
	return c.acquire(ctx, "save")
}

func (c *PessimisticLockingDB) acquire(ctx context.Context, operation string) error {
	var (
		bo    = c.bo
		db    = bo.db
		now   = db.NowFunc()
		owner = db.LockOwner()
		free  = []clause.Expression{
			clause.Eq{Column: clause.Column{Name: c.def.LockUserProp}, Value: nil},
			clause.Eq{Column: clause.Column{Name: c.def.LockUserProp}, Value: owner},
			clause.Lt{Column: clause.Column{Name: c.def.LockTimeProp}, Value: now.Add(-c.duration())},
		}
		assignments = []sqlgen.Assignment{{Prop: c.def.LockUserProp, Value: owner}, {Prop: c.def.LockTimeProp, Value: now}}
	)

	if c.def.LockedProp != "" {
		free = append(free, clause.Eq{Column: clause.Column{Name: c.def.LockedProp}, Value: false})
		assignments = append(assignments, sqlgen.Assignment{Prop: c.def.LockedProp, Value: true})
	}

	stmts, err := sqlgen.NewUpdateGenerator(db.Dialect).UpdateColumns(bo, assignments, clause.Or(free...))
	if err != nil {
		return err
	}

	lockCtx := logger.WithOperation(ctx, logger.Operation{Class: bo.classDef.ClassName, Action: "lock", ID: bo.PersistedID()})
	for _, stmt := range stmts {
		result, err := db.exec(lockCtx, db.ConnPool, stmt, nil)
		if err != nil {
			return err
		}
		if result.RowsAffected != stmt.ExpectRowsAffected {
			return c.lockConflict(ctx, operation)
		}
	}

	for _, a := range assignments {
		bo.setPersisted(a.Prop, a.Value)
	}
	return nil
}

func (c *PessimisticLockingDB) lockConflict(ctx context.Context, operation string) error {
	bo := c.bo
	stored, err := bo.db.loader.storedValues(ctx, bo)
	if errors.Is(err, ErrNotFound) {
		return c.deleted(ctx, operation)
	}
	if err != nil {
		return err
	}

	conflict := &LockConflictError{ClassName: bo.classDef.ClassName, ID: bo.PersistedID(), Duration: c.duration()}
	conflict.LockedBy, _ = stored[c.def.LockUserProp].(string)
	conflict.LockedAt, _ = stored[c.def.LockTimeProp].(time.Time)

	bo.db.metrics.ConcurrencyConflict.Inc(1)
	bo.db.Logger.Warn(ctx, "%v", conflict)
	return conflict
}

func (c *PessimisticLockingDB) deleted(ctx context.Context, operation string) error {
	bo := c.bo
	bo.db.metrics.ConcurrencyConflict.Inc(1)
	err := &ConcurrencyError{ClassName: bo.classDef.ClassName, ID: bo.PersistedID(), Operation: operation, Err: ErrDeletedByAnother}
	bo.db.Logger.Warn(ctx, "%v", err)
	return err
}

// UpdateConcurrencyControlPropertyValues clears the lock so the commit releases it
func (c *PessimisticLockingDB) UpdateConcurrencyControlPropertyValues() {
	for _, name := range []string{c.def.LockUserProp, c.def.LockTimeProp} {
		if prop, ok := c.bo.props.Get(name); ok {
			prop.setValue(nil)
		}
	}
	if prop, ok := c.bo.props.Get(c.def.LockedProp); ok {
		prop.setValue(false)
	}
}

// ReleaseWriteLocks clears a lock held by this DB's lock owner
func (c *PessimisticLockingDB) ReleaseWriteLocks(ctx context.Context) error {
	bo := c.bo
	if bo.status.IsNew {
		return nil
	}

	db := bo.db
	assignments := []sqlgen.Assignment{{Prop: c.def.LockUserProp}, {Prop: c.def.LockTimeProp}}
	if c.def.LockedProp != "" {
		assignments = append(assignments, sqlgen.Assignment{Prop: c.def.LockedProp, Value: false})
	}

	stmts, err := sqlgen.NewUpdateGenerator(db.Dialect).UpdateColumns(bo, assignments,
		clause.Eq{Column: clause.Column{Name: c.def.LockUserProp}, Value: db.LockOwner()})
	if err != nil {
		return err
	}

	ctx = logger.WithOperation(ctx, logger.Operation{Class: bo.classDef.ClassName, Action: "unlock", ID: bo.PersistedID()})
	for _, stmt := range stmts {
		if _, err := db.exec(ctx, db.ConnPool, stmt, nil); err != nil {
			return err
		}
	}

	for _, a := range assignments {
		bo.setPersisted(a.Prop, a.Value)
	}
	return nil
}
