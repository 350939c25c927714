package habanero

import (
	"context"

	"github.com/google/uuid"

	"github.com/habanero-go/habanero/sqlgen"
)

// Action what a commit does with a business object
type Action int

const (
	ActionNone Action = iota
	ActionInsert
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "none"
	}
}

// actionFor picks the action from the lifecycle status
func actionFor(status BOStatus) Action {
	switch {
	case status.IsNew && status.IsDeleted:
		return ActionNone
	case status.IsNew:
		return ActionInsert
	case status.IsDeleted:
		return ActionDelete
	case status.IsDirty:
		return ActionUpdate
	default:
		return ActionNone
	}
}

// Transactional unit of work executed by a TransactionCommitter
type Transactional interface {
	TransactionID() string
	// PersistSQL statements to execute inside the store transaction, in order
	PersistSQL(ctx context.Context, db *DB) (sqlgen.Statements, error)
	// UpdateAsCommitted runs once the store transaction committed
	UpdateAsCommitted(ctx context.Context)
	// UpdateAsRolledBack runs when the commit failed
	UpdateAsRolledBack(ctx context.Context)
}

var (
	_ Transactional = (*TransactionalBusinessObject)(nil)
	_ Transactional = (*SQLTransaction)(nil)
)

// TransactionalBusinessObject persists one business object according to its status
type TransactionalBusinessObject struct {
	id       string
	bo       *BusinessObject
	snapshot *boSnapshot
	// persistedID identity before the commit changed it
	persistedID string
	// deleteProcessed relationships of the deleted object were handled
	deleteProcessed bool
}

func newTransactionalBusinessObject(bo *BusinessObject) *TransactionalBusinessObject {
	return &TransactionalBusinessObject{id: uuid.NewString(), bo: bo}
}

func (t *TransactionalBusinessObject) TransactionID() string {
	return t.id
}

func (t *TransactionalBusinessObject) BusinessObject() *BusinessObject {
	return t.bo
}

// Action decided from the object's current status
func (t *TransactionalBusinessObject) Action() Action {
	return actionFor(t.bo.status)
}

func (t *TransactionalBusinessObject) takeSnapshot() {
	if t.snapshot == nil {
		t.snapshot = t.bo.snapshot()
		t.persistedID = t.bo.identity()
	}
}

// updateBeforePersisting sets the values only known at commit time
func (t *TransactionalBusinessObject) updateBeforePersisting() {
	switch t.Action() {
	case ActionInsert, ActionUpdate:
		t.bo.concurrency.UpdateConcurrencyControlPropertyValues()
		t.bo.syncMirroredKeys()
	}
}

func (t *TransactionalBusinessObject) PersistSQL(ctx context.Context, db *DB) (sqlgen.Statements, error) {
	switch t.Action() {
	case ActionInsert:
		return sqlgen.NewInsertGenerator(db.Dialect).Insert(t.bo)
	case ActionUpdate:
		return sqlgen.NewUpdateGenerator(db.Dialect).Update(t.bo)
	case ActionDelete:
		return sqlgen.NewDeleteGenerator(db.Dialect).Delete(t.bo)
	}
	return nil, nil
}

// setGeneratedKey stores a key generated by the store
func (t *TransactionalBusinessObject) setGeneratedKey(stmt *sqlgen.Statement, key interface{}) error {
	prop, ok := t.bo.props.Get(stmt.AutoIncrement.Name)
	if !ok {
		return nil
	}

	value, err := prop.def.Convert(key)
	if err != nil {
		return err
	}
	prop.setValue(value)
	t.bo.syncMirroredKeys()
	return nil
}

// resolveVars substitutes generated keys referenced by stmt
func (t *TransactionalBusinessObject) resolveVars(stmt *sqlgen.Statement) []interface{} {
	if !stmt.HasKeyRef() {
		return stmt.Vars
	}

	vars := make([]interface{}, len(stmt.Vars))
	for idx, v := range stmt.Vars {
		if ref, ok := v.(sqlgen.KeyRef); ok {
			v = t.bo.Value(ref.Prop.Name)
		}
		vars[idx] = v
	}
	return vars
}

// UpdateAsCommitted clears dirty state and syncs the identity map with the new status
func (t *TransactionalBusinessObject) UpdateAsCommitted(ctx context.Context) {
	bo, manager := t.bo, t.bo.db.BusinessObjectManager
	action := t.Action()

	for _, prop := range bo.props.props {
		prop.persist()
	}
	bo.status.IsDirty = false
	bo.status.IsEditing = false

	switch action {
	case ActionInsert:
		bo.status.IsNew = false
		if err := manager.Add(bo); err != nil {
			bo.db.Logger.Error(ctx, "identity map: %v", err)
		}
	case ActionUpdate:
		if id := bo.ID(); id != t.persistedID {
			if err := manager.replace(t.persistedID, id, bo); err != nil {
				bo.db.Logger.Error(ctx, "identity map: %v", err)
			}
		} else if err := manager.Add(bo); err != nil {
			bo.db.Logger.Error(ctx, "identity map: %v", err)
		}
	case ActionDelete:
		manager.removeObject(t.persistedID, bo)
		bo.status.IsNew = true
		bo.status.IsDeleted = true
	}
	t.snapshot = nil
}

// UpdateAsRolledBack restores the object as it was when the commit started.
// Write locks taken by the commit itself, e.g. while cascading a delete, are
// released since they were written outside the store transaction.
func (t *TransactionalBusinessObject) UpdateAsRolledBack(ctx context.Context) {
	if t.snapshot != nil {
		lockedByCommit := t.bo.status.IsEditing && !t.snapshot.status.IsEditing
		t.bo.restore(t.snapshot)
		t.snapshot = nil

		if lockedByCommit {
			if err := t.bo.concurrency.ReleaseWriteLocks(ctx); err != nil {
				t.bo.db.Logger.Error(ctx, "release write locks of %v: %v", t.bo, err)
			}
		}
	}
	t.deleteProcessed = false
}

// SQLTransaction raw statement committed with the business objects, e.g. an audit row.
// Placeholders must suit the database dialect.
type SQLTransaction struct {
	id   string
	sql  string
	vars []interface{}
}

// NewSQLTransaction creates a raw statement transaction
func NewSQLTransaction(sql string, vars ...interface{}) *SQLTransaction {
	return &SQLTransaction{id: uuid.NewString(), sql: sql, vars: vars}
}

func (t *SQLTransaction) TransactionID() string {
	return t.id
}

func (t *SQLTransaction) PersistSQL(_ context.Context, db *DB) (sqlgen.Statements, error) {
	stmt := sqlgen.NewStatement(db.Dialect, nil, "")
	stmt.WriteString(t.sql)
	stmt.Vars = append(stmt.Vars, t.vars...)
	return sqlgen.Statements{stmt}, nil
}

func (t *SQLTransaction) UpdateAsCommitted(context.Context) {}

func (t *SQLTransaction) UpdateAsRolledBack(context.Context) {}
