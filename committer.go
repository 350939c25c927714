package habanero

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/habanero-go/habanero/errtranslator"
	"github.com/habanero-go/habanero/logger"
	"github.com/habanero-go/habanero/schema"
)

// TransactionCommitter commits a batch of business objects and raw statements
// in one store transaction. Either every object is persisted and updated, or
// the store and every object are left as they were. A committer is single use
// and not safe for concurrent use.
type TransactionCommitter struct {
	db           *DB
	transactions []Transactional
	objects      map[*BusinessObject]*TransactionalBusinessObject
	committed    bool
}

// AddBusinessObject adds bo to the batch, adding an object twice is a no-op
func (tc *TransactionCommitter) AddBusinessObject(bo *BusinessObject) {
	tc.add(bo)
}

func (tc *TransactionCommitter) add(bo *BusinessObject) *TransactionalBusinessObject {
	if tc.objects == nil {
		tc.objects = map[*BusinessObject]*TransactionalBusinessObject{}
	}
	if t, ok := tc.objects[bo]; ok {
		return t
	}

	t := newTransactionalBusinessObject(bo)
	tc.objects[bo] = t
	tc.transactions = append(tc.transactions, t)
	return t
}

// AddTransaction adds a custom transactional, executed in addition order
func (tc *TransactionCommitter) AddTransaction(t Transactional) {
	if tbo, ok := t.(*TransactionalBusinessObject); ok {
		tc.add(tbo.bo)
		return
	}
	tc.transactions = append(tc.transactions, t)
}

// Transactions in execution order
func (tc *TransactionCommitter) Transactions() []Transactional {
	return tc.transactions
}

func (tc *TransactionCommitter) businessObjects() []*TransactionalBusinessObject {
	var result []*TransactionalBusinessObject
	for _, t := range tc.transactions {
		if tbo, ok := t.(*TransactionalBusinessObject); ok {
			result = append(result, tbo)
		}
	}
	return result
}

// CommitTransaction validates, checks concurrency and persists every object of
// the batch in one store transaction
func (tc *TransactionCommitter) CommitTransaction(ctx context.Context) (err error) {
	if tc.committed {
		return ErrTransactionCommitted
	}

	var (
		db       = tc.db
		begin    = time.Now()
		panicked = true
	)

	for _, t := range tc.businessObjects() {
		t.takeSnapshot()
	}

	defer func() {
		// restore the objects on panic or error
		if panicked || err != nil {
			for _, t := range tc.transactions {
				t.UpdateAsRolledBack(ctx)
			}
		}

		if err != nil {
			db.metrics.CommitFail.Inc(1)
			db.Logger.Error(ctx, "commit failed: %v", err)
		}
		db.metrics.CommitDuration.Record(time.Since(begin))
	}()

	if err = tc.processDeletes(ctx); err == nil {
		if err = tc.validate(); err == nil {
			err = tc.checkConcurrency(ctx)
		}
	}
	if err != nil {
		panicked = false
		return err
	}

	for _, t := range tc.businessObjects() {
		t.updateBeforePersisting()
	}

	if err = tc.checkIdentities(); err != nil {
		panicked = false
		return err
	}

	if db.DryRun {
		err = tc.execute(ctx, db.ConnPool)
		panicked = false
		if err == nil {
			for _, t := range tc.transactions {
				t.UpdateAsRolledBack(ctx)
			}
		}
		return err
	}

	beginner, ok := db.ConnPool.(TxBeginner)
	if !ok {
		panicked = false
		return ErrInvalidTransaction
	}

	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		panicked = false
		return fmt.Errorf("%w: begin: %w", ErrStoreExecution, err)
	}

	defer func() {
		if panicked || err != nil {
			tx.Rollback()
		}
	}()

	if err = tc.execute(ctx, tx); err == nil {
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("%w: commit: %w", ErrStoreExecution, cerr)
		}
	}
	panicked = false

	if err != nil {
		return err
	}

	for _, t := range tc.transactions {
		if tbo, ok := t.(*TransactionalBusinessObject); ok {
			tc.count(tbo.Action())
		}
		t.UpdateAsCommitted(ctx)
	}
	tc.committed = true
	db.metrics.CommitSuccess.Inc(1)
	return nil
}

func (tc *TransactionCommitter) count(action Action) {
	switch action {
	case ActionInsert:
		tc.db.metrics.ObjectsInserted.Inc(1)
	case ActionUpdate:
		tc.db.metrics.ObjectsUpdated.Inc(1)
	case ActionDelete:
		tc.db.metrics.ObjectsDeleted.Inc(1)
	}
}

// processDeletes applies the delete action of every relationship of every
// object marked for delete. Objects are processed in addition order, objects
// added by a cascade are processed after the objects already in the batch;
// each object is processed once which ends cycles.
func (tc *TransactionCommitter) processDeletes(ctx context.Context) error {
	for idx := 0; idx < len(tc.transactions); idx++ {
		t, ok := tc.transactions[idx].(*TransactionalBusinessObject)
		if !ok || t.deleteProcessed || t.Action() != ActionDelete {
			continue
		}
		t.deleteProcessed = true

		for _, rel := range t.bo.classDef.AllRelationships() {
			if rel.DeleteAction == schema.DoNothing {
				continue
			}

			related, err := tc.db.loader.GetRelatedBusinessObjectCollection(ctx, t.bo, rel.Name)
			if err != nil {
				return err
			}

			switch rel.DeleteAction {
			case schema.PreventDelete:
				for _, r := range related {
					if !r.status.IsDeleted {
						return fmt.Errorf("%w: %v has related %v through %v", ErrDeletePrevented, t.bo, r, rel.Name)
					}
				}
			case schema.DeleteRelated:
				for _, r := range related {
					if r.status.IsDeleted {
						continue
					}
					tc.add(r).takeSnapshot()
					if err := r.MarkForDelete(ctx); err != nil {
						return err
					}
				}
			case schema.DereferenceRelated:
				for _, r := range related {
					if r.status.IsDeleted {
						continue
					}
					tc.add(r).takeSnapshot()
					for _, key := range rel.Keys {
						if err := r.SetPropertyValueContext(ctx, key.RelatedProp, nil); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	return nil
}

func (tc *TransactionCommitter) validate() error {
	var result *multierror.Error
	for _, t := range tc.businessObjects() {
		switch t.Action() {
		case ActionInsert, ActionUpdate:
			if err := t.bo.IsValid(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

func (tc *TransactionCommitter) checkConcurrency(ctx context.Context) error {
	for _, t := range tc.businessObjects() {
		if t.Action() == ActionNone {
			continue
		}
		if err := t.bo.concurrency.CheckConcurrencyBeforeCommitting(ctx); err != nil {
			return err
		}
	}
	return nil
}

// checkIdentities fails before anything is written when a new or changed
// identity is already mapped to another live instance
func (tc *TransactionCommitter) checkIdentities() error {
	for _, t := range tc.businessObjects() {
		switch t.Action() {
		case ActionInsert:
			if hasValues(t.bo.PrimaryKeyValues()) {
				if err := tc.db.BusinessObjectManager.canAdd(t.bo.ID(), t.bo); err != nil {
					return err
				}
			}
		case ActionUpdate:
			if id := t.bo.ID(); id != t.persistedID {
				if err := tc.db.BusinessObjectManager.canAdd(id, t.bo); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func hasValues(values []interface{}) bool {
	for _, v := range values {
		if v == nil {
			return false
		}
	}
	return true
}

// execute generates and runs the statements of every transactional on conn
func (tc *TransactionCommitter) execute(ctx context.Context, conn ConnPool) error {
	db := tc.db
	for _, t := range tc.transactions {
		stmts, err := t.PersistSQL(ctx, db)
		if err != nil {
			return tc.commitError(t, err)
		}

		tbo, _ := t.(*TransactionalBusinessObject)
		op := logger.Operation{Action: "sql"}
		if tbo != nil {
			op = logger.Operation{Class: tbo.bo.classDef.ClassName, Action: tbo.Action().String(), ID: tbo.bo.ID()}
		}
		stmtCtx := logger.WithOperation(ctx, op)

		for _, stmt := range stmts {
			vars := stmt.Vars
			if tbo != nil {
				vars = tbo.resolveVars(stmt)
			}

			result, err := db.exec(stmtCtx, conn, stmt, vars)
			if err != nil {
				return tc.commitError(t, err)
			}

			if stmt.ExpectRowsAffected > 0 && result.RowsAffected != stmt.ExpectRowsAffected && tbo != nil {
				db.metrics.ConcurrencyConflict.Inc(1)
				return tc.commitError(t, &ConcurrencyError{
					ClassName: tbo.bo.classDef.ClassName,
					ID:        tbo.persistedID,
					Operation: tbo.Action().String(),
					Err:       ErrSaveConcurrency,
				})
			}

			if tbo != nil && stmt.AutoIncrement != nil && result.GeneratedKey != nil {
				if err := tbo.setGeneratedKey(stmt, result.GeneratedKey); err != nil {
					return tc.commitError(t, err)
				}
			}
		}
	}
	return nil
}

func (tc *TransactionCommitter) commitError(t Transactional, err error) error {
	tbo, ok := t.(*TransactionalBusinessObject)
	if !ok {
		return fmt.Errorf("transaction %v: %w", t.TransactionID(), err)
	}

	bo := tbo.bo
	var dup errtranslator.ErrDuplicatedKey
	if errors.As(err, &dup) {
		err = &DuplicateKeyError{ClassName: bo.classDef.ClassName, ID: bo.ID(), PropNames: violatedPropNames(bo.classDef, dup.Columns), Err: err}
	}
	return &CommitError{ClassName: bo.classDef.ClassName, ID: bo.ID(), Action: tbo.Action(), Err: err}
}

// violatedPropNames properties stored in the columns a driver reported as
// violated, every unique key of cd when the columns are unknown
func violatedPropNames(cd *schema.ClassDef, columns []string) []string {
	var names []string
	for _, column := range columns {
		if prop := propForColumn(cd, column); prop != nil {
			names = append(names, prop.Name)
		}
	}
	if len(names) > 0 {
		return names
	}
	return uniquePropNames(cd)
}

func propForColumn(cd *schema.ClassDef, column string) *schema.PropDef {
	levels, err := cd.TableLevels()
	if err != nil {
		return nil
	}
	for _, level := range levels {
		for _, key := range level.KeyColumns {
			if strings.EqualFold(key.Column, column) {
				return key.Prop
			}
		}
		for _, prop := range level.Props {
			if strings.EqualFold(prop.ColumnName, column) {
				return prop
			}
		}
	}
	return nil
}

// uniquePropNames properties of the unique keys of cd, the primary key when there are none
func uniquePropNames(cd *schema.ClassDef) []string {
	var names []string
	for _, key := range cd.AllKeyDefs() {
		names = append(names, key.PropNames...)
	}
	if len(names) == 0 {
		for _, prop := range cd.PrimaryKeyProps() {
			names = append(names, prop.Name)
		}
	}
	return names
}
