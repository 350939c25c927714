package habanero

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habanero-go/habanero/identitymap"
	"github.com/habanero-go/habanero/logger"
	"github.com/habanero-go/habanero/schema"
)

var (
	// ErrInvalidDefinition class definition that cannot be persisted
	ErrInvalidDefinition = schema.ErrInvalidDefinition
	// ErrDuplicateInstance a second live instance for an identity already mapped
	ErrDuplicateInstance = identitymap.ErrDuplicateInstance
	// ErrNotFound object not found in the identity map or the store
	ErrNotFound = logger.ErrRecordNotFound
	// ErrUnknownProperty property not declared by the class
	ErrUnknownProperty = schema.ErrUnknownProperty
	// ErrInvalidValue value cannot be converted to the property type
	ErrInvalidValue = schema.ErrInvalidValue
	// ErrReadOnlyProperty read only property changed after the object was persisted
	ErrReadOnlyProperty = errors.New("read only property")

	// ErrConcurrency parent of every concurrency control failure
	ErrConcurrency = errors.New("concurrency control")
	// ErrBeginEditConcurrency the stored object changed since it was loaded
	ErrBeginEditConcurrency = fmt.Errorf("%w: begin edit", ErrConcurrency)
	// ErrSaveConcurrency the stored object changed while it was being edited
	ErrSaveConcurrency = fmt.Errorf("%w: save", ErrConcurrency)
	// ErrEditedByAnother the object was saved by another user
	ErrEditedByAnother = fmt.Errorf("%w: edited by another user", ErrSaveConcurrency)
	// ErrDeletedByAnother the object was deleted by another user
	ErrDeletedByAnother = fmt.Errorf("%w: deleted by another user", ErrSaveConcurrency)
	// ErrLockConflict the object is locked by another user
	ErrLockConflict = fmt.Errorf("%w: locked", ErrConcurrency)
	// ErrDuplicateConcurrency a unique key is already used by another object
	ErrDuplicateConcurrency = fmt.Errorf("%w: duplicate key", ErrConcurrency)

	// ErrDeletePrevented a relationship prevents the delete
	ErrDeletePrevented = errors.New("delete prevented by relationship")
	// ErrBusinessObjectInvalid the object failed validation
	ErrBusinessObjectInvalid = errors.New("business object is not valid")
	// ErrTransactionCommitted the committer already committed
	ErrTransactionCommitted = errors.New("transaction already committed")
	// ErrStoreExecution executing a statement failed
	ErrStoreExecution = errors.New("store execution failed")
	// ErrInvalidTransaction the connection cannot begin a transaction
	ErrInvalidTransaction = errors.New("no valid transaction")
)

// DeveloperError a programming or configuration defect, not recoverable by retrying
type DeveloperError struct {
	// Message safe to show to a user
	Message string
	// DeveloperMessage detail for the developer
	DeveloperMessage string
	Err              error
}

func (e *DeveloperError) Error() string {
	return e.Message + ": " + e.DeveloperMessage
}

func (e *DeveloperError) Unwrap() error {
	return e.Err
}

// ConcurrencyError names the object and operation that met a concurrency conflict
type ConcurrencyError struct {
	ClassName string
	ID        string
	Operation string
	// Err ErrBeginEditConcurrency, ErrEditedByAnother, ErrDeletedByAnother or ErrSaveConcurrency
	Err error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("%v %v %q: %v", e.Operation, e.ClassName, e.ID, e.Err)
}

func (e *ConcurrencyError) Unwrap() error {
	return e.Err
}

// LockConflictError the object is locked by another user
type LockConflictError struct {
	ClassName string
	ID        string
	LockedBy  string
	LockedAt  time.Time
	Duration  time.Duration
}

func (e *LockConflictError) Error() string {
	msg := fmt.Sprintf("%v: %v %q is locked", ErrLockConflict, e.ClassName, e.ID)
	if e.LockedBy != "" {
		msg += " by " + e.LockedBy
	}
	return fmt.Sprintf("%s, locks expire after %v", msg, e.Duration)
}

func (e *LockConflictError) Unwrap() error {
	return ErrLockConflict
}

// DuplicateKeyError a unique key of the object is already used by another stored object
type DuplicateKeyError struct {
	ClassName string
	ID        string
	// PropNames properties of the violated unique keys
	PropNames []string
	Err       error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%v: %v %q, %v already exists", ErrDuplicateConcurrency, e.ClassName, e.ID, strings.Join(e.PropNames, ", "))
}

func (e *DuplicateKeyError) Unwrap() []error {
	return []error{ErrDuplicateConcurrency, e.Err}
}

// CommitError failure while committing one object, Err keeps the cause
type CommitError struct {
	ClassName string
	ID        string
	Action    Action
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %v %v %q: %v", e.Action, e.ClassName, e.ID, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
