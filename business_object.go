package habanero

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/habanero-go/habanero/schema"
	"github.com/habanero-go/habanero/utils"
)

// BOStatus lifecycle flags of a business object
type BOStatus struct {
	IsNew     bool
	IsDirty   bool
	IsDeleted bool
	IsEditing bool
}

// BOProp property value of a business object, tracks the last persisted value
type BOProp struct {
	def       *schema.PropDef
	value     interface{}
	persisted interface{}
	dirty     bool
}

func (p *BOProp) Name() string {
	return p.def.Name
}

func (p *BOProp) PropDef() *schema.PropDef {
	return p.def
}

func (p *BOProp) Value() interface{} {
	return p.value
}

// PersistedValue value as last read from or written to the store
func (p *BOProp) PersistedValue() interface{} {
	return p.persisted
}

func (p *BOProp) IsDirty() bool {
	return p.dirty
}

func (p *BOProp) DisplayName() string {
	return p.def.DisplayName()
}

func (p *BOProp) initialise(value interface{}) {
	p.value, p.persisted, p.dirty = value, value, false
}

func (p *BOProp) setValue(value interface{}) bool {
	if valuesEqual(p.value, value) {
		return false
	}
	p.value = value
	p.dirty = !valuesEqual(p.persisted, value)
	return true
}

func (p *BOProp) persist() {
	p.persisted, p.dirty = p.value, false
}

func (p *BOProp) restore() {
	p.value, p.dirty = p.persisted, false
}

func valuesEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Equal(bv)
		}
	case []byte:
		if bv, ok := b.([]byte); ok {
			return bytes.Equal(av, bv)
		}
	}
	return utils.AssertEqual(a, b)
}

// BOPropCol ordered property collection, ancestors' properties first
type BOPropCol struct {
	props []*BOProp
	index map[string]*BOProp
}

func newBOPropCol(cd *schema.ClassDef) *BOPropCol {
	col := &BOPropCol{index: map[string]*BOProp{}}
	for _, def := range cd.AllPropDefs() {
		prop := &BOProp{def: def}
		col.props = append(col.props, prop)
		col.index[def.Name] = prop
	}
	return col
}

// Get finds a property by name
func (c *BOPropCol) Get(name string) (*BOProp, bool) {
	prop, ok := c.index[name]
	return prop, ok
}

// All properties in definition order
func (c *BOPropCol) All() []*BOProp {
	return c.props
}

func (c *BOPropCol) Len() int {
	return len(c.props)
}

// Dirty properties changed since they were persisted
func (c *BOPropCol) Dirty() []*BOProp {
	var dirty []*BOProp
	for _, prop := range c.props {
		if prop.dirty {
			dirty = append(dirty, prop)
		}
	}
	return dirty
}

// BusinessObject a record of a class definition with dirty tracking and lifecycle status
type BusinessObject struct {
	classDef    *schema.ClassDef
	props       *BOPropCol
	status      BOStatus
	concurrency ConcurrencyControl
	db          *DB
}

// NewBusinessObject creates a new object of cd with default values; a UUID
// primary key gets a random value
func (db *DB) NewBusinessObject(cd *schema.ClassDef) (*BusinessObject, error) {
	if !cd.Initialized() {
		if err := db.Register(cd); err != nil {
			return nil, err
		}
	}

	bo := db.newBusinessObject(cd)
	bo.status.IsNew = true

	for _, prop := range bo.props.props {
		if prop.def.Default == nil {
			continue
		}
		value, err := prop.def.Convert(prop.def.Default)
		if err != nil {
			return nil, err
		}
		prop.initialise(value)
	}

	for _, prop := range cd.PrimaryKeyProps() {
		if prop.DataType == schema.UUID {
			bo.props.index[prop.Name].initialise(uuid.New())
		}
	}

	if err := bo.setDiscriminators(); err != nil {
		return nil, err
	}
	return bo, nil
}

func (db *DB) newBusinessObject(cd *schema.ClassDef) *BusinessObject {
	bo := &BusinessObject{classDef: cd, props: newBOPropCol(cd), db: db}
	bo.concurrency = newConcurrencyControl(bo)
	return bo
}

// setDiscriminators stores the type discriminator in properties mapped to discriminator columns
func (bo *BusinessObject) setDiscriminators() error {
	levels, err := bo.classDef.TableLevels()
	if err != nil {
		return err
	}

	for _, level := range levels {
		for _, column := range level.Discriminators {
			for _, prop := range level.Props {
				if prop.ColumnName == column {
					bo.props.index[prop.Name].initialise(bo.classDef.TypeDiscriminator())
				}
			}
		}
	}
	return nil
}

// syncMirroredKeys copies the primary key into subclass properties that mirror it
func (bo *BusinessObject) syncMirroredKeys() {
	levels, err := bo.classDef.TableLevels()
	if err != nil {
		return
	}

	pk := bo.classDef.PrimaryKeyProps()
	for _, level := range levels {
		if level.IDProp != nil && len(pk) == 1 {
			if prop, ok := bo.props.Get(level.IDProp.Name); ok {
				prop.setValue(bo.Value(pk[0].Name))
			}
		}
	}
}

func (bo *BusinessObject) ClassDef() *schema.ClassDef {
	return bo.classDef
}

func (bo *BusinessObject) Status() BOStatus {
	return bo.status
}

func (bo *BusinessObject) Props() *BOPropCol {
	return bo.props
}

// ConcurrencyControl strategy configured by the class definition
func (bo *BusinessObject) ConcurrencyControl() ConcurrencyControl {
	return bo.concurrency
}

// ID identity string built from the current primary key values, e.g. "ABC123"
func (bo *BusinessObject) ID() string {
	return utils.ToStringKey(bo.PrimaryKeyValues()...)
}

// PersistedID identity of the stored row, differs from ID while a key change is pending
func (bo *BusinessObject) PersistedID() string {
	pk := bo.classDef.PrimaryKeyProps()
	values := make([]interface{}, 0, len(pk))
	for _, prop := range pk {
		values = append(values, bo.PersistedValue(prop.Name))
	}
	return utils.ToStringKey(values...)
}

// identity the key the object is mapped under
func (bo *BusinessObject) identity() string {
	if bo.status.IsNew {
		return bo.ID()
	}
	return bo.PersistedID()
}

// PrimaryKeyValues current primary key values in key order
func (bo *BusinessObject) PrimaryKeyValues() []interface{} {
	pk := bo.classDef.PrimaryKeyProps()
	values := make([]interface{}, 0, len(pk))
	for _, prop := range pk {
		values = append(values, bo.Value(prop.Name))
	}
	return values
}

func (bo *BusinessObject) String() string {
	return fmt.Sprintf("%v(%v)", bo.classDef.ClassName, bo.ID())
}

// Value current value of a property, nil for unknown properties
func (bo *BusinessObject) Value(name string) interface{} {
	if prop, ok := bo.props.index[name]; ok {
		return prop.value
	}
	return nil
}

// PersistedValue last persisted value of a property
func (bo *BusinessObject) PersistedValue(name string) interface{} {
	if prop, ok := bo.props.index[name]; ok {
		return prop.persisted
	}
	return nil
}

// IsDirty reports whether the property changed since it was persisted
func (bo *BusinessObject) IsDirty(name string) bool {
	if prop, ok := bo.props.index[name]; ok {
		return prop.dirty
	}
	return false
}

// GetPropertyValue value of a declared property
func (bo *BusinessObject) GetPropertyValue(name string) (interface{}, error) {
	prop, ok := bo.props.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %v.%v", ErrUnknownProperty, bo.classDef.ClassName, name)
	}
	return prop.value, nil
}

// SetPropertyValue see SetPropertyValueContext
func (bo *BusinessObject) SetPropertyValue(name string, value interface{}) error {
	return bo.SetPropertyValueContext(context.Background(), name, value)
}

// SetPropertyValueContext converts and sets a property value. The first change
// of a persisted object begins editing, which runs the begin edit concurrency check.
func (bo *BusinessObject) SetPropertyValueContext(ctx context.Context, name string, value interface{}) error {
	prop, ok := bo.props.index[name]
	if !ok {
		return fmt.Errorf("%w: %v.%v", ErrUnknownProperty, bo.classDef.ClassName, name)
	}

	converted, err := prop.def.Convert(value)
	if err != nil {
		return err
	}

	if valuesEqual(prop.value, converted) {
		return nil
	}

	if prop.def.ReadOnly && !bo.status.IsNew {
		return fmt.Errorf("%w: %v", ErrReadOnlyProperty, prop.def)
	}

	if err := bo.BeginEdit(ctx); err != nil {
		return err
	}

	prop.setValue(converted)
	bo.status.IsDirty = true
	return nil
}

// BeginEdit runs the begin edit concurrency check once per edit
func (bo *BusinessObject) BeginEdit(ctx context.Context) error {
	if bo.status.IsEditing {
		return nil
	}
	if err := bo.concurrency.CheckConcurrencyBeforeBeginEditing(ctx); err != nil {
		return err
	}
	bo.status.IsEditing = true
	return nil
}

// MarkForDelete flags the object for deletion by the next commit
func (bo *BusinessObject) MarkForDelete(ctx context.Context) error {
	if err := bo.BeginEdit(ctx); err != nil {
		return err
	}
	bo.status.IsDeleted = true
	bo.status.IsDirty = true
	return nil
}

// CancelEdits restores persisted values and releases write locks
func (bo *BusinessObject) CancelEdits(ctx context.Context) error {
	for _, prop := range bo.props.props {
		prop.restore()
	}
	bo.status.IsDirty = false
	bo.status.IsEditing = false
	if !bo.status.IsNew {
		bo.status.IsDeleted = false
	}
	return bo.concurrency.ReleaseWriteLocks(ctx)
}

// IsValid checks compulsory properties, every failure is reported
func (bo *BusinessObject) IsValid() error {
	var result *multierror.Error
	for _, prop := range bo.props.props {
		if !prop.def.Compulsory || prop.value != nil {
			continue
		}
		if prop.def.AutoIncrement && bo.status.IsNew {
			continue
		}
		result = multierror.Append(result, fmt.Errorf("%v is compulsory", prop.def.DisplayName()))
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v: %w", ErrBusinessObjectInvalid, bo, err)
	}
	return nil
}

// loadValues sets values read from the store as persisted values
func (bo *BusinessObject) loadValues(values map[string]interface{}) {
	for name, value := range values {
		if prop, ok := bo.props.index[name]; ok {
			prop.initialise(value)
		}
	}
}

// refreshValues overwrites properties that are not dirty with stored values
func (bo *BusinessObject) refreshValues(values map[string]interface{}) {
	for name, value := range values {
		if prop, ok := bo.props.index[name]; ok && !prop.dirty {
			prop.initialise(value)
		}
	}
}

// setPersisted records a value as both current and persisted, used for values
// written directly by concurrency control
func (bo *BusinessObject) setPersisted(name string, value interface{}) {
	if prop, ok := bo.props.index[name]; ok {
		prop.initialise(value)
	}
}

type boSnapshot struct {
	status    BOStatus
	values    []interface{}
	persisted []interface{}
	dirty     []bool
}

func (bo *BusinessObject) snapshot() *boSnapshot {
	s := &boSnapshot{status: bo.status}
	for _, prop := range bo.props.props {
		s.values = append(s.values, prop.value)
		s.persisted = append(s.persisted, prop.persisted)
		s.dirty = append(s.dirty, prop.dirty)
	}
	return s
}

func (bo *BusinessObject) restore(s *boSnapshot) {
	bo.status = s.status
	for idx, prop := range bo.props.props {
		prop.value, prop.persisted, prop.dirty = s.values[idx], s.persisted[idx], s.dirty[idx]
	}
}
