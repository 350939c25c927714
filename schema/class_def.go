package schema

import (
	"fmt"
	"time"
)

// ORMapping how a class is mapped onto tables relative to its super class
type ORMapping int

const (
	// ClassTableInheritance every class level has its own table joined on the shared key
	ClassTableInheritance ORMapping = iota
	// SingleTableInheritance the subclass shares the super class table, rows told apart by a discriminator column
	SingleTableInheritance
	// ConcreteTableInheritance the subclass table holds every inherited column, no join at runtime
	ConcreteTableInheritance
)

func (m ORMapping) String() string {
	switch m {
	case SingleTableInheritance:
		return "SingleTableInheritance"
	case ConcreteTableInheritance:
		return "ConcreteTableInheritance"
	default:
		return "ClassTableInheritance"
	}
}

// SuperClassDef links a class to its super class
type SuperClassDef struct {
	Class     *ClassDef
	ORMapping ORMapping
	// Discriminator column, or property, holding the concrete class of a row; required for single table inheritance
	Discriminator string
	// ID names a subclass property whose column joins to the super class key, class table inheritance only
	ID string
}

// PrimaryKeyDef property names forming the object identity, in identity order
type PrimaryKeyDef struct {
	PropNames []string
}

// KeyDef alternate unique key
type KeyDef struct {
	Name         string
	PropNames    []string
	IgnoreIfNull bool
}

// ConcurrencyKind selects the concurrency control strategy of a class
type ConcurrencyKind int

const (
	NoConcurrencyControl ConcurrencyKind = iota
	OptimisticVersion
	PessimisticLock
)

// ConcurrencyDef names the properties used by the concurrency control strategy
type ConcurrencyDef struct {
	Kind ConcurrencyKind

	VersionProp         string
	DateLastUpdatedProp string
	UserLastUpdatedProp string

	LockedProp   string
	LockUserProp string
	LockTimeProp string
	LockDuration time.Duration
}

// PropNames concurrency properties that are configured
func (c ConcurrencyDef) PropNames() []string {
	var names []string
	for _, name := range []string{c.VersionProp, c.DateLastUpdatedProp, c.UserLastUpdatedProp, c.LockedProp, c.LockUserProp, c.LockTimeProp} {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ClassDef describes a business object type and how it maps to tables
type ClassDef struct {
	ClassName string
	// TableName defaults to the naming strategy's name for ClassName
	TableName string
	// DiscriminatorValue written to discriminator columns for rows of this class, defaults to ClassName
	DiscriminatorValue string

	PropDefs      []*PropDef
	PrimaryKey    *PrimaryKeyDef
	Keys          []*KeyDef
	Relationships []*RelationshipDef
	SuperClass    *SuperClassDef
	Concurrency   ConcurrencyDef

	subClasses  []*ClassDef
	initialized bool
}

func (cd *ClassDef) String() string {
	return cd.ClassName
}

// SuperClassDef returns the super class definition or nil
func (cd *ClassDef) SuperClassDef() *ClassDef {
	if cd.SuperClass == nil {
		return nil
	}
	return cd.SuperClass.Class
}

// Chain returns the inheritance chain, most-derived first
func (cd *ClassDef) Chain() []*ClassDef {
	var chain []*ClassDef
	for cur := cd; cur != nil; cur = cur.SuperClassDef() {
		chain = append(chain, cur)
	}
	return chain
}

// IsSubClassOf reports whether other is an ancestor of cd
func (cd *ClassDef) IsSubClassOf(other *ClassDef) bool {
	for cur := cd.SuperClassDef(); cur != nil; cur = cur.SuperClassDef() {
		if cur == other {
			return true
		}
	}
	return false
}

// TypeDiscriminator value identifying rows of this class
func (cd *ClassDef) TypeDiscriminator() string {
	if cd.DiscriminatorValue != "" {
		return cd.DiscriminatorValue
	}
	return cd.ClassName
}

// SubClasses immediate subclasses registered in the same Registry
func (cd *ClassDef) SubClasses() []*ClassDef {
	return cd.subClasses
}

// AllSubClasses every registered descendant, depth first in registration order
func (cd *ClassDef) AllSubClasses() []*ClassDef {
	var result []*ClassDef
	for _, sub := range cd.subClasses {
		result = append(result, sub)
		result = append(result, sub.AllSubClasses()...)
	}
	return result
}

// PrimaryKeyDef own primary key or the nearest ancestor's
func (cd *ClassDef) PrimaryKeyDef() *PrimaryKeyDef {
	for cur := cd; cur != nil; cur = cur.SuperClassDef() {
		if cur.PrimaryKey != nil {
			return cur.PrimaryKey
		}
	}
	return nil
}

// PrimaryKeyProps primary key properties in identity order
func (cd *ClassDef) PrimaryKeyProps() []*PropDef {
	pk := cd.PrimaryKeyDef()
	if pk == nil {
		return nil
	}

	props := make([]*PropDef, 0, len(pk.PropNames))
	for _, name := range pk.PropNames {
		if prop := cd.PropDef(name); prop != nil {
			props = append(props, prop)
		}
	}
	return props
}

// IsPrimaryKey reports whether name is part of the primary key
func (cd *ClassDef) IsPrimaryKey(name string) bool {
	if pk := cd.PrimaryKeyDef(); pk != nil {
		for _, n := range pk.PropNames {
			if n == name {
				return true
			}
		}
	}
	return false
}

// PropDef looks a property up on the class and its ancestors, most-derived first
func (cd *ClassDef) PropDef(name string) *PropDef {
	for cur := cd; cur != nil; cur = cur.SuperClassDef() {
		for _, prop := range cur.PropDefs {
			if prop.Name == name {
				return prop
			}
		}
	}
	return nil
}

// AllPropDefs own and inherited properties, ancestors first; a redeclared property
// keeps its ancestor's position but uses the most-derived definition
func (cd *ClassDef) AllPropDefs() []*PropDef {
	chain := cd.Chain()

	var (
		props []*PropDef
		index = map[string]int{}
	)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, prop := range chain[i].PropDefs {
			if idx, ok := index[prop.Name]; ok {
				props[idx] = prop
				continue
			}
			index[prop.Name] = len(props)
			props = append(props, prop)
		}
	}
	return props
}

// AllKeyDefs own and inherited unique keys
func (cd *ClassDef) AllKeyDefs() []*KeyDef {
	var keys []*KeyDef
	for cur := cd; cur != nil; cur = cur.SuperClassDef() {
		keys = append(keys, cur.Keys...)
	}
	return keys
}

// AllRelationships own and inherited relationships
func (cd *ClassDef) AllRelationships() []*RelationshipDef {
	var rels []*RelationshipDef
	for cur := cd; cur != nil; cur = cur.SuperClassDef() {
		rels = append(rels, cur.Relationships...)
	}
	return rels
}

// Relationship finds a relationship by name
func (cd *ClassDef) Relationship(name string) *RelationshipDef {
	for _, rel := range cd.AllRelationships() {
		if rel.Name == name {
			return rel
		}
	}
	return nil
}

// ConcurrencyDef own concurrency settings or the nearest ancestor's
func (cd *ClassDef) ConcurrencyDef() ConcurrencyDef {
	for cur := cd; cur != nil; cur = cur.SuperClassDef() {
		if cur.Concurrency.Kind != NoConcurrencyControl {
			return cur.Concurrency
		}
	}
	return ConcurrencyDef{}
}

func (cd *ClassDef) invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: class %v: %s", ErrInvalidDefinition, cd.ClassName, fmt.Sprintf(format, args...))
}

// Validate checks the definition and its inheritance chain
func (cd *ClassDef) Validate() error {
	if cd.ClassName == "" {
		return fmt.Errorf("%w: class name required", ErrInvalidDefinition)
	}

	visited := map[*ClassDef]bool{}
	for cur := cd; cur != nil; cur = cur.SuperClassDef() {
		if visited[cur] {
			return cd.invalid("inheritance cycle through %v", cur.ClassName)
		}
		visited[cur] = true
	}

	pk := cd.PrimaryKeyDef()
	if pk == nil || len(pk.PropNames) == 0 {
		return cd.invalid("primary key required")
	}

	names := map[string]bool{}
	for _, prop := range cd.PropDefs {
		if prop.Name == "" {
			return cd.invalid("property name required")
		}
		if names[prop.Name] {
			return cd.invalid("property %v declared twice", prop.Name)
		}
		names[prop.Name] = true
	}

	for _, name := range pk.PropNames {
		if cd.PropDef(name) == nil {
			return cd.invalid("primary key property %v is not declared", name)
		}
	}

	for _, key := range cd.Keys {
		for _, name := range key.PropNames {
			if cd.PropDef(name) == nil {
				return cd.invalid("key %v property %v is not declared", key.Name, name)
			}
		}
	}

	for _, name := range cd.Concurrency.PropNames() {
		if cd.PropDef(name) == nil {
			return cd.invalid("concurrency property %v is not declared", name)
		}
	}

	switch cc := cd.Concurrency; cc.Kind {
	case OptimisticVersion:
		if cc.VersionProp == "" {
			return cd.invalid("optimistic concurrency requires a version property")
		}
	case PessimisticLock:
		if cc.LockUserProp == "" || cc.LockTimeProp == "" {
			return cd.invalid("pessimistic locking requires lock user and lock time properties")
		}
	}

	for _, rel := range cd.Relationships {
		if err := rel.validate(cd); err != nil {
			return err
		}
	}

	if sup := cd.SuperClass; sup != nil {
		if sup.Class == nil {
			return cd.invalid("super class definition without a class")
		}

		switch sup.ORMapping {
		case SingleTableInheritance:
			if sup.Discriminator == "" {
				return cd.invalid("single table inheritance from %v requires a discriminator column", sup.Class.ClassName)
			}
		case ClassTableInheritance:
			if sup.ID != "" {
				if len(pk.PropNames) > 1 {
					return cd.invalid("ID %v is ambiguous for the composite key of %v", sup.ID, sup.Class.ClassName)
				}
				if cd.PropDef(sup.ID) == nil {
					return cd.invalid("ID property %v is not declared", sup.ID)
				}
			}
		}
	}

	return nil
}
