package schema

import (
	"fmt"
	"sync"
)

// Registry holds the class definitions of an application and links every
// super class to its registered subclasses
type Registry struct {
	mu      sync.RWMutex
	namer   Namer
	classes map[string]*ClassDef
	order   []*ClassDef
}

// NewRegistry creates a registry, namer defaults to NamingStrategy{}
func NewRegistry(namer Namer) *Registry {
	if namer == nil {
		namer = NamingStrategy{}
	}
	return &Registry{namer: namer, classes: map[string]*ClassDef{}}
}

// Namer naming strategy used for default table and column names
func (r *Registry) Namer() Namer {
	return r.namer
}

// Add registers class definitions; super classes and related classes that are
// not registered yet are added too
func (r *Registry) Add(cds ...*ClassDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cd := range cds {
		if err := r.add(cd, map[*ClassDef]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) add(cd *ClassDef, visiting map[*ClassDef]bool) error {
	if cd == nil {
		return fmt.Errorf("%w: nil class definition", ErrInvalidDefinition)
	}
	if cd.initialized {
		if registered, ok := r.classes[cd.ClassName]; ok && registered == cd {
			return nil
		}
	}
	if visiting[cd] {
		return cd.invalid("inheritance cycle")
	}
	visiting[cd] = true

	if cd.ClassName == "" {
		return fmt.Errorf("%w: class name required", ErrInvalidDefinition)
	}
	if registered, ok := r.classes[cd.ClassName]; ok && registered != cd {
		return cd.invalid("class registered twice")
	}

	if sup := cd.SuperClassDef(); sup != nil {
		if err := r.add(sup, visiting); err != nil {
			return err
		}
	}

	if cd.TableName == "" {
		cd.TableName = r.namer.TableName(cd.ClassName)
	}
	for _, prop := range cd.PropDefs {
		if prop.ColumnName == "" {
			prop.ColumnName = r.namer.ColumnName(cd.TableName, prop.Name)
		}
		prop.classDef = cd
	}

	if err := cd.Validate(); err != nil {
		return err
	}

	r.classes[cd.ClassName] = cd
	r.order = append(r.order, cd)
	if !cd.initialized {
		cd.initialized = true
		if sup := cd.SuperClassDef(); sup != nil {
			sup.subClasses = append(sup.subClasses, cd)
		}
	}

	// related classes may point back at cd, which is registered by now
	for _, rel := range cd.Relationships {
		if rel.RelatedClass != nil && !rel.RelatedClass.initialized {
			if err := r.add(rel.RelatedClass, map[*ClassDef]bool{}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Get finds a class definition by class name
func (r *Registry) Get(className string) (*ClassDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cd, ok := r.classes[className]
	return cd, ok
}

// ClassDefs registered class definitions in registration order
func (r *Registry) ClassDefs() []*ClassDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*ClassDef(nil), r.order...)
}

// Initialized reports whether the class has been added to a registry
func (cd *ClassDef) Initialized() bool {
	return cd.initialized
}
