package habanero

import (
	"errors"

	"github.com/habanero-go/habanero/identitymap"
	"github.com/habanero-go/habanero/schema"
)

// BusinessObjectManager identity map of loaded and saved business objects:
// at most one live instance per identity. Identities are scoped by the root
// class of the hierarchy, unrelated classes may share key values.
// Objects are held weakly, an object the application no longer references
// drops out of the map.
type BusinessObjectManager struct {
	objects *identitymap.Map[BusinessObject]
	metrics *Metrics
}

// NewBusinessObjectManager creates an empty manager, metrics may be nil
func NewBusinessObjectManager(metrics *Metrics) *BusinessObjectManager {
	return &BusinessObjectManager{objects: identitymap.New[BusinessObject](), metrics: metrics}
}

// Add maps the object under its identity
func (m *BusinessObjectManager) Add(bo *BusinessObject) error {
	if err := m.objects.Add(mapKey(bo.classDef, bo.identity()), bo); err != nil {
		return duplicateInstanceError(bo, err)
	}
	return nil
}

func (m *BusinessObjectManager) canAdd(id string, bo *BusinessObject) error {
	if err := m.objects.CanAdd(mapKey(bo.classDef, id), bo); err != nil {
		return duplicateInstanceError(bo, err)
	}
	return nil
}

func duplicateInstanceError(bo *BusinessObject, err error) error {
	return &DeveloperError{
		Message:          "another instance of " + bo.String() + " is already loaded",
		DeveloperMessage: "two objects with the same identity cannot be live at the same time, load the object through the BusinessObjectLoader",
		Err:              err,
	}
}

// mapKey scopes id by the root of cd's hierarchy
func mapKey(cd *schema.ClassDef, id string) string {
	chain := cd.Chain()
	return chain[len(chain)-1].ClassName + "|" + id
}

// Contains reports whether a live object of cd's hierarchy is mapped to id
func (m *BusinessObjectManager) Contains(cd *schema.ClassDef, id string) bool {
	return m.objects.Contains(mapKey(cd, id))
}

// Find live object of cd's hierarchy mapped to id. The object may be of any
// class in the hierarchy, callers check it is a cd.
func (m *BusinessObjectManager) Find(cd *schema.ClassDef, id string) (*BusinessObject, bool) {
	bo, ok := m.objects.Find(mapKey(cd, id))
	if m.metrics != nil {
		if ok {
			m.metrics.IdentityMapHit.Inc(1)
		} else {
			m.metrics.IdentityMapMiss.Inc(1)
		}
	}
	return bo, ok
}

// Lookup live object of cd's hierarchy mapped to id or ErrNotFound
func (m *BusinessObjectManager) Lookup(cd *schema.ClassDef, id string) (*BusinessObject, error) {
	bo, err := m.objects.Lookup(mapKey(cd, id))
	if errors.Is(err, identitymap.ErrNotFound) {
		return nil, ErrNotFound
	}
	return bo, err
}

// Remove removes the object if it is the instance mapped under its identity
func (m *BusinessObjectManager) Remove(bo *BusinessObject) {
	m.removeObject(bo.identity(), bo)
}

func (m *BusinessObjectManager) removeObject(id string, bo *BusinessObject) {
	m.objects.RemoveObject(mapKey(bo.classDef, id), bo)
}

// RemoveID removes whatever of cd's hierarchy is mapped to id
func (m *BusinessObjectManager) RemoveID(cd *schema.ClassDef, id string) {
	m.objects.Remove(mapKey(cd, id))
}

func (m *BusinessObjectManager) replace(oldID, newID string, bo *BusinessObject) error {
	if err := m.objects.Replace(mapKey(bo.classDef, oldID), mapKey(bo.classDef, newID), bo); err != nil {
		return duplicateInstanceError(bo, err)
	}
	return nil
}

// ClearAll forgets every mapped object
func (m *BusinessObjectManager) ClearAll() {
	m.objects.ClearAll()
}

// Count live objects
func (m *BusinessObjectManager) Count() int {
	return m.objects.Len()
}
