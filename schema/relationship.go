package schema

// DeleteAction what happens to related objects when the owner is deleted
type DeleteAction int

const (
	// DoNothing leaves related objects untouched
	DoNothing DeleteAction = iota
	// DeleteRelated cascades the delete to related objects
	DeleteRelated
	// DereferenceRelated clears the related objects' foreign key properties
	DereferenceRelated
	// PreventDelete refuses the delete while related objects exist
	PreventDelete
)

func (a DeleteAction) String() string {
	switch a {
	case DeleteRelated:
		return "DeleteRelated"
	case DereferenceRelated:
		return "DereferenceRelated"
	case PreventDelete:
		return "PreventDelete"
	default:
		return "DoNothing"
	}
}

// RelKey pairs an owner property with the related class property holding the same value
type RelKey struct {
	OwnerProp   string
	RelatedProp string
}

// RelationshipDef relates a class to the objects of RelatedClass whose RelatedProp values
// equal the owner's OwnerProp values
type RelationshipDef struct {
	Name         string
	RelatedClass *ClassDef
	Keys         []RelKey
	DeleteAction DeleteAction
	// Multiple one-to-many when true, otherwise single
	Multiple bool
}

func (rel *RelationshipDef) validate(owner *ClassDef) error {
	if rel.Name == "" {
		return owner.invalid("relationship name required")
	}
	if rel.RelatedClass == nil {
		return owner.invalid("relationship %v has no related class", rel.Name)
	}
	if len(rel.Keys) == 0 {
		return owner.invalid("relationship %v has no keys", rel.Name)
	}

	for _, key := range rel.Keys {
		if owner.PropDef(key.OwnerProp) == nil {
			return owner.invalid("relationship %v owner property %v is not declared", rel.Name, key.OwnerProp)
		}
		if rel.RelatedClass.PropDef(key.RelatedProp) == nil {
			return owner.invalid("relationship %v related property %v.%v is not declared", rel.Name, rel.RelatedClass.ClassName, key.RelatedProp)
		}
	}
	return nil
}
