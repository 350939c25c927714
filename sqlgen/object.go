package sqlgen

import (
	"github.com/habanero-go/habanero/clause"
	"github.com/habanero-go/habanero/schema"
)

// Object what the generators read from a business object
type Object interface {
	ClassDef() *schema.ClassDef
	// Value current value of a property
	Value(prop string) interface{}
	// PersistedValue value as last read from or written to the store
	PersistedValue(prop string) interface{}
	IsDirty(prop string) bool
}

// KeyCriteria primary key properties equal to values, in key order
func KeyCriteria(cd *schema.ClassDef, values ...interface{}) clause.Expression {
	var exprs []clause.Expression
	for idx, prop := range cd.PrimaryKeyProps() {
		var value interface{}
		if idx < len(values) {
			value = values[idx]
		}
		exprs = append(exprs, clause.Eq{Column: clause.Column{Name: prop.Name}, Value: value})
	}
	return clause.And(exprs...)
}

// ObjectKeyCriteria criteria selecting the stored row of obj
func ObjectKeyCriteria(obj Object) clause.Expression {
	cd := obj.ClassDef()
	values := make([]interface{}, 0, len(cd.PrimaryKeyProps()))
	for _, prop := range cd.PrimaryKeyProps() {
		values = append(values, obj.PersistedValue(prop.Name))
	}
	return KeyCriteria(cd, values...)
}

func levelKeyCriteria(level *schema.TableLevel, obj Object) []clause.Expression {
	exprs := make([]clause.Expression, 0, len(level.KeyColumns))
	for _, key := range level.KeyColumns {
		exprs = append(exprs, clause.Eq{
			Column: clause.Column{Table: level.Table, Name: key.Column},
			Value:  obj.PersistedValue(key.Prop.Name),
		})
	}
	return exprs
}

// versionCriteria optimistic version condition for the level storing the version property
func versionCriteria(level *schema.TableLevel, obj Object) clause.Expression {
	cc := obj.ClassDef().ConcurrencyDef()
	if cc.Kind != schema.OptimisticVersion || cc.VersionProp == "" {
		return nil
	}

	for _, prop := range level.Props {
		if prop.Name == cc.VersionProp {
			return clause.Eq{
				Column: clause.Column{Table: level.Table, Name: prop.ColumnName},
				Value:  obj.PersistedValue(prop.Name),
			}
		}
	}
	return nil
}
