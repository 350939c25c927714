package habanero

import (
	"context"
	"fmt"

	"github.com/habanero-go/habanero/clause"
	"github.com/habanero-go/habanero/logger"
	"github.com/habanero-go/habanero/schema"
	"github.com/habanero-go/habanero/sqlgen"
	"github.com/habanero-go/habanero/utils"
)

// BusinessObjectLoader loads business objects through the identity map:
// an object already loaded is returned as is, otherwise it is read from the store
type BusinessObjectLoader struct {
	db *DB
}

// loadedRow values of one result row, keyed by property name
type loadedRow struct {
	values         map[string]interface{}
	discriminators []string
}

// GetBusinessObject loads the object whose primary key properties equal pk
func (l *BusinessObjectLoader) GetBusinessObject(ctx context.Context, cd *schema.ClassDef, pk map[string]interface{}) (*BusinessObject, error) {
	if err := l.register(cd); err != nil {
		return nil, err
	}

	keyProps := cd.PrimaryKeyProps()
	values := make([]interface{}, 0, len(keyProps))
	for _, prop := range keyProps {
		value, ok := pk[prop.Name]
		if !ok {
			return nil, fmt.Errorf("%w: primary key %v missing", ErrUnknownProperty, prop)
		}
		values = append(values, value)
	}
	return l.GetBusinessObjectByID(ctx, cd, values...)
}

// GetBusinessObjectByID loads the object whose primary key values are values, in key order
func (l *BusinessObjectLoader) GetBusinessObjectByID(ctx context.Context, cd *schema.ClassDef, values ...interface{}) (*BusinessObject, error) {
	if err := l.register(cd); err != nil {
		return nil, err
	}

	keyProps := cd.PrimaryKeyProps()
	if len(values) != len(keyProps) {
		return nil, fmt.Errorf("%w: %v has %d primary key properties, got %d values", ErrInvalidValue, cd.ClassName, len(keyProps), len(values))
	}

	for idx, prop := range keyProps {
		converted, err := prop.Convert(values[idx])
		if err != nil {
			return nil, err
		}
		values[idx] = converted
	}

	id := utils.ToStringKey(values...)
	if bo, ok := l.db.BusinessObjectManager.Find(cd, id); ok && isA(bo.classDef, cd) {
		return bo, nil
	}

	objects, err := l.load(ctx, cd, sqlgen.KeyCriteria(cd, values...))
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("%w: %v %q", ErrNotFound, cd.ClassName, id)
	}
	return objects[0], nil
}

// GetBusinessObjectCollection loads every object of cd, subclasses included,
// matching criteria. orderBy entries are property names optionally followed by "desc".
func (l *BusinessObjectLoader) GetBusinessObjectCollection(ctx context.Context, cd *schema.ClassDef, criteria clause.Expression, orderBy ...string) ([]*BusinessObject, error) {
	if err := l.register(cd); err != nil {
		return nil, err
	}

	orders := make([]clause.OrderByColumn, 0, len(orderBy))
	for _, spec := range orderBy {
		orders = append(orders, clause.OrderBy(spec))
	}
	return l.load(ctx, cd, criteria, orders...)
}

// GetRelatedBusinessObjectCollection loads the objects related to bo through the named relationship
func (l *BusinessObjectLoader) GetRelatedBusinessObjectCollection(ctx context.Context, bo *BusinessObject, relName string) ([]*BusinessObject, error) {
	rel := bo.classDef.Relationship(relName)
	if rel == nil {
		return nil, fmt.Errorf("%w: relationship %v.%v", ErrUnknownProperty, bo.classDef.ClassName, relName)
	}
	return l.GetBusinessObjectCollection(ctx, rel.RelatedClass, relatedCriteria(bo, rel))
}

func relatedCriteria(bo *BusinessObject, rel *schema.RelationshipDef) clause.Expression {
	exprs := make([]clause.Expression, 0, len(rel.Keys))
	for _, key := range rel.Keys {
		exprs = append(exprs, clause.Eq{Column: clause.Column{Name: key.RelatedProp}, Value: bo.Value(key.OwnerProp)})
	}
	return clause.And(exprs...)
}

// Refresh reloads the stored values of bo into properties that are not dirty
func (l *BusinessObjectLoader) Refresh(ctx context.Context, bo *BusinessObject) error {
	if bo.status.IsNew {
		return nil
	}

	values, err := l.storedValues(ctx, bo)
	if err != nil {
		return err
	}
	bo.refreshValues(values)
	return nil
}

// storedValues reads the stored row of bo without touching bo or the identity map
func (l *BusinessObjectLoader) storedValues(ctx context.Context, bo *BusinessObject) (map[string]interface{}, error) {
	rows, err := l.query(ctx, bo.classDef, sqlgen.ObjectKeyCriteria(bo))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %v %q", ErrNotFound, bo.classDef.ClassName, bo.PersistedID())
	}
	return rows[0].values, nil
}

func (l *BusinessObjectLoader) register(cd *schema.ClassDef) error {
	if cd.Initialized() {
		return nil
	}
	return l.db.Register(cd)
}

func (l *BusinessObjectLoader) load(ctx context.Context, cd *schema.ClassDef, criteria clause.Expression, orderBy ...clause.OrderByColumn) ([]*BusinessObject, error) {
	rows, err := l.query(ctx, cd, criteria, orderBy...)
	if err != nil {
		return nil, err
	}

	objects := make([]*BusinessObject, 0, len(rows))
	for _, row := range rows {
		bo, err := l.materialise(ctx, cd, row)
		if err != nil {
			return nil, err
		}
		objects = append(objects, bo)
	}
	return objects, nil
}

// query reads every result row before returning so that no result set is open
// while subclass rows are reloaded
func (l *BusinessObjectLoader) query(ctx context.Context, cd *schema.ClassDef, criteria clause.Expression, orderBy ...clause.OrderByColumn) ([]loadedRow, error) {
	query, err := sqlgen.NewSelectGenerator(l.db.Dialect).Select(cd, criteria, orderBy...)
	if err != nil {
		return nil, err
	}

	if _, ok := logger.OperationFrom(ctx); !ok {
		ctx = logger.WithOperation(ctx, logger.Operation{Class: cd.ClassName, Action: "load"})
	}
	rows, err := l.db.query(ctx, query.Statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []loadedRow
	for rows.Next() {
		raw := make([]interface{}, len(query.Columns))
		dest := make([]interface{}, len(query.Columns))
		for idx := range raw {
			dest[idx] = &raw[idx]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreExecution, err)
		}

		row := loadedRow{values: map[string]interface{}{}}
		for idx, column := range query.Columns {
			if column.Discriminator && raw[idx] != nil {
				row.discriminators = append(row.discriminators, utils.ToStringKey(raw[idx]))
			}
			if column.Prop == nil {
				continue
			}

			value, err := column.Prop.Convert(raw[idx])
			if err != nil {
				return nil, err
			}
			row.values[column.Prop.Name] = value
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreExecution, err)
	}
	return results, nil
}

// materialise returns the mapped instance of the row's identity or maps a new one.
// A row whose discriminator names a subclass of cd is reloaded as that subclass.
func (l *BusinessObjectLoader) materialise(ctx context.Context, cd *schema.ClassDef, row loadedRow) (*BusinessObject, error) {
	keyProps := cd.PrimaryKeyProps()
	pk := make([]interface{}, 0, len(keyProps))
	for _, prop := range keyProps {
		pk = append(pk, row.values[prop.Name])
	}

	if sub := subClassFor(cd, row.discriminators); sub != nil {
		return l.GetBusinessObjectByID(ctx, sub, pk...)
	}

	id := utils.ToStringKey(pk...)
	if bo, ok := l.db.BusinessObjectManager.Find(cd, id); ok {
		if !isA(bo.classDef, cd) {
			return nil, fmt.Errorf("%w: %v %q is loaded as %v", ErrDuplicateInstance, cd.ClassName, id, bo.classDef.ClassName)
		}
		return bo, nil
	}

	bo := l.db.newBusinessObject(cd)
	bo.loadValues(row.values)
	if err := l.db.BusinessObjectManager.Add(bo); err != nil {
		return nil, err
	}
	return bo, nil
}

// subClassFor the most-derived subclass of cd named by a discriminator value
func subClassFor(cd *schema.ClassDef, discriminators []string) *schema.ClassDef {
	var found *schema.ClassDef
	for _, sub := range cd.AllSubClasses() {
		for _, value := range discriminators {
			if sub.TypeDiscriminator() == value && (found == nil || sub.IsSubClassOf(found)) {
				found = sub
			}
		}
	}
	return found
}

// isA reports whether objects of class cd are also of class target
func isA(cd, target *schema.ClassDef) bool {
	return cd == target || cd.IsSubClassOf(target)
}
