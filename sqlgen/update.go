package sqlgen

import (
	"fmt"

	"github.com/habanero-go/habanero/clause"
	"github.com/habanero-go/habanero/dialect"
	"github.com/habanero-go/habanero/schema"
)

// Assignment property value to write
type Assignment struct {
	Prop  string
	Value interface{}
}

// UpdateGenerator builds the UPDATE statements of a dirty business object
type UpdateGenerator struct {
	Dialect dialect.Dialect
}

// NewUpdateGenerator creates an update generator for d
func NewUpdateGenerator(d dialect.Dialect) *UpdateGenerator {
	return &UpdateGenerator{Dialect: d}
}

// Update returns one UPDATE per table level storing a dirty property, most-derived
// first. Levels without dirty properties are skipped, except that once anything is
// written the level storing optimistic concurrency properties is always updated.
// A changed primary key is written to the key columns of every level. Under
// optimistic control the level storing the version property also matches the
// persisted version and must affect exactly one row.
func (g *UpdateGenerator) Update(obj Object) (Statements, error) {
	cd := obj.ClassDef()
	levels, err := cd.TableLevels()
	if err != nil {
		return nil, err
	}

	keyDirty := false
	for _, prop := range cd.PrimaryKeyProps() {
		keyDirty = keyDirty || obj.IsDirty(prop.Name)
	}

	anyDirty := keyDirty
	for _, level := range levels {
		for _, prop := range level.Props {
			anyDirty = anyDirty || obj.IsDirty(prop.Name)
		}
	}
	if !anyDirty {
		return nil, nil
	}

	concurrencyProps := optimisticPropNames(cd)

	var stmts Statements
	for _, level := range levels {
		var (
			columns []string
			values  []interface{}
		)

		if keyDirty {
			for _, key := range level.KeyColumns {
				columns = append(columns, key.Column)
				values = append(values, obj.Value(key.Prop.Name))
			}
		}

		for _, prop := range level.Props {
			if obj.IsDirty(prop.Name) || concurrencyProps[prop.Name] {
				columns = append(columns, prop.ColumnName)
				values = append(values, obj.Value(prop.Name))
			}
		}

		if len(columns) == 0 {
			continue
		}

		stmt := NewStatement(g.Dialect, cd, level.Table)
		g.writeSet(stmt, level, columns, values)

		where := levelKeyCriteria(level, obj)
		if version := versionCriteria(level, obj); version != nil {
			where = append(where, version)
			stmt.ExpectRowsAffected = 1
		}
		stmt.AddWhere(where...)

		if stmt.Error != nil {
			return nil, stmt.Error
		}
		stmts.Add(stmt)
	}
	return stmts, nil
}

// optimisticPropNames version, date and user properties of optimistic control
func optimisticPropNames(cd *schema.ClassDef) map[string]bool {
	cc := cd.ConcurrencyDef()
	names := map[string]bool{}
	if cc.Kind != schema.OptimisticVersion {
		return names
	}
	for _, name := range []string{cc.VersionProp, cc.DateLastUpdatedProp, cc.UserLastUpdatedProp} {
		if name != "" {
			names[name] = true
		}
	}
	return names
}

// UpdateColumns writes assignments to the stored row of obj regardless of dirty
// state, one statement per table level touched. Extra conditions are added to
// every statement and each statement must affect exactly one row.
func (g *UpdateGenerator) UpdateColumns(obj Object, assignments []Assignment, where ...clause.Expression) (Statements, error) {
	cd := obj.ClassDef()
	levels, err := cd.TableLevels()
	if err != nil {
		return nil, err
	}

	var (
		stmts    Statements
		assigned = map[string]bool{}
	)
	for _, level := range levels {
		var (
			columns []string
			values  []interface{}
		)
		for _, a := range assignments {
			for _, prop := range level.Props {
				if prop.Name == a.Prop {
					columns = append(columns, prop.ColumnName)
					values = append(values, a.Value)
					assigned[a.Prop] = true
				}
			}
		}

		if len(columns) == 0 {
			continue
		}

		stmt := NewStatement(g.Dialect, cd, level.Table)
		g.writeSet(stmt, level, columns, values)
		stmt.AddWhere(append(levelKeyCriteria(level, obj), where...)...)
		stmt.ExpectRowsAffected = 1

		if stmt.Error != nil {
			return nil, stmt.Error
		}
		stmts.Add(stmt)
	}

	for _, a := range assignments {
		if !assigned[a.Prop] {
			return nil, fmt.Errorf("%w: %v.%v", schema.ErrUnknownProperty, cd.ClassName, a.Prop)
		}
	}
	return stmts, nil
}

func (g *UpdateGenerator) writeSet(stmt *Statement, level *schema.TableLevel, columns []string, values []interface{}) {
	stmt.WriteString("UPDATE ")
	stmt.WriteQuoted(tableOf(level))
	stmt.WriteString(" SET ")
	for idx, column := range columns {
		if idx > 0 {
			stmt.WriteByte(',')
		}
		stmt.WriteString(g.Dialect.Quote(column))
		stmt.WriteByte('=')
		stmt.AddVar(stmt, values[idx])
	}
}
