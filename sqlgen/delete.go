package sqlgen

import (
	"github.com/habanero-go/habanero/clause"
	"github.com/habanero-go/habanero/dialect"
	"github.com/habanero-go/habanero/schema"
)

// DeleteGenerator builds the DELETE statements of a business object
type DeleteGenerator struct {
	Dialect dialect.Dialect
}

// NewDeleteGenerator creates a delete generator for d
func NewDeleteGenerator(d dialect.Dialect) *DeleteGenerator {
	return &DeleteGenerator{Dialect: d}
}

// Delete returns one DELETE per table level, most-derived first, each keyed
// by the persisted key values
func (g *DeleteGenerator) Delete(obj Object) (Statements, error) {
	levels, err := obj.ClassDef().TableLevels()
	if err != nil {
		return nil, err
	}

	var stmts Statements
	for _, level := range levels {
		stmt := NewStatement(g.Dialect, obj.ClassDef(), level.Table)
		stmt.WriteString("DELETE FROM ")
		stmt.WriteQuoted(tableOf(level))

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

func tableOf(level *schema.TableLevel) clause.Table {
	return clause.Table{Name: level.Table}
}
