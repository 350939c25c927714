package sqlgen

import (
	"fmt"

	"github.com/habanero-go/habanero/clause"
	"github.com/habanero-go/habanero/dialect"
	"github.com/habanero-go/habanero/schema"
)

// SelectColumn a selected column; Prop is nil for discriminator columns that
// are not mapped to a property
type SelectColumn struct {
	Table         string
	Name          string
	Prop          *schema.PropDef
	Discriminator bool
}

// Query a SELECT statement and the meaning of its result columns
type Query struct {
	Statement *Statement
	Columns   []SelectColumn
}

// SelectGenerator builds the SELECT statement loading objects of a class
type SelectGenerator struct {
	Dialect dialect.Dialect
}

// NewSelectGenerator creates a select generator for d
func NewSelectGenerator(d dialect.Dialect) *SelectGenerator {
	return &SelectGenerator{Dialect: d}
}

// Select loads every property of cd from all of its tables. Class tables are
// joined with equality predicates on the shared key; discriminator columns
// restrict rows to cd and every registered subclass.
func (g *SelectGenerator) Select(cd *schema.ClassDef, criteria clause.Expression, orderBy ...clause.OrderByColumn) (*Query, error) {
	levels, err := cd.TableLevels()
	if err != nil {
		return nil, err
	}

	var (
		query = &Query{Statement: NewStatement(g.Dialect, cd, levels[0].Table)}
		stmt  = query.Statement
		root  = levels[len(levels)-1]
		where []clause.Expression
	)

	for _, prop := range cd.AllPropDefs() {
		column, ok := selectColumn(levels, root, cd, prop)
		if !ok {
			return nil, fmt.Errorf("%w: %v has no table for %v", schema.ErrInvalidDefinition, cd.ClassName, prop.Name)
		}
		query.Columns = append(query.Columns, column)
	}

	for _, level := range levels {
		for _, name := range level.Discriminators {
			found := false
			for idx, column := range query.Columns {
				if column.Table == level.Table && column.Name == name {
					query.Columns[idx].Discriminator = true
					found = true
				}
			}
			if !found {
				query.Columns = append(query.Columns, SelectColumn{Table: level.Table, Name: name, Discriminator: true})
			}
			where = append(where, discriminatorCriteria(cd, level.Table, name))
		}
	}

	for i := 0; i+1 < len(levels); i++ {
		for k, key := range levels[i].KeyColumns {
			if k >= len(levels[i+1].KeyColumns) {
				break
			}
			where = append(where, clause.Eq{
				Column: clause.Column{Table: levels[i].Table, Name: key.Column},
				Value:  clause.Column{Table: levels[i+1].Table, Name: levels[i+1].KeyColumns[k].Column},
			})
		}
	}

	stmt.WriteString("SELECT ")
	for idx, column := range query.Columns {
		if idx > 0 {
			stmt.WriteByte(',')
		}
		stmt.WriteQuoted(clause.Column{Table: column.Table, Name: column.Name})
	}

	stmt.WriteString(" FROM ")
	for idx, level := range levels {
		if idx > 0 {
			stmt.WriteByte(',')
		}
		stmt.WriteQuoted(tableOf(level))
	}

	stmt.AddWhere(append(where, criteria)...)

	if len(orderBy) > 0 {
		stmt.WriteString(" ORDER BY ")
		for idx, order := range orderBy {
			if idx > 0 {
				stmt.WriteByte(',')
			}
			order.Build(stmt)
		}
	}

	if stmt.Error != nil {
		return nil, stmt.Error
	}
	return query, nil
}

func selectColumn(levels []*schema.TableLevel, root *schema.TableLevel, cd *schema.ClassDef, prop *schema.PropDef) (SelectColumn, bool) {
	if cd.IsPrimaryKey(prop.Name) {
		for _, key := range root.KeyColumns {
			if key.Prop.Name == prop.Name {
				return SelectColumn{Table: root.Table, Name: key.Column, Prop: prop}, true
			}
		}
	}

	for _, level := range levels {
		for _, p := range level.Props {
			if p.Name == prop.Name {
				return SelectColumn{Table: level.Table, Name: p.ColumnName, Prop: prop}, true
			}
		}
		if level.IDProp != nil && level.IDProp.Name == prop.Name {
			return SelectColumn{Table: level.Table, Name: level.KeyColumns[0].Column, Prop: prop}, true
		}
	}
	return SelectColumn{}, false
}

// discriminatorCriteria ORs the discriminator of cd with the discriminator of every registered subclass
func discriminatorCriteria(cd *schema.ClassDef, table, column string) clause.Expression {
	var (
		exprs []clause.Expression
		seen  = map[string]bool{}
	)
	for _, c := range append([]*schema.ClassDef{cd}, cd.AllSubClasses()...) {
		value := c.TypeDiscriminator()
		if seen[value] {
			continue
		}
		seen[value] = true
		exprs = append(exprs, clause.Eq{Column: clause.Column{Table: table, Name: column}, Value: value})
	}
	return clause.Or(exprs...)
}
