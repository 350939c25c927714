package sqlgen

import (
	"github.com/habanero-go/habanero/dialect"
	"github.com/habanero-go/habanero/schema"
)

// InsertGenerator builds the INSERT statements of a new business object
type InsertGenerator struct {
	Dialect dialect.Dialect
}

// NewInsertGenerator creates an insert generator for d
func NewInsertGenerator(d dialect.Dialect) *InsertGenerator {
	return &InsertGenerator{Dialect: d}
}

// Insert returns one INSERT per table level, the least-derived table first so
// subclass rows can reference the key of their ancestor rows. A key generated
// by the store is excluded from the root INSERT and passed to the other levels
// as a KeyRef.
func (g *InsertGenerator) Insert(obj Object) (Statements, error) {
	cd := obj.ClassDef()
	levels, err := cd.TableLevels()
	if err != nil {
		return nil, err
	}

	var stmts Statements
	for i := len(levels) - 1; i >= 0; i-- {
		stmt, err := g.insertLevel(levels[i], obj)
		if err != nil {
			return nil, err
		}
		stmts.Add(stmt)
	}
	return stmts, nil
}

func (g *InsertGenerator) insertLevel(level *schema.TableLevel, obj Object) (*Statement, error) {
	var (
		cd      = obj.ClassDef()
		stmt    = NewStatement(g.Dialect, cd, level.Table)
		columns []string
		values  []interface{}
		written = map[string]bool{}
	)

	add := func(column string, value interface{}) {
		if written[column] {
			return
		}
		written[column] = true
		columns = append(columns, column)
		values = append(values, value)
	}

	for _, key := range level.KeyColumns {
		switch {
		case !key.Prop.AutoIncrement:
			add(key.Column, obj.Value(key.Prop.Name))
		case level.Root:
			stmt.AutoIncrement = key.Prop
			written[key.Column] = true
		default:
			add(key.Column, KeyRef{Prop: key.Prop})
		}
	}

	for _, column := range level.Discriminators {
		add(column, cd.TypeDiscriminator())
	}

	for _, prop := range level.Props {
		if prop.AutoIncrement {
			continue
		}
		add(prop.ColumnName, obj.Value(prop.Name))
	}

	stmt.WriteString("INSERT INTO ")
	stmt.WriteQuoted(tableOf(level))

	if len(columns) == 0 {
		if stmt.AutoIncrement != nil {
			g.writeOutput(stmt, level)
		}
		stmt.WriteString(" DEFAULT VALUES")
	} else {
		stmt.WriteString(" (")
		for idx, column := range columns {
			if idx > 0 {
				stmt.WriteByte(',')
			}
			stmt.WriteString(g.Dialect.Quote(column))
		}
		stmt.WriteByte(')')

		if stmt.AutoIncrement != nil {
			g.writeOutput(stmt, level)
		}

		stmt.WriteString(" VALUES (")
		stmt.AddVar(stmt, values...)
		stmt.WriteByte(')')
	}

	if stmt.AutoIncrement != nil {
		column := keyColumn(level, stmt.AutoIncrement)
		if suffix := g.Dialect.LastInsertIDReturningSuffix(level.Table, column); suffix != "" {
			stmt.WriteString(" " + suffix)
			stmt.Returning = true
		}
	}

	stmt.ExpectRowsAffected = 1
	return stmt, stmt.Error
}

func (g *InsertGenerator) writeOutput(stmt *Statement, level *schema.TableLevel) {
	output := g.Dialect.LastInsertIDOutputInterstitial(level.Table, keyColumn(level, stmt.AutoIncrement))
	if output != "" {
		stmt.WriteString(" " + output)
		stmt.Returning = true
	}
}

func keyColumn(level *schema.TableLevel, prop *schema.PropDef) string {
	for _, key := range level.KeyColumns {
		if key.Prop == prop {
			return key.Column
		}
	}
	return prop.ColumnName
}
