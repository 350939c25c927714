package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/habanero-go/habanero/clause"
	"github.com/habanero-go/habanero/dialect"
	"github.com/habanero-go/habanero/schema"
)

// KeyRef stands for a key generated by an earlier statement of the same
// batch; the executor substitutes the generated value before executing
type KeyRef struct {
	Prop *schema.PropDef
}

// Statement one parameterised SQL statement, Vars follow placeholder order
type Statement struct {
	SQL     strings.Builder
	Vars    []interface{}
	Table   string
	Dialect dialect.Dialect
	// ExpectRowsAffected when > 0 the statement must affect exactly that many rows
	ExpectRowsAffected int64
	// AutoIncrement property receiving the key generated by this statement
	AutoIncrement *schema.PropDef
	// Returning the generated key comes back as a result row instead of LastInsertId
	Returning bool
	Error     error

	classDef *schema.ClassDef
	levels   []*schema.TableLevel
}

// NewStatement creates a statement for table, properties named in clause
// expressions are resolved against cd
func NewStatement(d dialect.Dialect, cd *schema.ClassDef, table string) *Statement {
	stmt := &Statement{Dialect: d, Table: table, classDef: cd}
	if cd != nil {
		stmt.levels, stmt.Error = cd.TableLevels()
	}
	return stmt
}

func (stmt *Statement) WriteByte(c byte) error {
	return stmt.SQL.WriteByte(c)
}

func (stmt *Statement) WriteString(str string) (int, error) {
	return stmt.SQL.WriteString(str)
}

// Write write strings
func (stmt *Statement) Write(sql ...string) {
	for _, s := range sql {
		stmt.SQL.WriteString(s)
	}
}

// AddError records the first error met while building
func (stmt *Statement) AddError(err error) {
	if err != nil && stmt.Error == nil {
		stmt.Error = err
	}
}

// WriteQuoted write quoted value
func (stmt *Statement) WriteQuoted(value interface{}) {
	stmt.SQL.WriteString(stmt.Quote(value))
}

// Quote returns quoted value; a clause.Column without Table names a property
func (stmt *Statement) Quote(field interface{}) string {
	switch v := field.(type) {
	case clause.Table:
		if v.Raw {
			return v.Name
		}
		str := stmt.Dialect.Quote(v.Name)
		if v.Alias != "" {
			str += " " + stmt.Dialect.Quote(v.Alias)
		}
		return str
	case clause.Column:
		if v.Raw {
			return v.Name
		}
		if v.Table != "" {
			return stmt.Dialect.Quote(v.Table) + "." + stmt.Dialect.Quote(v.Name)
		}
		table, column, err := stmt.resolve(v.Name)
		if err != nil {
			stmt.AddError(err)
			return stmt.Dialect.Quote(v.Name)
		}
		return stmt.Dialect.Quote(table) + "." + stmt.Dialect.Quote(column)
	case string:
		return stmt.Quote(clause.Column{Name: v})
	default:
		return stmt.Dialect.Quote(fmt.Sprint(field))
	}
}

// resolve finds the most-derived table storing the property
func (stmt *Statement) resolve(prop string) (table, column string, err error) {
	if stmt.classDef == nil {
		return stmt.Table, prop, nil
	}

	for _, level := range stmt.levels {
		for _, p := range level.Props {
			if p.Name == prop {
				return level.Table, p.ColumnName, nil
			}
		}
	}

	if len(stmt.levels) > 0 && stmt.classDef.IsPrimaryKey(prop) {
		root := stmt.levels[len(stmt.levels)-1]
		for _, key := range root.KeyColumns {
			if key.Prop.Name == prop {
				return root.Table, key.Column, nil
			}
		}
	}
	return "", "", fmt.Errorf("%w: %v.%v", schema.ErrUnknownProperty, stmt.classDef.ClassName, prop)
}

// AddVar add var, one placeholder per value
func (stmt *Statement) AddVar(writer clause.Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			writer.WriteByte(',')
		}

		switch v := v.(type) {
		case clause.Column, clause.Table:
			writer.WriteString(stmt.Quote(v))
		case clause.Expr:
			v.Build(stmt)
		default:
			stmt.Vars = append(stmt.Vars, v)
			writer.WriteString(stmt.Dialect.BindVar(len(stmt.Vars)))
		}
	}
}

// AddWhere writes " WHERE " and the conditions joined by AND, nil conditions are skipped
func (stmt *Statement) AddWhere(exprs ...clause.Expression) {
	where := clause.Where{}
	for _, expr := range exprs {
		if expr != nil {
			where.Exprs = append(where.Exprs, expr)
		}
	}

	if len(where.Exprs) > 0 {
		stmt.WriteString(" WHERE ")
		where.Build(stmt)
	}
}

func (stmt *Statement) String() string {
	return stmt.SQL.String()
}

// HasKeyRef reports whether the statement waits for a generated key
func (stmt *Statement) HasKeyRef() bool {
	for _, v := range stmt.Vars {
		if _, ok := v.(KeyRef); ok {
			return true
		}
	}
	return false
}

// Statements ordered statement collection
type Statements []*Statement

// Add appends statements
func (s *Statements) Add(stmts ...*Statement) {
	*s = append(*s, stmts...)
}

// Tables tables touched in order
func (s Statements) Tables() []string {
	tables := make([]string, 0, len(s))
	for _, stmt := range s {
		tables = append(tables, stmt.Table)
	}
	return tables
}

// Err joins the build errors of every statement
func (s Statements) Err() error {
	var errs []error
	for _, stmt := range s {
		if stmt.Error != nil {
			errs = append(errs, stmt.Error)
		}
	}
	return errors.Join(errs...)
}
