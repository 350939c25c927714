package clause_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/habanero-go/habanero/clause"
	"github.com/stretchr/testify/assert"
)

type testBuilder struct {
	strings.Builder
	vars []interface{}
}

func (b *testBuilder) WriteQuoted(field interface{}) {
	switch v := field.(type) {
	case clause.Column:
		if v.Table != "" {
			b.WriteString("`" + v.Table + "`.")
		}
		b.WriteString("`" + v.Name + "`")
	case string:
		b.WriteString("`" + v + "`")
	default:
		b.WriteString(fmt.Sprint(v))
	}
}

func (b *testBuilder) AddVar(writer clause.Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			writer.WriteByte(',')
		}
		b.vars = append(b.vars, v)
		writer.WriteByte('?')
	}
}

func build(expr clause.Expression) (string, []interface{}) {
	b := &testBuilder{}
	expr.Build(b)
	return b.String(), b.vars
}

func TestExpressions(t *testing.T) {
	results := []struct {
		Expr   clause.Expression
		Result string
		Vars   []interface{}
	}{
		{clause.Eq{Column: "Name", Value: "jinzhu"}, "`Name` = ?", []interface{}{"jinzhu"}},
		{clause.Eq{Column: "Name", Value: nil}, "`Name` IS NULL", nil},
		{clause.Neq{Column: "Name", Value: nil}, "`Name` IS NOT NULL", nil},
		{clause.Gt{Column: clause.Column{Table: "users", Name: "Age"}, Value: 18}, "`users`.`Age` > ?", []interface{}{18}},
		{clause.Gte{Column: "Age", Value: 18}, "`Age` >= ?", []interface{}{18}},
		{clause.Lt{Column: "Age", Value: 18}, "`Age` < ?", []interface{}{18}},
		{clause.Lte{Column: "Age", Value: 18}, "`Age` <= ?", []interface{}{18}},
		{clause.Like{Column: "Name", Value: "%a%"}, "`Name` LIKE ?", []interface{}{"%a%"}},
		{clause.IN{Column: "ID", Values: []interface{}{1, 2}}, "`ID` IN (?,?)", []interface{}{1, 2}},
		{clause.IN{Column: "ID", Values: []interface{}{1}}, "`ID` = ?", []interface{}{1}},
		{clause.IN{Column: "ID"}, "`ID` IN (NULL)", nil},
		{clause.Expr{SQL: "LOWER(name) = ?", Vars: []interface{}{"a"}}, "LOWER(name) = ?", []interface{}{"a"}},
		{
			clause.And(clause.Eq{Column: "Age", Value: 18}, clause.Or(clause.Neq{Column: "Name", Value: "jinzhu"}, clause.Like{Column: "Name", Value: "%linus%"})),
			"(`Age` = ? AND (`Name` <> ? OR `Name` LIKE ?))", []interface{}{18, "jinzhu", "%linus%"},
		},
		{
			clause.Not(clause.Eq{Column: "ID", Value: 1}, clause.Gt{Column: "Age", Value: 18}),
			"(`ID` <> ? AND `Age` <= ?)", []interface{}{1, 18},
		},
		{
			clause.Not(clause.IN{Column: "ID", Values: []interface{}{1, 2}}),
			"`ID` NOT IN (?,?)", []interface{}{1, 2},
		},
		{
			clause.Not(clause.Expr{SQL: "a = b"}),
			"NOT (a = b)", nil,
		},
		{
			clause.And(clause.Expr{SQL: "a = 1 or b = 2"}, clause.Eq{Column: "C", Value: 3}),
			"((a = 1 or b = 2) AND `C` = ?)", []interface{}{3},
		},
		{clause.And(nil, clause.Eq{Column: "C", Value: 3}), "`C` = ?", []interface{}{3}},
	}

	for idx, result := range results {
		t.Run(fmt.Sprintf("case #%v", idx), func(t *testing.T) {
			sql, vars := build(result.Expr)
			assert.Equal(t, result.Result, sql)
			assert.Equal(t, result.Vars, vars)
		})
	}
}

func TestEmptyConditions(t *testing.T) {
	assert.Nil(t, clause.And())
	assert.Nil(t, clause.Or(nil))
	assert.Nil(t, clause.Not())
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, clause.OrderByColumn{Column: clause.Column{Name: "Surname"}}, clause.OrderBy("Surname"))
	assert.Equal(t, clause.OrderByColumn{Column: clause.Column{Name: "Surname"}, Desc: true}, clause.OrderBy("Surname DESC"))
	assert.Equal(t, clause.OrderByColumn{Column: clause.Column{Name: "Surname"}}, clause.OrderBy(" Surname asc "))

	sql, _ := build(clause.OrderBy("Age desc"))
	assert.Equal(t, "`Age` DESC", sql)
}
