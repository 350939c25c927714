package clause

import "strings"

// Writer writer interface
type Writer interface {
	WriteByte(byte) error
	WriteString(string) (int, error)
}

// Builder builder interface
type Builder interface {
	Writer
	// WriteQuoted writes a Column, Table or property name quoted for the dialect
	WriteQuoted(field interface{})
	// AddVar writes one placeholder per value and records the values in order
	AddVar(writer Writer, vars ...interface{})
}

// Expression expression interface
type Expression interface {
	Build(builder Builder)
}

// NegationExpressionBuilder negation expression builder
type NegationExpressionBuilder interface {
	NegationBuild(builder Builder)
}

// Column a column reference; without Raw, Name is a property name that the
// builder resolves to the table and column storing it
type Column struct {
	Table string
	Name  string
	Raw   bool
}

// Table quote with name
type Table struct {
	Name  string
	Alias string
	Raw   bool
}

// OrderByColumn order by property
type OrderByColumn struct {
	Column Column
	Desc   bool
}

// OrderBy parses "Name", "Name desc" or "Name asc"
func OrderBy(spec string) OrderByColumn {
	name, desc := strings.TrimSpace(spec), false
	if idx := strings.LastIndexByte(name, ' '); idx > 0 {
		switch strings.ToLower(name[idx+1:]) {
		case "desc":
			name, desc = strings.TrimSpace(name[:idx]), true
		case "asc":
			name = strings.TrimSpace(name[:idx])
		}
	}
	return OrderByColumn{Column: Column{Name: name}, Desc: desc}
}

// Build build order by column
func (o OrderByColumn) Build(builder Builder) {
	builder.WriteQuoted(o.Column)
	if o.Desc {
		builder.WriteString(" DESC")
	}
}
