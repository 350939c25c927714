// Package migrator creates and drops the tables that class definitions map to.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/habanero-go/habanero/dialect"
	"github.com/habanero-go/habanero/logger"
	"github.com/habanero-go/habanero/schema"
)

// Execer executes DDL, *sql.DB and *sql.Tx implement it
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Migrator migrator struct
type Migrator struct {
	*Config
}

// Config schema config
type Config struct {
	CheckExistsBeforeDropping bool
	Dialect                   dialect.Dialect
	Conn                      Execer
	Namer                     schema.Namer
	Logger                    logger.Interface
}

// New creates a migrator, Namer and Logger default like the DB does
func New(config *Config) Migrator {
	if config.Namer == nil {
		config.Namer = schema.NamingStrategy{}
	}
	if config.Logger == nil {
		config.Logger = logger.Discard
	}
	return Migrator{Config: config}
}

// Column one table column
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// Table DDL description of one table
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// Index unique index of a table
type Index struct {
	Name    string
	Columns []string
}

func (t *Table) column(name string) *Column {
	for idx := range t.Columns {
		if t.Columns[idx].Name == name {
			return &t.Columns[idx]
		}
	}
	return nil
}

func (t *Table) addColumn(column Column) {
	if existing := t.column(column.Name); existing != nil {
		existing.PrimaryKey = existing.PrimaryKey || column.PrimaryKey
		return
	}
	t.Columns = append(t.Columns, column)
}

// Tables tables of cds and of their registered subclasses, least-derived first.
// Tables shared through single table inheritance hold the columns of every class stored in them.
func (m Migrator) Tables(cds ...*schema.ClassDef) ([]*Table, error) {
	var (
		tables []*Table
		byName = map[string]*Table{}
	)

	var classes []*schema.ClassDef
	for _, cd := range cds {
		classes = append(classes, cd)
		classes = append(classes, cd.AllSubClasses()...)
	}

	for _, cd := range classes {
		levels, err := cd.TableLevels()
		if err != nil {
			return nil, err
		}

		for idx := len(levels) - 1; idx >= 0; idx-- {
			level := levels[idx]
			table, ok := byName[level.Table]
			if !ok {
				table = &Table{Name: level.Table}
				byName[level.Table] = table
				tables = append(tables, table)
			}
			m.addLevel(table, level)
		}

		m.addIndexes(byName, cd, levels)
	}
	return tables, nil
}

func (m Migrator) addLevel(table *Table, level *schema.TableLevel) {
	for _, key := range level.KeyColumns {
		prop := *key.Prop
		// only the root table generates keys, class tables copy them
		prop.AutoIncrement = prop.AutoIncrement && level.Root
		table.addColumn(Column{Name: key.Column, Type: m.Dialect.DataTypeOf(&prop), NotNull: true, PrimaryKey: true})
	}

	for _, name := range level.Discriminators {
		table.addColumn(Column{Name: name, Type: m.Dialect.DataTypeOf(&schema.PropDef{DataType: schema.String, Size: 255})})
	}

	for _, prop := range level.Props {
		table.addColumn(Column{Name: prop.ColumnName, Type: m.Dialect.DataTypeOf(prop), NotNull: prop.Compulsory && level.Class == prop.ClassDef()})
	}
}

// addIndexes unique indexes for the alternate keys declared by cd itself
func (m Migrator) addIndexes(byName map[string]*Table, cd *schema.ClassDef, levels []*schema.TableLevel) {
	for _, key := range cd.Keys {
		var (
			table   string
			columns []string
		)
		for _, name := range key.PropNames {
			for _, level := range levels {
				if column, ok := levelColumn(level, name); ok {
					if table == "" {
						table = level.Table
					}
					columns = append(columns, column)
					break
				}
			}
		}

		if table == "" || len(columns) != len(key.PropNames) {
			continue
		}

		name := key.Name
		if name == "" {
			name = m.Namer.IndexName(table, strings.Join(key.PropNames, "_"))
		}

		t := byName[table]
		exists := false
		for _, idx := range t.Indexes {
			exists = exists || idx.Name == name
		}
		if !exists {
			t.Indexes = append(t.Indexes, Index{Name: name, Columns: columns})
		}
	}
}

func levelColumn(level *schema.TableLevel, prop string) (string, bool) {
	for _, p := range level.Props {
		if p.Name == prop {
			return p.ColumnName, true
		}
	}
	for _, key := range level.KeyColumns {
		if key.Prop.Name == prop {
			return key.Column, true
		}
	}
	return "", false
}

// CreateTableSQL DDL creating table and its indexes
func (m Migrator) CreateTableSQL(table *Table) []string {
	var (
		ddl  strings.Builder
		keys []string
		// sqlite declares an auto increment key inline
		inlineKey bool
	)

	ddl.WriteString("CREATE TABLE ")
	ddl.WriteString(m.Dialect.Quote(table.Name))
	ddl.WriteString(" (")
	for idx, column := range table.Columns {
		if idx > 0 {
			ddl.WriteByte(',')
		}
		ddl.WriteString(m.Dialect.Quote(column.Name))
		ddl.WriteByte(' ')
		ddl.WriteString(column.Type)
		if strings.Contains(column.Type, "PRIMARY KEY") {
			inlineKey = true
		} else if column.NotNull {
			ddl.WriteString(" NOT NULL")
		}
		if column.PrimaryKey {
			keys = append(keys, m.Dialect.Quote(column.Name))
		}
	}

	if len(keys) > 0 && !inlineKey {
		ddl.WriteString(",PRIMARY KEY (")
		ddl.WriteString(strings.Join(keys, ","))
		ddl.WriteByte(')')
	}
	ddl.WriteByte(')')

	stmts := []string{ddl.String()}
	for _, idx := range table.Indexes {
		columns := make([]string, 0, len(idx.Columns))
		for _, column := range idx.Columns {
			columns = append(columns, m.Dialect.Quote(column))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX %v ON %v (%v)",
			m.Dialect.Quote(idx.Name), m.Dialect.Quote(table.Name), strings.Join(columns, ",")))
	}
	return stmts
}

// CreateTables creates the tables of cds, least-derived first
func (m Migrator) CreateTables(ctx context.Context, cds ...*schema.ClassDef) error {
	tables, err := m.Tables(cds...)
	if err != nil {
		return err
	}

	for _, table := range tables {
		for _, stmt := range m.CreateTableSQL(table) {
			if err := m.exec(ctx, stmt); err != nil {
				return fmt.Errorf("create table %v: %w", table.Name, err)
			}
		}
	}
	return nil
}

// DropTables drops the tables of cds, most-derived first
func (m Migrator) DropTables(ctx context.Context, cds ...*schema.ClassDef) error {
	tables, err := m.Tables(cds...)
	if err != nil {
		return err
	}

	for idx := len(tables) - 1; idx >= 0; idx-- {
		stmt := "DROP TABLE "
		if m.CheckExistsBeforeDropping {
			stmt += "IF EXISTS "
		}
		if err := m.exec(ctx, stmt+m.Dialect.Quote(tables[idx].Name)); err != nil {
			return fmt.Errorf("drop table %v: %w", tables[idx].Name, err)
		}
	}
	return nil
}

func (m Migrator) exec(ctx context.Context, stmt string) (err error) {
	begin := time.Now()
	var rows int64
	defer func() {
		m.Logger.Trace(ctx, begin, func() (string, int64) { return stmt, rows }, err)
	}()

	result, err := m.Conn.ExecContext(ctx, stmt)
	if err == nil {
		rows, _ = result.RowsAffected()
	}
	return err
}
