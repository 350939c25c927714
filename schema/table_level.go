package schema

// KeyColumn a key column of one table level; Prop supplies its value
type KeyColumn struct {
	Column string
	Prop   *PropDef
}

// TableLevel one table touched when persisting a class
type TableLevel struct {
	// Class owns the table
	Class *ClassDef
	Table string
	// Props non-key properties stored in this table
	Props      []*PropDef
	KeyColumns []KeyColumn
	// Discriminators columns receiving the type discriminator of the persisted class
	Discriminators []string
	// Root the level holding the primary key as declared, every other level copies it
	Root bool
	// IDProp subclass property mirroring the key in a class table level
	IDProp *PropDef
}

// HasProp reports whether the level stores the named property
func (level *TableLevel) HasProp(name string) bool {
	for _, prop := range level.Props {
		if prop.Name == name {
			return true
		}
	}
	return false
}

func (level *TableLevel) addDiscriminator(column string) {
	for _, c := range level.Discriminators {
		if c == column {
			return
		}
	}
	level.Discriminators = append(level.Discriminators, column)
}

// TableLevels returns the tables a class persists to, most-derived first.
// Single table subclasses fold into the table of the class owning it;
// concrete table inheritance stops the walk with every inherited property
// folded into the concrete table.
func (cd *ClassDef) TableLevels() ([]*TableLevel, error) {
	if err := cd.Validate(); err != nil {
		return nil, err
	}

	var (
		levels  []*TableLevel
		level   *TableLevel
		seen    = map[string]bool{}
		pkProps = cd.PrimaryKeyProps()
		// discriminator column that belongs to the next class table level
		pendingDiscriminator string
		cur                  = cd
	)

	addProps := func(owner *ClassDef) {
		for _, prop := range owner.PropDefs {
			if seen[prop.Name] || cd.IsPrimaryKey(prop.Name) {
				continue
			}
			seen[prop.Name] = true
			level.Props = append(level.Props, prop)
		}
	}

	// a discriminator may name a property instead of a column
	discriminatorColumn := func(name string) string {
		if prop := cd.PropDef(name); prop != nil && prop.ColumnName != "" {
			return prop.ColumnName
		}
		return name
	}

	addDownwardDiscriminators := func(owner *ClassDef) {
		for _, sub := range owner.subClasses {
			if sub.SuperClass.Discriminator != "" {
				level.addDiscriminator(discriminatorColumn(sub.SuperClass.Discriminator))
			}
		}
	}

	for cur != nil {
		if level == nil {
			level = &TableLevel{Class: cur, Table: cur.TableName}
			if pendingDiscriminator != "" {
				level.addDiscriminator(discriminatorColumn(pendingDiscriminator))
				pendingDiscriminator = ""
			}
		}

		sup := cur.SuperClass
		if sup != nil && sup.ORMapping == ClassTableInheritance && sup.ID != "" {
			// the mirrored key is written as a key column, not as a property
			seen[sup.ID] = true
		}
		addProps(cur)
		addDownwardDiscriminators(cur)

		if sup == nil {
			level.Root = true
			for _, prop := range pkProps {
				level.KeyColumns = append(level.KeyColumns, KeyColumn{Column: prop.ColumnName, Prop: prop})
			}
			levels = append(levels, level)
			break
		}

		switch sup.ORMapping {
		case SingleTableInheritance:
			level.addDiscriminator(discriminatorColumn(sup.Discriminator))
			level.Class = sup.Class
			level.Table = sup.Class.TableName
		case ConcreteTableInheritance:
			for anc := sup.Class; anc != nil; anc = anc.SuperClassDef() {
				addProps(anc)
			}
			level.Root = true
			for _, prop := range pkProps {
				level.KeyColumns = append(level.KeyColumns, KeyColumn{Column: prop.ColumnName, Prop: prop})
			}
			levels = append(levels, level)
			return levels, nil
		default:
			if sup.ID != "" {
				level.IDProp = cur.PropDef(sup.ID)
				level.KeyColumns = []KeyColumn{{Column: level.IDProp.ColumnName, Prop: pkProps[0]}}
			} else {
				for _, prop := range pkProps {
					level.KeyColumns = append(level.KeyColumns, KeyColumn{Column: prop.ColumnName, Prop: prop})
				}
			}
			pendingDiscriminator = sup.Discriminator
			levels = append(levels, level)
			level = nil
		}

		cur = sup.Class
	}

	return levels, nil
}

// TableForProp resolves a property to the closest table declaring it
func (cd *ClassDef) TableForProp(name string) (string, error) {
	levels, err := cd.TableLevels()
	if err != nil {
		return "", err
	}

	for _, level := range levels {
		if level.HasProp(name) {
			return level.Table, nil
		}
	}

	if cd.IsPrimaryKey(name) {
		return levels[len(levels)-1].Table, nil
	}
	return "", ErrUnknownProperty
}

// Table the most-derived table the class persists to
func (cd *ClassDef) Table() string {
	levels, err := cd.TableLevels()
	if err != nil || len(levels) == 0 {
		return cd.TableName
	}
	return levels[0].Table
}
