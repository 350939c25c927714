package dialect

import "github.com/habanero-go/habanero/schema"

type sqlite3 struct {
	commonDialect
}

func (sqlite3) GetName() string {
	return "sqlite3"
}

func (sqlite3) DataTypeOf(prop *schema.PropDef) string {
	switch prop.DataType {
	case schema.Bool:
		return "bool"
	case schema.Int:
		if prop.AutoIncrement {
			return "integer PRIMARY KEY AUTOINCREMENT"
		}
		return "integer"
	case schema.Float:
		return "real"
	case schema.Time:
		return "datetime"
	case schema.Bytes:
		return "blob"
	case schema.UUID:
		return "varchar(36)"
	default:
		return varchar(prop.Size, 65532, "text")
	}
}
