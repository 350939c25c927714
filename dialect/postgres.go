package dialect

import (
	"fmt"

	"github.com/habanero-go/habanero/schema"
)

type postgres struct {
	commonDialect
}

func (postgres) GetName() string {
	return "postgres"
}

func (postgres) BindVar(i int) string {
	return fmt.Sprintf("$%v", i)
}

func (postgres) SupportLastInsertID() bool {
	return false
}

func (p postgres) LastInsertIDReturningSuffix(tableName, columnName string) string {
	return fmt.Sprintf("RETURNING %v.%v", p.Quote(tableName), p.Quote(columnName))
}

func (postgres) DataTypeOf(prop *schema.PropDef) string {
	switch prop.DataType {
	case schema.Bool:
		return "boolean"
	case schema.Int:
		if prop.AutoIncrement {
			return "bigserial"
		}
		return "bigint"
	case schema.Float:
		return "numeric"
	case schema.Time:
		return "timestamp with time zone"
	case schema.Bytes:
		return "bytea"
	case schema.UUID:
		return "uuid"
	default:
		return varchar(prop.Size, 65532, "text")
	}
}
