package dialect

import (
	"fmt"
	"strings"

	"github.com/habanero-go/habanero/schema"
)

type mssql struct {
	commonDialect
}

func (mssql) GetName() string {
	return "mssql"
}

func (mssql) BindVar(i int) string {
	return fmt.Sprintf("@p%d", i)
}

func (mssql) Quote(key string) string {
	return fmt.Sprintf(`[%s]`, strings.ReplaceAll(key, "]", "]]"))
}

func (mssql) SupportLastInsertID() bool {
	return false
}

func (s mssql) LastInsertIDOutputInterstitial(tableName, columnName string) string {
	return fmt.Sprintf("OUTPUT INSERTED.%v", s.Quote(columnName))
}

func (mssql) DataTypeOf(prop *schema.PropDef) string {
	switch prop.DataType {
	case schema.Bool:
		return "bit"
	case schema.Int:
		if prop.AutoIncrement {
			return "bigint IDENTITY(1,1)"
		}
		return "bigint"
	case schema.Float:
		return "float"
	case schema.Time:
		return "datetimeoffset"
	case schema.Bytes:
		if prop.Size > 0 && prop.Size < 8000 {
			return fmt.Sprintf("varbinary(%d)", prop.Size)
		}
		return "varbinary(max)"
	case schema.UUID:
		return "uniqueidentifier"
	default:
		if prop.Size > 0 && prop.Size < 4000 {
			return fmt.Sprintf("nvarchar(%d)", prop.Size)
		}
		return "nvarchar(max)"
	}
}
