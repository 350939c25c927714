package dialect

import (
	"fmt"
	"strings"

	"github.com/habanero-go/habanero/schema"
)

type mysql struct {
	commonDialect
}

func (mysql) GetName() string {
	return "mysql"
}

func (mysql) Quote(key string) string {
	return fmt.Sprintf("`%s`", strings.ReplaceAll(key, "`", "``"))
}

func (mysql) DataTypeOf(prop *schema.PropDef) string {
	switch prop.DataType {
	case schema.Bool:
		return "boolean"
	case schema.Int:
		if prop.AutoIncrement {
			return "bigint AUTO_INCREMENT"
		}
		return "bigint"
	case schema.Float:
		return "double"
	case schema.Time:
		return "datetime(3)"
	case schema.Bytes:
		if prop.Size > 0 && prop.Size < 65536 {
			return fmt.Sprintf("varbinary(%d)", prop.Size)
		}
		return "longblob"
	case schema.UUID:
		return "char(36)"
	default:
		return varchar(prop.Size, 65532, "longtext")
	}
}
