package schema

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
)

type DataType string

const (
	Bool   DataType = "bool"
	Int    DataType = "int"
	Float  DataType = "float"
	String DataType = "string"
	Time   DataType = "time"
	Bytes  DataType = "bytes"
	UUID   DataType = "uuid"
)

// PropDef describes one property of a business object class
type PropDef struct {
	Name       string
	ColumnName string
	DataType   DataType
	// AutoIncrement values are generated by the store on insert
	AutoIncrement bool
	Compulsory    bool
	// ReadOnly properties can only be set while the object is new
	ReadOnly bool
	Default  interface{}
	Size     int

	classDef *ClassDef
}

// ClassDef returns the class that declares the property
func (prop *PropDef) ClassDef() *ClassDef {
	return prop.classDef
}

// DisplayName user facing label, "DateOfBirth" => "Date Of Birth"
func (prop *PropDef) DisplayName() string {
	return toDisplayName(prop.Name)
}

func (prop *PropDef) String() string {
	if prop.classDef != nil {
		return prop.classDef.ClassName + "." + prop.Name
	}
	return prop.Name
}

// Convert coerces a caller or driver supplied value into the property's Go type:
// int64, float64, bool, string, time.Time, []byte or uuid.UUID
func (prop *PropDef) Convert(value interface{}) (interface{}, error) {
	if valuer, ok := value.(driver.Valuer); ok {
		if _, isUUID := value.(uuid.UUID); !isUUID {
			v, err := valuer.Value()
			if err != nil {
				return nil, err
			}
			value = v
		}
	}

	if value == nil {
		return nil, nil
	}

	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		value = rv.Elem().Interface()
	}

	var (
		result interface{}
		err    error
	)

	switch prop.DataType {
	case Int:
		result, err = toInt64(value)
	case Float:
		result, err = toFloat64(value)
	case Bool:
		result, err = toBool(value)
	case Time:
		result, err = toTime(value)
	case Bytes:
		switch v := value.(type) {
		case []byte:
			result = append([]byte(nil), v...)
		case string:
			result = []byte(v)
		default:
			err = errUnsupported
		}
	case UUID:
		result, err = toUUID(value)
	default:
		switch v := value.(type) {
		case string:
			result = v
		case []byte:
			result = string(v)
		case fmt.Stringer:
			result = v.String()
		default:
			result = fmt.Sprint(v)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("%w: cannot convert %#v to %v for %v", ErrInvalidValue, value, prop.DataType, prop)
	}
	return result, nil
}

var errUnsupported = fmt.Errorf("unsupported value")

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, errUnsupported
		}
		return int64(v), nil
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, errUnsupported
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) {
		return 0, errUnsupported
	}
	return int64(f), nil
}

func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	}

	i, err := toInt64(value)
	return float64(i), err
}

func toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	}

	i, err := toInt64(value)
	return i != 0, err
}

func toTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	}
	return time.Time{}, errUnsupported
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return now.Parse(s)
}

func toUUID(value interface{}) (uuid.UUID, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		return uuid.Parse(v)
	}
	return uuid.Nil, errUnsupported
}
