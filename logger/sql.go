package logger

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const tmFmtWithMS = "2006-01-02 15:04:05.999"

// NumericPlaceholder matches postgres style $n placeholders
var NumericPlaceholder = regexp.MustCompile(`\$(\d+)`)

func isPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ExplainSQL renders a statement with its parameters inlined, for logs only.
// numericPlaceholder is nil for `?` placeholders.
func ExplainSQL(sql string, numericPlaceholder *regexp.Regexp, escaper string, avars ...interface{}) string {
	vars := make([]string, len(avars))

	var convertParams func(interface{}, int)
	convertParams = func(v interface{}, idx int) {
		switch v := v.(type) {
		case bool:
			vars[idx] = strconv.FormatBool(v)
		case time.Time:
			if v.IsZero() {
				vars[idx] = escaper + "0000-00-00 00:00:00" + escaper
			} else {
				vars[idx] = escaper + v.Format(tmFmtWithMS) + escaper
			}
		case *time.Time:
			if v != nil {
				convertParams(*v, idx)
			} else {
				vars[idx] = "NULL"
			}
		case driver.Valuer:
			reflectValue := reflect.ValueOf(v)
			if v != nil && reflectValue.IsValid() && (reflectValue.Kind() != reflect.Ptr || !reflectValue.IsNil()) {
				r, _ := v.Value()
				convertParams(r, idx)
			} else {
				vars[idx] = "NULL"
			}
		case fmt.Stringer:
			vars[idx] = escaper + strings.ReplaceAll(v.String(), escaper, "\\"+escaper) + escaper
		case []byte:
			if s := string(v); isPrintable(s) {
				vars[idx] = escaper + strings.ReplaceAll(s, escaper, "\\"+escaper) + escaper
			} else {
				vars[idx] = escaper + "<binary>" + escaper
			}
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			vars[idx] = fmt.Sprintf("%d", v)
		case float64, float32:
			vars[idx] = fmt.Sprintf("%.6f", v)
		case string:
			vars[idx] = escaper + strings.ReplaceAll(v, escaper, "\\"+escaper) + escaper
		default:
			rv := reflect.ValueOf(v)
			if v == nil || !rv.IsValid() || rv.Kind() == reflect.Ptr && rv.IsNil() {
				vars[idx] = "NULL"
			} else if rv.Kind() == reflect.Ptr {
				convertParams(reflect.Indirect(rv).Interface(), idx)
			} else {
				vars[idx] = escaper + strings.ReplaceAll(fmt.Sprint(v), escaper, "\\"+escaper) + escaper
			}
		}
	}

	for idx, v := range avars {
		convertParams(v, idx)
	}

	if numericPlaceholder == nil {
		var idx int
		var newSQL strings.Builder

		for _, v := range []byte(sql) {
			if v == '?' && len(vars) > idx {
				newSQL.WriteString(vars[idx])
				idx++
				continue
			}
			newSQL.WriteByte(v)
		}

		return newSQL.String()
	}

	return numericPlaceholder.ReplaceAllStringFunc(sql, func(placeholder string) string {
		n, err := strconv.Atoi(placeholder[1:])
		if err != nil || n < 1 || n > len(vars) {
			return placeholder
		}
		return vars[n-1]
	})
}
