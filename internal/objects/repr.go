package objects

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Velocidex/ordereddict"
)

// Repr renders a host value the way the REPL prints it.
func Repr(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []interface{}:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Repr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ordereddict.Dict:
		parts := make([]string, 0, x.Len())
		for _, k := range x.Keys() {
			e, _ := x.Get(k)
			parts = append(parts, k+": "+Repr(e))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

// ToJSON renders a host value as JSON, keeping row keys in column order.
func ToJSON(v interface{}) string {
	var sb strings.Builder
	writeJSON(&sb, v)
	return sb.String()
}

func writeJSON(sb *strings.Builder, v interface{}) {
	switch x := v.(type) {
	case nil:
		sb.WriteString("null")
	case string:
		sb.WriteString(strconv.Quote(x))
	case bool:
		sb.WriteString(strconv.FormatBool(x))
	case int64:
		sb.WriteString(strconv.FormatInt(x, 10))
	case float64:
		sb.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case []interface{}:
		sb.WriteString("[")
		for i, e := range x {
			if i > 0 {
				sb.WriteString(",")
			}
			writeJSON(sb, e)
		}
		sb.WriteString("]")
	case []*ordereddict.Dict:
		sb.WriteString("[")
		for i, e := range x {
			if i > 0 {
				sb.WriteString(",")
			}
			writeJSON(sb, e)
		}
		sb.WriteString("]")
	case *ordereddict.Dict:
		sb.WriteString("{")
		for i, k := range x.Keys() {
			if i > 0 {
				sb.WriteString(",")
			}
			e, _ := x.Get(k)
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(":")
			writeJSON(sb, e)
		}
		sb.WriteString("}")
	default:
		sb.WriteString(strconv.Quote(fmt.Sprint(x)))
	}
}
