package core

import (
	"strconv"
	"strings"
)

// ValueKind is the type tag of a Value.
type ValueKind int

// ValueKind constants for literal value types.
const (
	ValueNull ValueKind = iota
	ValueBool
	ValueInteger
	ValueFloat
	ValueString
	ValueList
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "NULL"
	case ValueBool:
		return "BOOLEAN"
	case ValueInteger:
		return "INTEGER"
	case ValueFloat:
		return "DOUBLE"
	case ValueString:
		return "VARCHAR"
	case ValueList:
		return "LIST"
	default:
		return "UNKNOWN"
	}
}

// Value is a typed literal.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	List  []Value
}

// NullValue returns the NULL literal.
func NullValue() Value { return Value{Kind: ValueNull} }

// BoolValue returns a boolean literal.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// IntegerValue returns an integer literal.
func IntegerValue(i int64) Value { return Value{Kind: ValueInteger, Int: i} }

// FloatValue returns a floating point literal.
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// StringValue returns a string literal.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// ListValue returns a list literal.
func ListValue(values ...Value) Value { return Value{Kind: ValueList, List: values} }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.Kind == ValueNull }

// String returns the display form of the value. Strings are returned
// unquoted; this is the form used to synthesize column names.
func (v Value) String() string {
	switch v.Kind {
	case ValueNull:
		return "NULL"
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueInteger:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueString:
		return v.Str
	case ValueList:
		parts := make([]string, len(v.List))
		for i, elem := range v.List {
			parts[i] = elem.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

// Key returns a string that is equal for two values exactly when the
// values are equal, including their kind.
func (v Value) Key() string {
	var sb strings.Builder
	v.writeKey(&sb)
	return sb.String()
}

func (v Value) writeKey(sb *strings.Builder) {
	sb.WriteString(strconv.Itoa(int(v.Kind)))
	sb.WriteByte(':')
	if v.Kind != ValueList {
		s := v.String()
		sb.WriteString(strconv.Itoa(len(s)))
		sb.WriteByte(':')
		sb.WriteString(s)
		return
	}
	sb.WriteByte('[')
	for _, elem := range v.List {
		elem.writeKey(sb)
	}
	sb.WriteByte(']')
}

// Equal reports whether two values are equal, including their kind.
func (v Value) Equal(other Value) bool { return v.Key() == other.Key() }
