// Package protocol16 implements the self-describing binary dictionary
// format carried by logical messages. Values are type-tagged with
// one-byte discriminants; all integers are big-endian and strings are
// length-prefixed UTF-8.
package protocol16

import "fmt"

// Type is the one-byte discriminant preceding every encoded value.
type Type byte

const (
	TypeNil         Type = 0
	TypeDict        Type = 68
	TypeStringArray Type = 97
	TypeI8          Type = 98
	TypeCustom      Type = 99
	TypeF64         Type = 100
	TypeDictionary  Type = 101
	TypeI32Array    Type = 104
	TypeI64         Type = 105
	TypeI16         Type = 107
	TypeI32         Type = 108
	TypeF32         Type = 109
	TypeBool        Type = 111
	TypeString      Type = 115
	TypeByteArray   Type = 120
	TypeArray       Type = 121
	TypeObjectArray Type = 122
)

func (t Type) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeDict:
		return "dict"
	case TypeStringArray:
		return "string-array"
	case TypeI8:
		return "i8"
	case TypeCustom:
		return "custom"
	case TypeF64:
		return "f64"
	case TypeDictionary:
		return "dictionary"
	case TypeI32Array:
		return "i32-array"
	case TypeI64:
		return "i64"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeF32:
		return "f32"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeByteArray:
		return "byte-array"
	case TypeArray:
		return "array"
	case TypeObjectArray:
		return "object-array"
	default:
		return fmt.Sprintf("type(%d)", byte(t))
	}
}

// Custom is an opaque custom-typed value (tag 99). The meaning of Code
// is dialect-defined; the payload is carried through untouched.
type Custom struct {
	Code int8
	Data []byte
}

// ParamMap is the key-value dictionary carried by every logical
// message. Keys are one-byte integers; values are one of:
//
//	nil, bool, int8, int16, int32, int64, float32, float64,
//	string, []byte, []string, []int32, []any, map[any]any, Custom
//
// Consumers switch on the concrete type.
type ParamMap map[uint8]any

// IntValue coerces any of the integer-typed variants to int64.
func IntValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// FloatValue coerces numeric variants to float64.
func FloatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		if i, ok := IntValue(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}
