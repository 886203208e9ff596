package sqlite

import (
	"bytes"
	"strconv"
)

// Type is the type of a Value.
type Type int

const (
	// TypeNull is the null type. It is the zero Type.
	TypeNull Type = iota
	// TypeBinary is the binary type.
	TypeBinary
	// TypeFloat is the floating-point type.
	TypeFloat
	// TypeInteger is the integer type.
	TypeInteger
	// TypeString is the string type.
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBinary:
		return "binary"
	case TypeFloat:
		return "float"
	case TypeInteger:
		return "integer"
	case TypeString:
		return "string"
	}
	return "unknown"
}

// Value is a dynamically typed SQL datum: binary data, a floating-point
// number, an integer number, a string, or null. A Value never changes
// its type after construction, and the zero Value is Null.
type Value struct {
	kind    Type
	integer int64
	float   float64
	text    string
	binary  []byte
}

// Null is the null value.
var Null Value

// Integer returns an integer value.
func Integer(v int64) Value {
	return Value{kind: TypeInteger, integer: v}
}

// Float returns a floating-point value.
func Float(v float64) Value {
	return Value{kind: TypeFloat, float: v}
}

// String returns a string value.
func String(v string) Value {
	return Value{kind: TypeString, text: v}
}

// Binary returns a binary value. The bytes are copied, so the value
// stays valid regardless of what happens to the argument afterwards.
// A nil slice makes an empty binary value, not a null.
func Binary(v []byte) Value {
	return Value{kind: TypeBinary, binary: append([]byte{}, v...)}
}

// Kind returns the type of the value.
func (v Value) Kind() Type {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == TypeNull
}

// Int64 returns the integer payload. The second return is false when
// the value is not an integer.
func (v Value) Int64() (int64, bool) {
	return v.integer, v.kind == TypeInteger
}

// Float64 returns the floating-point payload. The second return is
// false when the value is not a float.
func (v Value) Float64() (float64, bool) {
	return v.float, v.kind == TypeFloat
}

// Text returns the string payload. The second return is false when the
// value is not a string.
func (v Value) Text() (string, bool) {
	return v.text, v.kind == TypeString
}

// Bytes returns a copy of the binary payload. The second return is
// false when the value is not binary.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != TypeBinary {
		return nil, false
	}
	return append([]byte{}, v.binary...), true
}

// Equal reports whether two values have the same type and payload.
// Values are not comparable with == because of the binary payload.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind {
		return false
	}
	switch v.kind {
	case TypeBinary:
		return bytes.Equal(v.binary, w.binary)
	case TypeFloat:
		return v.float == w.float
	case TypeInteger:
		return v.integer == w.integer
	case TypeString:
		return v.text == w.text
	}
	return true
}

// String renders the value the way it would appear in SQL text.
func (v Value) String() string {
	switch v.kind {
	case TypeBinary:
		buf := make([]byte, 0, 3+2*len(v.binary))
		buf = append(buf, 'X', '\'')
		const hex = "0123456789ABCDEF"
		for _, b := range v.binary {
			buf = append(buf, hex[b>>4], hex[b&0x0f])
		}
		buf = append(buf, '\'')
		return string(buf)
	case TypeFloat:
		return strconv.FormatFloat(v.float, 'g', -1, 64)
	case TypeInteger:
		return strconv.FormatInt(v.integer, 10)
	case TypeString:
		return "'" + v.text + "'"
	}
	return "NULL"
}
