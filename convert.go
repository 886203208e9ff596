package sqlite

import (
	"bytes"
	"fmt"
	"math"
	"time"
)

// ReadableType is the set of Go types a column can be read as. Value
// accepts any column; the rest require a matching realized type,
// except that the two numeric kinds convert into each other the same
// way the engine does.
type ReadableType interface {
	int64 | float64 | string | []byte | Value
}

// TimeFormat is the format bound time.Time values are rendered with.
const TimeFormat = time.RFC3339Nano

// Bind assigns a value to the parameter at the 1-based position i.
// Accepted types are Go's integer and float types, bool, string,
// []byte, time.Time, Value, nil, and pointers to int64, float64, bool,
// string, []byte, and time.Time, where a nil pointer binds an SQL
// null and anything else binds the pointed-to value.
func (s *Statement) Bind(i int, value any) error {
	if s.stmt == nil {
		return ErrStmtClosed
	}
	if i < 1 {
		return rangeError(i)
	}
	return s.bindAny(i, value)
}

// BindName assigns a value to the named parameter, for example ":id".
// A name the statement does not contain is an error, never a silent
// skip.
func (s *Statement) BindName(name string, value any) error {
	if s.stmt == nil {
		return ErrStmtClosed
	}
	i, ok := s.ParameterIndex(name)
	if !ok {
		return rangeError(name)
	}
	return s.bindAny(i, value)
}

func (s *Statement) bindAny(i int, value any) error {
	if value == nil {
		return s.bindResult(sqlite3_bind_null(s.stmt, i))
	}
	switch x := value.(type) {
	case int:
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, int64(x)))
	case int8:
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, int64(x)))
	case int16:
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, int64(x)))
	case int32:
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, int64(x)))
	case int64:
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, x))
	case uint:
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, int64(x)))
	case uint8:
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, int64(x)))
	case uint16:
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, int64(x)))
	case uint32:
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, int64(x)))
	case uint64:
		// The engine's integers are signed; cap instead of wrapping.
		v := int64(math.MaxInt64)
		if x <= uint64(math.MaxInt64) {
			v = int64(x)
		}
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, v))
	case float32:
		return s.bindResult(sqlite3_bind_double(s.stmt, i, float64(x)))
	case float64:
		return s.bindResult(sqlite3_bind_double(s.stmt, i, x))
	case bool:
		v := int64(0)
		if x {
			v = 1
		}
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, v))
	case string:
		return s.bindResult(sqlite3_bind_text(s.stmt, i, x))
	case []byte:
		return s.bindResult(sqlite3_bind_blob(s.stmt, i, x))
	case time.Time:
		return s.bindResult(sqlite3_bind_text(s.stmt, i, x.Format(TimeFormat)))
	case Value:
		return s.bindValue(i, x)
	case *int64:
		if x == nil {
			return s.bindResult(sqlite3_bind_null(s.stmt, i))
		}
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, *x))
	case *float64:
		if x == nil {
			return s.bindResult(sqlite3_bind_null(s.stmt, i))
		}
		return s.bindResult(sqlite3_bind_double(s.stmt, i, *x))
	case *bool:
		if x == nil {
			return s.bindResult(sqlite3_bind_null(s.stmt, i))
		}
		return s.bindAny(i, *x)
	case *string:
		if x == nil {
			return s.bindResult(sqlite3_bind_null(s.stmt, i))
		}
		return s.bindResult(sqlite3_bind_text(s.stmt, i, *x))
	case *[]byte:
		if x == nil {
			return s.bindResult(sqlite3_bind_null(s.stmt, i))
		}
		return s.bindResult(sqlite3_bind_blob(s.stmt, i, *x))
	case *time.Time:
		if x == nil {
			return s.bindResult(sqlite3_bind_null(s.stmt, i))
		}
		return s.bindResult(sqlite3_bind_text(s.stmt, i, x.Format(TimeFormat)))
	default:
		return errorf("sqlite: failed to convert %T for binding", value)
	}
}

func (s *Statement) bindValue(i int, v Value) error {
	switch v.kind {
	case TypeBinary:
		return s.bindResult(sqlite3_bind_blob(s.stmt, i, v.binary))
	case TypeFloat:
		return s.bindResult(sqlite3_bind_double(s.stmt, i, v.float))
	case TypeInteger:
		return s.bindResult(sqlite3_bind_int64(s.stmt, i, v.integer))
	case TypeString:
		return s.bindResult(sqlite3_bind_text(s.stmt, i, v.text))
	}
	return s.bindResult(sqlite3_bind_null(s.stmt, i))
}

func (s *Statement) bindResult(code resultCode) error {
	if code == codeOK {
		return nil
	}
	return s.conn.lastError(code)
}

// Read reads the 0-based column i of the current row as T. Reading a
// column whose realized type does not match T is an error; reading as
// Value always succeeds.
func Read[T ReadableType](s *Statement, i int) (T, error) {
	v, err := s.Value(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return convertValue[T](v, i)
}

// ReadNullable reads the 0-based column i of the current row as T,
// with nil standing for an SQL null. It is the read-side counterpart
// of binding a nil pointer.
func ReadNullable[T ReadableType](s *Statement, i int) (*T, error) {
	v, err := s.Value(i)
	if err != nil {
		return nil, err
	}
	return convertNullable[T](v, i)
}

func convertNullable[T ReadableType](v Value, column any) (*T, error) {
	if v.IsNull() {
		return nil, nil
	}
	out, err := convertValue[T](v, column)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func convertValue[T ReadableType](v Value, column any) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *Value:
		*p = v
		return out, nil
	case *int64:
		switch v.kind {
		case TypeInteger:
			*p = v.integer
			return out, nil
		case TypeFloat:
			*p = int64(v.float)
			return out, nil
		}
	case *float64:
		switch v.kind {
		case TypeFloat:
			*p = v.float
			return out, nil
		case TypeInteger:
			*p = float64(v.integer)
			return out, nil
		}
	case *string:
		if v.kind == TypeString {
			*p = v.text
			return out, nil
		}
	case *[]byte:
		if v.kind == TypeBinary {
			*p = bytes.Clone(v.binary)
			return out, nil
		}
	}
	return out, convertError(column)
}

func convertError(column any) *Error {
	return &Error{Message: fmt.Sprintf("sqlite: column %#v could not be read", column)}
}
