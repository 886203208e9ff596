package sqlite

// ColumnKey addresses a column of a row either by its 0-based position
// or by its name.
type ColumnKey interface {
	int | string
}

// Row is one materialized result row: an ordered sequence of values
// plus a column-name index shared with the cursor that produced it. A
// row is an independent snapshot; it stays valid however far the
// cursor moves on.
type Row struct {
	values  []Value
	columns map[string]int
}

func newRow(values []Value, columns map[string]int) *Row {
	return &Row{values: values, columns: columns}
}

// Len returns the number of columns in the row.
func (r *Row) Len() int {
	return len(r.values)
}

// Index returns the 0-based position of the named column, and false
// when the row has no column with that name.
func (r *Row) Index(name string) (int, bool) {
	i, ok := r.columns[name]
	return i, ok
}

// Columns returns the column names in positional order. When the
// statement produced duplicate names, the later column keeps the name.
func (r *Row) Columns() []string {
	names := make([]string, len(r.values))
	for name, i := range r.columns {
		if i >= 0 && i < len(names) {
			names[i] = name
		}
	}
	return names
}

// Values returns a copy of the row's values in positional order.
func (r *Row) Values() []Value {
	out := make([]Value, len(r.values))
	copy(out, r.values)
	return out
}

// Equal reports whether two rows carry equal value sequences. Column
// names are metadata and take no part in the comparison.
func (r *Row) Equal(o *Row) bool {
	if len(r.values) != len(o.values) {
		return false
	}
	for i := range r.values {
		if !r.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

// Get reads one cell of the row as T, addressed by position or by
// name. An unknown name, an out-of-range position, and a cell whose
// type does not convert to T are all reported as errors.
func Get[T ReadableType, K ColumnKey](r *Row, column K) (T, error) {
	v, ok := cellOf(r, column)
	if !ok {
		var zero T
		return zero, convertError(column)
	}
	return convertValue[T](v, column)
}

// GetNullable reads one cell of the row as T with nil standing for an
// SQL null, addressed by position or by name.
func GetNullable[T ReadableType, K ColumnKey](r *Row, column K) (*T, error) {
	v, ok := cellOf(r, column)
	if !ok {
		return nil, convertError(column)
	}
	return convertNullable[T](v, column)
}

// MustGet is Get with the error turned into a panic, for call sites
// that have already validated the row shape.
func MustGet[T ReadableType, K ColumnKey](r *Row, column K) T {
	v, err := Get[T](r, column)
	if err != nil {
		panic(err)
	}
	return v
}

// Take removes one cell from the row and returns it, leaving Null in
// its place; taking the same cell again therefore yields Null. It
// panics on an unknown name or an out-of-range position.
func Take[K ColumnKey](r *Row, column K) Value {
	i := -1
	switch c := any(column).(type) {
	case int:
		i = c
	case string:
		if j, ok := r.columns[c]; ok {
			i = j
		}
	}
	if i < 0 || i >= len(r.values) {
		panic(convertError(column))
	}
	v := r.values[i]
	r.values[i] = Null
	return v
}

func cellOf[K ColumnKey](r *Row, column K) (Value, bool) {
	switch c := any(column).(type) {
	case int:
		if c < 0 || c >= len(r.values) {
			return Null, false
		}
		return r.values[c], true
	case string:
		i, ok := r.columns[c]
		if !ok || i < 0 || i >= len(r.values) {
			return Null, false
		}
		return r.values[i], true
	}
	return Null, false
}
