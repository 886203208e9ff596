package sqlite

// State is the observable state of a prepared statement after a step.
type State int

const (
	// StateRow means a result row is available for reading.
	StateRow State = iota + 1
	// StateDone means the statement has been entirely evaluated.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRow:
		return "row"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Statement is a single compiled SQL statement. It is created with
// Connection.Prepare, driven with Bind and Next, brought back to its
// initial state with Reset, and released with Close. A statement owns
// exactly one engine handle and must not be used from multiple
// goroutines at once.
type Statement struct {
	conn *Connection
	stmt stmtHandle

	// Execution state as last observed. The engine re-executes a
	// finished statement on the next step, so completion is latched
	// here to keep Next idempotent after StateDone until a Reset.
	state State
}

// Next advances the statement one step and reports whether a result
// row is available (StateRow) or the evaluation has finished
// (StateDone). Call it repeatedly until StateDone to evaluate the
// statement entirely. Once StateDone has been reported, further calls
// keep reporting StateDone until Reset. After an error the engine
// state is undefined and stepping further is not meaningful.
func (s *Statement) Next() (State, error) {
	if s.stmt == nil {
		return 0, ErrStmtClosed
	}
	if s.state == StateDone {
		return StateDone, nil
	}
	switch code := sqlite3_step(s.stmt); code {
	case codeRow:
		s.state = StateRow
		return StateRow, nil
	case codeDone:
		s.state = StateDone
		return StateDone, nil
	default:
		s.state = 0
		return 0, s.conn.lastError(code)
	}
}

// Reset returns the statement to its initial state so that it can be
// evaluated again. Bound parameter values survive a reset; call
// ClearBindings or rebind to replace them.
func (s *Statement) Reset() error {
	if s.stmt == nil {
		return ErrStmtClosed
	}
	s.state = 0
	if code := sqlite3_reset(s.stmt); code != codeOK {
		return s.conn.lastError(code)
	}
	return nil
}

// ClearBindings rebinds every parameter of the statement to null.
func (s *Statement) ClearBindings() error {
	if s.stmt == nil {
		return ErrStmtClosed
	}
	if code := sqlite3_clear_bindings(s.stmt); code != codeOK {
		return s.conn.lastError(code)
	}
	return nil
}

// ColumnCount returns the number of columns the statement produces.
// The column set is fixed when the statement is compiled.
func (s *Statement) ColumnCount() int {
	if s.stmt == nil {
		return 0
	}
	return sqlite3_column_count(s.stmt)
}

// ColumnName returns the name of the 0-based column i, or an empty
// string when i is out of range.
func (s *Statement) ColumnName(i int) string {
	if s.stmt == nil || i < 0 || i >= s.ColumnCount() {
		return ""
	}
	return sqlite3_column_name(s.stmt, i)
}

// ColumnNames returns the names of all columns in order.
func (s *Statement) ColumnNames() []string {
	names := make([]string, s.ColumnCount())
	for i := range names {
		names[i] = sqlite3_column_name(s.stmt, i)
	}
	return names
}

// ColumnDeclaredType returns the type declared for the 0-based column
// i in the schema, or an empty string for expressions and out-of-range
// indices.
func (s *Statement) ColumnDeclaredType(i int) string {
	if s.stmt == nil || i < 0 || i >= s.ColumnCount() {
		return ""
	}
	return sqlite3_column_decltype(s.stmt, i)
}

// ColumnType returns the realized type of the 0-based column i of the
// current row. The type is only meaningful in StateRow; before the
// first step and after completion it reports TypeNull.
func (s *Statement) ColumnType(i int) Type {
	if s.stmt == nil || s.state != StateRow || i < 0 || i >= s.ColumnCount() {
		return TypeNull
	}
	return sqlite3_column_type(s.stmt, i).valueType()
}

// Value reads the 0-based column i of the current row. Outside
// StateRow every column reads as Null.
func (s *Statement) Value(i int) (Value, error) {
	if s.stmt == nil {
		return Null, ErrStmtClosed
	}
	if i < 0 || i >= s.ColumnCount() {
		return Null, rangeError(i)
	}
	if s.state != StateRow {
		return Null, nil
	}
	switch sqlite3_column_type(s.stmt, i) {
	case typeCodeInteger:
		return Integer(sqlite3_column_int64(s.stmt, i)), nil
	case typeCodeFloat:
		return Float(sqlite3_column_double(s.stmt, i)), nil
	case typeCodeText:
		text, ok := sqlite3_column_text(s.stmt, i)
		if !ok {
			return Null, errorf("sqlite: column %d could not be read", i)
		}
		return String(text), nil
	case typeCodeBlob:
		return Value{kind: TypeBinary, binary: sqlite3_column_blob(s.stmt, i)}, nil
	}
	return Null, nil
}

// ParameterIndex returns the 1-based position of the named parameter,
// for example ":name", and false when the statement has no parameter
// with that name.
func (s *Statement) ParameterIndex(name string) (int, bool) {
	if s.stmt == nil {
		return 0, false
	}
	index := sqlite3_bind_parameter_index(s.stmt, name)
	return index, index > 0
}

// ParameterCount returns the number of parameters in the statement.
func (s *Statement) ParameterCount() int {
	if s.stmt == nil {
		return 0
	}
	return sqlite3_bind_parameter_count(s.stmt)
}

// Close finalizes the statement and releases its engine handle. It is
// idempotent. Any failure of the final evaluation has already been
// reported by Next, so Close itself does not fail.
func (s *Statement) Close() error {
	if s.stmt == nil {
		return nil
	}
	sqlite3_finalize(s.stmt)
	s.stmt = nil
	s.state = 0
	return nil
}
