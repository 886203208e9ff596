package sqlite

// Cursor drives a prepared statement row by row. TryNext hands out a
// scratch buffer that is reused on every advance; Next materializes an
// independent Row instead. A cursor either borrows its statement,
// leaving it reusable after Close, or owns it and finalizes it.
type Cursor struct {
	stmt    *Statement
	owned   bool
	values  []Value
	columns map[string]int
}

// Cursor wraps the statement in a borrowing cursor. Closing the cursor
// resets the statement so it can be bound and run again.
func (s *Statement) Cursor() *Cursor {
	return &Cursor{stmt: s}
}

// OwnedCursor wraps the statement in a cursor that assumes ownership.
// Closing the cursor finalizes the statement.
func (s *Statement) OwnedCursor() *Cursor {
	return &Cursor{stmt: s, owned: true}
}

// Bind resets the statement, rebinds its parameters from the given
// values in order starting at parameter 1, and returns the cursor so
// calls can be chained.
func (c *Cursor) Bind(args ...any) (*Cursor, error) {
	if c.stmt == nil {
		return nil, ErrCursorClosed
	}
	if err := c.stmt.Reset(); err != nil {
		return nil, err
	}
	for i, arg := range args {
		if err := c.stmt.Bind(i+1, arg); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BindNamed resets the statement and rebinds its parameters by name.
// Every name has to match a parameter of the statement, prefix
// included, as in ":name"; an unknown name is an error.
func (c *Cursor) BindNamed(args map[string]any) (*Cursor, error) {
	if c.stmt == nil {
		return nil, ErrCursorClosed
	}
	if err := c.stmt.Reset(); err != nil {
		return nil, err
	}
	for name, arg := range args {
		if err := c.stmt.BindName(name, arg); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ColumnCount returns the number of columns the cursor produces per
// row.
func (c *Cursor) ColumnCount() int {
	if c.stmt == nil {
		return 0
	}
	return c.stmt.ColumnCount()
}

// TryNext advances to the next row and returns its values, or nil once
// the statement is done. The returned slice is an internal buffer that
// the following TryNext overwrites; callers that need the values past
// one iteration copy them out or use Next.
func (c *Cursor) TryNext() ([]Value, error) {
	if c.stmt == nil {
		return nil, ErrCursorClosed
	}
	state, err := c.stmt.Next()
	if err != nil {
		return nil, err
	}
	if state == StateDone {
		return nil, nil
	}
	if c.values == nil {
		c.values = make([]Value, c.stmt.ColumnCount())
	}
	for i := range c.values {
		v, err := c.stmt.Value(i)
		if err != nil {
			return nil, err
		}
		c.values[i] = v
	}
	return c.values, nil
}

// Next advances to the next row and returns it as an independent Row
// snapshot, or nil once the statement is done. All rows produced by
// one cursor share a single column-name index.
func (c *Cursor) Next() (*Row, error) {
	values, err := c.TryNext()
	if err != nil || values == nil {
		return nil, err
	}
	if c.columns == nil {
		names := c.stmt.ColumnNames()
		columns := make(map[string]int, len(names))
		for i, name := range names {
			columns[name] = i
		}
		c.columns = columns
	}
	snapshot := make([]Value, len(values))
	copy(snapshot, values)
	return newRow(snapshot, c.columns), nil
}

// Close releases the cursor. A borrowing cursor resets its statement
// and leaves it usable; an owning cursor finalizes it. Close is
// idempotent.
func (c *Cursor) Close() error {
	if c.stmt == nil {
		return nil
	}
	stmt := c.stmt
	c.stmt = nil
	c.values = nil
	c.columns = nil
	if c.owned {
		return stmt.Close()
	}
	return stmt.Reset()
}
