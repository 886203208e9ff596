package sqlite

import "strings"

// Transaction is an open BEGIN..COMMIT scope on a connection. The
// first Commit or Rollback consumes it; later calls report ErrTxDone.
// Deferring Rollback is therefore safe: after a successful Commit the
// deferred call only reports the sentinel.
type Transaction struct {
	conn *Connection
	done bool
}

// Begin opens a transaction on the connection. Transactions do not
// nest; use Savepoint inside an open transaction.
func (c *Connection) Begin() (*Transaction, error) {
	if c.db == nil {
		return nil, ErrConnClosed
	}
	if err := c.Execute("BEGIN"); err != nil {
		return nil, err
	}
	return &Transaction{conn: c}, nil
}

// Commit makes the transaction's changes permanent and consumes it.
func (t *Transaction) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return t.conn.Execute("COMMIT")
}

// Rollback discards the transaction's changes and consumes it.
func (t *Transaction) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return t.conn.Execute("ROLLBACK")
}

// Savepoint is a named rollback point inside a transaction. Like a
// Transaction it is consumed by its first Release or Rollback, after
// which both report ErrSavepointDone.
type Savepoint struct {
	conn *Connection
	name string
	done bool
}

// Savepoint establishes a named savepoint. Savepoints nest, and
// opening one outside a transaction starts an implicit one.
func (c *Connection) Savepoint(name string) (*Savepoint, error) {
	if c.db == nil {
		return nil, ErrConnClosed
	}
	if err := c.Execute("SAVEPOINT " + quoteIdentifier(name)); err != nil {
		return nil, err
	}
	return &Savepoint{conn: c, name: name}, nil
}

// Name returns the name the savepoint was created with.
func (s *Savepoint) Name() string {
	return s.name
}

// Release keeps the work done since the savepoint and consumes it.
func (s *Savepoint) Release() error {
	if s.done {
		return ErrSavepointDone
	}
	s.done = true
	return s.conn.Execute("RELEASE " + quoteIdentifier(s.name))
}

// Rollback reverts the work done since the savepoint and consumes this
// handle. The engine keeps the savepoint itself on its stack, so a new
// handle for the same name can be established again afterwards.
func (s *Savepoint) Rollback() error {
	if s.done {
		return ErrSavepointDone
	}
	s.done = true
	return s.conn.Execute("ROLLBACK TO " + quoteIdentifier(s.name))
}

// quoteIdentifier renders name as a double-quoted SQL identifier so
// arbitrary savepoint names stay plain data.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
