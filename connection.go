package sqlite

import (
	"sync"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"
)

// OpenFlags control how a database file is opened. They combine with
// bitwise or and map directly onto the engine's open flags.
type OpenFlags int32

const (
	OpenReadOnly     OpenFlags = 0x00000001
	OpenReadWrite    OpenFlags = 0x00000002
	OpenCreate       OpenFlags = 0x00000004
	OpenURI          OpenFlags = 0x00000040
	OpenMemory       OpenFlags = 0x00000080
	OpenNoMutex      OpenFlags = 0x00008000
	OpenFullMutex    OpenFlags = 0x00010000
	OpenSharedCache  OpenFlags = 0x00020000
	OpenPrivateCache OpenFlags = 0x00040000
)

// Connection is an open database. A connection and the statements it
// prepares belong to one goroutine at a time; wrap it in a pool or use
// the database/sql driver for concurrent access.
type Connection struct {
	db connHandle
}

// Open opens the database at the given path, creating it when missing.
// The path ":memory:" opens a private in-memory database.
func Open(path string) (*Connection, error) {
	return OpenWithFlags(path, OpenReadWrite|OpenCreate)
}

// OpenWithFlags opens the database at the given path with exactly the
// given flags.
func OpenWithFlags(path string, flags OpenFlags) (*Connection, error) {
	if err := ensureLoaded(); err != nil {
		return nil, err
	}
	db, code := sqlite3_open_v2(path, int32(flags))
	if code != codeOK {
		if db != nil {
			// The engine allocates a handle even when the open fails;
			// pull the message off it before letting it go.
			err := (&Connection{db: db}).lastError(code)
			sqlite3_close(db)
			return nil, err
		}
		return nil, &Error{Code: int(code)}
	}
	return &Connection{db: db}, nil
}

// lastError turns a non-OK result code into an *Error carrying the
// connection's current error code and message.
func (c *Connection) lastError(code resultCode) error {
	e := &Error{Code: int(code)}
	if c != nil && c.db != nil {
		if ec := sqlite3_errcode(c.db); ec != 0 {
			e.Code = ec
		}
		e.Message = sqlite3_errmsg(c.db)
	}
	return e
}

// Prepare compiles the first statement in the text, ignoring anything
// after it; use Execute to run multi-statement scripts.
func (c *Connection) Prepare(sql string) (*Statement, error) {
	stmt, _, err := c.prepare(sql)
	return stmt, err
}

// prepare compiles the first statement and returns the unparsed
// remainder of the text. The engine reports whitespace, comments, and
// bare separators as a nil handle, so those are skipped here.
func (c *Connection) prepare(sql string) (*Statement, string, error) {
	if c.db == nil {
		return nil, "", ErrConnClosed
	}
	for {
		stmt, tail, code := sqlite3_prepare_v2(c.db, sql)
		if code != codeOK {
			return nil, "", c.lastError(code)
		}
		if stmt != nil {
			return &Statement{conn: c, stmt: stmt}, sql[tail:], nil
		}
		if tail == 0 || tail >= len(sql) {
			return nil, "", errorf("sqlite: the text holds no statement")
		}
		sql = sql[tail:]
	}
}

// Execute runs every statement in the text in order, discarding any
// rows they produce.
func (c *Connection) Execute(sql string) error {
	return c.run(sql, nil)
}

// Iterate runs every statement in the text and hands each result row
// to process as column names plus text-rendered values, with nil for
// null. Returning false from process stops the iteration without an
// error.
func (c *Connection) Iterate(sql string, process func(columns []string, values []*string) bool) error {
	return c.run(sql, process)
}

func (c *Connection) run(sql string, process func([]string, []*string) bool) error {
	if c.db == nil {
		return ErrConnClosed
	}
	for sql != "" {
		stmt, tail, code := sqlite3_prepare_v2(c.db, sql)
		if code != codeOK {
			return c.lastError(code)
		}
		rest := sql[tail:]
		if stmt == nil {
			// Nothing but whitespace or comments were parsed.
			if tail == 0 {
				return nil
			}
			sql = rest
			continue
		}
		stop, err := c.runOne(stmt, process)
		fcode := sqlite3_finalize(stmt)
		if err != nil {
			return err
		}
		if fcode != codeOK {
			return c.lastError(fcode)
		}
		if stop {
			return nil
		}
		sql = rest
	}
	return nil
}

func (c *Connection) runOne(stmt stmtHandle, process func([]string, []*string) bool) (stop bool, err error) {
	var columns []string
	var values []*string
	for {
		switch code := sqlite3_step(stmt); code {
		case codeDone:
			return false, nil
		case codeRow:
			if process == nil {
				continue
			}
			if columns == nil {
				n := sqlite3_column_count(stmt)
				columns = make([]string, n)
				for i := range columns {
					columns[i] = sqlite3_column_name(stmt, i)
				}
				values = make([]*string, n)
			}
			for i := range values {
				if text, ok := sqlite3_column_text(stmt, i); ok {
					v := text
					values[i] = &v
				} else {
					values[i] = nil
				}
			}
			if !process(columns, values) {
				return true, nil
			}
		default:
			return false, c.lastError(code)
		}
	}
}

// Changes returns the number of rows changed by the most recent
// insert, update, or delete on this connection.
func (c *Connection) Changes() int {
	if c.db == nil {
		return 0
	}
	return sqlite3_changes(c.db)
}

// TotalChanges returns the number of rows changed since the connection
// was opened.
func (c *Connection) TotalChanges() int {
	if c.db == nil {
		return 0
	}
	return sqlite3_total_changes(c.db)
}

// LastInsertRowID returns the row id of the most recent successful
// insert on this connection.
func (c *Connection) LastInsertRowID() int64 {
	if c.db == nil {
		return 0
	}
	return sqlite3_last_insert_rowid(c.db)
}

// SetBusyTimeout makes the connection retry a contended operation for
// up to the given duration before giving up with a busy error. A zero
// or negative duration turns the retrying off.
func (c *Connection) SetBusyTimeout(d time.Duration) error {
	if c.db == nil {
		return ErrConnClosed
	}
	if code := sqlite3_busy_timeout(c.db, int(d/time.Millisecond)); code != codeOK {
		return c.lastError(code)
	}
	return nil
}

// Busy handler callbacks handed to the engine can never be released,
// so one process-wide trampoline dispatches to a registry keyed by the
// connection handle.
var (
	busyMu         sync.Mutex
	busyHandlers   = map[uintptr]func(int) bool{}
	busyTrampoline uintptr
)

// SetBusyHandler installs handler to be called with the running number
// of attempts whenever an operation finds the database locked; the
// operation is retried for as long as the handler returns true. A nil
// handler removes the current one, as does SetBusyTimeout.
func (c *Connection) SetBusyHandler(handler func(attempts int) bool) error {
	if c.db == nil {
		return ErrConnClosed
	}
	key := uintptr(unsafe.Pointer(c.db))
	busyMu.Lock()
	if handler == nil {
		delete(busyHandlers, key)
	} else {
		busyHandlers[key] = handler
		if busyTrampoline == 0 {
			busyTrampoline = purego.NewCallback(func(arg uintptr, attempts int32) int32 {
				busyMu.Lock()
				h := busyHandlers[arg]
				busyMu.Unlock()
				if h != nil && h(int(attempts)) {
					return 1
				}
				return 0
			})
		}
	}
	busyMu.Unlock()
	var code resultCode
	if handler == nil {
		code = sqlite3_busy_handler(c.db, 0, 0)
	} else {
		code = sqlite3_busy_handler(c.db, busyTrampoline, key)
	}
	if code != codeOK {
		return c.lastError(code)
	}
	return nil
}

// Close closes the connection. Every statement prepared on it has to
// be closed first or the engine refuses with a busy error. Close is
// idempotent.
func (c *Connection) Close() error {
	if c.db == nil {
		return nil
	}
	if code := sqlite3_close(c.db); code != codeOK {
		return c.lastError(code)
	}
	busyMu.Lock()
	delete(busyHandlers, uintptr(unsafe.Pointer(c.db)))
	busyMu.Unlock()
	c.db = nil
	return nil
}

// trimStatementText strips leading whitespace and the statement
// separators the engine leaves in the tail after a successful parse.
func trimStatementText(s string) string {
	for len(s) > 0 {
		switch s[0] {
		case ' ', '\t', '\n', '\r', '\v', '\f', ';':
			s = s[1:]
		default:
			return s
		}
	}
	return s
}
