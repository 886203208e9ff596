package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultBusyTimeout is applied to every driver connection whose DSN
// does not set _busy_timeout itself.
const DefaultBusyTimeout = 5 * time.Second

type sqliteDriver struct{}

type sqliteConn struct {
	conn *Connection

	mu          sync.Mutex
	closed      bool
	busyTimeout int // current busy timeout in milliseconds
}

type sqliteStmt struct {
	conn      *sqliteConn
	sql       string
	numInputs int
	closed    bool
}

type sqliteRows struct {
	stmt      *Statement
	columns   []string
	decltypes []string

	closed bool
	err    error
}

type sqliteResult struct {
	lastInsertID int64
	rowsAffected int64
}

type sqliteTx struct {
	conn *sqliteConn
	done bool
}

// register driver
func init() {
	sql.Register("sqlite", &sqliteDriver{})
}

// Implement sql.Driver methods
func (d *sqliteDriver) Open(dsn string) (driver.Conn, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return openConn(cfg)
}

func openConn(cfg dsnConfig) (*sqliteConn, error) {
	conn, err := OpenWithFlags(cfg.path, cfg.flags)
	if err != nil {
		return nil, err
	}
	// A timeout of 0 in the config means none was requested, so the
	// default applies; -1 means it was explicitly disabled.
	timeout := cfg.busyTimeout
	if timeout == 0 {
		timeout = int(DefaultBusyTimeout / time.Millisecond)
	} else if timeout < 0 {
		timeout = 0
	}
	if timeout > 0 {
		if err := conn.SetBusyTimeout(time.Duration(timeout) * time.Millisecond); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return &sqliteConn{conn: conn, busyTimeout: timeout}, nil
}

// --- driver.Conn and friends ---

// Ensure sqliteConn implements required interfaces.
var (
	_ driver.Conn               = (*sqliteConn)(nil)
	_ driver.ConnPrepareContext = (*sqliteConn)(nil)
	_ driver.ExecerContext      = (*sqliteConn)(nil)
	_ driver.QueryerContext     = (*sqliteConn)(nil)
	_ driver.Pinger             = (*sqliteConn)(nil)
	_ driver.ConnBeginTx        = (*sqliteConn)(nil)
)

func (c *sqliteConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *sqliteConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	// Compile once to validate the text and count the parameters, then
	// let go of the handle; Exec and Query compile their own.
	stmt, _, err := c.conn.prepare(query)
	if err != nil {
		return nil, err
	}
	num := stmt.ParameterCount()
	_ = stmt.Close()

	return &sqliteStmt{
		conn:      c,
		sql:       query,
		numInputs: num,
	}, nil
}

func (c *sqliteConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return err
		}
		c.conn = nil
	}
	c.closed = true
	return nil
}

func (c *sqliteConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *sqliteConn) BeginTx(ctx context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	_, err := c.ExecContext(ctx, "BEGIN", nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{conn: c}, nil
}

func (c *sqliteConn) Ping(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	rows, err := c.QueryContext(ctx, "SELECT 1", nil)
	if err != nil {
		return err
	}
	return rows.Close()
}

func (c *sqliteConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	// Multi-statement support for Exec-family
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	var lastInsert int64
	first := true
	rest := query
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if trimStatementText(rest) == "" {
			break
		}
		stmt, tail, err := c.conn.prepare(rest)
		if err != nil {
			return nil, err
		}
		rest = tail

		// Bind only for the first statement
		if first && len(args) > 0 {
			if err := bindArgs(stmt, args); err != nil {
				_ = stmt.Close()
				return nil, err
			}
		}
		before := c.conn.TotalChanges()
		err = stepFully(ctx, stmt)
		cerr := stmt.Close()
		if err != nil {
			return nil, err
		}
		if cerr != nil {
			return nil, cerr
		}
		// The running total-changes counter isolates each statement's
		// contribution; the plain changes counter would repeat the last
		// write for statements that change nothing.
		affected := int64(c.conn.TotalChanges() - before)
		if affected > math.MaxInt64-total {
			total = math.MaxInt64
		} else {
			total += affected
		}
		lastInsert = c.conn.LastInsertRowID()
		first = false
	}
	return &sqliteResult{
		lastInsertID: lastInsert,
		rowsAffected: total,
	}, nil
}

func (c *sqliteConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	// Only single-statement queries supported here
	stmt, tail, err := c.conn.prepare(query)
	if err != nil {
		return nil, err
	}
	if trimStatementText(tail) != "" {
		_ = stmt.Close()
		return nil, errorf("sqlite: the query holds more than one statement")
	}
	if len(args) > 0 {
		if err := bindArgs(stmt, args); err != nil {
			_ = stmt.Close()
			return nil, err
		}
	}
	// Return the rows wrapper without stepping; the cursor stays
	// before the first row.
	return &sqliteRows{stmt: stmt}, nil
}

func (c *sqliteConn) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return ErrConnClosed
	}
	return nil
}

// SetBusyTimeout sets the busy timeout for this connection. A zero or
// negative duration disables the busy handler, producing an immediate
// busy error on contention. Reachable through sql.Conn.Raw.
func (c *sqliteConn) SetBusyTimeout(d time.Duration) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < 0 {
		d = 0
	}
	if err := c.conn.SetBusyTimeout(d); err != nil {
		return err
	}
	c.busyTimeout = int(d / time.Millisecond)
	return nil
}

// GetBusyTimeout returns the current busy timeout, zero when the busy
// handler is disabled.
func (c *sqliteConn) GetBusyTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.busyTimeout) * time.Millisecond
}

// --- Connector Pattern ---

// ConnectorOption configures a Connector.
type ConnectorOption func(*Connector)

// WithBusyTimeout sets the busy timeout for connections made by the
// connector. A zero or negative duration disables the busy handler;
// without this option DefaultBusyTimeout applies.
func WithBusyTimeout(d time.Duration) ConnectorOption {
	return func(c *Connector) {
		c.busyTimeout = d
		c.busySet = true
	}
}

// Connector implements driver.Connector for programmatic configuration
// with sql.OpenDB.
type Connector struct {
	dsn         string
	busyTimeout time.Duration
	busySet     bool
}

// NewConnector creates a new Connector with the given DSN and options.
func NewConnector(dsn string, opts ...ConnectorOption) (*Connector, error) {
	c := &Connector{dsn: dsn}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect implements driver.Connector.
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	cfg, err := parseDSN(c.dsn)
	if err != nil {
		return nil, err
	}
	// An option wins over the DSN; explicitly disabling maps onto the
	// config's -1 so openConn does not substitute the default.
	if c.busySet {
		if c.busyTimeout <= 0 {
			cfg.busyTimeout = -1
		} else {
			cfg.busyTimeout = int(c.busyTimeout / time.Millisecond)
		}
	}
	return openConn(cfg)
}

// Driver implements driver.Connector.
func (c *Connector) Driver() driver.Driver {
	return &sqliteDriver{}
}

// Ensure Connector implements driver.Connector
var _ driver.Connector = (*Connector)(nil)

// --- driver.Stmt and friends ---

// Ensure sqliteStmt implements required interfaces.
var (
	_ driver.Stmt             = (*sqliteStmt)(nil)
	_ driver.StmtExecContext  = (*sqliteStmt)(nil)
	_ driver.StmtQueryContext = (*sqliteStmt)(nil)
)

func (s *sqliteStmt) Close() error {
	s.closed = true
	return nil
}

func (s *sqliteStmt) NumInput() int {
	return s.numInputs
}

func (s *sqliteStmt) Exec(args []driver.Value) (driver.Result, error) {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return s.ExecContext(context.Background(), named)
}

func (s *sqliteStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if s.closed {
		return nil, ErrStmtClosed
	}
	return s.conn.ExecContext(ctx, s.sql, args)
}

func (s *sqliteStmt) Query(args []driver.Value) (driver.Rows, error) {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return s.QueryContext(context.Background(), named)
}

func (s *sqliteStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if s.closed {
		return nil, ErrStmtClosed
	}
	return s.conn.QueryContext(ctx, s.sql, args)
}

// --- driver.Rows ---

// Ensure sqliteRows implements the required interfaces.
var (
	_ driver.Rows                           = (*sqliteRows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*sqliteRows)(nil)
)

func (r *sqliteRows) Columns() []string {
	if r.columns != nil {
		return r.columns
	}
	n := r.stmt.ColumnCount()
	names := make([]string, n)
	decltypes := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = r.stmt.ColumnName(i)
		decltypes[i] = r.stmt.ColumnDeclaredType(i)
	}
	r.columns = names
	r.decltypes = decltypes
	return r.columns
}

// ColumnTypeDatabaseTypeName reports the column's declared type as
// written in the schema, empty for expressions.
func (r *sqliteRows) ColumnTypeDatabaseTypeName(index int) string {
	_ = r.Columns()
	if index < 0 || index >= len(r.decltypes) {
		return ""
	}
	return r.decltypes[index]
}

func (r *sqliteRows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.stmt.Close()
}

func (r *sqliteRows) Next(dest []driver.Value) error {
	if r.closed {
		return io.EOF
	}
	// Ensure decltypes are populated
	_ = r.Columns()
	state, err := r.stmt.Next()
	if err != nil {
		r.err = err
		return err
	}
	if state == StateDone {
		return io.EOF
	}
	n := r.stmt.ColumnCount()
	if len(dest) != n {
		return fmt.Errorf("sqlite: expected %d dests, got %d", n, len(dest))
	}
	for i := 0; i < n; i++ {
		v, err := r.stmt.Value(i)
		if err != nil {
			r.err = err
			return err
		}
		switch v.Kind() {
		case TypeInteger:
			dest[i], _ = v.Int64()
		case TypeFloat:
			dest[i], _ = v.Float64()
		case TypeString:
			text, _ := v.Text()
			// A declared time column comes back as time.Time, the way
			// users of github.com/mattn/go-sqlite3 expect.
			if i < len(r.decltypes) && isTimeColumn(r.decltypes[i]) {
				if t, err := parseTimeString(text); err == nil {
					dest[i] = t
					continue
				}
			}
			dest[i] = text
		case TypeBinary:
			dest[i], _ = v.Bytes()
		default:
			dest[i] = nil
		}
	}
	return nil
}

// --- driver.Result ---

var _ driver.Result = (*sqliteResult)(nil)

func (r *sqliteResult) LastInsertId() (int64, error) {
	return r.lastInsertID, nil
}

func (r *sqliteResult) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}

// --- driver.Tx ---

var _ driver.Tx = (*sqliteTx)(nil)

func (tx *sqliteTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	_, err := tx.conn.ExecContext(context.Background(), "COMMIT", nil)
	tx.done = true
	return err
}

func (tx *sqliteTx) Rollback() error {
	if tx.done {
		return ErrTxDone
	}
	_, err := tx.conn.ExecContext(context.Background(), "ROLLBACK", nil)
	tx.done = true
	return err
}

// Helpers

type dsnConfig struct {
	path  string
	flags OpenFlags
	// busy timeout in milliseconds: 0 = default, -1 = disabled
	busyTimeout int
}

// parseDSN supports format: <path>[?mode=ro|rw|rwc|memory&cache=shared|private&_busy_timeout=<ms>].
// A "file:" DSN is passed to the engine as a URI, which resolves mode
// and cache itself; _busy_timeout is always handled here.
func parseDSN(dsn string) (dsnConfig, error) {
	cfg := dsnConfig{path: dsn, flags: OpenReadWrite | OpenCreate}
	uri := strings.HasPrefix(dsn, "file:")
	if uri {
		cfg.flags |= OpenURI
	}
	qMark := strings.IndexByte(dsn, '?')
	if qMark < 0 {
		return cfg, nil
	}
	vals, err := url.ParseQuery(dsn[qMark+1:])
	if err != nil {
		return dsnConfig{}, err
	}
	if !uri {
		cfg.path = dsn[:qMark]
		if v := vals.Get("mode"); v != "" {
			switch v {
			case "ro":
				cfg.flags = cfg.flags&^(OpenReadWrite|OpenCreate) | OpenReadOnly
			case "rw":
				cfg.flags &^= OpenCreate
			case "rwc":
			case "memory":
				cfg.flags |= OpenMemory
			default:
				return dsnConfig{}, fmt.Errorf("sqlite: unknown mode %q", v)
			}
		}
		if v := vals.Get("cache"); v != "" {
			switch v {
			case "shared":
				cfg.flags |= OpenSharedCache
			case "private":
				cfg.flags |= OpenPrivateCache
			default:
				return dsnConfig{}, fmt.Errorf("sqlite: unknown cache %q", v)
			}
		}
	}
	if v := vals.Get("_busy_timeout"); v != "" {
		timeout, err := strconv.Atoi(v)
		if err != nil {
			return dsnConfig{}, fmt.Errorf("sqlite: invalid _busy_timeout %q", v)
		}
		if timeout <= 0 {
			cfg.busyTimeout = -1
		} else {
			cfg.busyTimeout = timeout
		}
	}
	return cfg, nil
}

// stepFully drives a statement to completion, discarding rows.
func stepFully(ctx context.Context, stmt *Statement) error {
	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		state, err := stmt.Next()
		if err != nil {
			return err
		}
		if state == StateDone {
			return nil
		}
	}
}

// bindArgs binds ordered and named values to a statement. Named values
// are resolved against the ":", "@", and "$" placeholder prefixes,
// otherwise ordinal positions are used (1-based).
func bindArgs(stmt *Statement, args []driver.NamedValue) error {
	// Validate number of inputs if no named args present
	if len(args) > 0 {
		hasNamed := false
		for _, nv := range args {
			if nv.Name != "" {
				hasNamed = true
				break
			}
		}
		if !hasNamed {
			if want := stmt.ParameterCount(); len(args) != want {
				return fmt.Errorf("sqlite: got %d args, want %d", len(args), want)
			}
		}
	}
	for idx, nv := range args {
		pos := idx + 1
		if nv.Name != "" {
			pos = 0
			for _, prefix := range []string{":", "@", "$"} {
				if p, ok := stmt.ParameterIndex(prefix + nv.Name); ok {
					pos = p
					break
				}
			}
			if pos <= 0 {
				return fmt.Errorf("sqlite: unknown named parameter %q", nv.Name)
			}
		} else if nv.Ordinal > 0 {
			pos = nv.Ordinal
		}
		if err := stmt.Bind(pos, nv.Value); err != nil {
			return err
		}
	}
	return nil
}

// isTimeColumn checks if the column declared type indicates a
// time/date column. This matches the behavior of
// github.com/mattn/go-sqlite3.
func isTimeColumn(decltype string) bool {
	if decltype == "" {
		return false
	}
	upper := strings.ToUpper(decltype)
	return upper == "TIMESTAMP" || upper == "DATETIME" || upper == "DATE"
}

// SQLiteTimestampFormats are the timestamp formats supported by
// go-sqlite3.
// https://github.com/mattn/go-sqlite3/blob/master/sqlite3.go
var SQLiteTimestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTimeString attempts to parse a string as a time.Time value.
// This matches the behavior of github.com/mattn/go-sqlite3.
func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSuffix(s, "Z")
	for _, format := range SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}
