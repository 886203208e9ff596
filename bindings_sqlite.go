package sqlite

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Engine status codes. OK, ROW, and DONE are the only non-error
// statuses; everything else maps onto an Error with that code.
type resultCode int32

const (
	codeOK         resultCode = 0
	codeError      resultCode = 1
	codeInternal   resultCode = 2
	codePerm       resultCode = 3
	codeAbort      resultCode = 4
	codeBusy       resultCode = 5
	codeLocked     resultCode = 6
	codeNoMem      resultCode = 7
	codeReadOnly   resultCode = 8
	codeInterrupt  resultCode = 9
	codeIOErr      resultCode = 10
	codeCorrupt    resultCode = 11
	codeNotFound   resultCode = 12
	codeFull       resultCode = 13
	codeCantOpen   resultCode = 14
	codeProtocol   resultCode = 15
	codeEmpty      resultCode = 16
	codeSchema     resultCode = 17
	codeTooBig     resultCode = 18
	codeConstraint resultCode = 19
	codeMismatch   resultCode = 20
	codeMisuse     resultCode = 21
	codeNoLFS      resultCode = 22
	codeAuth       resultCode = 23
	codeFormat     resultCode = 24
	codeRange      resultCode = 25
	codeNotADB     resultCode = 26
	codeNotice     resultCode = 27
	codeWarning    resultCode = 28
	codeRow        resultCode = 100
	codeDone       resultCode = 101
)

// Fundamental datatype codes reported by column_type.
type typeCode int32

const (
	typeCodeInteger typeCode = 1
	typeCodeFloat   typeCode = 2
	typeCodeText    typeCode = 3
	typeCodeBlob    typeCode = 4
	typeCodeNull    typeCode = 5
)

func (t typeCode) valueType() Type {
	switch t {
	case typeCodeInteger:
		return TypeInteger
	case typeCodeFloat:
		return TypeFloat
	case typeCodeText:
		return TypeString
	case typeCodeBlob:
		return TypeBinary
	}
	return TypeNull
}

// Opaque engine objects, accepted exactly as the engine hands them out.
type sqlite3_conn_t struct{}
type sqlite3_stmt_t struct{}

type connHandle *sqlite3_conn_t
type stmtHandle *sqlite3_stmt_t

// The engine's SQLITE_TRANSIENT destructor: the engine copies the
// buffer before the bind call returns, so Go memory may move freely
// afterwards.
const transientDestructor = ^uintptr(0)

// Extern engine entry points, registered from the loaded library.
var (
	// const char *sqlite3_libversion(void);
	c_sqlite3_libversion func() unsafe.Pointer

	// int sqlite3_libversion_number(void);
	c_sqlite3_libversion_number func() int32

	// int sqlite3_open_v2(const char *filename, sqlite3 **ppDb, int flags, const char *zVfs);
	c_sqlite3_open_v2 func(
		filename unsafe.Pointer,
		db unsafe.Pointer, // sqlite3**
		flags int32,
		vfs unsafe.Pointer, // const char* | NULL
	) resultCode

	// int sqlite3_close(sqlite3*);
	c_sqlite3_close func(db unsafe.Pointer) resultCode

	// int sqlite3_errcode(sqlite3 *db);
	c_sqlite3_errcode func(db unsafe.Pointer) int32

	// const char *sqlite3_errmsg(sqlite3*);
	c_sqlite3_errmsg func(db unsafe.Pointer) unsafe.Pointer

	// int sqlite3_prepare_v2(sqlite3 *db, const char *zSql, int nByte, sqlite3_stmt **ppStmt, const char **pzTail);
	c_sqlite3_prepare_v2 func(
		db unsafe.Pointer,
		sql unsafe.Pointer,
		nBytes int32,
		stmt unsafe.Pointer, // sqlite3_stmt**
		tail unsafe.Pointer, // const char**
	) resultCode

	// int sqlite3_step(sqlite3_stmt*);
	c_sqlite3_step func(stmt unsafe.Pointer) resultCode

	// int sqlite3_reset(sqlite3_stmt*);
	c_sqlite3_reset func(stmt unsafe.Pointer) resultCode

	// int sqlite3_clear_bindings(sqlite3_stmt*);
	c_sqlite3_clear_bindings func(stmt unsafe.Pointer) resultCode

	// int sqlite3_finalize(sqlite3_stmt*);
	c_sqlite3_finalize func(stmt unsafe.Pointer) resultCode

	// int sqlite3_bind_null(sqlite3_stmt*, int);
	c_sqlite3_bind_null func(stmt unsafe.Pointer, index int32) resultCode

	// int sqlite3_bind_int64(sqlite3_stmt*, int, sqlite3_int64);
	c_sqlite3_bind_int64 func(stmt unsafe.Pointer, index int32, value int64) resultCode

	// int sqlite3_bind_double(sqlite3_stmt*, int, double);
	c_sqlite3_bind_double func(stmt unsafe.Pointer, index int32, value float64) resultCode

	// int sqlite3_bind_text(sqlite3_stmt*, int, const char*, int, void(*)(void*));
	c_sqlite3_bind_text func(
		stmt unsafe.Pointer,
		index int32,
		value unsafe.Pointer,
		nBytes int32,
		destructor uintptr,
	) resultCode

	// int sqlite3_bind_blob(sqlite3_stmt*, int, const void*, int, void(*)(void*));
	c_sqlite3_bind_blob func(
		stmt unsafe.Pointer,
		index int32,
		value unsafe.Pointer,
		nBytes int32,
		destructor uintptr,
	) resultCode

	// int sqlite3_bind_parameter_index(sqlite3_stmt*, const char *zName);
	c_sqlite3_bind_parameter_index func(stmt unsafe.Pointer, name unsafe.Pointer) int32

	// int sqlite3_bind_parameter_count(sqlite3_stmt*);
	c_sqlite3_bind_parameter_count func(stmt unsafe.Pointer) int32

	// int sqlite3_column_count(sqlite3_stmt*);
	c_sqlite3_column_count func(stmt unsafe.Pointer) int32

	// const char *sqlite3_column_name(sqlite3_stmt*, int);
	c_sqlite3_column_name func(stmt unsafe.Pointer, index int32) unsafe.Pointer

	// const char *sqlite3_column_decltype(sqlite3_stmt*, int);
	c_sqlite3_column_decltype func(stmt unsafe.Pointer, index int32) unsafe.Pointer

	// int sqlite3_column_type(sqlite3_stmt*, int);
	c_sqlite3_column_type func(stmt unsafe.Pointer, index int32) typeCode

	// sqlite3_int64 sqlite3_column_int64(sqlite3_stmt*, int);
	c_sqlite3_column_int64 func(stmt unsafe.Pointer, index int32) int64

	// double sqlite3_column_double(sqlite3_stmt*, int);
	c_sqlite3_column_double func(stmt unsafe.Pointer, index int32) float64

	// const unsigned char *sqlite3_column_text(sqlite3_stmt*, int);
	c_sqlite3_column_text func(stmt unsafe.Pointer, index int32) unsafe.Pointer

	// const void *sqlite3_column_blob(sqlite3_stmt*, int);
	c_sqlite3_column_blob func(stmt unsafe.Pointer, index int32) unsafe.Pointer

	// int sqlite3_column_bytes(sqlite3_stmt*, int);
	c_sqlite3_column_bytes func(stmt unsafe.Pointer, index int32) int32

	// int sqlite3_changes(sqlite3*);
	c_sqlite3_changes func(db unsafe.Pointer) int32

	// int sqlite3_total_changes(sqlite3*);
	c_sqlite3_total_changes func(db unsafe.Pointer) int32

	// sqlite3_int64 sqlite3_last_insert_rowid(sqlite3*);
	c_sqlite3_last_insert_rowid func(db unsafe.Pointer) int64

	// int sqlite3_busy_timeout(sqlite3*, int ms);
	c_sqlite3_busy_timeout func(db unsafe.Pointer, ms int32) resultCode

	// int sqlite3_busy_handler(sqlite3*, int(*)(void*,int), void*);
	c_sqlite3_busy_handler func(db unsafe.Pointer, handler uintptr, arg uintptr) resultCode
)

// registerEngine wires the extern functions to symbols of the loaded
// library. The library itself is loaded elsewhere.
func registerEngine(handle uintptr) {
	purego.RegisterLibFunc(&c_sqlite3_libversion, handle, "sqlite3_libversion")
	purego.RegisterLibFunc(&c_sqlite3_libversion_number, handle, "sqlite3_libversion_number")
	purego.RegisterLibFunc(&c_sqlite3_open_v2, handle, "sqlite3_open_v2")
	purego.RegisterLibFunc(&c_sqlite3_close, handle, "sqlite3_close")
	purego.RegisterLibFunc(&c_sqlite3_errcode, handle, "sqlite3_errcode")
	purego.RegisterLibFunc(&c_sqlite3_errmsg, handle, "sqlite3_errmsg")
	purego.RegisterLibFunc(&c_sqlite3_prepare_v2, handle, "sqlite3_prepare_v2")
	purego.RegisterLibFunc(&c_sqlite3_step, handle, "sqlite3_step")
	purego.RegisterLibFunc(&c_sqlite3_reset, handle, "sqlite3_reset")
	purego.RegisterLibFunc(&c_sqlite3_clear_bindings, handle, "sqlite3_clear_bindings")
	purego.RegisterLibFunc(&c_sqlite3_finalize, handle, "sqlite3_finalize")
	purego.RegisterLibFunc(&c_sqlite3_bind_null, handle, "sqlite3_bind_null")
	purego.RegisterLibFunc(&c_sqlite3_bind_int64, handle, "sqlite3_bind_int64")
	purego.RegisterLibFunc(&c_sqlite3_bind_double, handle, "sqlite3_bind_double")
	purego.RegisterLibFunc(&c_sqlite3_bind_text, handle, "sqlite3_bind_text")
	purego.RegisterLibFunc(&c_sqlite3_bind_blob, handle, "sqlite3_bind_blob")
	purego.RegisterLibFunc(&c_sqlite3_bind_parameter_index, handle, "sqlite3_bind_parameter_index")
	purego.RegisterLibFunc(&c_sqlite3_bind_parameter_count, handle, "sqlite3_bind_parameter_count")
	purego.RegisterLibFunc(&c_sqlite3_column_count, handle, "sqlite3_column_count")
	purego.RegisterLibFunc(&c_sqlite3_column_name, handle, "sqlite3_column_name")
	purego.RegisterLibFunc(&c_sqlite3_column_decltype, handle, "sqlite3_column_decltype")
	purego.RegisterLibFunc(&c_sqlite3_column_type, handle, "sqlite3_column_type")
	purego.RegisterLibFunc(&c_sqlite3_column_int64, handle, "sqlite3_column_int64")
	purego.RegisterLibFunc(&c_sqlite3_column_double, handle, "sqlite3_column_double")
	purego.RegisterLibFunc(&c_sqlite3_column_text, handle, "sqlite3_column_text")
	purego.RegisterLibFunc(&c_sqlite3_column_blob, handle, "sqlite3_column_blob")
	purego.RegisterLibFunc(&c_sqlite3_column_bytes, handle, "sqlite3_column_bytes")
	purego.RegisterLibFunc(&c_sqlite3_changes, handle, "sqlite3_changes")
	purego.RegisterLibFunc(&c_sqlite3_total_changes, handle, "sqlite3_total_changes")
	purego.RegisterLibFunc(&c_sqlite3_last_insert_rowid, handle, "sqlite3_last_insert_rowid")
	purego.RegisterLibFunc(&c_sqlite3_busy_timeout, handle, "sqlite3_busy_timeout")
	purego.RegisterLibFunc(&c_sqlite3_busy_handler, handle, "sqlite3_busy_handler")
}

// Helpers

func copyCString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// cStringPtr copies s into a nul-terminated Go buffer valid for the
// duration of one call. The pointer is never nil, so binding an empty
// string stays an empty string rather than turning into a null.
func cStringPtr(s string) (ptr unsafe.Pointer, keepAlive func()) {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return unsafe.Pointer(&b[0]), func() { runtime.KeepAlive(b) }
}

func copyBytes(p unsafe.Pointer, n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(p), n))
	return out
}

// Go wrappers over the extern engine functions. These stay thin: they
// translate pointers and copy memory, and hand status codes back to
// the caller, which owns error enrichment via errcode/errmsg.

/** Version of the engine library as a string, for example "3.45.1" */
func sqlite3_libversion() string {
	return copyCString(c_sqlite3_libversion())
}

/** Version of the engine library as a number, for example 3045001 */
func sqlite3_libversion_number() int {
	return int(c_sqlite3_libversion_number())
}

/** Open a connection to the database at path
 * A handle may come back even on failure so that the error message can
 * be read from it; the caller must close it in that case.
 */
func sqlite3_open_v2(path string, flags int32) (connHandle, resultCode) {
	pathPtr, keep := cStringPtr(path)
	var db connHandle
	code := c_sqlite3_open_v2(pathPtr, unsafe.Pointer(&db), flags, nil)
	keep()
	return db, code
}

/** Close the connection
 * Fails with the busy code while statements are still unfinalized.
 */
func sqlite3_close(db connHandle) resultCode {
	return c_sqlite3_close(unsafe.Pointer(db))
}

/** Numeric code of the most recent failure on the connection */
func sqlite3_errcode(db connHandle) int {
	return int(c_sqlite3_errcode(unsafe.Pointer(db)))
}

/** Message of the most recent failure on the connection */
func sqlite3_errmsg(db connHandle) string {
	return copyCString(c_sqlite3_errmsg(unsafe.Pointer(db)))
}

/** Compile the first statement in sql
 * tail is the byte offset just past the compiled statement, for
 * walking multi-statement text.
 */
func sqlite3_prepare_v2(db connHandle, sql string) (stmt stmtHandle, tail int, code resultCode) {
	sqlPtr, keep := cStringPtr(sql)
	var tailPtr unsafe.Pointer
	code = c_sqlite3_prepare_v2(
		unsafe.Pointer(db),
		sqlPtr,
		int32(len(sql)+1),
		unsafe.Pointer(&stmt),
		unsafe.Pointer(&tailPtr),
	)
	tail = len(sql)
	if tailPtr != nil {
		tail = int(uintptr(tailPtr) - uintptr(sqlPtr))
	}
	keep()
	if tail < 0 || tail > len(sql) {
		tail = len(sql)
	}
	return stmt, tail, code
}

/** Advance the statement one step: a row, completion, or an error code */
func sqlite3_step(stmt stmtHandle) resultCode {
	return c_sqlite3_step(unsafe.Pointer(stmt))
}

/** Return the statement to its initial state, keeping bound values */
func sqlite3_reset(stmt stmtHandle) resultCode {
	return c_sqlite3_reset(unsafe.Pointer(stmt))
}

/** Rebind every parameter of the statement to null */
func sqlite3_clear_bindings(stmt stmtHandle) resultCode {
	return c_sqlite3_clear_bindings(unsafe.Pointer(stmt))
}

/** Release the statement; safe on a nil handle */
func sqlite3_finalize(stmt stmtHandle) resultCode {
	if stmt == nil {
		return codeOK
	}
	return c_sqlite3_finalize(unsafe.Pointer(stmt))
}

/** Bind null to the 1-based parameter */
func sqlite3_bind_null(stmt stmtHandle, index int) resultCode {
	return c_sqlite3_bind_null(unsafe.Pointer(stmt), int32(index))
}

/** Bind an integer to the 1-based parameter */
func sqlite3_bind_int64(stmt stmtHandle, index int, value int64) resultCode {
	return c_sqlite3_bind_int64(unsafe.Pointer(stmt), int32(index), value)
}

/** Bind a float to the 1-based parameter */
func sqlite3_bind_double(stmt stmtHandle, index int, value float64) resultCode {
	return c_sqlite3_bind_double(unsafe.Pointer(stmt), int32(index), value)
}

/** Bind text to the 1-based parameter
 * The transient destructor makes the engine copy the bytes during the
 * call, so the Go buffer does not need to outlive it.
 */
func sqlite3_bind_text(stmt stmtHandle, index int, value string) resultCode {
	ptr, keep := cStringPtr(value)
	code := c_sqlite3_bind_text(unsafe.Pointer(stmt), int32(index), ptr, int32(len(value)), transientDestructor)
	keep()
	return code
}

// The engine reads a null blob pointer as binding null, so an empty
// but non-null blob needs a real address with a zero length.
var zeroByte byte

/** Bind a blob to the 1-based parameter
 * A nil slice binds null; an empty slice binds a zero-length blob.
 */
func sqlite3_bind_blob(stmt stmtHandle, index int, value []byte) resultCode {
	if value == nil {
		return sqlite3_bind_null(stmt, index)
	}
	ptr := unsafe.Pointer(&zeroByte)
	if len(value) > 0 {
		ptr = unsafe.Pointer(&value[0])
	}
	code := c_sqlite3_bind_blob(unsafe.Pointer(stmt), int32(index), ptr, int32(len(value)), transientDestructor)
	runtime.KeepAlive(value)
	return code
}

/** Resolve a named parameter to its 1-based position, 0 when unknown */
func sqlite3_bind_parameter_index(stmt stmtHandle, name string) int {
	ptr, keep := cStringPtr(name)
	index := c_sqlite3_bind_parameter_index(unsafe.Pointer(stmt), ptr)
	keep()
	return int(index)
}

/** Number of parameters in the statement */
func sqlite3_bind_parameter_count(stmt stmtHandle) int {
	return int(c_sqlite3_bind_parameter_count(unsafe.Pointer(stmt)))
}

/** Number of columns produced by the statement */
func sqlite3_column_count(stmt stmtHandle) int {
	return int(c_sqlite3_column_count(unsafe.Pointer(stmt)))
}

/** Name of the 0-based column, empty when out of range */
func sqlite3_column_name(stmt stmtHandle, index int) string {
	return copyCString(c_sqlite3_column_name(unsafe.Pointer(stmt), int32(index)))
}

/** Declared type of the 0-based column, empty for expressions */
func sqlite3_column_decltype(stmt stmtHandle, index int) string {
	return copyCString(c_sqlite3_column_decltype(unsafe.Pointer(stmt), int32(index)))
}

/** Datatype code of the 0-based column of the current row */
func sqlite3_column_type(stmt stmtHandle, index int) typeCode {
	return c_sqlite3_column_type(unsafe.Pointer(stmt), int32(index))
}

/** Integer value of the 0-based column, with engine coercion */
func sqlite3_column_int64(stmt stmtHandle, index int) int64 {
	return c_sqlite3_column_int64(unsafe.Pointer(stmt), int32(index))
}

/** Float value of the 0-based column, with engine coercion */
func sqlite3_column_double(stmt stmtHandle, index int) float64 {
	return c_sqlite3_column_double(unsafe.Pointer(stmt), int32(index))
}

/** Text value of the 0-based column, copied into Go memory
 * The bool is false when the engine reports no text at all (a null
 * column or an allocation failure), which is distinct from empty text.
 */
func sqlite3_column_text(stmt stmtHandle, index int) (string, bool) {
	ptr := c_sqlite3_column_text(unsafe.Pointer(stmt), int32(index))
	if ptr == nil {
		return "", false
	}
	n := int(c_sqlite3_column_bytes(unsafe.Pointer(stmt), int32(index)))
	if n <= 0 {
		return "", true
	}
	return string(unsafe.Slice((*byte)(ptr), n)), true
}

/** Blob value of the 0-based column, copied into Go memory
 * A zero-length blob comes back as an empty, non-nil slice.
 */
func sqlite3_column_blob(stmt stmtHandle, index int) []byte {
	ptr := c_sqlite3_column_blob(unsafe.Pointer(stmt), int32(index))
	n := int(c_sqlite3_column_bytes(unsafe.Pointer(stmt), int32(index)))
	if ptr == nil || n <= 0 {
		return []byte{}
	}
	return copyBytes(ptr, n)
}

/** Rows changed by the most recent insert, update, or delete */
func sqlite3_changes(db connHandle) int {
	return int(c_sqlite3_changes(unsafe.Pointer(db)))
}

/** Rows changed by every insert, update, and delete since opening */
func sqlite3_total_changes(db connHandle) int {
	return int(c_sqlite3_total_changes(unsafe.Pointer(db)))
}

/** Rowid of the most recent successful insert on the connection */
func sqlite3_last_insert_rowid(db connHandle) int64 {
	return c_sqlite3_last_insert_rowid(unsafe.Pointer(db))
}

/** Sleep-and-retry busy handling for up to ms milliseconds; ms <= 0 turns it off */
func sqlite3_busy_timeout(db connHandle, ms int) resultCode {
	return c_sqlite3_busy_timeout(unsafe.Pointer(db), int32(ms))
}

/** Install or remove (handler == 0) the busy callback */
func sqlite3_busy_handler(db connHandle, handler uintptr, arg uintptr) resultCode {
	return c_sqlite3_busy_handler(unsafe.Pointer(db), handler, arg)
}
