package sqlite

import "fmt"

// define all package level errors here

var (
	ErrConnClosed    = &Error{Message: "sqlite: connection closed"}
	ErrStmtClosed    = &Error{Message: "sqlite: statement closed"}
	ErrCursorClosed  = &Error{Message: "sqlite: cursor closed"}
	ErrTxDone        = &Error{Message: "sqlite: transaction already consumed"}
	ErrSavepointDone = &Error{Message: "sqlite: savepoint already consumed"}
)

// Error describes a failure reported by this package or by the engine
// itself. Code carries the engine's numeric status code when one exists
// (0 otherwise); Message carries the engine's or the library's message
// when one is available (empty otherwise). At least one of the two is
// set for every error this package returns.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Code != 0 && e.Message != "":
		return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
	case e.Message != "":
		return e.Message
	case e.Code != 0:
		return fmt.Sprintf("an SQL engine error (code %d)", e.Code)
	}
	return "an SQL engine error"
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

func rangeError(column any) *Error {
	return errorf("sqlite: the index is out of range (%v)", column)
}
