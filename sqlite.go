// Package sqlite provides typed, memory-safe access to SQLite through
// its C interface, loaded at run time with purego; neither cgo nor a
// bundled copy of the engine is involved.
//
// The package has two faces. The direct API pairs a Connection with
// prepared Statements, Cursors, and Rows:
//
//	connection, err := sqlite.Open(":memory:")
//	...
//	statement, err := connection.Prepare("SELECT name FROM users WHERE age > ?")
//	cursor, err := statement.OwnedCursor().Bind(21)
//	for {
//		row, err := cursor.Next()
//		if err != nil || row == nil {
//			break
//		}
//		name, err := sqlite.Get[string](row, "name")
//		...
//	}
//
// The second face is a database/sql driver registered under the name
// "sqlite":
//
//	db, err := sql.Open("sqlite", "file.db")
//
// The engine library is discovered on first use; see LoadLibrary for
// overriding the search.
package sqlite

// Version returns the engine's version string, for example "3.46.1".
func Version() (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}
	return sqlite3_libversion(), nil
}

// VersionNumber returns the engine's version as one number in the
// format major*1000000 + minor*1000 + patch.
func VersionNumber() (int, error) {
	if err := ensureLoaded(); err != nil {
		return 0, err
	}
	return int(sqlite3_libversion_number()), nil
}
