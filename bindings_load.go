// Locating the engine shared library.
//
// The bindings link against the SQLite library installed on the host
// rather than shipping one. Discovery order:
//
//  1. The SQLITE_GO_LIBRARY environment variable, an explicit path to
//     a loadable library. When set, nothing else is tried.
//  2. The platform's conventional library names, resolved through the
//     system's usual search mechanism (dlopen on unix-likes,
//     LoadLibrary on Windows).
//
// LoadLibrary gives programs the same control as the environment
// variable without touching the environment. Loading happens lazily on
// first use, so merely importing the package never fails or panics on
// a host without the library; opening a connection reports the load
// error instead.
package sqlite

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
)

var (
	loadMu     sync.Mutex
	loadDone   bool
	loadFailed error
)

// LoadLibrary loads the engine shared library from the given path and
// must be called before the first connection is opened. Without it the
// library is discovered automatically on first use. Calling it after
// the library is already loaded is an error, since re-binding a
// different engine under live handles is not survivable.
func LoadLibrary(path string) error {
	loadMu.Lock()
	defer loadMu.Unlock()
	if loadDone {
		return errorf("sqlite: the engine library is already loaded")
	}
	handle, err := openLibrary(path)
	if err != nil {
		return errorf("sqlite: unable to load the engine library %s: %v", path, err)
	}
	registerEngine(handle)
	loadDone = true
	loadFailed = nil
	return nil
}

func ensureLoaded() error {
	loadMu.Lock()
	defer loadMu.Unlock()
	if loadDone {
		return nil
	}
	if loadFailed != nil {
		return loadFailed
	}
	handle, err := discoverLibrary()
	if err != nil {
		loadFailed = err
		return err
	}
	registerEngine(handle)
	loadDone = true
	return nil
}

func discoverLibrary() (uintptr, error) {
	if path := os.Getenv("SQLITE_GO_LIBRARY"); path != "" {
		handle, err := openLibrary(path)
		if err != nil {
			return 0, errorf("sqlite: unable to load the engine library %s (from SQLITE_GO_LIBRARY): %v", path, err)
		}
		return handle, nil
	}
	names := libraryNames()
	var errs []string
	for _, name := range names {
		handle, err := openLibrary(name)
		if err == nil {
			return handle, nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", name, err))
	}
	return 0, errorf("sqlite: unable to load the engine library (tried %s)", strings.Join(errs, "; "))
}

// libraryNames lists the conventional names of the engine library for
// the current platform, most specific first.
func libraryNames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"libsqlite3.dylib", "/usr/lib/libsqlite3.dylib"}
	case "windows":
		return []string{"sqlite3.dll", "winsqlite3.dll"}
	default:
		return []string{"libsqlite3.so.0", "libsqlite3.so"}
	}
}
