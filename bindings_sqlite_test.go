package sqlite

import (
	"bytes"
	"strings"
	"testing"
)

func openRawConn(t *testing.T) connHandle {
	t.Helper()
	requireEngine(t)
	db, code := sqlite3_open_v2(":memory:", int32(OpenReadWrite|OpenCreate))
	if code != codeOK {
		t.Fatalf("open failed with code %d", code)
	}
	t.Cleanup(func() { sqlite3_close(db) })
	return db
}

func TestRawPrepareWalksTail(t *testing.T) {
	db := openRawConn(t)
	sql := "CREATE TABLE y(x INTEGER); INSERT INTO y(x) VALUES (42); SELECT x FROM y;"

	// First statement: CREATE TABLE.
	stmt, tail, code := sqlite3_prepare_v2(db, sql)
	if code != codeOK {
		t.Fatalf("prepare 1 failed with code %d", code)
	}
	if stmt == nil {
		t.Fatalf("expected a statement for first part")
	}
	if code := sqlite3_step(stmt); code != codeDone {
		t.Fatalf("create table step: expected done, got %d", code)
	}
	if code := sqlite3_finalize(stmt); code != codeOK {
		t.Fatalf("finalize create failed with code %d", code)
	}

	// Second statement: INSERT.
	stmt, tail2, code := sqlite3_prepare_v2(db, sql[tail:])
	if code != codeOK {
		t.Fatalf("prepare 2 failed with code %d", code)
	}
	if stmt == nil {
		t.Fatalf("expected a statement for second part")
	}
	// tail2 is relative to the substring
	if tail2 == 0 {
		t.Fatalf("expected non-zero tail for second part")
	}
	if code := sqlite3_step(stmt); code != codeDone {
		t.Fatalf("insert step: expected done, got %d", code)
	}
	if changes := sqlite3_changes(db); changes != 1 {
		t.Fatalf("expected 1 row changed from insert, got %d", changes)
	}
	if code := sqlite3_finalize(stmt); code != codeOK {
		t.Fatalf("finalize insert failed with code %d", code)
	}

	// Third statement: SELECT.
	offset := tail + tail2
	stmt, _, code = sqlite3_prepare_v2(db, sql[offset:])
	if code != codeOK {
		t.Fatalf("prepare 3 failed with code %d", code)
	}
	if stmt == nil {
		t.Fatalf("expected a statement for third part")
	}
	if code := sqlite3_step(stmt); code != codeRow {
		t.Fatalf("expected a row, got %d", code)
	}
	if c := sqlite3_column_count(stmt); c != 1 {
		t.Fatalf("expected 1 column, got %d", c)
	}
	if kind := sqlite3_column_type(stmt, 0); kind != typeCodeInteger {
		t.Fatalf("expected integer kind, got %d", kind)
	}
	if x := sqlite3_column_int64(stmt, 0); x != 42 {
		t.Fatalf("expected x=42, got %d", x)
	}
	if code := sqlite3_finalize(stmt); code != codeOK {
		t.Fatalf("finalize select failed with code %d", code)
	}
}

func TestRawColumnReaders(t *testing.T) {
	db := openRawConn(t)
	stmt, _, code := sqlite3_prepare_v2(db, "SELECT 42, 42.69, 'Alice', X'4269', NULL")
	if code != codeOK {
		t.Fatalf("prepare failed with code %d", code)
	}
	defer sqlite3_finalize(stmt)

	if code := sqlite3_step(stmt); code != codeRow {
		t.Fatalf("expected a row, got %d", code)
	}
	kinds := []typeCode{typeCodeInteger, typeCodeFloat, typeCodeText, typeCodeBlob, typeCodeNull}
	for i, want := range kinds {
		if got := sqlite3_column_type(stmt, i); got != want {
			t.Fatalf("column %d: expected kind %d, got %d", i, want, got)
		}
	}
	if v := sqlite3_column_int64(stmt, 0); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	if v := sqlite3_column_double(stmt, 1); v != 42.69 {
		t.Fatalf("expected 42.69, got %v", v)
	}
	text, ok := sqlite3_column_text(stmt, 2)
	if !ok || text != "Alice" {
		t.Fatalf("expected Alice, got %q (ok=%v)", text, ok)
	}
	if blob := sqlite3_column_blob(stmt, 3); !bytes.Equal(blob, []byte{0x42, 0x69}) {
		t.Fatalf("unexpected blob %v", blob)
	}
	// Null reads as a missing text and an empty blob.
	if _, ok := sqlite3_column_text(stmt, 4); ok {
		t.Fatalf("expected no text for a null column")
	}
	if blob := sqlite3_column_blob(stmt, 4); blob == nil || len(blob) != 0 {
		t.Fatalf("expected an empty blob for a null column, got %v", blob)
	}
}

func TestRawBindRoundTrip(t *testing.T) {
	db := openRawConn(t)
	stmt, _, code := sqlite3_prepare_v2(db, "CREATE TABLE t(a, b, c, d)")
	if code != codeOK {
		t.Fatalf("prepare create failed with code %d", code)
	}
	if code := sqlite3_step(stmt); code != codeDone {
		t.Fatalf("create step: expected done, got %d", code)
	}
	sqlite3_finalize(stmt)

	stmt, _, code = sqlite3_prepare_v2(db, "INSERT INTO t VALUES (?, ?, ?, ?)")
	if code != codeOK {
		t.Fatalf("prepare insert failed with code %d", code)
	}
	if n := sqlite3_bind_parameter_count(stmt); n != 4 {
		t.Fatalf("expected 4 parameters, got %d", n)
	}
	sqlite3_bind_int64(stmt, 1, 7)
	sqlite3_bind_double(stmt, 2, 2.5)
	sqlite3_bind_text(stmt, 3, "hi")
	sqlite3_bind_blob(stmt, 4, []byte{1, 2})
	if code := sqlite3_step(stmt); code != codeDone {
		t.Fatalf("insert step: expected done, got %d", code)
	}
	sqlite3_finalize(stmt)

	stmt, _, code = sqlite3_prepare_v2(db, "SELECT a, b, c, d FROM t")
	if code != codeOK {
		t.Fatalf("prepare select failed with code %d", code)
	}
	defer sqlite3_finalize(stmt)
	if code := sqlite3_step(stmt); code != codeRow {
		t.Fatalf("expected a row, got %d", code)
	}
	if v := sqlite3_column_int64(stmt, 0); v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	if v := sqlite3_column_double(stmt, 1); v != 2.5 {
		t.Fatalf("expected 2.5, got %v", v)
	}
	if text, ok := sqlite3_column_text(stmt, 2); !ok || text != "hi" {
		t.Fatalf("expected hi, got %q", text)
	}
	if blob := sqlite3_column_blob(stmt, 3); !bytes.Equal(blob, []byte{1, 2}) {
		t.Fatalf("unexpected blob %v", blob)
	}
}

func TestRawBindEmptyAndNull(t *testing.T) {
	db := openRawConn(t)
	stmt, _, code := sqlite3_prepare_v2(db, "SELECT ?, ?, ?")
	if code != codeOK {
		t.Fatalf("prepare failed with code %d", code)
	}
	defer sqlite3_finalize(stmt)

	// An empty string and an empty blob bind as values; a nil blob
	// binds a null.
	sqlite3_bind_text(stmt, 1, "")
	sqlite3_bind_blob(stmt, 2, []byte{})
	sqlite3_bind_blob(stmt, 3, nil)

	if code := sqlite3_step(stmt); code != codeRow {
		t.Fatalf("expected a row, got %d", code)
	}
	if kind := sqlite3_column_type(stmt, 0); kind != typeCodeText {
		t.Fatalf("expected text for empty string, got kind %d", kind)
	}
	if kind := sqlite3_column_type(stmt, 1); kind != typeCodeBlob {
		t.Fatalf("expected blob for empty blob, got kind %d", kind)
	}
	if kind := sqlite3_column_type(stmt, 2); kind != typeCodeNull {
		t.Fatalf("expected null for nil blob, got kind %d", kind)
	}
}

func TestRawNamedPosition(t *testing.T) {
	db := openRawConn(t)
	stmt, _, code := sqlite3_prepare_v2(db, "SELECT :x + ?")
	if code != codeOK {
		t.Fatalf("prepare failed with code %d", code)
	}
	defer sqlite3_finalize(stmt)
	if pos := sqlite3_bind_parameter_index(stmt, ":x"); pos <= 0 {
		t.Fatalf("expected named position > 0 for :x, got %d", pos)
	}
	if pos := sqlite3_bind_parameter_index(stmt, ":missing"); pos != 0 {
		t.Fatalf("expected 0 for a missing name, got %d", pos)
	}
}

func TestRawErrorReporting(t *testing.T) {
	db := openRawConn(t)
	stmt, _, code := sqlite3_prepare_v2(db, "SELECT * FROM missing_table")
	if code == codeOK {
		sqlite3_finalize(stmt)
		t.Fatalf("expected an error for a missing table")
	}
	if ec := sqlite3_errcode(db); ec == 0 {
		t.Fatalf("expected a non-zero error code")
	}
	if msg := sqlite3_errmsg(db); !strings.Contains(msg, "no such table") {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestRawVersion(t *testing.T) {
	requireEngine(t)
	if v := sqlite3_libversion(); v == "" {
		t.Fatalf("expected a version string")
	}
	if n := sqlite3_libversion_number(); n < 3000000 {
		t.Fatalf("unexpected version number %d", n)
	}
}
