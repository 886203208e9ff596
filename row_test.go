package sqlite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testRow() *Row {
	columns := map[string]int{"id": 0, "name": 1, "age": 2, "photo": 3, "email": 4}
	values := []Value{Integer(1), String("Alice"), Float(42.69), Binary([]byte{0x42, 0x69}), Null}
	return newRow(values, columns)
}

func TestRowShape(t *testing.T) {
	row := testRow()
	require.Equal(t, 5, row.Len())
	require.Equal(t, []string{"id", "name", "age", "photo", "email"}, row.Columns())

	i, ok := row.Index("age")
	require.True(t, ok)
	require.Equal(t, 2, i)
	_, ok = row.Index("bogus")
	require.False(t, ok)
}

func TestRowGetByNameAndIndex(t *testing.T) {
	row := testRow()

	id, err := Get[int64](row, "id")
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	id, err = Get[int64](row, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	name, err := Get[string](row, "name")
	require.NoError(t, err)
	require.Equal(t, "Alice", name)

	age, err := Get[float64](row, "age")
	require.NoError(t, err)
	require.Equal(t, 42.69, age)

	photo, err := Get[[]byte](row, "photo")
	require.NoError(t, err)
	require.Equal(t, []byte{0x42, 0x69}, photo)

	email, err := Get[Value](row, "email")
	require.NoError(t, err)
	require.True(t, email.IsNull())
}

func TestRowGetNumericInterchange(t *testing.T) {
	row := testRow()

	// An integer cell reads as a float and a float cell as a
	// truncated integer.
	f, err := Get[float64](row, "id")
	require.NoError(t, err)
	require.Equal(t, 1.0, f)

	i, err := Get[int64](row, "age")
	require.NoError(t, err)
	require.Equal(t, int64(42), i)
}

func TestRowGetWrongType(t *testing.T) {
	row := testRow()

	_, err := Get[string](row, "id")
	require.Error(t, err)
	if !strings.Contains(err.Error(), "could not be read") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), `"id"`) {
		t.Fatalf("expected the column name in the error, got: %v", err)
	}

	_, err = Get[[]byte](row, 1)
	require.Error(t, err)
	if !strings.Contains(err.Error(), "column 1") {
		t.Fatalf("expected the column index in the error, got: %v", err)
	}
}

func TestRowGetUnknownColumn(t *testing.T) {
	row := testRow()

	_, err := Get[int64](row, "bogus")
	require.Error(t, err)
	require.Contains(t, err.Error(), "could not be read")

	_, err = Get[int64](row, 9)
	require.Error(t, err)

	_, err = Get[int64](row, -1)
	require.Error(t, err)
}

func TestRowGetNullable(t *testing.T) {
	row := testRow()

	email, err := GetNullable[string](row, "email")
	require.NoError(t, err)
	require.Nil(t, email)

	name, err := GetNullable[string](row, "name")
	require.NoError(t, err)
	require.NotNil(t, name)
	require.Equal(t, "Alice", *name)

	// A null cell is nil for every target type.
	age, err := GetNullable[int64](row, "email")
	require.NoError(t, err)
	require.Nil(t, age)

	// A non-null cell of the wrong type is still an error.
	_, err = GetNullable[string](row, "id")
	require.Error(t, err)
}

func TestRowMustGet(t *testing.T) {
	row := testRow()
	require.Equal(t, "Alice", MustGet[string](row, "name"))
	require.Panics(t, func() { MustGet[string](row, "id") })
	require.Panics(t, func() { MustGet[int64](row, "bogus") })
}

func TestRowTake(t *testing.T) {
	row := testRow()

	v := Take(row, "name")
	require.Equal(t, TypeString, v.Kind())
	s, _ := v.Text()
	require.Equal(t, "Alice", s)

	// The cell is null now, so a second take yields Null and a typed
	// read fails.
	require.True(t, Take(row, "name").IsNull())
	_, err := Get[string](row, "name")
	require.Error(t, err)

	// Taking by index works the same way.
	require.Equal(t, int64(1), MustGet[int64](row, 0))
	require.False(t, Take(row, 0).IsNull())
	require.True(t, Take(row, 0).IsNull())

	require.Panics(t, func() { Take(row, "bogus") })
	require.Panics(t, func() { Take(row, 99) })
}

func TestRowValuesCopy(t *testing.T) {
	row := testRow()
	values := row.Values()
	require.Len(t, values, 5)
	values[0] = Null
	require.Equal(t, int64(1), MustGet[int64](row, "id"))
}

func TestRowEqual(t *testing.T) {
	a := testRow()
	b := testRow()
	require.True(t, a.Equal(b))

	// Column names are metadata, not identity.
	c := newRow(a.Values(), nil)
	require.True(t, a.Equal(c))

	Take(b, "name")
	require.False(t, a.Equal(b))

	short := newRow(a.Values()[:4], nil)
	require.False(t, a.Equal(short))
}
