package tuple

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareValuesNumeric(t *testing.T) {
	require.Equal(t, -1, CompareValues(int64(1), int64(2)))
	require.Equal(t, 1, CompareValues(int64(5), int64(2)))
	require.Equal(t, 0, CompareValues(int64(3), int64(3)))
}

func TestCompareValuesMixedIntFloat(t *testing.T) {
	require.Equal(t, 0, CompareValues(int64(2), float64(2.0)))
	require.Equal(t, -1, CompareValues(int64(2), float64(2.5)))
}

func TestCompareValuesNilOrdering(t *testing.T) {
	require.Equal(t, 0, CompareValues(nil, nil))
	require.Equal(t, -1, CompareValues(nil, int64(1)))
	require.Equal(t, 1, CompareValues(int64(1), nil))
}

func TestCompareValuesString(t *testing.T) {
	require.Equal(t, -1, CompareValues("apple", "banana"))
	require.Equal(t, 0, CompareValues("same", "same"))
}

func TestSchemaIndexOf(t *testing.T) {
	s := &Schema{Columns: []ColumnDef{
		{Name: "id", Type: TypeInt, IsPrimaryKey: true},
		{Name: "name", Type: TypeString},
	}}
	require.Equal(t, 0, s.IndexOf("id"))
	require.Equal(t, 1, s.IndexOf("name"))
	require.Equal(t, -1, s.IndexOf("missing"))
}

func TestTupleEncodeDecodeRoundTrip(t *testing.T) {
	schema := &Schema{Columns: []ColumnDef{
		{Name: "id", Type: TypeInt},
		{Name: "name", Type: TypeString},
		{Name: "score", Type: TypeFloat},
		{Name: "active", Type: TypeBool},
	}}
	tup := Tuple{Values: []Value{int64(42), "hello", 3.5, true}}

	encoded := tup.Encode()
	decoded := Decode(schema, encoded)

	require.Equal(t, tup.Values, decoded.Values)
}

func TestTupleProject(t *testing.T) {
	schema := &Schema{Columns: []ColumnDef{
		{Name: "id", Type: TypeInt},
		{Name: "name", Type: TypeString},
	}}
	tup := Tuple{Values: []Value{int64(7), "bob"}}

	key := tup.Project(schema, []string{"id"})
	require.Equal(t, []Value{int64(7)}, key.Values)
}

func TestTupleMetaRoundTrip(t *testing.T) {
	m := TupleMeta{Timestamp: 12345, IsDeleted: true}
	buf := EncodeMeta(m)
	got := DecodeMeta(buf[:])
	require.Equal(t, m, got)
}
