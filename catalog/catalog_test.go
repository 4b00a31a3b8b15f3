package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/config"
	"coredb/rid"
	"coredb/tuple"
	"coredb/txn"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.PoolFrames = 16
	cfg.BTreeMaxSize = 4
	m, err := NewManager(cfg, nil)
	require.NoError(t, err)
	return m
}

func usersSchema() tuple.Schema {
	return tuple.Schema{
		Name: "users",
		Columns: []tuple.ColumnDef{
			{Name: "id", Type: tuple.TypeInt, IsPrimaryKey: true},
			{Name: "email", Type: tuple.TypeString},
		},
	}
}

func TestCatalogCreateTableAndInsertRoundTrip(t *testing.T) {
	m := testManager(t)
	table, err := m.CreateTable(usersSchema())
	require.NoError(t, err)

	row := tuple.Tuple{Values: []tuple.Value{int64(1), "a@example.com"}}
	r, ok := table.Heap.InsertTuple(tuple.TupleMeta{}, row)
	require.True(t, ok)

	_, got, ok := table.Heap.GetTuple(r)
	require.True(t, ok)
	require.Equal(t, row.Values, got.Values)
}

func TestCatalogCreateIndexInsertAndScanKey(t *testing.T) {
	m := testManager(t)
	table, err := m.CreateTable(usersSchema())
	require.NoError(t, err)

	idx, err := m.CreateIndex("users", "by_id", []string{"id"})
	require.NoError(t, err)

	row := tuple.Tuple{Values: []tuple.Value{int64(42), "bob@example.com"}}
	r, ok := table.Heap.InsertTuple(tuple.TupleMeta{}, row)
	require.True(t, ok)

	tc := txn.Context{}
	ok, err = idx.InsertEntry(row, r, tc)
	require.NoError(t, err)
	require.True(t, ok)

	var rids []rid.RID
	require.NoError(t, idx.ScanKey(row, &rids, tc))
	require.Equal(t, []rid.RID{r}, rids)
}

func TestCatalogGetTableIndexesReturnsRegistered(t *testing.T) {
	m := testManager(t)
	_, err := m.CreateTable(usersSchema())
	require.NoError(t, err)
	_, err = m.CreateIndex("users", "by_id", []string{"id"})
	require.NoError(t, err)
	_, err = m.CreateIndex("users", "by_email", []string{"email"})
	require.NoError(t, err)

	idxs := m.GetTableIndexes("users")
	require.Len(t, idxs, 2)
}

func TestCatalogGetTableSchemaUsesCache(t *testing.T) {
	m := testManager(t)
	_, err := m.CreateTable(usersSchema())
	require.NoError(t, err)

	schema, ok := m.GetTableSchema("users")
	require.True(t, ok)
	require.Equal(t, "users", schema.Name)

	_, ok = m.GetTableSchema("missing")
	require.False(t, ok)
}
