package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/rid"
	"coredb/tuple"
	"coredb/txn"
)

func peopleSchema() tuple.Schema {
	return tuple.Schema{
		Name: "people",
		Columns: []tuple.ColumnDef{
			{Name: "id", Type: tuple.TypeInt, IsPrimaryKey: true},
			{Name: "name", Type: tuple.TypeString},
			{Name: "age", Type: tuple.TypeInt},
		},
	}
}

func TestInsertThenSeqScan(t *testing.T) {
	m := newTestCatalog(t)
	table, err := m.CreateTable(peopleSchema())
	require.NoError(t, err)

	values := &Values{
		Schema: table.Schema,
		Rows: []tuple.Tuple{
			{Values: []tuple.Value{int64(1), "ann", int64(30)}},
			{Values: []tuple.Value{int64(2), "bob", int64(25)}},
		},
	}
	ins := &Insert{Child: values, Table: table, Txn: txn.Context{ID: 1}}

	rows, _, err := drainAll(context.Background(), ins, 16)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(2), rows[0].Values[0])

	scan := &SeqScan{Heap: table.Heap, Schema: table.Schema}
	rows, _, err = drainAll(context.Background(), scan, 16)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestSeqScanFilterSkipsNonMatching(t *testing.T) {
	m := newTestCatalog(t)
	table, err := m.CreateTable(peopleSchema())
	require.NoError(t, err)

	table.Heap.InsertTuple(tuple.TupleMeta{}, tuple.Tuple{Values: []tuple.Value{int64(1), "ann", int64(30)}})
	table.Heap.InsertTuple(tuple.TupleMeta{}, tuple.Tuple{Values: []tuple.Value{int64(2), "bob", int64(25)}})

	scan := &SeqScan{
		Heap:   table.Heap,
		Schema: table.Schema,
		Filter: func(row tuple.Tuple) bool { return row.Values[2].(int64) >= 30 },
	}
	rows, _, err := drainAll(context.Background(), scan, 16)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "ann", rows[0].Values[1])
}

func TestIndexScanPointLookup(t *testing.T) {
	m := newTestCatalog(t)
	table, err := m.CreateTable(peopleSchema())
	require.NoError(t, err)
	idx, err := m.CreateIndex("people", "by_id", []string{"id"})
	require.NoError(t, err)

	row := tuple.Tuple{Values: []tuple.Value{int64(7), "carl", int64(40)}}
	r, ok := table.Heap.InsertTuple(tuple.TupleMeta{}, row)
	require.True(t, ok)
	_, err = idx.InsertEntry(row, r, txn.Context{})
	require.NoError(t, err)

	scan := &IndexScan{
		Index:  idx,
		Heap:   table.Heap,
		Schema: table.Schema,
		Keys:   []tuple.Tuple{{Values: []tuple.Value{int64(7)}}},
	}
	rows, _, err := drainAll(context.Background(), scan, 16)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "carl", rows[0].Values[1])
}

func TestIndexScanRangeOrder(t *testing.T) {
	m := newTestCatalog(t)
	table, err := m.CreateTable(peopleSchema())
	require.NoError(t, err)
	idx, err := m.CreateIndex("people", "by_id", []string{"id"})
	require.NoError(t, err)

	for _, id := range []int64{5, 1, 3} {
		row := tuple.Tuple{Values: []tuple.Value{id, "x", int64(1)}}
		r, ok := table.Heap.InsertTuple(tuple.TupleMeta{}, row)
		require.True(t, ok)
		_, err := idx.InsertEntry(row, r, txn.Context{})
		require.NoError(t, err)
	}

	scan := &IndexScan{Index: idx, Heap: table.Heap, Schema: table.Schema}
	rows, _, err := drainAll(context.Background(), scan, 16)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, int64(1), rows[0].Values[0])
	require.Equal(t, int64(3), rows[1].Values[0])
	require.Equal(t, int64(5), rows[2].Values[0])
}

func TestUpdateMaintainsIndex(t *testing.T) {
	m := newTestCatalog(t)
	table, err := m.CreateTable(peopleSchema())
	require.NoError(t, err)
	idx, err := m.CreateIndex("people", "by_id", []string{"id"})
	require.NoError(t, err)

	row := tuple.Tuple{Values: []tuple.Value{int64(1), "ann", int64(30)}}
	r, ok := table.Heap.InsertTuple(tuple.TupleMeta{}, row)
	require.True(t, ok)
	_, err = idx.InsertEntry(row, r, txn.Context{})
	require.NoError(t, err)

	scan := &SeqScan{Heap: table.Heap, Schema: table.Schema}
	upd := &Update{
		Child: scan,
		Table: table,
		Transform: func(old tuple.Tuple) tuple.Tuple {
			return tuple.Tuple{Values: []tuple.Value{old.Values[0], old.Values[1], int64(31)}}
		},
		Txn: txn.Context{ID: 2},
	}
	rows, _, err := drainAll(context.Background(), upd, 16)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows[0].Values[0])

	var rids []rid.RID
	require.NoError(t, idx.ScanKey(tuple.Tuple{Values: []tuple.Value{int64(1), "ann", int64(30)}}, &rids, txn.Context{}))
	require.Len(t, rids, 1)

	meta, newRow, ok := table.Heap.GetTuple(rids[0])
	require.True(t, ok)
	require.False(t, meta.IsDeleted)
	require.Equal(t, int64(31), newRow.Values[2])
}

func TestDeleteMarksRowsAndIndexEntries(t *testing.T) {
	m := newTestCatalog(t)
	table, err := m.CreateTable(peopleSchema())
	require.NoError(t, err)
	idx, err := m.CreateIndex("people", "by_id", []string{"id"})
	require.NoError(t, err)

	row := tuple.Tuple{Values: []tuple.Value{int64(1), "ann", int64(30)}}
	r, ok := table.Heap.InsertTuple(tuple.TupleMeta{}, row)
	require.True(t, ok)
	_, err = idx.InsertEntry(row, r, txn.Context{})
	require.NoError(t, err)

	del := &Delete{Child: &SeqScan{Heap: table.Heap, Schema: table.Schema}, Table: table, Txn: txn.Context{ID: 3}}
	rows, _, err := drainAll(context.Background(), del, 16)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows[0].Values[0])

	meta, _, ok := table.Heap.GetTuple(r)
	require.True(t, ok)
	require.True(t, meta.IsDeleted)

	var rids []rid.RID
	require.NoError(t, idx.ScanKey(row, &rids, txn.Context{}))
	require.Empty(t, rids)
}
