package heap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/rid"
	"coredb/storage/buffer"
	"coredb/storage/disk"
	"coredb/tuple"
)

func testSchema() *tuple.Schema {
	return &tuple.Schema{Columns: []tuple.ColumnDef{
		{Name: "id", Type: tuple.TypeInt, IsPrimaryKey: true},
		{Name: "name", Type: tuple.TypeString},
	}}
}

func newTestHeap(t *testing.T) *TableHeap {
	t.Helper()
	sched := disk.NewScheduler(disk.NewMemManager(), 16, nil)
	t.Cleanup(sched.Shutdown)
	pool := buffer.NewPool(16, sched, nil)
	return NewTableHeap(pool, testSchema())
}

func TestTableHeapInsertAndGet(t *testing.T) {
	h := newTestHeap(t)
	tup := tuple.Tuple{Values: []tuple.Value{int64(1), "alice"}}

	r, ok := h.InsertTuple(tuple.TupleMeta{Timestamp: 1}, tup)
	require.True(t, ok)

	meta, got, ok := h.GetTuple(r)
	require.True(t, ok)
	require.False(t, meta.IsDeleted)
	require.Equal(t, tup.Values, got.Values)
}

func TestTableHeapUpdateTupleMeta(t *testing.T) {
	h := newTestHeap(t)
	tup := tuple.Tuple{Values: []tuple.Value{int64(1), "bob"}}
	r, ok := h.InsertTuple(tuple.TupleMeta{}, tup)
	require.True(t, ok)

	require.True(t, h.UpdateTupleMeta(tuple.TupleMeta{Timestamp: 7, IsDeleted: true}, r))

	meta, got, ok := h.GetTuple(r)
	require.True(t, ok)
	require.True(t, meta.IsDeleted)
	require.EqualValues(t, 7, meta.Timestamp)
	require.Equal(t, tup.Values, got.Values)
}

func TestTableHeapSpansMultiplePages(t *testing.T) {
	h := newTestHeap(t)
	const n = 500
	rids := make([]rid.RID, n)
	for i := 0; i < n; i++ {
		tup := tuple.Tuple{Values: []tuple.Value{int64(i), fmt.Sprintf("row-%d", i)}}
		r, ok := h.InsertTuple(tuple.TupleMeta{}, tup)
		require.True(t, ok)
		rids[i] = r
	}
	require.Greater(t, len(h.pageIDs), 1)

	for i, r := range rids {
		_, got, ok := h.GetTuple(r)
		require.True(t, ok)
		require.Equal(t, int64(i), got.Values[0])
	}
}

func TestTableHeapIteratorVisitsAllInsertedRows(t *testing.T) {
	h := newTestHeap(t)
	const n = 30
	for i := 0; i < n; i++ {
		tup := tuple.Tuple{Values: []tuple.Value{int64(i), "x"}}
		_, ok := h.InsertTuple(tuple.TupleMeta{}, tup)
		require.True(t, ok)
	}

	it := h.MakeIterator()
	count := 0
	for {
		_, _, got, ok := it.Next()
		if !ok {
			break
		}
		require.EqualValues(t, count, got.Values[0])
		count++
	}
	require.Equal(t, n, count)
}
