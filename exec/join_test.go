package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/tuple"
	"coredb/txn"
)

func ordersSchema() tuple.Schema {
	return tuple.Schema{
		Name: "orders",
		Columns: []tuple.ColumnDef{
			{Name: "order_id", Type: tuple.TypeInt},
			{Name: "customer_id", Type: tuple.TypeInt},
		},
	}
}

func customersSchema() tuple.Schema {
	return tuple.Schema{
		Name: "customers",
		Columns: []tuple.ColumnDef{
			{Name: "id", Type: tuple.TypeInt},
			{Name: "name", Type: tuple.TypeString},
		},
	}
}

func TestNestedLoopJoinInner(t *testing.T) {
	orders := &Values{Schema: ptr(ordersSchema()), Rows: []tuple.Tuple{
		{Values: []tuple.Value{int64(100), int64(1)}},
		{Values: []tuple.Value{int64(101), int64(2)}},
		{Values: []tuple.Value{int64(102), int64(9)}},
	}}
	customers := &Values{Schema: ptr(customersSchema()), Rows: []tuple.Tuple{
		{Values: []tuple.Value{int64(1), "ann"}},
		{Values: []tuple.Value{int64(2), "bob"}},
	}}

	join := &NestedLoopJoin{
		Left: orders, Right: customers, Type: JoinInner,
		Predicate: func(l, r tuple.Tuple) bool {
			return l.Values[1].(int64) == r.Values[0].(int64)
		},
		RightWidth: 2,
	}
	rows, _, err := drainAll(context.Background(), join, 16)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestNestedLoopJoinLeftEmitsNulls(t *testing.T) {
	orders := &Values{Schema: ptr(ordersSchema()), Rows: []tuple.Tuple{
		{Values: []tuple.Value{int64(102), int64(9)}},
	}}
	customers := &Values{Schema: ptr(customersSchema()), Rows: []tuple.Tuple{
		{Values: []tuple.Value{int64(1), "ann"}},
	}}

	join := &NestedLoopJoin{
		Left: orders, Right: customers, Type: JoinLeft,
		Predicate: func(l, r tuple.Tuple) bool {
			return l.Values[1].(int64) == r.Values[0].(int64)
		},
		RightWidth: 2,
	}
	rows, _, err := drainAll(context.Background(), join, 16)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0].Values[2])
	require.Nil(t, rows[0].Values[3])
}

func TestNestedLoopJoinRejectsUnsupportedType(t *testing.T) {
	join := &NestedLoopJoin{Type: JoinType(99)}
	err := join.Init(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedJoinType)
}

func TestHashJoinInnerAndLeft(t *testing.T) {
	pool := newTestPool(t)
	orderRows := []tuple.Tuple{
		{Values: []tuple.Value{int64(100), int64(1)}},
		{Values: []tuple.Value{int64(101), int64(2)}},
		{Values: []tuple.Value{int64(102), int64(9)}},
	}
	customerRows := []tuple.Tuple{
		{Values: []tuple.Value{int64(1), "ann"}},
		{Values: []tuple.Value{int64(2), "bob"}},
	}
	oSchema, cSchema := ordersSchema(), customersSchema()

	keyAt := func(i int) func(tuple.Tuple) tuple.Tuple {
		return func(t tuple.Tuple) tuple.Tuple { return tuple.Tuple{Values: []tuple.Value{t.Values[i]}} }
	}

	join := &HashJoin{
		Left:       &Values{Schema: &oSchema, Rows: orderRows},
		Right:      &Values{Schema: &cSchema, Rows: customerRows},
		LeftSchema: &oSchema, RightSchema: &cSchema,
		LeftKey: keyAt(1), RightKey: keyAt(0),
		Type: JoinInner, Pool: pool, Partitions: 4,
	}
	rows, _, err := drainAll(context.Background(), join, 16)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	leftJoin := &HashJoin{
		Left:       &Values{Schema: &oSchema, Rows: orderRows},
		Right:      &Values{Schema: &cSchema, Rows: customerRows},
		LeftSchema: &oSchema, RightSchema: &cSchema,
		LeftKey: keyAt(1), RightKey: keyAt(0),
		Type: JoinLeft, Pool: pool, Partitions: 4,
	}
	rows, _, err = drainAll(context.Background(), leftJoin, 16)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestNestedIndexJoin(t *testing.T) {
	m := newTestCatalog(t)
	table, err := m.CreateTable(customersSchema())
	require.NoError(t, err)
	idx, err := m.CreateIndex("customers", "by_id", []string{"id"})
	require.NoError(t, err)

	for _, row := range []tuple.Tuple{
		{Values: []tuple.Value{int64(1), "ann"}},
		{Values: []tuple.Value{int64(2), "bob"}},
	} {
		r, ok := table.Heap.InsertTuple(tuple.TupleMeta{}, row)
		require.True(t, ok)
		_, err := idx.InsertEntry(row, r, txn.Context{})
		require.NoError(t, err)
	}

	oSchema := ordersSchema()
	left := &Values{Schema: &oSchema, Rows: []tuple.Tuple{
		{Values: []tuple.Value{int64(100), int64(1)}},
		{Values: []tuple.Value{int64(101), int64(9)}},
	}}

	join := &NestedIndexJoin{
		Left: left, Index: idx, InnerHeap: table.Heap,
		KeyFromLeft: func(t tuple.Tuple) tuple.Tuple { return tuple.Tuple{Values: []tuple.Value{t.Values[1]}} },
		Type:        JoinLeft,
		RightWidth:  2,
	}
	rows, _, err := drainAll(context.Background(), join, 16)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func ptr(s tuple.Schema) *tuple.Schema { return &s }
