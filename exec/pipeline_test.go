package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/tuple"
)

func scoresSchema() tuple.Schema {
	return tuple.Schema{
		Name: "scores",
		Columns: []tuple.ColumnDef{
			{Name: "team", Type: tuple.TypeString},
			{Name: "score", Type: tuple.TypeInt},
		},
	}
}

func scoreRows() []tuple.Tuple {
	return []tuple.Tuple{
		{Values: []tuple.Value{"red", int64(30)}},
		{Values: []tuple.Value{"blue", int64(10)}},
		{Values: []tuple.Value{"red", int64(20)}},
		{Values: []tuple.Value{"blue", int64(40)}},
		{Values: []tuple.Value{"red", int64(20)}},
	}
}

func TestExternalMergeSortAscending(t *testing.T) {
	pool := newTestPool(t)
	schema := scoresSchema()
	sort := &ExternalMergeSort{
		Child:   &Values{Schema: &schema, Rows: scoreRows()},
		Schema:  &schema,
		OrderBy: []SortKey{{Eval: func(t tuple.Tuple) tuple.Value { return t.Values[1] }}},
		Pool:    pool,
		RunSize: 2,
	}
	rows, _, err := drainAll(context.Background(), sort, 16)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	want := []int64{10, 20, 20, 30, 40}
	for i, w := range want {
		require.Equal(t, w, rows[i].Values[1])
	}
}

func TestTopNKeepsSmallestByScore(t *testing.T) {
	schema := scoresSchema()
	top := &TopN{
		Child:   &Values{Schema: &schema, Rows: scoreRows()},
		OrderBy: []SortKey{{Eval: func(t tuple.Tuple) tuple.Value { return t.Values[1] }}},
		N:       2,
	}
	rows, _, err := drainAll(context.Background(), top, 16)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(10), rows[0].Values[1])
	require.Equal(t, int64(20), rows[1].Values[1])
}

func TestAggregationGroupBy(t *testing.T) {
	schema := scoresSchema()
	agg := &Aggregation{
		Child:   &Values{Schema: &schema, Rows: scoreRows()},
		GroupBy: []func(tuple.Tuple) tuple.Value{func(t tuple.Tuple) tuple.Value { return t.Values[0] }},
		Aggregates: []AggregateExpr{
			{Func: AggCountStar},
			{Func: AggSum, Eval: func(t tuple.Tuple) tuple.Value { return t.Values[1] }},
		},
	}
	rows, _, err := drainAll(context.Background(), agg, 16)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	totals := map[string][2]int64{}
	for _, r := range rows {
		totals[r.Values[0].(string)] = [2]int64{r.Values[1].(int64), r.Values[2].(int64)}
	}
	require.Equal(t, int64(3), totals["red"][0])
	require.Equal(t, int64(70), totals["red"][1])
	require.Equal(t, int64(2), totals["blue"][0])
	require.Equal(t, int64(50), totals["blue"][1])
}

func TestAggregationEmptyInputNoGroupByYieldsIdentity(t *testing.T) {
	schema := scoresSchema()
	agg := &Aggregation{
		Child: &Values{Schema: &schema, Rows: nil},
		Aggregates: []AggregateExpr{
			{Func: AggCountStar},
			{Func: AggSum, Eval: func(t tuple.Tuple) tuple.Value { return t.Values[1] }},
		},
	}
	rows, _, err := drainAll(context.Background(), agg, 16)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(0), rows[0].Values[0])
	require.Nil(t, rows[0].Values[1])
}

func TestWindowFunctionRankAndRunningSum(t *testing.T) {
	schema := scoresSchema()
	w := &WindowFunction{
		Child:       &Values{Schema: &schema, Rows: scoreRows()},
		PartitionBy: []func(tuple.Tuple) tuple.Value{func(t tuple.Tuple) tuple.Value { return t.Values[0] }},
		OrderBy:     []SortKey{{Eval: func(t tuple.Tuple) tuple.Value { return t.Values[1] }}},
		Funcs: []WindowExpr{
			{Func: AggRank},
			{Func: AggSum, Eval: func(t tuple.Tuple) tuple.Value { return t.Values[1] }},
		},
	}
	rows, _, err := drainAll(context.Background(), w, 16)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	for _, r := range rows {
		if r.Values[0] == "red" && r.Values[1] == int64(20) {
			require.Equal(t, int64(1), r.Values[2])
			require.Equal(t, int64(40), r.Values[3])
		}
		if r.Values[0] == "red" && r.Values[1] == int64(30) {
			require.Equal(t, int64(3), r.Values[2])
			require.Equal(t, int64(70), r.Values[3])
		}
	}
}

func TestRewriteSeqScanToIndexScan(t *testing.T) {
	m := newTestCatalog(t)
	table, err := m.CreateTable(peopleSchema())
	require.NoError(t, err)
	_, err = m.CreateIndex("people", "by_id", []string{"id"})
	require.NoError(t, err)

	scan, ok := RewriteSeqScanToIndexScan(table, table.Schema, []EqualityCond{{Column: "id", Const: int64(5)}})
	require.True(t, ok)
	require.Equal(t, []tuple.Tuple{{Values: []tuple.Value{int64(5)}}}, scan.Keys)

	_, ok = RewriteSeqScanToIndexScan(table, table.Schema, []EqualityCond{{Column: "age", Const: int64(5)}})
	require.False(t, ok)
}

func TestRewriteNLJToHashJoin(t *testing.T) {
	pool := newTestPool(t)
	oSchema, cSchema := ordersSchema(), customersSchema()
	nlj := &NestedLoopJoin{
		Left:  &Values{Schema: &oSchema},
		Right: &Values{Schema: &cSchema},
		Type:  JoinInner,
	}
	hj, ok := RewriteNLJToHashJoin(nlj, &oSchema, &cSchema, []EquiJoinCond{{LeftCol: "customer_id", RightCol: "id"}}, pool, 4)
	require.True(t, ok)
	require.Equal(t, JoinInner, hj.Type)
}
