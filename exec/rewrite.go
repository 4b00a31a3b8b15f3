package exec

import (
	"coredb/catalog"
	"coredb/storage/buffer"
	"coredb/tuple"
)

// EqualityCond is a single `column = const` predicate term.
type EqualityCond struct {
	Column string
	Const  tuple.Value
}

// RewriteSeqScanToIndexScan replaces a sequential scan with an index scan
// when its filter is a disjunction of `col = const` terms (a lone term is
// a plain equality) over a single column that carries a single-column
// index. eqs sharing more than one distinct column, or naming a column
// with no matching index, leave the scan unrewritten.
func RewriteSeqScanToIndexScan(table *catalog.TableInfo, schema *tuple.Schema, eqs []EqualityCond) (*IndexScan, bool) {
	if len(eqs) == 0 {
		return nil, false
	}
	col := eqs[0].Column
	for _, e := range eqs[1:] {
		if e.Column != col {
			return nil, false
		}
	}

	var idx *catalog.IndexInfo
	for _, ii := range table.Indexes {
		attrs := ii.GetKeyAttrs()
		if len(attrs) == 1 && attrs[0] == col {
			idx = ii
			break
		}
	}
	if idx == nil {
		return nil, false
	}

	keys := make([]tuple.Tuple, len(eqs))
	for i, e := range eqs {
		keys[i] = tuple.Tuple{Values: []tuple.Value{e.Const}}
	}
	return &IndexScan{Index: idx, Heap: table.Heap, Schema: schema, Keys: keys}, true
}

// EquiJoinCond is one `left.col = right.col` conjunct.
type EquiJoinCond struct {
	LeftCol, RightCol string
}

// RewriteNLJToHashJoin replaces a nested loop join with a hash join whose
// keys are the columns named in conds, read as a conjunction of
// left.col = right.col equalities. It does not inspect the join's own
// predicate; an empty conds leaves the join unrewritten.
func RewriteNLJToHashJoin(nlj *NestedLoopJoin, leftSchema, rightSchema *tuple.Schema, conds []EquiJoinCond, pool *buffer.Pool, partitions int) (*HashJoin, bool) {
	if len(conds) == 0 {
		return nil, false
	}

	leftKey := func(t tuple.Tuple) tuple.Tuple {
		vals := make([]tuple.Value, len(conds))
		for i, c := range conds {
			vals[i] = t.Values[leftSchema.IndexOf(c.LeftCol)]
		}
		return tuple.Tuple{Values: vals}
	}
	rightKey := func(t tuple.Tuple) tuple.Tuple {
		vals := make([]tuple.Value, len(conds))
		for i, c := range conds {
			vals[i] = t.Values[rightSchema.IndexOf(c.RightCol)]
		}
		return tuple.Tuple{Values: vals}
	}

	return &HashJoin{
		Left: nlj.Left, Right: nlj.Right,
		LeftSchema: leftSchema, RightSchema: rightSchema,
		LeftKey: leftKey, RightKey: rightKey,
		Type: nlj.Type, Pool: pool, Partitions: partitions,
	}, true
}
