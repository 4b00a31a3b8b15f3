package exec

import (
	"context"
	"sort"

	"coredb/rid"
	"coredb/tuple"
)

// WindowExpr is one output column a WindowFunction operator appends after
// the input row's own columns.
type WindowExpr struct {
	Func AggFunc
	Eval func(tuple.Tuple) tuple.Value // ignored for AggCountStar and AggRank
}

// WindowFunction materialises its input, sorts by (partition_by,
// order_by), and computes one running value per Funcs entry over each
// peer group: ties on order_by share one result (a single peer-group pass
// rather than row-by-row), matching the retained
// window_function_executor.cpp's own peer-group accumulation. With no
// OrderBy, every row in a partition is one peer group, so aggregates see
// the whole partition and RANK is always 1.
type WindowFunction struct {
	Child       Operator
	PartitionBy []func(tuple.Tuple) tuple.Value
	OrderBy     []SortKey
	Funcs       []WindowExpr

	bufferedOutput
}

func (w *WindowFunction) partitionKey(row tuple.Tuple) []tuple.Value {
	vals := make([]tuple.Value, len(w.PartitionBy))
	for i, p := range w.PartitionBy {
		vals[i] = p(row)
	}
	return vals
}

func samePartition(a, b []tuple.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if tuple.CompareValues(a[i], b[i]) != 0 {
			return false
		}
	}
	return true
}

func (w *WindowFunction) Init(ctx context.Context) error {
	w.reset()
	if err := w.Child.Init(ctx); err != nil {
		return err
	}

	var rows []tuple.Tuple
	for {
		var batch []tuple.Tuple
		var rids []rid.RID
		if !w.Child.Next(&batch, &rids, pullBatch) {
			break
		}
		rows = append(rows, batch...)
	}
	if len(rows) == 0 {
		return nil
	}

	sortKeys := make([]SortKey, 0, len(w.PartitionBy)+len(w.OrderBy))
	for _, p := range w.PartitionBy {
		sortKeys = append(sortKeys, SortKey{Eval: p})
	}
	sortKeys = append(sortKeys, w.OrderBy...)
	sort.SliceStable(rows, func(i, j int) bool {
		return compareByKeys(rows[i], rows[j], sortKeys) < 0
	})

	states := make([]*aggState, len(w.Funcs))
	for i := range states {
		states[i] = &aggState{}
	}
	var curPartition []tuple.Value
	var rankBase int64 // rows already processed in current partition before current peer group

	i := 0
	for i < len(rows) {
		part := w.partitionKey(rows[i])
		if curPartition == nil || !samePartition(curPartition, part) {
			curPartition = part
			rankBase = 0
			for _, s := range states {
				*s = aggState{}
			}
		}

		// peer group: rows sharing both partition and (when present)
		// order_by values; with no OrderBy the whole partition is one
		// peer group.
		j := i + 1
		for j < len(rows) && samePartition(w.partitionKey(rows[j]), part) &&
			(len(w.OrderBy) == 0 || compareByKeys(rows[i], rows[j], w.OrderBy) == 0) {
			j++
		}

		rank := rankBase + 1
		for k := i; k < j; k++ {
			for fi, fn := range w.Funcs {
				if fn.Func != AggRank && fn.Func != AggCountStar {
					states[fi].apply(fn.Eval(rows[k]))
				} else if fn.Func == AggCountStar {
					states[fi].apply(int64(0))
				}
			}
		}

		for k := i; k < j; k++ {
			values := append([]tuple.Value{}, rows[k].Values...)
			for fi, fn := range w.Funcs {
				if fn.Func == AggRank {
					values = append(values, rank)
				} else {
					values = append(values, states[fi].result(fn.Func))
				}
			}
			w.push(tuple.Tuple{Values: values}, noRID())
		}

		rankBase += int64(j - i)
		i = j
	}
	return nil
}

func (w *WindowFunction) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	return w.drain(out, outRIDs, batchSize)
}
