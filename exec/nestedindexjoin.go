package exec

import (
	"context"

	"coredb/catalog"
	"coredb/rid"
	"coredb/storage/heap"
	"coredb/tuple"
)

// NestedIndexJoin probes an index instead of rescanning the inner side:
// for every left tuple it builds the inner index's key tuple, looks up the
// matching RIDs, and fetches each from the inner table's heap. Only INNER
// and LEFT are supported.
type NestedIndexJoin struct {
	Left        Operator
	Index       *catalog.IndexInfo
	InnerHeap   *heap.TableHeap
	KeyFromLeft func(tuple.Tuple) tuple.Tuple
	Type        JoinType
	RightWidth  int

	bufferedOutput
}

func (j *NestedIndexJoin) Init(ctx context.Context) error {
	if j.Type != JoinInner && j.Type != JoinLeft {
		return ErrUnsupportedJoinType
	}
	j.reset()

	if err := j.Left.Init(ctx); err != nil {
		return err
	}
	for {
		var leftRows []tuple.Tuple
		var leftRIDs []rid.RID
		if !j.Left.Next(&leftRows, &leftRIDs, pullBatch) {
			break
		}
		for _, leftRow := range leftRows {
			key := j.KeyFromLeft(leftRow)
			var rids []rid.RID
			if err := j.Index.LookupKey(key, &rids); err != nil {
				return err
			}
			matched := false
			for _, r := range rids {
				meta, row, ok := j.InnerHeap.GetTuple(r)
				if !ok || meta.IsDeleted {
					continue
				}
				j.push(combine(leftRow, row), noRID())
				matched = true
			}
			if !matched && j.Type == JoinLeft {
				j.push(combineWithNulls(leftRow, j.RightWidth), noRID())
			}
		}
	}
	return nil
}

func (j *NestedIndexJoin) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	return j.drain(out, outRIDs, batchSize)
}
