package exec

import (
	"context"

	"coredb/catalog"
	"coredb/rid"
	"coredb/tuple"
	"coredb/txn"
)

// Insert pulls every row from Child (typically a Values producer), writes
// each into Table's heap, and maintains every secondary index defined on
// Table. It reports its result exactly once: a single tuple holding the
// number of rows inserted.
type Insert struct {
	Child Operator
	Table *catalog.TableInfo
	Txn   txn.Context

	done bool
}

func (in *Insert) Init(ctx context.Context) error {
	in.done = false
	return in.Child.Init(ctx)
}

func (in *Insert) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	if in.done {
		return false
	}
	in.done = true

	var count int64
	for {
		var rows []tuple.Tuple
		var childRIDs []rid.RID
		if !in.Child.Next(&rows, &childRIDs, batchSize) {
			break
		}
		for _, row := range rows {
			r, ok := in.Table.Heap.InsertTuple(tuple.TupleMeta{Timestamp: in.Txn.ID}, row)
			if !ok {
				continue
			}
			for _, idx := range in.Table.Indexes {
				if _, err := idx.InsertEntry(row, r, in.Txn); err != nil {
					continue
				}
			}
			count++
		}
	}

	*out = append(*out, tuple.Tuple{Values: []tuple.Value{count}})
	*outRIDs = append(*outRIDs, rid.RID{PageID: rid.InvalidPageID})
	return true
}
