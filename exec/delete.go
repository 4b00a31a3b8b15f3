package exec

import (
	"context"

	"coredb/catalog"
	"coredb/rid"
	"coredb/tuple"
	"coredb/txn"
)

// Delete marks every row Child produces as deleted in the table heap and
// removes its entries from every secondary index. Reports its result once,
// as a row count.
type Delete struct {
	Child Operator
	Table *catalog.TableInfo
	Txn   txn.Context

	done bool
}

func (d *Delete) Init(ctx context.Context) error {
	d.done = false
	return d.Child.Init(ctx)
}

func (d *Delete) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	if d.done {
		return false
	}
	d.done = true

	var count int64
	for {
		var rows []tuple.Tuple
		var rids []rid.RID
		if !d.Child.Next(&rows, &rids, batchSize) {
			break
		}
		for i, row := range rows {
			r := rids[i]
			if !d.Table.Heap.UpdateTupleMeta(tuple.TupleMeta{Timestamp: d.Txn.ID, IsDeleted: true}, r) {
				continue
			}
			for _, idx := range d.Table.Indexes {
				idx.DeleteEntry(row, r, d.Txn)
			}
			count++
		}
	}

	*out = append(*out, tuple.Tuple{Values: []tuple.Value{count}})
	*outRIDs = append(*outRIDs, rid.RID{PageID: rid.InvalidPageID})
	return true
}
