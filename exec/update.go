package exec

import (
	"context"

	"coredb/catalog"
	"coredb/rid"
	"coredb/tuple"
	"coredb/txn"
)

// Update is delete-then-insert by design: for every row Child produces, the
// old heap tuple is marked deleted, its index entries are dropped, the
// transformed tuple is inserted fresh, and new index entries are added for
// it. This keeps secondary indexes consistent without an in-place update
// path through the B+ tree. Reports its result once, as a row count.
type Update struct {
	Child     Operator
	Table     *catalog.TableInfo
	Transform func(tuple.Tuple) tuple.Tuple
	Txn       txn.Context

	done bool
}

func (u *Update) Init(ctx context.Context) error {
	u.done = false
	return u.Child.Init(ctx)
}

func (u *Update) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	if u.done {
		return false
	}
	u.done = true

	var count int64
	for {
		var rows []tuple.Tuple
		var oldRIDs []rid.RID
		if !u.Child.Next(&rows, &oldRIDs, batchSize) {
			break
		}
		for i, oldRow := range rows {
			oldRID := oldRIDs[i]
			if !u.Table.Heap.UpdateTupleMeta(tuple.TupleMeta{Timestamp: u.Txn.ID, IsDeleted: true}, oldRID) {
				continue
			}
			for _, idx := range u.Table.Indexes {
				idx.DeleteEntry(oldRow, oldRID, u.Txn)
			}

			newRow := u.Transform(oldRow)
			newRID, ok := u.Table.Heap.InsertTuple(tuple.TupleMeta{Timestamp: u.Txn.ID}, newRow)
			if !ok {
				continue
			}
			for _, idx := range u.Table.Indexes {
				idx.InsertEntry(newRow, newRID, u.Txn)
			}
			count++
		}
	}

	*out = append(*out, tuple.Tuple{Values: []tuple.Value{count}})
	*outRIDs = append(*outRIDs, rid.RID{PageID: rid.InvalidPageID})
	return true
}
