package exec

import (
	"context"

	"coredb/rid"
	"coredb/storage/heap"
	"coredb/tuple"
)

// SeqScan walks every live row of a table heap in physical order.
type SeqScan struct {
	Heap   *heap.TableHeap
	Schema *tuple.Schema
	Filter Predicate // nil accepts every row

	it *heap.Iterator
}

func (s *SeqScan) OutputSchema() *tuple.Schema { return s.Schema }

// Init (re)positions the scan at the heap's first slot.
func (s *SeqScan) Init(_ context.Context) error {
	s.it = s.Heap.MakeIterator()
	return nil
}

// Next appends up to batchSize live, filter-passing rows.
func (s *SeqScan) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	produced := false
	for len(*out) < batchSize {
		r, meta, row, ok := s.it.Next()
		if !ok {
			break
		}
		if meta.IsDeleted {
			continue
		}
		if s.Filter != nil && !s.Filter(row) {
			continue
		}
		*out = append(*out, row)
		*outRIDs = append(*outRIDs, r)
		produced = true
	}
	return produced
}
