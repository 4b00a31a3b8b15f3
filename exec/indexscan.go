package exec

import (
	"context"

	"coredb/catalog"
	"coredb/rid"
	"coredb/storage/heap"
	"coredb/storage/index/bptree"
	"coredb/tuple"
)

// IndexScan resolves rows through a secondary index rather than walking
// the table heap directly: either a set of point-lookup keys, or (when
// Keys is nil) a full forward scan of the index in key order.
type IndexScan struct {
	Index  *catalog.IndexInfo
	Heap   *heap.TableHeap
	Schema *tuple.Schema
	Keys   []tuple.Tuple // point-lookup keys, shaped to Index.KeySchema(); nil means range scan
	Filter Predicate

	rids []rid.RID
	pos  int
	iter *bptree.Iterator
}

func (s *IndexScan) OutputSchema() *tuple.Schema { return s.Schema }

// Init resolves point-lookup keys up front, or positions a fresh index
// iterator when none are supplied.
func (s *IndexScan) Init(_ context.Context) error {
	s.rids = nil
	s.pos = 0
	s.iter = nil

	if s.Keys != nil {
		for _, k := range s.Keys {
			if err := s.Index.LookupKey(k, &s.rids); err != nil {
				return err
			}
		}
		return nil
	}

	it, err := s.Index.Iterator()
	if err != nil {
		return err
	}
	s.iter = it
	return nil
}

func (s *IndexScan) fetch(r rid.RID, out *[]tuple.Tuple, outRIDs *[]rid.RID) bool {
	meta, row, ok := s.Heap.GetTuple(r)
	if !ok || meta.IsDeleted {
		return false
	}
	if s.Filter != nil && !s.Filter(row) {
		return false
	}
	*out = append(*out, row)
	*outRIDs = append(*outRIDs, r)
	return true
}

// Next appends up to batchSize live, filter-passing rows resolved through
// the index.
func (s *IndexScan) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	produced := false

	if s.Keys != nil {
		for len(*out) < batchSize && s.pos < len(s.rids) {
			r := s.rids[s.pos]
			s.pos++
			if s.fetch(r, out, outRIDs) {
				produced = true
			}
		}
		return produced
	}

	for len(*out) < batchSize && s.iter.Valid() {
		r := s.iter.Value()
		s.iter.Next()
		if s.fetch(r, out, outRIDs) {
			produced = true
		}
	}
	return produced
}
