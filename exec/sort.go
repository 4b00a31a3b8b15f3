package exec

import (
	"context"
	"sort"

	"coredb/rid"
	"coredb/storage/buffer"
	"coredb/tuple"
)

// SortKey is one ORDER BY term.
type SortKey struct {
	Eval func(tuple.Tuple) tuple.Value
	Desc bool
}

func compareByKeys(a, b tuple.Tuple, keys []SortKey) int {
	for _, k := range keys {
		c := tuple.CompareValues(k.Eval(a), k.Eval(b))
		if k.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// ExternalMergeSort forms sorted initial runs, each a chain of
// intermediate-result pages, then repeatedly 2-way-merges pairs of runs
// until one remains. The whole sort runs during Init; Next drains the
// final run in batches, matching the retained BusTub sort executor's
// non-incremental Init/batched-Next split.
type ExternalMergeSort struct {
	Child   Operator
	Schema  *tuple.Schema
	OrderBy []SortKey
	Pool    *buffer.Pool
	RunSize int // tuples per initial run; 0 uses a default

	bufferedOutput
}

func (s *ExternalMergeSort) Init(ctx context.Context) error {
	s.reset()

	runSize := s.RunSize
	if runSize <= 0 {
		runSize = 64
	}

	if err := s.Child.Init(ctx); err != nil {
		return err
	}

	var runs []*intermediateStore
	var pending []tuple.Tuple
	flush := func() {
		if len(pending) == 0 {
			return
		}
		sort.Slice(pending, func(i, j int) bool {
			return compareByKeys(pending[i], pending[j], s.OrderBy) < 0
		})
		store := newIntermediateStore(s.Pool)
		for _, row := range pending {
			store.append(row.Encode())
		}
		runs = append(runs, store)
		pending = nil
	}

	for {
		var rows []tuple.Tuple
		var rids []rid.RID
		if !s.Child.Next(&rows, &rids, pullBatch) {
			break
		}
		for _, row := range rows {
			pending = append(pending, row)
			if len(pending) >= runSize {
				flush()
			}
		}
	}
	flush()

	for len(runs) > 1 {
		runs = s.mergePass(runs)
	}
	if len(runs) == 1 {
		runs[0].forEach(func(data []byte) {
			s.push(tuple.Decode(s.Schema, data), noRID())
		})
		runs[0].close()
	}
	return nil
}

func (s *ExternalMergeSort) mergePass(runs []*intermediateStore) []*intermediateStore {
	var out []*intermediateStore
	for i := 0; i < len(runs); i += 2 {
		if i+1 >= len(runs) {
			out = append(out, runs[i])
			continue
		}
		out = append(out, s.mergeTwo(runs[i], runs[i+1]))
		runs[i].close()
		runs[i+1].close()
	}
	return out
}

func (s *ExternalMergeSort) mergeTwo(a, b *intermediateStore) *intermediateStore {
	var arows, brows []tuple.Tuple
	a.forEach(func(data []byte) { arows = append(arows, tuple.Decode(s.Schema, data)) })
	b.forEach(func(data []byte) { brows = append(brows, tuple.Decode(s.Schema, data)) })

	out := newIntermediateStore(s.Pool)
	i, j := 0, 0
	for i < len(arows) && j < len(brows) {
		if compareByKeys(arows[i], brows[j], s.OrderBy) <= 0 {
			out.append(arows[i].Encode())
			i++
		} else {
			out.append(brows[j].Encode())
			j++
		}
	}
	for ; i < len(arows); i++ {
		out.append(arows[i].Encode())
	}
	for ; j < len(brows); j++ {
		out.append(brows[j].Encode())
	}
	return out
}

func (s *ExternalMergeSort) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	return s.drain(out, outRIDs, batchSize)
}
