package exec

import (
	"container/heap"
	"context"

	"coredb/rid"
	"coredb/tuple"
)

// topNHeap is a max-heap over OrderBy, so its root is always the current
// worst of the best N candidates retained so far — the one evicted first
// when a better row arrives.
type topNHeap struct {
	rows []tuple.Tuple
	keys []SortKey
}

func (h *topNHeap) Len() int { return len(h.rows) }
func (h *topNHeap) Less(i, j int) bool {
	return compareByKeys(h.rows[i], h.rows[j], h.keys) > 0
}
func (h *topNHeap) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }
func (h *topNHeap) Push(x any)    { h.rows = append(h.rows, x.(tuple.Tuple)) }
func (h *topNHeap) Pop() any {
	n := len(h.rows)
	last := h.rows[n-1]
	h.rows = h.rows[:n-1]
	return last
}

// TopN keeps only the N rows ranked best by OrderBy, emitted ascending.
// No stdlib priority queue substitute exists in the corpus's dependency
// set for this one-off bounded heap, so container/heap is used directly,
// per the retained BusTub topn_executor.cpp's own std::priority_queue
// approach.
type TopN struct {
	Child   Operator
	OrderBy []SortKey
	N       int

	bufferedOutput
}

func (t *TopN) Init(ctx context.Context) error {
	t.reset()
	if err := t.Child.Init(ctx); err != nil {
		return err
	}

	h := &topNHeap{keys: t.OrderBy}
	heap.Init(h)

	for {
		var rows []tuple.Tuple
		var rids []rid.RID
		if !t.Child.Next(&rows, &rids, pullBatch) {
			break
		}
		for _, row := range rows {
			heap.Push(h, row)
			if h.Len() > t.N {
				heap.Pop(h)
			}
		}
	}

	var descending []tuple.Tuple
	for h.Len() > 0 {
		descending = append(descending, heap.Pop(h).(tuple.Tuple))
	}
	for i := len(descending) - 1; i >= 0; i-- {
		t.push(descending[i], noRID())
	}
	return nil
}

func (t *TopN) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	return t.drain(out, outRIDs, batchSize)
}
