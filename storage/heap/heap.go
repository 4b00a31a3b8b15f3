package heap

import (
	"sync"

	"coredb/rid"
	"coredb/storage/buffer"
	"coredb/storage/page"
	"coredb/tuple"
)

// TableHeap chains slotted pages, all owned by one buffer pool (and, in
// turn, one disk.Manager/backing file per table), into an appendable
// sequence of tuple storage. Page ids are dense and sequential within a
// heap's own file, so a heap simply remembers how many pages it has
// allocated rather than following an explicit next-page chain.
type TableHeap struct {
	pool   *buffer.Pool
	schema *tuple.Schema

	mu       sync.Mutex
	pageIDs  []page.ID
	lastPage page.ID
}

// NewTableHeap wraps an empty heap over pool. schema decodes tuple bytes
// read back out of the heap.
func NewTableHeap(pool *buffer.Pool, schema *tuple.Schema) *TableHeap {
	return &TableHeap{pool: pool, schema: schema, lastPage: page.InvalidID}
}

// OpenTableHeap reconstructs a heap that already has pageIDs (in allocation
// order) resident on disk, for reopening a table across process restarts.
func OpenTableHeap(pool *buffer.Pool, schema *tuple.Schema, pageIDs []page.ID) *TableHeap {
	last := page.InvalidID
	if len(pageIDs) > 0 {
		last = pageIDs[len(pageIDs)-1]
	}
	return &TableHeap{pool: pool, schema: schema, pageIDs: pageIDs, lastPage: last}
}

// InsertTuple appends t, allocating a new page if the current tail page has
// no room.
func (h *TableHeap) InsertTuple(meta tuple.TupleMeta, t tuple.Tuple) (rid.RID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data := t.Encode()

	if h.lastPage != page.InvalidID {
		if r, ok := h.tryInsert(h.lastPage, data, meta); ok {
			return r, true
		}
	}

	g, ok := h.pool.NewPageGuard()
	if !ok {
		return rid.RID{}, false
	}
	InitPage(&g.Page().Data)
	id := g.Page().ID
	slotIdx, err := insertSlot(&g.Page().Data, data, meta)
	g.Drop()
	if err != nil {
		return rid.RID{}, false
	}

	h.pageIDs = append(h.pageIDs, id)
	h.lastPage = id
	return rid.RID{PageID: int32(id), SlotNum: uint32(slotIdx)}, true
}

func (h *TableHeap) tryInsert(id page.ID, data []byte, meta tuple.TupleMeta) (rid.RID, bool) {
	g, ok := h.pool.FetchWrite(id)
	if !ok {
		return rid.RID{}, false
	}
	defer g.Drop()

	slotIdx, err := insertSlot(&g.Page().Data, data, meta)
	if err != nil {
		return rid.RID{}, false
	}
	return rid.RID{PageID: int32(id), SlotNum: uint32(slotIdx)}, true
}

// GetTuple returns the tuple at r along with its visibility metadata.
func (h *TableHeap) GetTuple(r rid.RID) (tuple.TupleMeta, tuple.Tuple, bool) {
	g, ok := h.pool.FetchRead(page.ID(r.PageID))
	if !ok {
		return tuple.TupleMeta{}, tuple.Tuple{}, false
	}
	defer g.Drop()

	data, meta, ok := getSlot(&g.Page().Data, int(r.SlotNum))
	if !ok {
		return tuple.TupleMeta{}, tuple.Tuple{}, false
	}
	return meta, tuple.Decode(h.schema, data), true
}

// UpdateTupleMeta overwrites just the visibility metadata for r, leaving
// its payload untouched — the usual path for marking a row deleted.
func (h *TableHeap) UpdateTupleMeta(meta tuple.TupleMeta, r rid.RID) bool {
	g, ok := h.pool.FetchWrite(page.ID(r.PageID))
	if !ok {
		return false
	}
	defer g.Drop()

	if int(r.SlotNum) >= numSlots(&g.Page().Data) {
		return false
	}
	writeMeta(&g.Page().Data, int(r.SlotNum), meta)
	return true
}

// Iterator walks every slot of every page in insertion order, including
// tombstoned/deleted ones — callers filter on TupleMeta.IsDeleted
// themselves, matching how MVCC visibility is layered on top elsewhere.
type Iterator struct {
	heap     *TableHeap
	pageIdx  int
	slotIdx  int
}

// MakeIterator returns a fresh iterator positioned before the first slot.
func (h *TableHeap) MakeIterator() *Iterator {
	return &Iterator{heap: h, pageIdx: 0, slotIdx: -1}
}

// Next advances to the next occupied slot (tombstoned or live) and reports
// whether one was found.
func (it *Iterator) Next() (rid.RID, tuple.TupleMeta, tuple.Tuple, bool) {
	h := it.heap
	for it.pageIdx < len(h.pageIDs) {
		id := h.pageIDs[it.pageIdx]
		g, ok := h.pool.FetchRead(id)
		if !ok {
			return rid.RID{}, tuple.TupleMeta{}, tuple.Tuple{}, false
		}
		it.slotIdx++
		if it.slotIdx >= numSlots(&g.Page().Data) {
			g.Drop()
			it.pageIdx++
			it.slotIdx = -1
			continue
		}
		data, meta, ok := getSlotRaw(&g.Page().Data, it.slotIdx)
		g.Drop()
		if !ok {
			continue
		}
		r := rid.RID{PageID: int32(id), SlotNum: uint32(it.slotIdx)}
		return r, meta, tuple.Decode(h.schema, data), true
	}
	return rid.RID{}, tuple.TupleMeta{}, tuple.Tuple{}, false
}

// getSlotRaw returns a slot's payload bytes regardless of its tombstone
// flag, for the iterator, which surfaces tombstoned rows to its caller
// rather than skipping them silently.
func getSlotRaw(buf *[page.Size]byte, slotIdx int) ([]byte, tuple.TupleMeta, bool) {
	if slotIdx < 0 || slotIdx >= numSlots(buf) {
		return nil, tuple.TupleMeta{}, false
	}
	offset, length, meta := readSlot(buf, slotIdx)
	if length == 0 {
		return nil, meta, false
	}
	out := make([]byte, length)
	copy(out, buf[offset:offset+length])
	return out, meta, true
}
