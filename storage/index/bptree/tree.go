// Package bptree implements a disk-backed, latch-crabbed B+ tree index:
// concurrent search/insert/remove over pages fetched through a
// storage/buffer.Pool, an in-leaf tombstone buffer that defers physical
// key removal, and a tombstone-skipping forward iterator.
package bptree

import (
	"bytes"
	"encoding/binary"
	"sort"

	"go.uber.org/zap"

	"coredb/rid"
	"coredb/storage/buffer"
	"coredb/storage/page"
)

// Comparator orders two encoded keys; bytes.Compare is the default.
type Comparator func(a, b []byte) int

// Tree is a B+ tree over pages managed by pool. All keys and values are
// opaque byte slices; the catalog is responsible for encoding tuple
// columns into comparable keys and RIDs into values.
type Tree struct {
	pool              *buffer.Pool
	header            page.ID
	maxSize           int
	tombstoneCapacity int
	cmp               Comparator
	log               *zap.Logger
}

func internalMinSize(maxSize int) int {
	m := (maxSize + 1) / 2
	if m < 2 {
		return 2
	}
	return m
}

func leafMinSize(maxSize int) int {
	return (maxSize + 1) / 2
}

// Create allocates a fresh header page and returns a new, empty tree.
func Create(pool *buffer.Pool, maxSize, tombstoneCapacity int, cmp Comparator, log *zap.Logger) (*Tree, error) {
	if cmp == nil {
		cmp = bytes.Compare
	}
	if log == nil {
		log = zap.NewNop()
	}
	g, ok := pool.NewPageGuard()
	if !ok {
		return nil, errNoFrame
	}
	headerID := g.Page().ID
	page.EncodeHeader(&g.Page().Data, page.HeaderPage{RootPageID: page.InvalidID})
	g.Drop()

	return &Tree{
		pool:              pool,
		header:            headerID,
		maxSize:           maxSize,
		tombstoneCapacity: tombstoneCapacity,
		cmp:               cmp,
		log:               log.With(zap.String("component", "bptree")),
	}, nil
}

// Open wraps an existing tree whose header page is headerID.
func Open(pool *buffer.Pool, headerID page.ID, maxSize, tombstoneCapacity int, cmp Comparator, log *zap.Logger) *Tree {
	if cmp == nil {
		cmp = bytes.Compare
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tree{
		pool:              pool,
		header:            headerID,
		maxSize:           maxSize,
		tombstoneCapacity: tombstoneCapacity,
		cmp:               cmp,
		log:               log.With(zap.String("component", "bptree")),
	}
}

// HeaderPageID returns the tree's header page id, for catalog persistence.
func (t *Tree) HeaderPageID() page.ID { return t.header }

func (t *Tree) readRoot() (page.ID, error) {
	g, ok := t.pool.FetchRead(t.header)
	if !ok {
		return page.InvalidID, errNoFrame
	}
	defer g.Drop()
	return page.DecodeHeader(&g.Page().Data).RootPageID, nil
}

func (t *Tree) writeRoot(id page.ID) error {
	g, ok := t.pool.FetchWrite(t.header)
	if !ok {
		return errNoFrame
	}
	defer g.Drop()
	page.EncodeHeader(&g.Page().Data, page.HeaderPage{RootPageID: id})
	return nil
}

// findChildIndex returns the index of the child to descend into for key,
// given an internal node's keys (keys[0] unused).
func (t *Tree) findChildIndex(keys [][]byte, key []byte) int {
	// keys[1..size-1] are routing keys; children[i] holds everything
	// >= keys[i] and < keys[i+1].
	idx := sort.Search(len(keys)-1, func(i int) bool {
		return t.cmp(keys[i+1], key) > 0
	})
	return idx
}

// findKeyIndex returns the position of key in a sorted leaf key slice, and
// whether it was found.
func (t *Tree) findKeyIndex(keys [][]byte, key []byte) (int, bool) {
	i := sort.Search(len(keys), func(i int) bool {
		return t.cmp(keys[i], key) >= 0
	})
	if i < len(keys) && t.cmp(keys[i], key) == 0 {
		return i, true
	}
	return i, false
}

// GetValue looks up key, skipping any tombstoned slot.
func (t *Tree) GetValue(key []byte) (rid.RID, bool, error) {
	rootID, err := t.readRoot()
	if err != nil {
		return rid.RID{}, false, err
	}
	if rootID == page.InvalidID {
		return rid.RID{}, false, nil
	}

	g, ok := t.pool.FetchRead(rootID)
	if !ok {
		return rid.RID{}, false, errNoFrame
	}
	for g.Page().PageType() == page.TypeInternal {
		node, err := page.DecodeInternal(&g.Page().Data)
		if err != nil {
			g.Drop()
			return rid.RID{}, false, err
		}
		idx := t.findChildIndex(node.Keys, key)
		child := node.Children[idx]
		childGuard, ok := t.pool.FetchRead(child)
		g.Drop()
		if !ok {
			return rid.RID{}, false, errNoFrame
		}
		g = childGuard
	}

	leaf, err := page.DecodeLeaf(&g.Page().Data)
	g.Drop()
	if err != nil {
		return rid.RID{}, false, err
	}
	idx, found := t.findKeyIndex(leaf.Keys, key)
	if !found || isTombstoned(leaf.Tombstones, idx) {
		return rid.RID{}, false, nil
	}
	return decodeRID(leaf.Values[idx]), true, nil
}

func isTombstoned(tombstones []int32, idx int) bool {
	for _, ts := range tombstones {
		if int(ts) == idx {
			return true
		}
	}
	return false
}

func encodeRID(r rid.RID) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.PageID))
	binary.LittleEndian.PutUint32(buf[4:8], r.SlotNum)
	return buf
}

func decodeRID(b []byte) rid.RID {
	return rid.RID{
		PageID:  int32(binary.LittleEndian.Uint32(b[0:4])),
		SlotNum: binary.LittleEndian.Uint32(b[4:8]),
	}
}
