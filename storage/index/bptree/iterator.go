package bptree

import (
	"coredb/rid"
	"coredb/storage/page"
)

// Iterator walks leaf entries in key order, skipping tombstoned slots and
// following NextPageID links across leaf boundaries.
type Iterator struct {
	tree    *Tree
	leaf    page.ID
	idx     int
	keys    [][]byte
	values  [][]byte
	tomb    []int32
	done    bool
}

// Seek positions an iterator at the first live entry with key >= start. A
// nil start begins at the tree's leftmost leaf.
func (t *Tree) Seek(start []byte) (*Iterator, error) {
	rootID, err := t.readRoot()
	if err != nil {
		return nil, err
	}
	if rootID == page.InvalidID {
		return &Iterator{tree: t, done: true}, nil
	}

	g, ok := t.pool.FetchRead(rootID)
	if !ok {
		return nil, errNoFrame
	}
	for g.Page().PageType() == page.TypeInternal {
		node, err := page.DecodeInternal(&g.Page().Data)
		if err != nil {
			g.Drop()
			return nil, err
		}
		idx := 0
		if start != nil {
			idx = t.findChildIndex(node.Keys, start)
		}
		child := node.Children[idx]
		childGuard, ok := t.pool.FetchRead(child)
		g.Drop()
		if !ok {
			return nil, errNoFrame
		}
		g = childGuard
	}

	leaf, err := page.DecodeLeaf(&g.Page().Data)
	leafID := g.Page().ID
	g.Drop()
	if err != nil {
		return nil, err
	}

	startIdx := 0
	if start != nil {
		startIdx, _ = t.findKeyIndex(leaf.Keys, start)
	}

	it := &Iterator{
		tree:   t,
		leaf:   leafID,
		idx:    startIdx,
		keys:   leaf.Keys,
		values: leaf.Values,
		tomb:   leaf.Tombstones,
	}
	it.skipTombstoned()
	return it, nil
}

func (it *Iterator) skipTombstoned() {
	for !it.done {
		if it.idx < len(it.keys) {
			if !isTombstoned(it.tomb, it.idx) {
				return
			}
			it.idx++
			continue
		}
		if !it.advanceLeaf() {
			it.done = true
			return
		}
	}
}

func (it *Iterator) advanceLeaf() bool {
	g, ok := it.tree.pool.FetchRead(it.leaf)
	if !ok {
		return false
	}
	leaf, err := page.DecodeLeaf(&g.Page().Data)
	g.Drop()
	if err != nil || leaf.NextPageID == page.InvalidID {
		return false
	}

	g, ok = it.tree.pool.FetchRead(leaf.NextPageID)
	if !ok {
		return false
	}
	next, err := page.DecodeLeaf(&g.Page().Data)
	nextID := g.Page().ID
	g.Drop()
	if err != nil {
		return false
	}

	it.leaf = nextID
	it.idx = 0
	it.keys = next.Keys
	it.values = next.Values
	it.tomb = next.Tombstones
	return true
}

// Valid reports whether the iterator currently rests on a live entry.
func (it *Iterator) Valid() bool { return !it.done }

// Key returns the current entry's key. Only valid when Valid() is true.
func (it *Iterator) Key() []byte { return it.keys[it.idx] }

// Value returns the current entry's RID. Only valid when Valid() is true.
func (it *Iterator) Value() rid.RID { return decodeRID(it.values[it.idx]) }

// Next advances to the following live entry.
func (it *Iterator) Next() {
	if it.done {
		return
	}
	it.idx++
	it.skipTombstoned()
}
