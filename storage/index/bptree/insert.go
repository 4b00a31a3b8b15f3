package bptree

import (
	"coredb/rid"
	"coredb/storage/buffer"
	"coredb/storage/page"
)

// Insert adds key/value, splitting nodes bottom-up as needed. Returns false
// if key already has a live (non-tombstoned) entry.
//
// Latching: every node from the header down to the leaf is write-latched
// before any of them is mutated, released in reverse order once the whole
// insert (including any cascading split) has completed. This forgoes the
// "release ancestors once a safe node is seen" optimization BusTub-style
// trees use, trading some concurrency for a simpler, still deadlock-free
// (strictly top-down acquisition) implementation.
func (t *Tree) Insert(key []byte, value rid.RID) (bool, error) {
	headerGuard, ok := t.pool.FetchWrite(t.header)
	if !ok {
		return false, errNoFrame
	}
	path := []*buffer.WritePageGuard{headerGuard}
	defer func() { dropAll(path) }()

	root := page.DecodeHeader(&headerGuard.Page().Data).RootPageID
	if root == page.InvalidID {
		leafID, err := t.newLeaf(page.InvalidID)
		if err != nil {
			return false, err
		}
		if err := t.writeLeafKV(leafID, [][]byte{key}, [][]byte{encodeRID(value)}, nil); err != nil {
			return false, err
		}
		page.EncodeHeader(&headerGuard.Page().Data, page.HeaderPage{RootPageID: leafID})
		return true, nil
	}

	current := root
	for {
		g, ok := t.pool.FetchWrite(current)
		if !ok {
			return false, errNoFrame
		}
		path = append(path, g)

		if g.Page().PageType() == page.TypeLeaf {
			return t.insertIntoLeaf(path, key, value)
		}

		node, err := page.DecodeInternal(&g.Page().Data)
		if err != nil {
			return false, err
		}
		current = node.Children[t.findChildIndex(node.Keys, key)]
	}
}

func (t *Tree) insertIntoLeaf(path []*buffer.WritePageGuard, key []byte, value rid.RID) (bool, error) {
	leafGuard := path[len(path)-1]
	leaf, err := page.DecodeLeaf(&leafGuard.Page().Data)
	if err != nil {
		return false, err
	}

	idx, found := t.findKeyIndex(leaf.Keys, key)
	if found {
		if !isTombstoned(leaf.Tombstones, idx) {
			return false, nil
		}
		leaf.Values[idx] = encodeRID(value)
		leaf.Tombstones = removeTombstone(leaf.Tombstones, idx)
		return true, page.EncodeLeaf(&leafGuard.Page().Data, leaf)
	}

	leaf.Keys = insertAt(leaf.Keys, idx, key)
	leaf.Values = insertAtBytes(leaf.Values, idx, encodeRID(value))
	leaf.Tombstones = shiftTombstonesForInsert(leaf.Tombstones, idx)

	if len(leaf.Keys) <= t.maxSize-1 {
		return true, page.EncodeLeaf(&leafGuard.Page().Data, leaf)
	}

	return true, t.splitLeafAndInsertUp(path, leafGuard, leaf)
}

func (t *Tree) splitLeafAndInsertUp(path []*buffer.WritePageGuard, leafGuard *buffer.WritePageGuard, leaf page.LeafNode) error {
	mid := len(leaf.Keys) / 2
	rightKeys := append([][]byte{}, leaf.Keys[mid:]...)
	rightValues := append([][]byte{}, leaf.Values[mid:]...)
	leftKeys := leaf.Keys[:mid]
	leftValues := leaf.Values[:mid]

	rightTombstones := shiftedTombstonesForSplit(leaf.Tombstones, mid, len(rightKeys))
	leftTombstones := filterTombstonesBelow(leaf.Tombstones, mid)

	rightID, err := t.newLeaf(leaf.NextPageID)
	if err != nil {
		return err
	}
	if err := t.writeLeafKV(rightID, rightKeys, rightValues, rightTombstones); err != nil {
		return err
	}

	leaf.Keys = leftKeys
	leaf.Values = leftValues
	leaf.Tombstones = leftTombstones
	leaf.NextPageID = rightID
	if err := page.EncodeLeaf(&leafGuard.Page().Data, leaf); err != nil {
		return err
	}

	splitKey := rightKeys[0]
	return t.insertIntoParent(path[:len(path)-1], leafGuard.Page().ID, splitKey, rightID)
}

// insertIntoParent inserts (splitKey -> rightID) into the parent at the top
// of ancestors (ancestors[len-1] is the immediate parent; ancestors[0] is
// the header). If ancestors holds only the header, leftID was the root and
// a new root is created above it.
func (t *Tree) insertIntoParent(ancestors []*buffer.WritePageGuard, leftID page.ID, splitKey []byte, rightID page.ID) error {
	if len(ancestors) == 1 {
		headerGuard := ancestors[0]
		newRootID, err := t.newInternal([][]byte{{}, splitKey}, []page.ID{leftID, rightID})
		if err != nil {
			return err
		}
		page.EncodeHeader(&headerGuard.Page().Data, page.HeaderPage{RootPageID: newRootID})
		return nil
	}

	parentGuard := ancestors[len(ancestors)-1]
	node, err := page.DecodeInternal(&parentGuard.Page().Data)
	if err != nil {
		return err
	}

	pos := indexOfChild(node.Children, leftID) + 1
	node.Keys = insertAt(node.Keys, pos, splitKey)
	node.Children = insertID(node.Children, pos, rightID)

	if len(node.Keys) <= t.maxSize-1 {
		return page.EncodeInternal(&parentGuard.Page().Data, node)
	}

	return t.splitInternalAndInsertUp(ancestors, parentGuard, node)
}

func (t *Tree) splitInternalAndInsertUp(ancestors []*buffer.WritePageGuard, parentGuard *buffer.WritePageGuard, node page.InternalNode) error {
	mid := len(node.Keys) / 2
	splitKey := node.Keys[mid]

	rightKeys := append([][]byte{{}}, node.Keys[mid+1:]...)
	rightChildren := append([]page.ID{}, node.Children[mid:]...)
	leftKeys := node.Keys[:mid]
	leftChildren := node.Children[:mid]

	rightID, err := t.newInternal(rightKeys, rightChildren)
	if err != nil {
		return err
	}

	node.Keys = leftKeys
	node.Children = leftChildren
	if err := page.EncodeInternal(&parentGuard.Page().Data, node); err != nil {
		return err
	}

	return t.insertIntoParent(ancestors[:len(ancestors)-1], parentGuard.Page().ID, splitKey, rightID)
}

func (t *Tree) newLeaf(nextPageID page.ID) (page.ID, error) {
	g, ok := t.pool.NewPageGuard()
	if !ok {
		return page.InvalidID, errNoFrame
	}
	defer g.Drop()
	err := page.EncodeLeaf(&g.Page().Data, page.LeafNode{MaxSize: t.maxSize, NextPageID: nextPageID})
	return g.Page().ID, err
}

func (t *Tree) newInternal(keys [][]byte, children []page.ID) (page.ID, error) {
	g, ok := t.pool.NewPageGuard()
	if !ok {
		return page.InvalidID, errNoFrame
	}
	defer g.Drop()
	err := page.EncodeInternal(&g.Page().Data, page.InternalNode{MaxSize: t.maxSize, Keys: keys, Children: children})
	return g.Page().ID, err
}

func (t *Tree) writeLeafKV(id page.ID, keys, values [][]byte, tombstones []int32) error {
	g, ok := t.pool.FetchWrite(id)
	if !ok {
		return errNoFrame
	}
	defer g.Drop()
	existing, err := page.DecodeLeaf(&g.Page().Data)
	if err != nil {
		return err
	}
	existing.Keys = keys
	existing.Values = values
	existing.Tombstones = tombstones
	return page.EncodeLeaf(&g.Page().Data, existing)
}

func dropAll(guards []*buffer.WritePageGuard) {
	for i := len(guards) - 1; i >= 0; i-- {
		guards[i].Drop()
	}
}

func insertAt(s [][]byte, idx int, v []byte) [][]byte {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertAtBytes(s [][]byte, idx int, v []byte) [][]byte {
	return insertAt(s, idx, v)
}

func insertID(s []page.ID, idx int, v page.ID) []page.ID {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func indexOfChild(children []page.ID, id page.ID) int {
	for i, c := range children {
		if c == id {
			return i
		}
	}
	return -1
}

func removeTombstone(tombstones []int32, idx int) []int32 {
	out := make([]int32, 0, len(tombstones))
	for _, ts := range tombstones {
		if int(ts) != idx {
			out = append(out, ts)
		}
	}
	return out
}

// shiftTombstonesForInsert bumps every tombstone index at or above idx up
// by one, since a new key/value was just inserted before them.
func shiftTombstonesForInsert(tombstones []int32, idx int) []int32 {
	out := make([]int32, len(tombstones))
	for i, ts := range tombstones {
		if int(ts) >= idx {
			out[i] = ts + 1
		} else {
			out[i] = ts
		}
	}
	return out
}

func shiftedTombstonesForSplit(tombstones []int32, mid, rightLen int) []int32 {
	var out []int32
	for _, ts := range tombstones {
		if int(ts) >= mid {
			out = append(out, ts-int32(mid))
		}
	}
	return out
}

func filterTombstonesBelow(tombstones []int32, mid int) []int32 {
	var out []int32
	for _, ts := range tombstones {
		if int(ts) < mid {
			out = append(out, ts)
		}
	}
	return out
}
