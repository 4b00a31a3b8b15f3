package bptree

import (
	"coredb/storage/buffer"
	"coredb/storage/page"
)

// Delete marks key's entry tombstoned. Physical removal (and any resulting
// merge/redistribute with siblings) is deferred until the leaf's tombstone
// buffer fills, per the tombstone-buffer compaction strategy: readers skip
// tombstoned slots immediately, but the page layout is only rewritten once
// enough dead slots have accumulated to make compaction worth its cost.
func (t *Tree) Delete(key []byte) (bool, error) {
	headerGuard, ok := t.pool.FetchWrite(t.header)
	if !ok {
		return false, errNoFrame
	}
	path := []*buffer.WritePageGuard{headerGuard}
	defer func() { dropAll(path) }()

	root := page.DecodeHeader(&headerGuard.Page().Data).RootPageID
	if root == page.InvalidID {
		return false, nil
	}

	current := root
	for {
		g, ok := t.pool.FetchWrite(current)
		if !ok {
			return false, errNoFrame
		}
		path = append(path, g)

		if g.Page().PageType() == page.TypeLeaf {
			return t.deleteFromLeaf(path, key)
		}

		node, err := page.DecodeInternal(&g.Page().Data)
		if err != nil {
			return false, err
		}
		current = node.Children[t.findChildIndex(node.Keys, key)]
	}
}

func (t *Tree) deleteFromLeaf(path []*buffer.WritePageGuard, key []byte) (bool, error) {
	leafGuard := path[len(path)-1]
	leaf, err := page.DecodeLeaf(&leafGuard.Page().Data)
	if err != nil {
		return false, err
	}

	idx, found := t.findKeyIndex(leaf.Keys, key)
	if !found || isTombstoned(leaf.Tombstones, idx) {
		return false, nil
	}

	if len(leaf.Tombstones) < t.tombstoneCapacity {
		leaf.Tombstones = append(leaf.Tombstones, int32(idx))
		return true, page.EncodeLeaf(&leafGuard.Page().Data, leaf)
	}

	evictOldestTombstone(&leaf, int32(idx))
	return true, t.fixLeafUnderflow(path[:len(path)-1], leafGuard, leaf)
}

// evictOldestTombstone runs when the tombstone buffer is already full: it
// physically drops the single oldest tombstoned slot from leaf, shifts the
// remaining tombstone indices down to account for that removal, then
// enqueues newIdx (the slot key just tombstoned) as the newest tombstone.
// The buffer stays at capacity across the call, FIFO-style.
func evictOldestTombstone(leaf *page.LeafNode, newIdx int32) {
	if len(leaf.Tombstones) == 0 {
		// tombstoneCapacity == 0: nothing buffered, so the newly-tombstoned
		// slot is itself the one to physically remove.
		leaf.Keys = append(leaf.Keys[:newIdx], leaf.Keys[newIdx+1:]...)
		leaf.Values = append(leaf.Values[:newIdx], leaf.Values[newIdx+1:]...)
		return
	}

	oldest := leaf.Tombstones[0]
	rest := leaf.Tombstones[1:]

	leaf.Keys = append(leaf.Keys[:oldest], leaf.Keys[oldest+1:]...)
	leaf.Values = append(leaf.Values[:oldest], leaf.Values[oldest+1:]...)

	shift := func(i int32) int32 {
		if i > oldest {
			return i - 1
		}
		return i
	}
	tombstones := make([]int32, 0, len(rest)+1)
	for _, ts := range rest {
		tombstones = append(tombstones, shift(ts))
	}
	leaf.Tombstones = append(tombstones, shift(newIdx))
}

// fixLeafUnderflow rewrites leaf after compaction and, if it now holds
// fewer than the minimum number of keys, borrows from or merges with a
// sibling, propagating any resulting parent shrinkage upward. ancestors
// holds every guard from the header down to (but excluding) leafGuard.
func (t *Tree) fixLeafUnderflow(ancestors []*buffer.WritePageGuard, leafGuard *buffer.WritePageGuard, leaf page.LeafNode) error {
	if len(ancestors) == 1 {
		if len(leaf.Keys) == 0 {
			headerGuard := ancestors[0]
			page.EncodeHeader(&headerGuard.Page().Data, page.HeaderPage{RootPageID: page.InvalidID})
			leafGuard.Drop()
			t.pool.DeletePage(leafGuard.Page().ID)
			return nil
		}
		return page.EncodeLeaf(&leafGuard.Page().Data, leaf)
	}
	if len(leaf.Keys) >= leafMinSize(t.maxSize) {
		return page.EncodeLeaf(&leafGuard.Page().Data, leaf)
	}

	parentGuard := ancestors[len(ancestors)-1]
	parent, err := page.DecodeInternal(&parentGuard.Page().Data)
	if err != nil {
		return err
	}
	myIdx := indexOfChild(parent.Children, leafGuard.Page().ID)

	if myIdx > 0 {
		leftID := parent.Children[myIdx-1]
		leftGuard, ok := t.pool.FetchWrite(leftID)
		if !ok {
			return errNoFrame
		}
		left, err := page.DecodeLeaf(&leftGuard.Page().Data)
		if err != nil {
			leftGuard.Drop()
			return err
		}
		if len(left.Keys) > leafMinSize(t.maxSize) {
			n := len(left.Keys) - 1
			leaf.Keys = append([][]byte{left.Keys[n]}, leaf.Keys...)
			leaf.Values = append([][]byte{left.Values[n]}, leaf.Values...)
			left.Keys = left.Keys[:n]
			left.Values = left.Values[:n]
			parent.Keys[myIdx] = leaf.Keys[0]
			err := page.EncodeLeaf(&leftGuard.Page().Data, left)
			leftGuard.Drop()
			if err != nil {
				return err
			}
			if err := page.EncodeLeaf(&leafGuard.Page().Data, leaf); err != nil {
				return err
			}
			return page.EncodeInternal(&parentGuard.Page().Data, parent)
		}
		leftGuard.Drop()
	}

	if myIdx < len(parent.Children)-1 {
		rightID := parent.Children[myIdx+1]
		rightGuard, ok := t.pool.FetchWrite(rightID)
		if !ok {
			return errNoFrame
		}
		right, err := page.DecodeLeaf(&rightGuard.Page().Data)
		if err != nil {
			rightGuard.Drop()
			return err
		}
		if len(right.Keys) > leafMinSize(t.maxSize) {
			leaf.Keys = append(leaf.Keys, right.Keys[0])
			leaf.Values = append(leaf.Values, right.Values[0])
			right.Keys = right.Keys[1:]
			right.Values = right.Values[1:]
			parent.Keys[myIdx+1] = right.Keys[0]
			err := page.EncodeLeaf(&rightGuard.Page().Data, right)
			rightGuard.Drop()
			if err != nil {
				return err
			}
			if err := page.EncodeLeaf(&leafGuard.Page().Data, leaf); err != nil {
				return err
			}
			return page.EncodeInternal(&parentGuard.Page().Data, parent)
		}

		// merge leaf into right's left neighbor slot: leaf absorbs right.
		leaf.Keys = append(leaf.Keys, right.Keys...)
		leaf.Values = append(leaf.Values, right.Values...)
		leaf.NextPageID = right.NextPageID
		rightGuard.Drop()
		if !t.pool.DeletePage(rightID) {
			return errPageStillPinned
		}
		if err := page.EncodeLeaf(&leafGuard.Page().Data, leaf); err != nil {
			return err
		}
		parent.Keys = removeAt(parent.Keys, myIdx+1)
		parent.Children = removeID(parent.Children, myIdx+1)
		return t.fixInternalUnderflow(ancestors[:len(ancestors)-1], parentGuard, parent)
	}

	// No right sibling: merge left into leaf, leaf becomes the survivor
	// under the left sibling's id so leafGuard's own page can be freed.
	leftID := parent.Children[myIdx-1]
	leftGuard, ok := t.pool.FetchWrite(leftID)
	if !ok {
		return errNoFrame
	}
	left, err := page.DecodeLeaf(&leftGuard.Page().Data)
	if err != nil {
		leftGuard.Drop()
		return err
	}
	left.Keys = append(left.Keys, leaf.Keys...)
	left.Values = append(left.Values, leaf.Values...)
	left.NextPageID = leaf.NextPageID
	if err := page.EncodeLeaf(&leftGuard.Page().Data, left); err != nil {
		leftGuard.Drop()
		return err
	}
	leftGuard.Drop()
	leafGuard.Drop()
	if !t.pool.DeletePage(leafGuard.Page().ID) {
		return errPageStillPinned
	}
	parent.Keys = removeAt(parent.Keys, myIdx)
	parent.Children = removeID(parent.Children, myIdx)
	return t.fixInternalUnderflow(ancestors[:len(ancestors)-1], parentGuard, parent)
}

// fixInternalUnderflow mirrors fixLeafUnderflow one level up: node has just
// lost a child and may now be below the minimum fanout.
func (t *Tree) fixInternalUnderflow(ancestors []*buffer.WritePageGuard, nodeGuard *buffer.WritePageGuard, node page.InternalNode) error {
	if len(ancestors) == 1 {
		if len(node.Children) == 1 {
			headerGuard := ancestors[0]
			page.EncodeHeader(&headerGuard.Page().Data, page.HeaderPage{RootPageID: node.Children[0]})
			nodeGuard.Drop()
			t.pool.DeletePage(nodeGuard.Page().ID)
			return nil
		}
		return page.EncodeInternal(&nodeGuard.Page().Data, node)
	}
	if len(node.Children) >= internalMinSize(t.maxSize) {
		return page.EncodeInternal(&nodeGuard.Page().Data, node)
	}

	parentGuard := ancestors[len(ancestors)-1]
	parent, err := page.DecodeInternal(&parentGuard.Page().Data)
	if err != nil {
		return err
	}
	myIdx := indexOfChild(parent.Children, nodeGuard.Page().ID)

	if myIdx > 0 {
		leftID := parent.Children[myIdx-1]
		leftGuard, ok := t.pool.FetchWrite(leftID)
		if !ok {
			return errNoFrame
		}
		left, err := page.DecodeInternal(&leftGuard.Page().Data)
		if err != nil {
			leftGuard.Drop()
			return err
		}
		if len(left.Children) > internalMinSize(t.maxSize) {
			n := len(left.Children) - 1
			borrowedChild := left.Children[n]
			node.Children = append([]page.ID{borrowedChild}, node.Children...)
			node.Keys = append([][]byte{{}, parent.Keys[myIdx]}, node.Keys[1:]...)
			parent.Keys[myIdx] = left.Keys[n]
			left.Children = left.Children[:n]
			left.Keys = left.Keys[:n]
			err := page.EncodeInternal(&leftGuard.Page().Data, left)
			leftGuard.Drop()
			if err != nil {
				return err
			}
			if err := page.EncodeInternal(&nodeGuard.Page().Data, node); err != nil {
				return err
			}
			return page.EncodeInternal(&parentGuard.Page().Data, parent)
		}
		leftGuard.Drop()
	}

	if myIdx < len(parent.Children)-1 {
		rightID := parent.Children[myIdx+1]
		rightGuard, ok := t.pool.FetchWrite(rightID)
		if !ok {
			return errNoFrame
		}
		right, err := page.DecodeInternal(&rightGuard.Page().Data)
		if err != nil {
			rightGuard.Drop()
			return err
		}
		if len(right.Children) > internalMinSize(t.maxSize) {
			node.Children = append(node.Children, right.Children[0])
			node.Keys = append(node.Keys, parent.Keys[myIdx+1])
			parent.Keys[myIdx+1] = right.Keys[1]
			right.Children = right.Children[1:]
			right.Keys = right.Keys[1:]
			err := page.EncodeInternal(&rightGuard.Page().Data, right)
			rightGuard.Drop()
			if err != nil {
				return err
			}
			if err := page.EncodeInternal(&nodeGuard.Page().Data, node); err != nil {
				return err
			}
			return page.EncodeInternal(&parentGuard.Page().Data, parent)
		}

		node.Keys = append(node.Keys, parent.Keys[myIdx+1])
		node.Keys = append(node.Keys, right.Keys[1:]...)
		node.Children = append(node.Children, right.Children...)
		rightGuard.Drop()
		if !t.pool.DeletePage(rightID) {
			return errPageStillPinned
		}
		if err := page.EncodeInternal(&nodeGuard.Page().Data, node); err != nil {
			return err
		}
		parent.Keys = removeAt(parent.Keys, myIdx+1)
		parent.Children = removeID(parent.Children, myIdx+1)
		return t.fixInternalUnderflow(ancestors[:len(ancestors)-1], parentGuard, parent)
	}

	leftID := parent.Children[myIdx-1]
	leftGuard, ok := t.pool.FetchWrite(leftID)
	if !ok {
		return errNoFrame
	}
	left, err := page.DecodeInternal(&leftGuard.Page().Data)
	if err != nil {
		leftGuard.Drop()
		return err
	}
	left.Keys = append(left.Keys, parent.Keys[myIdx])
	left.Keys = append(left.Keys, node.Keys[1:]...)
	left.Children = append(left.Children, node.Children...)
	if err := page.EncodeInternal(&leftGuard.Page().Data, left); err != nil {
		leftGuard.Drop()
		return err
	}
	leftGuard.Drop()
	nodeGuard.Drop()
	if !t.pool.DeletePage(nodeGuard.Page().ID) {
		return errPageStillPinned
	}
	parent.Keys = removeAt(parent.Keys, myIdx)
	parent.Children = removeID(parent.Children, myIdx)
	return t.fixInternalUnderflow(ancestors[:len(ancestors)-1], parentGuard, parent)
}

func removeAt(s [][]byte, idx int) [][]byte {
	return append(s[:idx], s[idx+1:]...)
}

func removeID(s []page.ID, idx int) []page.ID {
	return append(s[:idx], s[idx+1:]...)
}
