package page

import "encoding/binary"

// HeaderPage is the fixed single page per tree holding the current root.
// Layout: [type byte][root_page_id int32].
type HeaderPage struct {
	RootPageID ID
}

// EncodeHeader writes h into buf's page body (buf must be page.Size bytes
// and already carry TypeHeader at byte 0).
func EncodeHeader(buf *[Size]byte, h HeaderPage) {
	buf[0] = byte(TypeHeader)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(h.RootPageID))
}

// DecodeHeader reads a HeaderPage from buf.
func DecodeHeader(buf *[Size]byte) HeaderPage {
	return HeaderPage{RootPageID: ID(int32(binary.LittleEndian.Uint32(buf[1:5])))}
}

// InternalNode is the decoded form of an internal B+ tree page. Keys[0] is
// always unused/empty — routing keys start at index 1 — and
// len(Children) == len(Keys).
type InternalNode struct {
	MaxSize  int
	Keys     [][]byte
	Children []ID
}

// LeafNode is the decoded form of a leaf B+ tree page. Tombstones holds
// indices into Keys/Values pending physical deletion, oldest first (FIFO).
type LeafNode struct {
	MaxSize     int
	NextPageID  ID
	Tombstones  []int32
	Keys        [][]byte
	Values      [][]byte
}

const (
	nodeHeaderSize = 13 // type(1) + size(4) + max_size(4) + reserved(4)
	leafExtraSize  = 8  // next_page_id(4) + num_tombstones(4)
)

// EncodeInternal serializes n into buf's body.
func EncodeInternal(buf *[Size]byte, n InternalNode) error {
	buf[0] = byte(TypeInternal)
	size := len(n.Keys)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(size))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(n.MaxSize))
	off := nodeHeaderSize

	// keys[0] is unused but still occupies a slot so indices line up with
	// children; encode it (possibly empty) like every other key.
	for _, k := range n.Keys {
		if off+2+len(k) > Size {
			return errPageOverflow
		}
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(k)))
		off += 2
		copy(buf[off:], k)
		off += len(k)
	}
	for _, c := range n.Children {
		if off+4 > Size {
			return errPageOverflow
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(c)))
		off += 4
	}
	return nil
}

// DecodeInternal parses an internal page body from buf.
func DecodeInternal(buf *[Size]byte) (InternalNode, error) {
	size := int(binary.LittleEndian.Uint32(buf[1:5]))
	maxSize := int(binary.LittleEndian.Uint32(buf[5:9]))
	off := nodeHeaderSize

	keys := make([][]byte, 0, size)
	for i := 0; i < size; i++ {
		if off+2 > Size {
			return InternalNode{}, errPageOverflow
		}
		klen := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
		if off+klen > Size {
			return InternalNode{}, errPageOverflow
		}
		key := make([]byte, klen)
		copy(key, buf[off:off+klen])
		off += klen
		keys = append(keys, key)
	}

	children := make([]ID, 0, size)
	for i := 0; i < size; i++ {
		if off+4 > Size {
			return InternalNode{}, errPageOverflow
		}
		children = append(children, ID(int32(binary.LittleEndian.Uint32(buf[off:off+4]))))
		off += 4
	}

	return InternalNode{MaxSize: maxSize, Keys: keys, Children: children}, nil
}

// EncodeLeaf serializes n into buf's body.
func EncodeLeaf(buf *[Size]byte, n LeafNode) error {
	buf[0] = byte(TypeLeaf)
	size := len(n.Keys)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(size))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(n.MaxSize))
	off := nodeHeaderSize

	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(n.NextPageID)))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(n.Tombstones)))
	off += 4
	for _, t := range n.Tombstones {
		if off+4 > Size {
			return errPageOverflow
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(t))
		off += 4
	}

	for _, k := range n.Keys {
		if off+2+len(k) > Size {
			return errPageOverflow
		}
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(k)))
		off += 2
		copy(buf[off:], k)
		off += len(k)
	}
	for _, v := range n.Values {
		if off+2+len(v) > Size {
			return errPageOverflow
		}
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(v)))
		off += 2
		copy(buf[off:], v)
		off += len(v)
	}
	return nil
}

// DecodeLeaf parses a leaf page body from buf.
func DecodeLeaf(buf *[Size]byte) (LeafNode, error) {
	size := int(binary.LittleEndian.Uint32(buf[1:5]))
	maxSize := int(binary.LittleEndian.Uint32(buf[5:9]))
	off := nodeHeaderSize

	nextPageID := ID(int32(binary.LittleEndian.Uint32(buf[off : off+4])))
	off += 4
	numTombstones := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	tombstones := make([]int32, 0, numTombstones)
	for i := 0; i < numTombstones; i++ {
		if off+4 > Size {
			return LeafNode{}, errPageOverflow
		}
		tombstones = append(tombstones, int32(binary.LittleEndian.Uint32(buf[off:off+4])))
		off += 4
	}

	keys := make([][]byte, 0, size)
	for i := 0; i < size; i++ {
		if off+2 > Size {
			return LeafNode{}, errPageOverflow
		}
		klen := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
		if off+klen > Size {
			return LeafNode{}, errPageOverflow
		}
		key := make([]byte, klen)
		copy(key, buf[off:off+klen])
		off += klen
		keys = append(keys, key)
	}

	values := make([][]byte, 0, size)
	for i := 0; i < size; i++ {
		if off+2 > Size {
			return LeafNode{}, errPageOverflow
		}
		vlen := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
		if off+vlen > Size {
			return LeafNode{}, errPageOverflow
		}
		val := make([]byte, vlen)
		copy(val, buf[off:off+vlen])
		off += vlen
		values = append(values, val)
	}

	return LeafNode{
		MaxSize:    maxSize,
		NextPageID: nextPageID,
		Tombstones: tombstones,
		Keys:       keys,
		Values:     values,
	}, nil
}
