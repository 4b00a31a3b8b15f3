// Package heap implements the table heap: a slotted page format for
// variable-length tuple storage and a TableHeap that chains pages together
// via the buffer pool, adapted from the corpus's heapfile_manager slotted
// page convention.
package heap

import (
	"encoding/binary"
	"errors"

	"coredb/storage/page"
	"coredb/tuple"
)

// Heap page layout, all little-endian:
//
//	offset 0        type byte (page.TypeHeapData), shared with every page kind
//	offset 1-2      NumSlots  uint16
//	offset 3-4      NumDeleted uint16
//	offset 5-6      FreeSpacePtr uint16 — first occupied byte of the tuple
//	                data area, which grows backward from page.Size
//	offset 7-8      reserved
//	offset 9..      slot directory, growing forward, one entry per slot:
//	                  Offset uint16, Length uint16, TupleMeta (tuple.MetaSize())
//
// Tuple payloads are packed backward from page.Size; FreeSpacePtr always
// points at the start of the lowest-addressed live payload.
const (
	heapHeaderSize = 9
	slotHeaderSize = 4 // Offset(2) + Length(2)
)

var errNoSpace = errors.New("heap: page has no space for tuple")

func slotEntrySize() int { return slotHeaderSize + tuple.MetaSize() }

func slotOffset(i int) int { return heapHeaderSize + i*slotEntrySize() }

// InitPage stamps a fresh, empty heap page into buf.
func InitPage(buf *[page.Size]byte) {
	*buf = [page.Size]byte{}
	buf[0] = byte(page.TypeHeapData)
	binary.LittleEndian.PutUint16(buf[5:7], uint16(page.Size))
}

func numSlots(buf *[page.Size]byte) int {
	return int(binary.LittleEndian.Uint16(buf[1:3]))
}

func setNumSlots(buf *[page.Size]byte, n int) {
	binary.LittleEndian.PutUint16(buf[1:3], uint16(n))
}

func numDeleted(buf *[page.Size]byte) int {
	return int(binary.LittleEndian.Uint16(buf[3:5]))
}

func setNumDeleted(buf *[page.Size]byte, n int) {
	binary.LittleEndian.PutUint16(buf[3:5], uint16(n))
}

func freeSpacePtr(buf *[page.Size]byte) int {
	return int(binary.LittleEndian.Uint16(buf[5:7]))
}

func setFreeSpacePtr(buf *[page.Size]byte, v int) {
	binary.LittleEndian.PutUint16(buf[5:7], uint16(v))
}

func freeSpace(buf *[page.Size]byte) int {
	dirEnd := slotOffset(numSlots(buf))
	return freeSpacePtr(buf) - dirEnd
}

func readSlot(buf *[page.Size]byte, i int) (offset, length int, meta tuple.TupleMeta) {
	off := slotOffset(i)
	offset = int(binary.LittleEndian.Uint16(buf[off : off+2]))
	length = int(binary.LittleEndian.Uint16(buf[off+2 : off+4]))
	meta = tuple.DecodeMeta(buf[off+4 : off+4+tuple.MetaSize()])
	return
}

func writeSlot(buf *[page.Size]byte, i, offset, length int, meta tuple.TupleMeta) {
	off := slotOffset(i)
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(offset))
	binary.LittleEndian.PutUint16(buf[off+2:off+4], uint16(length))
	encoded := tuple.EncodeMeta(meta)
	copy(buf[off+4:off+4+tuple.MetaSize()], encoded[:])
}

func writeMeta(buf *[page.Size]byte, i int, meta tuple.TupleMeta) {
	off := slotOffset(i) + 4
	encoded := tuple.EncodeMeta(meta)
	copy(buf[off:off+tuple.MetaSize()], encoded[:])
}

// insertSlot appends data as a new slot's payload, or reuses a tombstoned
// slot's directory entry if one exists and the new payload still needs a
// directory entry allocated (tombstoned payload bytes themselves are never
// reclaimed; only the slot index is reused, matching the corpus's
// tombstone-slot-reuse policy).
func insertSlot(buf *[page.Size]byte, data []byte, meta tuple.TupleMeta) (int, error) {
	need := slotEntrySize()
	reuse := -1
	for i := 0; i < numSlots(buf); i++ {
		_, length, m := readSlot(buf, i)
		if length == 0 && m.IsDeleted {
			reuse = i
			need = 0
			break
		}
	}

	if len(data)+need > freeSpace(buf) {
		return 0, errNoSpace
	}

	newPtr := freeSpacePtr(buf) - len(data)
	copy(buf[newPtr:], data)
	setFreeSpacePtr(buf, newPtr)

	slotIdx := reuse
	if slotIdx < 0 {
		slotIdx = numSlots(buf)
		setNumSlots(buf, slotIdx+1)
	} else {
		setNumDeleted(buf, numDeleted(buf)-1)
	}
	writeSlot(buf, slotIdx, newPtr, len(data), meta)
	return slotIdx, nil
}

func getSlot(buf *[page.Size]byte, slotIdx int) ([]byte, tuple.TupleMeta, bool) {
	if slotIdx < 0 || slotIdx >= numSlots(buf) {
		return nil, tuple.TupleMeta{}, false
	}
	offset, length, meta := readSlot(buf, slotIdx)
	if length == 0 && meta.IsDeleted {
		return nil, meta, false
	}
	out := make([]byte, length)
	copy(out, buf[offset:offset+length])
	return out, meta, true
}

