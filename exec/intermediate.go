package exec

import (
	"encoding/binary"

	"coredb/storage/buffer"
	"coredb/storage/page"
)

// Intermediate result pages back the hash join's GRACE partitions and the
// external merge sort's runs: a small header, a slot directory growing
// forward, tuple payloads packed backward from the page end — the same
// technique the table heap page uses, reused here for spill-to-disk
// operator scratch space rather than committed rows.
const (
	interHeaderSize = 9 // type(1) + num_tuples(4) + free_offset(4)
	interSlotSize   = 4 // offset(2) + length(2)
)

func initInterPage(buf *[page.Size]byte) {
	buf[0] = byte(page.TypeIntermediateResult)
	binary.LittleEndian.PutUint32(buf[1:5], 0)
	binary.LittleEndian.PutUint32(buf[5:9], uint32(page.Size))
}

func interNumTuples(buf *[page.Size]byte) int {
	return int(binary.LittleEndian.Uint32(buf[1:5]))
}

func interSetNumTuples(buf *[page.Size]byte, n int) {
	binary.LittleEndian.PutUint32(buf[1:5], uint32(n))
}

func interFreeOffset(buf *[page.Size]byte) int {
	return int(binary.LittleEndian.Uint32(buf[5:9]))
}

func interSetFreeOffset(buf *[page.Size]byte, off int) {
	binary.LittleEndian.PutUint32(buf[5:9], uint32(off))
}

// interAppend packs data onto the page, returning its slot index. It
// fails (ok=false) if the page has no room left.
func interAppend(buf *[page.Size]byte, data []byte) (int, bool) {
	n := interNumTuples(buf)
	slotEnd := interHeaderSize + (n+1)*interSlotSize
	freeOff := interFreeOffset(buf)
	newFree := freeOff - len(data)
	if newFree < slotEnd {
		return 0, false
	}
	copy(buf[newFree:freeOff], data)
	slotPos := interHeaderSize + n*interSlotSize
	binary.LittleEndian.PutUint16(buf[slotPos:slotPos+2], uint16(newFree))
	binary.LittleEndian.PutUint16(buf[slotPos+2:slotPos+4], uint16(len(data)))
	interSetNumTuples(buf, n+1)
	interSetFreeOffset(buf, newFree)
	return n, true
}

func interGet(buf *[page.Size]byte, idx int) ([]byte, bool) {
	if idx < 0 || idx >= interNumTuples(buf) {
		return nil, false
	}
	slotPos := interHeaderSize + idx*interSlotSize
	offset := int(binary.LittleEndian.Uint16(buf[slotPos : slotPos+2]))
	length := int(binary.LittleEndian.Uint16(buf[slotPos+2 : slotPos+4]))
	out := make([]byte, length)
	copy(out, buf[offset:offset+length])
	return out, true
}

// intermediateStore is one chain of intermediate-result pages, backing a
// single hash-join partition or sort run.
type intermediateStore struct {
	pool  *buffer.Pool
	pages []page.ID
}

func newIntermediateStore(pool *buffer.Pool) *intermediateStore {
	return &intermediateStore{pool: pool}
}

func (s *intermediateStore) append(data []byte) bool {
	if n := len(s.pages); n > 0 {
		g, ok := s.pool.FetchWrite(s.pages[n-1])
		if ok {
			_, inserted := interAppend(&g.Page().Data, data)
			g.Drop()
			if inserted {
				return true
			}
		}
	}

	g, ok := s.pool.NewPageGuard()
	if !ok {
		return false
	}
	initInterPage(&g.Page().Data)
	_, inserted := interAppend(&g.Page().Data, data)
	id := g.Page().ID
	g.Drop()
	if !inserted {
		s.pool.DeletePage(id)
		return false
	}
	s.pages = append(s.pages, id)
	return true
}

func (s *intermediateStore) forEach(fn func(data []byte)) {
	for _, id := range s.pages {
		g, ok := s.pool.FetchRead(id)
		if !ok {
			continue
		}
		n := interNumTuples(&g.Page().Data)
		for i := 0; i < n; i++ {
			if data, ok := interGet(&g.Page().Data, i); ok {
				fn(data)
			}
		}
		g.Drop()
	}
}

// close deletes every page the store owns; the join/sort operator calls it
// inside Init, once the store's rows have been copied out.
func (s *intermediateStore) close() {
	for _, id := range s.pages {
		s.pool.DeletePage(id)
	}
	s.pages = nil
}
