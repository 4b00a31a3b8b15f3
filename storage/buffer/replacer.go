// Package buffer implements the buffer pool manager: an adaptive
// replacement cache (ARC) replacer plus the pool that owns frames, pin
// counts, and page guards built on top of it.
package buffer

import (
	"container/list"

	"coredb/storage/page"
)

type arcStatus int

const (
	statusMRU arcStatus = iota
	statusMFU
	statusMRUGhost
	statusMFUGhost
)

type aliveEntry struct {
	frameID   int
	pageID    page.ID
	evictable bool
	status    arcStatus
}

type ghostEntry struct {
	pageID page.ID
	status arcStatus
}

// ArcReplacer chooses which resident frame to evict using Adaptive
// Replacement Cache: two alive lists (MRU, MFU) and two ghost lists
// (MRU_ghost, MFU_ghost) tracking recently evicted page ids, with an
// adaptive target size for MRU.
type ArcReplacer struct {
	capacity int
	target   int // mru_target_size_: adaptive split point for MRU vs MFU

	mru      *list.List // elements are *aliveEntry
	mfu      *list.List
	mruGhost *list.List // elements are *ghostEntry
	mfuGhost *list.List

	alive map[int]*list.Element     // frameID -> element in mru/mfu
	ghost map[page.ID]*list.Element // pageID -> element in mruGhost/mfuGhost

	evictableCount int
}

// NewArcReplacer returns a replacer with fixed capacity N (the buffer
// pool's frame count).
func NewArcReplacer(capacity int) *ArcReplacer {
	return &ArcReplacer{
		capacity: capacity,
		mru:      list.New(),
		mfu:      list.New(),
		mruGhost: list.New(),
		mfuGhost: list.New(),
		alive:    make(map[int]*list.Element),
		ghost:    make(map[page.ID]*list.Element),
	}
}

// RecordAccess classifies an access to frameID (currently holding pageID)
// into one of the four ARC cases and mutates the lists accordingly. New
// alive entries are inserted non-evictable; callers pin, then must call
// SetEvictable once the pin count drops back to zero.
func (r *ArcReplacer) RecordAccess(frameID int, pageID page.ID) {
	if elem, ok := r.alive[frameID]; ok {
		r.handleCacheHit(elem)
		return
	}
	if elem, ok := r.ghost[pageID]; ok {
		entry := elem.Value.(*ghostEntry)
		switch entry.status {
		case statusMRUGhost:
			r.handleMruGhostHit(frameID, pageID, elem)
		case statusMFUGhost:
			r.handleMfuGhostHit(frameID, pageID, elem)
		}
		return
	}
	r.handleCacheMiss(frameID, pageID)
}

func (r *ArcReplacer) handleCacheHit(elem *list.Element) {
	entry := elem.Value.(*aliveEntry)
	switch entry.status {
	case statusMRU:
		r.mru.Remove(elem)
	case statusMFU:
		r.mfu.Remove(elem)
	}
	entry.status = statusMFU
	r.alive[entry.frameID] = r.mfu.PushFront(entry)
}

func (r *ArcReplacer) handleMruGhostHit(frameID int, pageID page.ID, ghostElem *list.Element) {
	ratio := maxInt(1, r.mfuGhost.Len()/maxInt(1, r.mruGhost.Len()))
	r.target = minInt(r.capacity, r.target+ratio)

	r.mruGhost.Remove(ghostElem)
	delete(r.ghost, pageID)

	entry := &aliveEntry{frameID: frameID, pageID: pageID, status: statusMFU}
	r.alive[frameID] = r.mfu.PushFront(entry)
}

func (r *ArcReplacer) handleMfuGhostHit(frameID int, pageID page.ID, ghostElem *list.Element) {
	ratio := maxInt(1, r.mruGhost.Len()/maxInt(1, r.mfuGhost.Len()))
	r.target = maxInt(0, r.target-ratio)

	r.mfuGhost.Remove(ghostElem)
	delete(r.ghost, pageID)

	entry := &aliveEntry{frameID: frameID, pageID: pageID, status: statusMFU}
	r.alive[frameID] = r.mfu.PushFront(entry)
}

func (r *ArcReplacer) handleCacheMiss(frameID int, pageID page.ID) {
	switch {
	case r.mru.Len()+r.mruGhost.Len() == r.capacity:
		r.dropGhostTail(r.mruGhost)
	case r.mru.Len()+r.mruGhost.Len()+r.mfu.Len()+r.mfuGhost.Len() == 2*r.capacity:
		r.dropGhostTail(r.mfuGhost)
	}

	entry := &aliveEntry{frameID: frameID, pageID: pageID, status: statusMRU}
	r.alive[frameID] = r.mru.PushFront(entry)
}

func (r *ArcReplacer) dropGhostTail(l *list.List) {
	tail := l.Back()
	if tail == nil {
		return
	}
	entry := tail.Value.(*ghostEntry)
	delete(r.ghost, entry.pageID)
	l.Remove(tail)
}

// Evict picks a victim among evictable alive entries, moves its page id to
// the corresponding ghost list, and returns its frame id.
func (r *ArcReplacer) Evict() (int, bool) {
	first := r.mfu
	second := r.mru
	if r.mru.Len() >= r.target {
		first, second = r.mru, r.mfu
	}

	if elem := r.findEvictableFromTail(first); elem != nil {
		return r.evictElement(elem), true
	}
	if elem := r.findEvictableFromTail(second); elem != nil {
		return r.evictElement(elem), true
	}
	return 0, false
}

func (r *ArcReplacer) findEvictableFromTail(l *list.List) *list.Element {
	for e := l.Back(); e != nil; e = e.Prev() {
		if e.Value.(*aliveEntry).evictable {
			return e
		}
	}
	return nil
}

func (r *ArcReplacer) evictElement(elem *list.Element) int {
	entry := elem.Value.(*aliveEntry)

	var owner *list.List
	var ghostList *list.List
	var ghostStatus arcStatus
	switch entry.status {
	case statusMRU:
		owner, ghostList, ghostStatus = r.mru, r.mruGhost, statusMRUGhost
	case statusMFU:
		owner, ghostList, ghostStatus = r.mfu, r.mfuGhost, statusMFUGhost
	}
	owner.Remove(elem)
	delete(r.alive, entry.frameID)
	r.evictableCount--

	ghost := &ghostEntry{pageID: entry.pageID, status: ghostStatus}
	r.ghost[entry.pageID] = ghostList.PushFront(ghost)

	return entry.frameID
}

// SetEvictable toggles whether frameID may be chosen by Evict. Panics if
// frameID is not a currently resident alive entry.
func (r *ArcReplacer) SetEvictable(frameID int, evictable bool) {
	elem, ok := r.alive[frameID]
	if !ok {
		panic("buffer: SetEvictable on unknown frame")
	}
	entry := elem.Value.(*aliveEntry)
	if entry.evictable == evictable {
		return
	}
	entry.evictable = evictable
	if evictable {
		r.evictableCount++
	} else {
		r.evictableCount--
	}
}

// Remove forcibly drops an evictable alive entry. Panics if frameID is
// resident but not evictable; no-op if frameID is not resident at all.
func (r *ArcReplacer) Remove(frameID int) {
	elem, ok := r.alive[frameID]
	if !ok {
		return
	}
	entry := elem.Value.(*aliveEntry)
	if !entry.evictable {
		panic("buffer: Remove on non-evictable frame")
	}
	switch entry.status {
	case statusMRU:
		r.mru.Remove(elem)
	case statusMFU:
		r.mfu.Remove(elem)
	}
	delete(r.alive, frameID)
	r.evictableCount--
}

// Size returns the count of evictable alive entries.
func (r *ArcReplacer) Size() int {
	return r.evictableCount
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
