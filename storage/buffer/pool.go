package buffer

import (
	"sync"

	"go.uber.org/zap"

	"coredb/storage/disk"
	"coredb/storage/page"
)

// Pool owns a fixed number of frames, the page table mapping resident
// page ids to frame indices, an ArcReplacer, and the disk scheduler pages
// are read from and flushed to.
type Pool struct {
	mu sync.Mutex

	frames   []*page.Page
	pageTbl  map[page.ID]int
	freeList []int
	replacer *ArcReplacer
	sched    *disk.Scheduler
	log      *zap.Logger
}

// NewPool constructs a pool of numFrames frames backed by sched.
func NewPool(numFrames int, sched *disk.Scheduler, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	frames := make([]*page.Page, numFrames)
	free := make([]int, numFrames)
	for i := 0; i < numFrames; i++ {
		frames[i] = &page.Page{}
		free[i] = i
	}
	return &Pool{
		frames:   frames,
		pageTbl:  make(map[page.ID]int),
		freeList: free,
		replacer: NewArcReplacer(numFrames),
		sched:    sched,
		log:      log.With(zap.String("component", "buffer_pool")),
	}
}

// obtainFrame returns a free or evicted frame index, flushing it first if
// dirty. Caller holds p.mu.
func (p *Pool) obtainFrame() (int, bool) {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return idx, true
	}

	frameID, ok := p.replacer.Evict()
	if !ok {
		return 0, false
	}
	victim := p.frames[frameID]
	if victim.IsDirty {
		p.flushFrame(frameID)
	}
	delete(p.pageTbl, victim.ID)
	return frameID, true
}

func (p *Pool) flushFrame(frameID int) {
	fr := p.frames[frameID]
	done := make(chan error, 1)
	p.sched.Schedule(disk.Request{PageID: fr.ID, IsWrite: true, Data: &fr.Data, Done: done})
	if err := <-done; err != nil {
		p.log.Error("flush failed", zap.Int32("page_id", int32(fr.ID)), zap.Error(err))
	}
	fr.IsDirty = false
}

// NewPage allocates a fresh page id, obtains a frame (evicting if needed),
// zeroes it, marks it dirty, and pins it once.
func (p *Pool) NewPage() (page.ID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.obtainFrame()
	if !ok {
		return page.InvalidID, false
	}

	id, err := p.sched.AllocatePage()
	if err != nil {
		p.freeList = append(p.freeList, frameID)
		p.log.Error("allocate page failed", zap.Error(err))
		return page.InvalidID, false
	}

	fr := p.frames[frameID]
	fr.ID = id
	fr.Reset()
	fr.IsDirty = true
	fr.PinCount = 1

	p.pageTbl[id] = frameID
	p.replacer.RecordAccess(frameID, id)
	p.replacer.SetEvictable(frameID, false)

	return id, true
}

// NewPageGuard allocates a fresh page and returns it already write-latched
// and pinned once, folding the allocation's own pin into the guard so
// dropping the guard is the only unpin needed.
func (p *Pool) NewPageGuard() (*WritePageGuard, bool) {
	p.mu.Lock()

	frameID, ok := p.obtainFrame()
	if !ok {
		p.mu.Unlock()
		return nil, false
	}

	id, err := p.sched.AllocatePage()
	if err != nil {
		p.freeList = append(p.freeList, frameID)
		p.mu.Unlock()
		p.log.Error("allocate page failed", zap.Error(err))
		return nil, false
	}

	fr := p.frames[frameID]
	fr.ID = id
	fr.Reset()
	fr.IsDirty = true
	fr.PinCount = 1
	p.pageTbl[id] = frameID
	p.replacer.RecordAccess(frameID, id)
	p.replacer.SetEvictable(frameID, false)
	p.mu.Unlock()

	fr.Lock()
	return &WritePageGuard{pool: p, page: fr}, true
}

// FetchRead pins id and returns a ReadPageGuard over it, reading it from
// disk first if it is not resident.
func (p *Pool) FetchRead(id page.ID) (*ReadPageGuard, bool) {
	fr, alreadyLocked, ok := p.fetch(id, false)
	if !ok {
		return nil, false
	}
	if alreadyLocked {
		// fetch() filled the frame under its write latch to block
		// concurrent fetchers of the same page; downgrade now that the
		// data is in place.
		fr.Unlock()
	}
	fr.RLock()
	return &ReadPageGuard{pool: p, page: fr}, true
}

// FetchWrite pins id and returns a WritePageGuard over it, reading it from
// disk first if it is not resident.
func (p *Pool) FetchWrite(id page.ID) (*WritePageGuard, bool) {
	fr, alreadyLocked, ok := p.fetch(id, true)
	if !ok {
		return nil, false
	}
	if !alreadyLocked {
		fr.Lock()
	}
	return &WritePageGuard{pool: p, page: fr}, true
}

// fetch resolves id to a resident, pinned frame. On a miss it locks the
// frame's write latch before publishing it into the page table and holds
// that latch across the disk read, so a concurrent fetch of the same page
// blocks on the latch instead of observing a half-loaded frame; returns
// alreadyLocked=true in that case so the caller knows the latch is held.
func (p *Pool) fetch(id page.ID, forWrite bool) (fr *page.Page, alreadyLocked bool, ok bool) {
	p.mu.Lock()

	if idx, resident := p.pageTbl[id]; resident {
		fr := p.frames[idx]
		fr.PinCount++
		p.replacer.RecordAccess(idx, id)
		p.replacer.SetEvictable(idx, false)
		p.mu.Unlock()
		return fr, false, true
	}

	frameID, obtained := p.obtainFrame()
	if !obtained {
		p.mu.Unlock()
		return nil, false, false
	}

	fr = p.frames[frameID]
	fr.Lock()
	fr.ID = id
	fr.IsDirty = false
	fr.PinCount = 1
	p.pageTbl[id] = frameID
	p.replacer.RecordAccess(frameID, id)
	p.replacer.SetEvictable(frameID, false)
	p.mu.Unlock()

	done := make(chan error, 1)
	p.sched.Schedule(disk.Request{PageID: id, IsWrite: false, Data: &fr.Data, Done: done})
	if err := <-done; err != nil {
		p.log.Error("read failed", zap.Int32("page_id", int32(id)), zap.Error(err))
		panic(err)
	}
	return fr, true, true
}

// unpin decrements a frame's pin count, marking it dirty if the caller
// wrote through it, and makes it evictable again once the count reaches
// zero.
func (p *Pool) unpin(fr *page.Page, dirtied bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dirtied {
		fr.IsDirty = true
	}
	if fr.PinCount > 0 {
		fr.PinCount--
	}
	if fr.PinCount == 0 {
		if idx, ok := p.pageTbl[fr.ID]; ok {
			p.replacer.SetEvictable(idx, true)
		}
	}
}

// DeletePage removes id from the pool. It requires the page currently has
// no pins.
func (p *Pool) DeletePage(id page.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, resident := p.pageTbl[id]
	if !resident {
		return true
	}
	fr := p.frames[idx]
	if fr.PinCount > 0 {
		return false
	}

	p.replacer.Remove(idx)
	delete(p.pageTbl, id)
	p.freeList = append(p.freeList, idx)
	fr.Reset()
	fr.ID = page.InvalidID
	return true
}

// PinCount reports id's current pin count, if resident.
func (p *Pool) PinCount(id page.ID) (int32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, resident := p.pageTbl[id]
	if !resident {
		return 0, false
	}
	return p.frames[idx].PinCount, true
}

// FlushPage forces id's frame to disk if resident and dirty.
func (p *Pool) FlushPage(id page.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, resident := p.pageTbl[id]
	if !resident {
		return false
	}
	p.flushFrame(idx)
	return true
}
