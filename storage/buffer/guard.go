package buffer

import "coredb/storage/page"

// ReadPageGuard is a scoped shared latch over a resident page. Dropping it
// releases the latch and unpins the page exactly once; a double Drop is a
// no-op.
type ReadPageGuard struct {
	pool *Pool
	page *page.Page
	done bool
}

// Page exposes the guarded page's raw bytes for reading.
func (g *ReadPageGuard) Page() *page.Page { return g.page }

// Drop releases the read latch and unpins the page.
func (g *ReadPageGuard) Drop() {
	if g.done {
		return
	}
	g.done = true
	g.page.RUnlock()
	g.pool.unpin(g.page, false)
}

// WritePageGuard is a scoped exclusive latch over a resident page. Dropping
// it marks the page dirty, releases the latch, and unpins it exactly once;
// a double Drop is a no-op.
type WritePageGuard struct {
	pool *Pool
	page *page.Page
	done bool
}

// Page exposes the guarded page's raw bytes for reading and writing.
func (g *WritePageGuard) Page() *page.Page { return g.page }

// Drop releases the write latch and unpins the page, marking it dirty.
func (g *WritePageGuard) Drop() {
	if g.done {
		return
	}
	g.done = true
	g.page.Unlock()
	g.pool.unpin(g.page, true)
}
