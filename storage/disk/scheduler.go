package disk

import (
	"sync"

	"go.uber.org/zap"

	"coredb/storage/page"
)

// Request is a single scheduled disk operation. Done is a capacity-1
// channel standing in for a completion promise: the worker sends exactly
// one error (nil on success) and closes nothing, matching the
// channel-as-future idiom used by this codebase's log flusher.
type Request struct {
	PageID  page.ID
	IsWrite bool
	Data    *[page.Size]byte
	Done    chan error
}

// Scheduler serializes disk I/O for one Manager onto a single background
// worker, so requests for the same page complete in submission order.
type Scheduler struct {
	manager Manager
	queue   chan Request
	stop    chan struct{}
	wg      sync.WaitGroup
	log     *zap.Logger
}

// NewScheduler starts the background worker over manager. queueDepth bounds
// the number of in-flight requests before Schedule blocks.
func NewScheduler(manager Manager, queueDepth int, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		manager: manager,
		queue:   make(chan Request, queueDepth),
		stop:    make(chan struct{}),
		log:     log.With(zap.String("component", "disk_scheduler")),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Schedule enqueues req and returns immediately; the caller waits on
// req.Done for completion.
func (s *Scheduler) Schedule(req Request) {
	s.queue <- req
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			s.drain()
			return
		case req := <-s.queue:
			s.serve(req)
		}
	}
}

func (s *Scheduler) drain() {
	for {
		select {
		case req := <-s.queue:
			s.serve(req)
		default:
			return
		}
	}
}

func (s *Scheduler) serve(req Request) {
	var err error
	if req.IsWrite {
		err = s.manager.WritePage(req.PageID, req.Data)
	} else {
		err = s.manager.ReadPage(req.PageID, req.Data)
	}
	if err != nil {
		s.log.Warn("disk request failed", zap.Int32("page_id", int32(req.PageID)), zap.Bool("write", req.IsWrite), zap.Error(err))
	}
	req.Done <- err
}

// Shutdown stops the worker after draining any requests already queued.
func (s *Scheduler) Shutdown() {
	close(s.stop)
	s.wg.Wait()
}

// AllocatePage reserves the next page id. Allocation only touches the
// manager's counter, not page bytes, so it bypasses the request queue.
func (s *Scheduler) AllocatePage() (page.ID, error) {
	return s.manager.AllocatePage()
}
