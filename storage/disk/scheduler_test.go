package disk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/storage/page"
)

func TestSchedulerWriteThenRead(t *testing.T) {
	mgr := NewMemManager()
	sched := NewScheduler(mgr, 8, nil)
	defer sched.Shutdown()

	id, err := mgr.AllocatePage()
	require.NoError(t, err)

	var src [page.Size]byte
	src[0] = byte(page.TypeLeaf)

	writeDone := make(chan error, 1)
	sched.Schedule(Request{PageID: id, IsWrite: true, Data: &src, Done: writeDone})
	require.NoError(t, <-writeDone)

	var dst [page.Size]byte
	readDone := make(chan error, 1)
	sched.Schedule(Request{PageID: id, IsWrite: false, Data: &dst, Done: readDone})
	require.NoError(t, <-readDone)

	require.Equal(t, src, dst)
}

func TestSchedulerPreservesPerPageOrder(t *testing.T) {
	mgr := NewMemManager()
	sched := NewScheduler(mgr, 16, nil)
	defer sched.Shutdown()

	id, err := mgr.AllocatePage()
	require.NoError(t, err)

	var dones []chan error
	for i := 0; i < 5; i++ {
		var buf [page.Size]byte
		buf[0] = byte(i + 1)
		done := make(chan error, 1)
		sched.Schedule(Request{PageID: id, IsWrite: true, Data: &buf, Done: done})
		dones = append(dones, done)
	}
	for _, d := range dones {
		require.NoError(t, <-d)
	}

	var final [page.Size]byte
	done := make(chan error, 1)
	sched.Schedule(Request{PageID: id, IsWrite: false, Data: &final, Done: done})
	require.NoError(t, <-done)
	require.Equal(t, byte(5), final[0])
}
