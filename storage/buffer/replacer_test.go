package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/storage/page"
)

func TestArcReplacerMissThenEvictable(t *testing.T) {
	r := NewArcReplacer(2)
	r.RecordAccess(1, 10)
	r.SetEvictable(1, true)
	require.Equal(t, 1, r.Size())

	frameID, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 1, frameID)
	require.Equal(t, 0, r.Size())
}

func TestArcReplacerEvictSkipsNonEvictable(t *testing.T) {
	r := NewArcReplacer(2)
	r.RecordAccess(1, 10)
	r.RecordAccess(2, 20)
	r.SetEvictable(1, false)
	r.SetEvictable(2, true)

	frameID, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 2, frameID)
}

func TestArcReplacerNoEvictableReturnsFalse(t *testing.T) {
	r := NewArcReplacer(2)
	r.RecordAccess(1, 10)
	_, ok := r.Evict()
	require.False(t, ok)
}

func TestArcReplacerAliveHitMovesToMFU(t *testing.T) {
	r := NewArcReplacer(2)
	r.RecordAccess(1, 10)
	r.SetEvictable(1, true)

	// Re-access the same frame: should move to MFU and survive future
	// MRU-side eviction pressure differently, but at minimum stays
	// evictable and resident.
	r.RecordAccess(1, 10)
	require.Equal(t, 1, r.Size())
	require.Equal(t, 0, r.mru.Len())
	require.Equal(t, 1, r.mfu.Len())
}

func TestArcReplacerGhostHitAdaptsTarget(t *testing.T) {
	r := NewArcReplacer(2)
	r.RecordAccess(1, page.ID(10))
	r.SetEvictable(1, true)
	frameID, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 1, frameID)

	// page 10 is now in MRU_ghost. Re-accessing frame 1 for the same page
	// id should hit the ghost list and adapt the target upward.
	before := r.target
	r.RecordAccess(1, page.ID(10))
	require.GreaterOrEqual(t, r.target, before)
	require.Equal(t, 0, r.Size()) // new entry starts non-evictable
}

func TestArcReplacerSetEvictableUnknownFramePanics(t *testing.T) {
	r := NewArcReplacer(2)
	require.Panics(t, func() { r.SetEvictable(99, true) })
}

func TestArcReplacerRemoveNonEvictablePanics(t *testing.T) {
	r := NewArcReplacer(2)
	r.RecordAccess(1, 10)
	require.Panics(t, func() { r.Remove(1) })
}

func TestArcReplacerRemoveAbsentIsNoop(t *testing.T) {
	r := NewArcReplacer(2)
	require.NotPanics(t, func() { r.Remove(42) })
}
