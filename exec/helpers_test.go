package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/catalog"
	"coredb/config"
	"coredb/storage/buffer"
	"coredb/storage/disk"
)

func newTestPool(t *testing.T) *buffer.Pool {
	t.Helper()
	sched := disk.NewScheduler(disk.NewMemManager(), 64, nil)
	t.Cleanup(sched.Shutdown)
	return buffer.NewPool(64, sched, nil)
}

func newTestCatalog(t *testing.T) *catalog.Manager {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.PoolFrames = 64
	cfg.BTreeMaxSize = 4
	m, err := catalog.NewManager(cfg, nil)
	require.NoError(t, err)
	return m
}
