package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, 4096, cfg.PageSize)
	require.Equal(t, 64, cfg.PoolFrames)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coredb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: 8192\npool_frames: 128\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8192, cfg.PageSize)
	require.Equal(t, 128, cfg.PoolFrames)
	// Untouched fields keep their defaults.
	require.Equal(t, 8, cfg.TombstoneCapacity)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/coredb.yaml")
	require.Error(t, err)
}
