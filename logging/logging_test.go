package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToInfoOnBadLevel(t *testing.T) {
	logger, err := New(Config{Level: "not-a-level", Format: "json", OutputFile: "stdout"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewConsoleFormat(t *testing.T) {
	logger, err := New(Config{Level: "debug", Format: "console", OutputFile: "stderr"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewInvalidFile(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "json", OutputFile: "/nonexistent-dir/x/y.log"})
	require.Error(t, err)
}
