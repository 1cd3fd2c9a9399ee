package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(Config{Level: "info", Console: true, JSON: true}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("pipeline complete", zap.Float64("quality_score", 0.8))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "pipeline complete", entry["message"])
	assert.Contains(t, entry, "timestamp")
	assert.InDelta(t, 0.8, entry["quality_score"], 1e-9)
}

func TestNew_FileCore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixmytext.log")
	logger, err := NewWithWriter(Config{Level: "debug", File: path, MaxSizeMB: 1}, nil)
	require.NoError(t, err)

	logger.Debug("specialist failed", zap.String("specialist", "style"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"specialist":"style"`)
	assert.Contains(t, string(data), `"level":"DEBUG"`)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestNew_NoOutputsIsNop(t *testing.T) {
	logger, err := NewWithWriter(Config{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, logger)
	logger.Info("dropped")
}
