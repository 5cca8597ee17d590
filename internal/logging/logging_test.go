package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-tfs/internal/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter("tfsctl", config.LoggingConfig{Level: "warn"}, &buf)

		logger.Info("hidden")
		logger.Warn("shown", "id", 42)

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "shown")
		assert.Contains(t, out, "id=42")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter("tfsctl", config.LoggingConfig{Level: "bogus"}, &buf)

		logger.Debug("hidden")
		logger.Info("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter("tfsctl", config.LoggingConfig{Level: "info", JSON: true}, &buf)

		logger.Info("request sent", "status", 200)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "request sent", entry["@message"])
		assert.Equal(t, "tfsctl", entry["@module"])
		assert.InDelta(t, 200, entry["status"], 0)
	})
}

func TestNew(t *testing.T) {
	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "tfsctl.log")

		logger, closeFn, err := New("tfsctl", config.LoggingConfig{
			Level:    "info",
			Output:   config.OutputFile,
			FilePath: path,
			MaxSize:  1,
		})
		require.NoError(t, err)

		logger.Info("written to file")
		require.NoError(t, closeFn())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "written to file")
	})

	t.Run("file output without path", func(t *testing.T) {
		_, _, err := New("tfsctl", config.LoggingConfig{Output: config.OutputFile})
		assert.Error(t, err)
	})

	t.Run("unknown output", func(t *testing.T) {
		_, _, err := New("tfsctl", config.LoggingConfig{Output: "syslog"})
		assert.Error(t, err)
	})

	t.Run("stderr", func(t *testing.T) {
		logger, closeFn, err := New("tfsctl", config.LoggingConfig{})
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.NoError(t, closeFn())
	})
}
