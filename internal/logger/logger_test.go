package logger

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

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "range-orders.log")

	log, err := New(&Config{Level: "info", LogFile: logFile, MaxSize: 1, Console: &console})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("gas price refreshed", zap.String("chain", "polygon"))
	_ = log.Sync()

	assert.Contains(t, console.String(), "gas price refreshed")
	assert.NotContains(t, console.String(), "hidden")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "gas price refreshed", entry["msg"])
	assert.Equal(t, "polygon", entry["chain"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLevels(t *testing.T) {
	var console bytes.Buffer

	log, err := New(&Config{Development: true, Console: &console})
	require.NoError(t, err)
	log.Debug("debug visible")
	assert.Contains(t, console.String(), "debug visible")

	_, err = New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, log)
}
