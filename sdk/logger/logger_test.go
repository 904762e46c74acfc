package logger

import (
	"bytes"
	"encoding/json"
	"github.com/jxo-me/talpa/core/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(
		NameLoggerOption("route"),
		OutputLoggerOption(&buf),
		FormatLoggerOption(logger.JSONFormat),
		LevelLoggerOption(logger.DebugLevel),
	)
	log.WithFields(map[string]any{"hostname": "app.example.com"}).Debugf("step %s", "FetchConfig")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "step FetchConfig", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "route", entry["logger"])
	assert.Equal(t, "app.example.com", entry["hostname"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(OutputLoggerOption(&buf), LevelLoggerOption(logger.WarnLevel))
	log.Info("hidden")
	assert.Empty(t, buf.String())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.Equal(t, logger.WarnLevel, log.GetLevel())
	assert.True(t, log.IsLevelEnabled(logger.ErrorLevel))
	assert.False(t, log.IsLevelEnabled(logger.DebugLevel))
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	log := NewLogger(OutputLoggerOption(&bytes.Buffer{}), LevelLoggerOption("loud"))
	assert.Equal(t, logger.InfoLevel, log.GetLevel())
}
