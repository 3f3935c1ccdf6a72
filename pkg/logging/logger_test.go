package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerRejectsStdout(t *testing.T) {
	_, err := NewLogger(Config{Output: "stdout"})
	assert.Error(t, err)
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewLoggerToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "module.log")

	logger, err := NewLogger(Config{Level: "debug", Format: "console", Output: path, ServiceName: "qradar_offense_info"})
	require.NoError(t, err)
	defer logger.Cleanup()

	assert.Equal(t, "qradar_offense_info", logger.ServiceName())
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestLogChange(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := FromZap(zap.New(core), "test").WithInvocation("abc").WithComponent("log_source_usecase")

	logger.LogChange("create", "log_source", true, true, zap.String("name", "web-srv-01"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["invocation_id"])
	assert.Equal(t, "log_source_usecase", fields["component"])
	assert.Equal(t, "create", fields["action"])
	assert.Equal(t, true, fields["changed"])
	assert.Equal(t, true, fields["check_mode"])
	assert.Equal(t, "web-srv-01", fields["name"])
}

func TestLogAPICallLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core), "test")

	logger.LogAPICall("GET", "api/siem/offenses", 200, time.Millisecond)
	logger.LogAPICall("GET", "api/siem/offenses/1", 404, time.Millisecond)
	logger.LogAPICall("POST", "api/config", 0, time.Millisecond)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
}
