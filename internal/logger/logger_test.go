package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Formats(t *testing.T) {
	testCases := []struct {
		name string
		cfg  LogConfig
	}{
		{"コンソール出力", LogConfig{Level: "debug", Format: "console"}},
		{"JSON出力", LogConfig{Level: "info", Format: "json"}},
		{"不正なレベルはinfo扱い", LogConfig{Level: "verbose", Format: "console"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			log, err := New(tc.cfg)
			require.NoError(t, err)
			require.NotNil(t, log)
			log.Info("test", "key", "value")
		})
	}
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(LogConfig{Level: "nope"})
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edgecam.log")

	log, err := New(LogConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("ファイル出力テスト")
	log.Sync()

	assert.FileExists(t, path)
}

func TestConvertFields(t *testing.T) {
	fields := convertFields("a", 1, 2, "ignored", "err", errors.New("boom"), "dangling")

	require.Len(t, fields, 2)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "err", fields[1].Key)
	assert.Equal(t, zapcore.ErrorType, fields[1].Type)
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	child := log.With("component", "test")

	child.Debug("debug")
	child.Info("info")
	child.Warn("warn")
	child.Error("error")
}

func TestNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &Logger{zap.New(core)}

	log.Named("server").Info("起動", "port", 5000)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "server", entries[0].LoggerName)
	assert.Equal(t, "server", entries[0].ContextMap()["component"])
	assert.EqualValues(t, 5000, entries[0].ContextMap()["port"])
}

func TestOutputPaths(t *testing.T) {
	assert.Equal(t, []string{"stdout"}, outputPaths(""))
	assert.Equal(t, []string{"stderr"}, outputPaths("stderr"))
	assert.Equal(t, []string{"/var/log/edgecam.log"}, outputPaths("/var/log/edgecam.log"))
}
