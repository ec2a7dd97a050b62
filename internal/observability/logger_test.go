// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
)

// -- Test Helper Functions --

// syncBuffer is a goroutine safe buffer usable as a zap sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// initWithBuffer resets the global logger, since it is a singleton, and
// initializes it writing to a buffer.
func initWithBuffer(t *testing.T, cfg config.LoggerConfig) *syncBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)
	buf := &syncBuffer{}
	Initialize(cfg, buf)
	return buf
}

// -- Test Cases --

func TestInitialize(t *testing.T) {
	t.Run("should initialize console logger with colors", func(t *testing.T) {
		buf := initWithBuffer(t, config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "skims",
			Colors:      config.ColorConfig{Info: "blue"},
		})
		GetLogger().Named("engine").Info("This is a test message.")
		Sync()

		output := buf.String()
		assert.Contains(t, output, "This is a test message.")
		assert.Contains(t, output, colorBlue+"INFO"+colorReset, "Info level should be colorized blue")
		assert.Contains(t, output, "skims.engine.", "Component names carry a dot suffix")
	})

	t.Run("should fall back to default colors", func(t *testing.T) {
		buf := initWithBuffer(t, config.LoggerConfig{Level: "info", Format: "console"})
		GetLogger().Warn("careful")
		Sync()
		assert.Contains(t, buf.String(), colorYellow+"WARN"+colorReset)
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		buf := initWithBuffer(t, config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "JSONTest",
		})
		GetLogger().Warn("This is a JSON message.", zap.String("key", "value"))
		Sync()

		var logEntry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(buf.String()), &logEntry), "Log output should be valid JSON")
		assert.Equal(t, "WARN", logEntry["level"])
		assert.Equal(t, "JSONTest", logEntry["logger"])
		assert.Equal(t, "This is a JSON message.", logEntry["msg"])
		assert.Equal(t, "value", logEntry["key"])
	})

	t.Run("should respect the configured level", func(t *testing.T) {
		buf := initWithBuffer(t, config.LoggerConfig{Level: "warn", Format: "json"})
		GetLogger().Info("hidden")
		GetLogger().Error("shown")
		Sync()
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("should change level at runtime", func(t *testing.T) {
		buf := initWithBuffer(t, config.LoggerConfig{Level: "info", Format: "json"})
		GetLogger().Debug("before")
		SetLevel(zapcore.DebugLevel)
		GetLogger().Debug("after")
		Sync()
		assert.NotContains(t, buf.String(), "before")
		assert.Contains(t, buf.String(), "after")
	})

	t.Run("should warn about an invalid level and keep logging", func(t *testing.T) {
		buf := initWithBuffer(t, config.LoggerConfig{Level: "loud", Format: "json"})
		GetLogger().Info("still here")
		Sync()
		assert.Contains(t, buf.String(), "Invalid logger configuration")
		assert.Contains(t, buf.String(), "still here")
	})

	t.Run("should write to a log file if configured", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "skims.log")
		initWithBuffer(t, config.LoggerConfig{
			Level:   "debug",
			Format:  "console",
			LogFile: logFile,
			MaxSize: 1, // 1 MB
		})
		GetLogger().Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "This should go to the file.")
		// The file is always JSON.
		assert.Contains(t, string(content), `"level":"ERROR"`)
	})

	t.Run("should only initialize once", func(t *testing.T) {
		buf := initWithBuffer(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "First"})
		logger1 := GetLogger()

		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "Second"}, &syncBuffer{})
		logger2 := GetLogger()

		assert.Same(t, logger1, logger2)
		logger2.Info("test")
		Sync()
		assert.Contains(t, buf.String(), "First")
		assert.NotContains(t, buf.String(), "Second")
	})
}

func TestNew(t *testing.T) {
	t.Run("should not touch the global logger", func(t *testing.T) {
		ResetForTest()
		buf := &syncBuffer{}
		logger, err := New(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "local"}, buf, zap.NewAtomicLevel())
		require.NoError(t, err)
		logger.Debug("local message")
		assert.Contains(t, buf.String(), "local message")
		assert.Nil(t, globalLogger.Load())
	})

	t.Run("should reject an invalid level", func(t *testing.T) {
		_, err := New(config.LoggerConfig{Level: "verbose"}, &syncBuffer{}, zap.NewAtomicLevel())
		assert.ErrorContains(t, err, "logger.level")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("should return a fallback logger if not initialized", func(t *testing.T) {
		ResetForTest()
		require.NotNil(t, GetLogger())
	})

	t.Run("should return the global logger after initialization", func(t *testing.T) {
		initWithBuffer(t, config.LoggerConfig{Level: "info", ServiceName: "GlobalTest"})
		assert.Equal(t, globalLogger.Load(), GetLogger())
	})
}
