package rxgo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreGlobals 测试结束后恢复全局日志与配置
func restoreGlobals(t *testing.T) {
	prevLogger := Logger()
	prevConfig := GetConfig()
	t.Cleanup(func() {
		logger.Store(prevLogger)
		SetConfig(prevConfig)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("默认值", func(t *testing.T) {
		restoreGlobals(t)
		s, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, Settings{LogLevel: "warn"}, s)
		assert.Equal(t, zerolog.WarnLevel, Logger().GetLevel())
	})

	t.Run("环境变量", func(t *testing.T) {
		restoreGlobals(t)
		t.Setenv("RXGO_LOG_LEVEL", "debug")
		t.Setenv("RXGO_SYNCHRONOUS_ERROR_HANDLING", "true")
		s, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "debug", s.LogLevel)
		assert.Equal(t, zerolog.DebugLevel, Logger().GetLevel())
		assert.True(t, GetConfig().UseSynchronousErrorHandling)
	})

	t.Run("自定义环境变量前缀", func(t *testing.T) {
		restoreGlobals(t)
		t.Setenv("STREAMS_LOG_LEVEL", "info")
		s, err := LoadConfig(WithEnvPrefix("STREAMS"))
		require.NoError(t, err)
		assert.Equal(t, "info", s.LogLevel)
	})

	t.Run("配置文件", func(t *testing.T) {
		restoreGlobals(t)
		path := filepath.Join(t.TempDir(), "rxgo.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: error\nsynchronous_error_handling: true\n"), 0o600))

		s, err := LoadConfig(WithConfigFile(path))
		require.NoError(t, err)
		assert.Equal(t, Settings{LogLevel: "error", SynchronousErrorHandling: true}, s)
		assert.Equal(t, zerolog.ErrorLevel, Logger().GetLevel())
	})

	t.Run("环境变量覆盖配置文件", func(t *testing.T) {
		restoreGlobals(t)
		path := filepath.Join(t.TempDir(), "rxgo.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: error\n"), 0o600))
		t.Setenv("RXGO_LOG_LEVEL", "trace")

		s, err := LoadConfig(WithConfigFile(path))
		require.NoError(t, err)
		assert.Equal(t, "trace", s.LogLevel)
	})

	t.Run(".env文件", func(t *testing.T) {
		restoreGlobals(t)
		t.Cleanup(func() { os.Unsetenv("DOTENV_LOG_LEVEL") })
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("DOTENV_LOG_LEVEL=error\n"), 0o600))

		s, err := LoadConfig(WithEnvPrefix("DOTENV"), WithEnvFile(path))
		require.NoError(t, err)
		assert.Equal(t, "error", s.LogLevel)
	})

	t.Run(".env文件不存在", func(t *testing.T) {
		restoreGlobals(t)
		_, err := LoadConfig(WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
		assert.Error(t, err)
	})

	t.Run("配置文件不存在", func(t *testing.T) {
		restoreGlobals(t)
		_, err := LoadConfig(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
		assert.Error(t, err)
	})

	t.Run("非法日志级别", func(t *testing.T) {
		restoreGlobals(t)
		t.Setenv("RXGO_LOG_LEVEL", "loud")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "invalid log_level")
		assert.False(t, GetConfig().UseSynchronousErrorHandling)
	})
}

func TestConfigReset(t *testing.T) {
	restoreGlobals(t)
	SetConfig(Config{UseSynchronousErrorHandling: true})
	assert.True(t, GetConfig().UseSynchronousErrorHandling)
	ResetConfig()
	assert.Equal(t, Config{}, GetConfig())
}
