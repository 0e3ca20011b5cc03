package rxgo

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ============================================================================
// 日志
// ============================================================================

var logger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stderr).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Str("component", "rxgo").
		Logger()
	logger.Store(&l)
}

// Logger 返回库内部使用的日志记录器
func Logger() *zerolog.Logger {
	return logger.Load()
}

// SetLogger 替换库内部使用的日志记录器
func SetLogger(l zerolog.Logger) {
	l = l.With().Str("component", "rxgo").Logger()
	logger.Store(&l)
}
