package rxgo

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// ============================================================================
// 全局配置
// ============================================================================

// Config 库级别的全局配置
type Config struct {
	// OnUnhandledError 叶子订阅者没有错误处理器或处理器panic时调用
	// 为nil时错误以error级别写入日志
	OnUnhandledError func(err error)

	// OnStoppedNotification 订阅者停止后仍收到通知时调用
	OnStoppedNotification func(notification Notification, subscriber *Subscriber)

	// UseSynchronousErrorHandling 未处理的错误直接在发射方panic而不是上报
	UseSynchronousErrorHandling bool
}

var globalConfig atomic.Pointer[Config]

func init() {
	globalConfig.Store(&Config{})
}

// GetConfig 返回当前全局配置的副本
func GetConfig() Config {
	return *globalConfig.Load()
}

// SetConfig 替换全局配置
func SetConfig(cfg Config) {
	globalConfig.Store(&cfg)
}

// ResetConfig 恢复默认配置
func ResetConfig() {
	globalConfig.Store(&Config{})
}

// Settings 可以从文件或环境变量加载的配置项
type Settings struct {
	LogLevel                 string `mapstructure:"log_level" yaml:"log_level"`
	SynchronousErrorHandling bool   `mapstructure:"synchronous_error_handling" yaml:"synchronous_error_handling"`
}

type loader struct {
	v        *viper.Viper
	envFiles []string
}

// LoaderOption LoadConfig的可选项
type LoaderOption func(l *loader)

// WithConfigFile 指定配置文件路径
func WithConfigFile(path string) LoaderOption {
	return func(l *loader) { l.v.SetConfigFile(path) }
}

// WithEnvPrefix 指定环境变量前缀，默认RXGO
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *loader) { l.v.SetEnvPrefix(prefix) }
}

// WithEnvFile 读取配置前把.env文件载入进程环境，已存在的环境变量不会被覆盖
func WithEnvFile(paths ...string) LoaderOption {
	return func(l *loader) { l.envFiles = append(l.envFiles, paths...) }
}

// LoadConfig 从配置文件（可选）和RXGO_*环境变量加载配置并应用到全局
func LoadConfig(opts ...LoaderOption) (Settings, error) {
	l := &loader{v: viper.New()}
	v := l.v
	v.SetEnvPrefix("RXGO")
	v.SetDefault("log_level", "warn")
	v.SetDefault("synchronous_error_handling", false)
	for _, opt := range opts {
		opt(l)
	}

	if len(l.envFiles) > 0 {
		if err := godotenv.Load(l.envFiles...); err != nil {
			return Settings{}, fmt.Errorf("rxgo: load env file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("rxgo: read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("rxgo: unmarshal config: %w", err)
	}
	if err := s.Apply(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Apply 把设置应用到全局日志与配置
func (s Settings) Apply() error {
	level, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil {
		return fmt.Errorf("rxgo: invalid log_level %q: %w", s.LogLevel, err)
	}
	l := Logger().Level(level)
	logger.Store(&l)

	cfg := GetConfig()
	cfg.UseSynchronousErrorHandling = s.SynchronousErrorHandling
	SetConfig(cfg)
	return nil
}

// reportUnhandledError 上报无人处理的错误
func reportUnhandledError(err error) {
	cfg := GetConfig()
	if cfg.OnUnhandledError != nil {
		if perr := tryCatch(func() { cfg.OnUnhandledError(err) }); perr != nil {
			Logger().Error().Err(perr).Msg("OnUnhandledError handler panicked")
		}
		return
	}
	Logger().Error().Err(err).Msg("unhandled error")
}

// handleStoppedNotification 处理停止后到达的通知
func handleStoppedNotification(n Notification, subscriber *Subscriber) {
	cfg := GetConfig()
	if cfg.OnStoppedNotification != nil {
		cfg.OnStoppedNotification(n, subscriber)
		return
	}
	Logger().Debug().Stringer("notification", n).Msg("notification after subscriber stopped")
}
