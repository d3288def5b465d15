package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/xerrors"
)

// loader 实现 Loader 接口
type loader struct {
	v         *viper.Viper
	opts      *Options
	logger    clog.Logger
	mu        sync.RWMutex
	watches   map[string][]chan Event
	oldValues map[string]any
}

func newLoader(opts *Options) *loader {
	return &loader{
		v:         viper.New(),
		opts:      opts,
		logger:    opts.Logger.With(clog.String("component", "config")),
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}
}

// Load 从所有来源加载配置
//
// 顺序：默认值 -> 环境变量绑定 -> .env -> 基础配置文件 -> 环境特定配置 -> 文件监听
func (l *loader) Load(ctx context.Context) error {
	for k, v := range l.opts.Defaults {
		l.v.SetDefault(k, v)
	}

	l.v.SetConfigName(l.opts.Name)
	l.v.SetConfigType(l.opts.FileType)
	for _, path := range l.opts.Paths {
		l.v.AddConfigPath(path)
	}

	// 环境变量优先级最高，idgen.worker_id 对应 SHORTURL_IDGEN_WORKER_ID
	l.v.SetEnvPrefix(l.opts.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	l.loadDotEnv()

	fileFound := true
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(err, "config: read %s", l.opts.Name)
		}
		fileFound = false
		l.logger.Warn("no configuration file found, using defaults and environment",
			clog.String("name", l.opts.Name))
	}

	if err := l.loadEnvironmentConfig(); err != nil {
		return err
	}

	if err := l.Validate(); err != nil {
		return err
	}

	l.captureCurrentValues()

	if fileFound {
		l.v.OnConfigChange(func(e fsnotify.Event) {
			if err := l.loadEnvironmentConfig(); err != nil {
				l.logger.Error("reload environment config failed", clog.Error(err))
			}
			l.notifyWatches(e)
		})
		l.v.WatchConfig()
	}

	return nil
}

// loadDotEnv 依次尝试工作目录和搜索路径下的 .env，不覆盖已有环境变量
func (l *loader) loadDotEnv() {
	candidates := []string{".env"}
	for _, path := range l.opts.Paths {
		candidates = append(candidates, filepath.Join(path, ".env"))
	}
	for _, file := range candidates {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			l.logger.Warn("load .env failed", clog.String("file", file), clog.Error(err))
		}
	}
}

// loadEnvironmentConfig 按 <PREFIX>_ENV 合并 name.<env> 配置文件
func (l *loader) loadEnvironmentConfig() error {
	env := os.Getenv(fmt.Sprintf("%s_ENV", l.opts.EnvPrefix))
	if env == "" {
		return nil
	}

	envConfigName := fmt.Sprintf("%s.%s", l.opts.Name, env)
	l.v.SetConfigName(envConfigName)
	defer l.v.SetConfigName(l.opts.Name)

	if err := l.v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(err, "config: merge %s", envConfigName)
		}
		l.logger.Info("no environment configuration file", clog.String("env", env))
		return nil
	}
	l.logger.Info("environment configuration merged", clog.String("env", env))
	return nil
}

func (l *loader) captureCurrentValues() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.watches {
		l.oldValues[key] = l.v.Get(key)
	}
}

// Get 根据 key 获取配置值
func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

// Unmarshal 将整个配置反序列化到结构体
func (l *loader) Unmarshal(v any) error {
	return l.v.Unmarshal(v)
}

// UnmarshalKey 将特定配置 key 反序列化到结构体
func (l *loader) UnmarshalKey(key string, v any) error {
	return l.v.UnmarshalKey(key, v)
}

// Watch 订阅特定配置 key 的变更，ctx 取消后通道关闭
func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if key == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "config: watch key is empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, 10)
	l.watches[key] = append(l.watches[key], ch)
	l.oldValues[key] = l.v.Get(key)

	go func() {
		<-ctx.Done()
		l.removeWatch(key, ch)
	}()

	return ch, nil
}

// removeWatch 在持锁状态下移除并关闭通道，notifyWatches 不会再向其写入
func (l *loader) removeWatch(key string, ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chans := l.watches[key]
	for i, c := range chans {
		if c == ch {
			l.watches[key] = append(chans[:i], chans[i+1:]...)
			close(ch)
			break
		}
	}
	if len(l.watches[key]) == 0 {
		delete(l.watches, key)
		delete(l.oldValues, key)
	}
}

// Validate 验证配置不为空
func (l *loader) Validate() error {
	if len(l.v.AllSettings()) == 0 {
		return xerrors.Wrap(ErrValidationFailed, "configuration is empty")
	}
	return nil
}

func (l *loader) notifyWatches(_ fsnotify.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, channels := range l.watches {
		newValue := l.v.Get(key)
		oldValue := l.oldValues[key]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}

		event := Event{
			Key:       key,
			Value:     newValue,
			OldValue:  oldValue,
			Source:    "file",
			Timestamp: time.Now(),
		}
		l.oldValues[key] = newValue

		for _, ch := range channels {
			select {
			case ch <- event:
			default:
				l.logger.Warn("watch channel is full, event dropped", clog.String("key", key))
			}
		}
	}
}
