package config

import "github.com/ceyewan/shorturl/clog"

// Option 配置加载器选项
type Option func(*Options)

// Options 配置加载器参数
type Options struct {
	Name      string         // 配置文件名称（不含扩展名）
	Paths     []string       // 配置文件搜索路径
	FileType  string         // 配置文件类型 (yaml, json, etc.)
	EnvPrefix string         // 环境变量前缀
	Defaults  map[string]any // 默认值，优先级最低
	Logger    clog.Logger
}

func defaultOptions() *Options {
	return &Options{
		Name:      "config",
		Paths:     []string{".", "./config"},
		FileType:  "yaml",
		EnvPrefix: "SHORTURL",
		Defaults:  map[string]any{},
	}
}

// WithConfigName 设置配置文件名称（不带扩展名）
func WithConfigName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithConfigPath 添加配置文件搜索路径
func WithConfigPath(path string) Option {
	return func(o *Options) {
		o.Paths = append(o.Paths, path)
	}
}

// WithConfigPaths 设置配置文件搜索路径（覆盖默认值）
func WithConfigPaths(paths ...string) Option {
	return func(o *Options) {
		o.Paths = paths
	}
}

// WithConfigType 设置配置文件类型 (yaml, json, etc.)
func WithConfigType(typ string) Option {
	return func(o *Options) {
		o.FileType = typ
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) {
		o.EnvPrefix = prefix
	}
}

// WithDefaults 设置默认值，多次调用会合并
func WithDefaults(defaults map[string]any) Option {
	return func(o *Options) {
		for k, v := range defaults {
			o.Defaults[k] = v
		}
	}
}

// WithLogger 设置 Logger，用于输出加载过程中的提示
func WithLogger(logger clog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
