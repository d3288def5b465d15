package config

import (
	"context"
	"strings"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/xerrors"
)

// New 创建配置加载器，需要调用 Load 后才能读取配置。
func New(opts ...Option) (Loader, error) {
	options := defaultOptions()
	for _, o := range opts {
		o(options)
	}

	if err := options.validate(); err != nil {
		return nil, err
	}

	return newLoader(options), nil
}

// MustLoad 创建并加载配置，失败时 panic。仅用于 main 中的初始化阶段。
func MustLoad(opts ...Option) Loader {
	loader := xerrors.Must(New(opts...))
	if err := loader.Load(context.Background()); err != nil {
		panic(err)
	}
	return loader
}

func (o *Options) validate() error {
	if o.Name == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "config name is empty")
	}
	if len(o.Paths) == 0 {
		o.Paths = []string{"."}
	}
	if o.FileType == "" {
		o.FileType = "yaml"
	}
	if o.EnvPrefix == "" {
		o.EnvPrefix = "SHORTURL"
	}
	o.EnvPrefix = strings.ToUpper(o.EnvPrefix)
	if o.Logger == nil {
		o.Logger = clog.Discard()
	}
	return nil
}
