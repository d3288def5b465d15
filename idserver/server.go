// Package idserver 通过 HTTP 对外提供 idgen 的发号能力。
//
// 路由：
//
//	GET /v1/ids                 生成一个 ID
//	GET /v1/ids?count=N         批量生成 N 个 ID（1 ≤ N ≤ 1000）
//	GET /v1/ids/:id/decode      拆解一个 ID 的各字段
//	GET /v1/identity            本实例的身份与位布局
//	GET /healthz                健康检查
//	GET /metrics                Prometheus 抓取入口
//
// 发号失败时按错误类型返回 503（时钟回拨、超时、队列满，后两者带 Retry-After）、
// 400（参数非法）或 429（限流）。
package idserver

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/idgen"
	"github.com/ceyewan/shorturl/metrics"
	"github.com/ceyewan/shorturl/ratelimit"
	"github.com/ceyewan/shorturl/trace"
	"github.com/ceyewan/shorturl/xerrors"
)

// Server ID 发号 HTTP 服务
type Server struct {
	cfg     Config
	gen     idgen.Generator
	mode    string
	logger  clog.Logger
	meter   metrics.Meter
	limiter ratelimit.Limiter
	// ownLimiter 为 true 时 limiter 由 Server 创建并负责关闭
	ownLimiter bool

	engine *gin.Engine
	srv    *http.Server
}

// New 创建服务，cfg 为 nil 时使用默认配置
//
// Server 只借用 gen，不负责关闭它。
func New(cfg *Config, gen idgen.Generator, opts ...Option) (*Server, error) {
	if gen == nil {
		return nil, ErrGeneratorNil
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	s := &Server{
		cfg:     c,
		gen:     gen,
		mode:    modeOf(gen),
		logger:  o.logger.With(clog.String("component", "idserver")),
		meter:   o.meter,
		limiter: o.limiter,
	}

	if s.limiter == nil && c.RateLimit.Rate > 0 {
		rlCfg := c.RateLimit
		l, err := ratelimit.New(&rlCfg,
			ratelimit.WithLogger(o.logger),
			ratelimit.WithMeter(o.meter),
			ratelimit.WithRedisConnector(o.redisConn))
		if err != nil {
			return nil, xerrors.Wrap(err, "idserver: create rate limiter")
		}
		s.limiter = l
		s.ownLimiter = true
		s.cfg.RateLimit = rlCfg
	}

	httpMetrics, err := metrics.NewHTTPServerMetrics(o.meter, metrics.DefaultHTTPServerMetricsConfig("idserver"))
	if err != nil {
		s.closeLimiter()
		return nil, xerrors.Wrap(err, "idserver: create http metrics")
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	if c.Tracing {
		s.engine.Use(trace.GinMiddleware("idserver"))
	}
	s.engine.Use(
		requestID(),
		recovery(s.logger),
		metrics.GinHTTPMiddleware(httpMetrics),
		accessLog(s.logger),
	)
	s.routes()

	s.srv = &http.Server{
		Addr:              c.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
	}
	return s, nil
}

// modeOf 由位布局推断发号模式，只有分片模式带 shard 段
func modeOf(gen idgen.Generator) string {
	if gen.Layout().ShardBits > 0 {
		return idgen.ModeSharded
	}
	return idgen.ModeSerialized
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.healthz)
	if s.cfg.MetricsPath != "-" {
		s.engine.GET(s.cfg.MetricsPath, gin.WrapH(s.meter.Handler()))
	}

	v1 := s.engine.Group("/v1")
	if s.limiter != nil {
		v1.Use(ratelimit.GinMiddleware(s.limiter, nil, s.cfg.RateLimit.Limit()))
	}
	v1.GET("/ids", s.nextIDs)
	v1.GET("/ids/:id/decode", s.decode)
	v1.GET("/identity", s.identity)
}

// Handler 返回路由，测试中可直接交给 httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 监听 Config.Addr 直到 ctx 取消，然后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return xerrors.Wrapf(err, "idserver: listen %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve 在给定的 listener 上提供服务，ctx 取消后在 ShutdownTimeout 内关闭
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("idserver listening", clog.String("addr", ln.Addr().String()))
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.closeLimiter()
		if xerrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return xerrors.Wrap(err, "idserver: serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("idserver shutting down", clog.Duration("timeout", s.cfg.ShutdownTimeout))
	err := s.srv.Shutdown(shutdownCtx)
	<-errCh
	s.closeLimiter()
	if err != nil {
		return xerrors.Wrap(err, "idserver: shutdown")
	}
	s.logger.Info("idserver stopped")
	return nil
}

func (s *Server) closeLimiter() {
	if s.ownLimiter && s.limiter != nil {
		_ = s.limiter.Close()
	}
}
