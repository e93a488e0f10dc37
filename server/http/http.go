package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var ErrServer = errs.Class("http server")

type Config struct {
	Endpoint        string        `help:"访问地址" default:"http://localhost:8080"`
	Address         string        `help:"监听地址" default:"0.0.0.0:8080"`
	ShutdownTimeout time.Duration `help:"关闭时等待请求完成的时间" default:"5s"`
	MaxBodySize     int64         `help:"请求体最大字节数" default:"33554432"`
}

type Server struct {
	*gin.Engine
	httpSrv *http.Server
	logger  *zap.Logger
	config  Config
}

func NewServer(engine *gin.Engine, logger *zap.Logger, conf Config) *Server {
	if conf.ShutdownTimeout <= 0 {
		conf.ShutdownTimeout = 5 * time.Second
	}
	return &Server{
		Engine: engine,
		logger: logger,
		config: conf,
		httpSrv: &http.Server{
			Addr:              conf.Address,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run 启动服务，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *Server) Start() error {
	s.logger.Info("http server start", zap.String("address", s.config.Address), zap.String("endpoint", s.config.Endpoint))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return ErrServer.Wrap(err)
	}
	return nil
}

func (s *Server) Stop() error {
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return ErrServer.New("server forced to shutdown: %v", err)
	}
	s.logger.Info("server exiting")
	return nil
}

// LimitBody 限制请求体大小
func LimitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// Logger 请求日志
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}
