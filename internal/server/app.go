package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	HttpPort string
	// Addr 完整的监听地址，设置时忽略 HttpPort
	Addr string
}

// App HTTP 服务加上需要随进程一起关闭的组件
type App struct {
	httpServer *http.Server
	closers    []func()
}

// New closers 在 HTTP 服务关闭之后按注册的逆序执行
func New(cfg Config, httpHandler http.Handler, closers ...func()) *App {
	addr := cfg.Addr
	if addr == "" {
		addr = ":" + cfg.HttpPort
	}
	return &App{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: httpHandler,
		},
		closers: closers,
	}
}

// Run 启动服务并阻塞，直到收到关闭信号
func (a *App) Run() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
	}()
	if err := a.Serve(ctx); err != nil {
		logger.Fatal("HTTP Server failure", zap.Error(err))
	}
}

// Serve 运行到 ctx 结束或监听失败，然后优雅关闭
func (a *App) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP Server", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("⚠️  Shutting down server...")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	logger.Info("Server exited properly")
	return serveErr
}
