package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zakimal/zero-chain-ui/internal/handler"
	"github.com/zakimal/zero-chain-ui/internal/handler/response"
	"github.com/zakimal/zero-chain-ui/internal/server/routes"
	"github.com/zakimal/zero-chain-ui/pkg/monitor"
)

// Handlers 路由用到的全部 handler。Debug 为 nil 时不注册调试接口。
type Handlers struct {
	System      *handler.SystemHandler
	Wallet      *handler.WalletHandler
	Account     *handler.AccountHandler
	AddressBook *handler.AddressBookHandler
	Transfer    *handler.TransferHandler
	Debug       *handler.DebugHandler
}

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(h Handlers) *gin.Engine {
	// 0. 初始化监控指标
	monitor.Init()

	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(response.RequestID(), monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 4. 注册 API 路由组
	api := r.Group("/api/v1")
	{
		api.GET("/system", h.System.Info)
		routes.RegisterWalletRoutes(api, h.Wallet)
		routes.RegisterAccountRoutes(api, h.Account, h.AddressBook)
		routes.RegisterTransferRoutes(api, h.Transfer)
		if h.Debug != nil {
			routes.RegisterDebugRoutes(api, h.Debug)
		}
	}

	return r
}
