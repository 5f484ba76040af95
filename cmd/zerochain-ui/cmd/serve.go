package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/handler"
	"github.com/zakimal/zero-chain-ui/internal/server"
	"github.com/zakimal/zero-chain-ui/internal/service"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP API 服务",
	Long:  `提供账户、地址簿与转账接口，/api/v1/transfers/:id/stream 以 websocket 推送转账状态。`,
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		// 1. 组装服务
		svcs, err := rt.services(cmd.Context())
		if err != nil {
			logger.Fatal("初始化服务失败", zap.Error(err))
		}
		handler.RegisterValidators(rt.units())

		// 2. 定时清理终态记录
		cronService := service.NewCronService(svcs.transfers, rt.cfg.Transfer.SweepSpec, rt.sweepLock(cmd.Context()))
		if err := cronService.Start(); err != nil {
			logger.Fatal("定时任务启动失败", zap.Error(err))
		}

		// 3. HTTP Router
		if rt.cfg.App.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		h := server.Handlers{
			System:      handler.NewSystemHandler(svcs.system),
			Wallet:      handler.NewWalletHandler(svcs.wallet),
			Account:     handler.NewAccountHandler(svcs.accounts),
			AddressBook: handler.NewAddressBookHandler(svcs.book),
			Transfer:    handler.NewTransferHandler(svcs.transfers),
		}
		if rt.cfg.App.Env != "production" {
			h.Debug = handler.NewDebugHandler(svcs.transfers)
		}

		// 4. 运行 (阻塞)，退出时先停定时任务再停止跟踪转账
		app := server.New(server.Config{HttpPort: rt.cfg.App.HttpPort}, server.NewHTTPRouter(h),
			svcs.transfers.Close,
			cronService.Stop,
		)
		app.Run()
		logger.Info("系统已退出")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
