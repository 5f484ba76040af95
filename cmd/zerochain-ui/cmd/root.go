package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zakimal/zero-chain-ui/pkg/config"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "zerochain-ui",
	Short: "zerochain 机密转账钱包",
	Long: `管理本地账户与地址簿，构造带零知识证明的机密转账并跟踪它在链上的状态。
不配置 chain.rpc_url 时使用进程内的模拟节点。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Init()
		if err := logger.Init(config.Global.App.Env, config.Global.App.LogLevel); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// devEndow 使用进程内模拟节点时给每个本地账户预置的机密余额
var devEndow uint64

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Uint64Var(&devEndow, "dev-endow", 0, "进程内模拟节点启动时给本地账户预置的机密余额")
}
