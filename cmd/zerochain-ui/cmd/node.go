package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/chain/wsrpc"
	"github.com/zakimal/zero-chain-ui/internal/server"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

var nodeEndowments []string

// nodeCmd 把模拟节点暴露成 websocket JSON-RPC，其它进程通过 chain.rpc_url 连接
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "启动本地模拟节点",
	Long: `启动一个按 chain.block_time 出块的模拟 zerochain 节点，监听 chain.node_listen。
--endow 给账户预置余额，格式为 address=balance[:confidential]。`,
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		node, err := rt.simnet()
		if err != nil {
			logger.Fatal("启动模拟节点失败", zap.Error(err))
		}
		for _, spec := range nodeEndowments {
			id, balance, confidential, err := parseEndowment(spec)
			if err != nil {
				logger.Fatal("无效的 --endow 参数", zap.String("value", spec), zap.Error(err))
			}
			if err := node.Endow(id, balance, confidential); err != nil {
				logger.Fatal("预置余额失败", zap.Error(err))
			}
			logger.Info("已预置余额", zap.Stringer("address", id), zap.Uint64("balance", balance), zap.Uint64("confidential", confidential))
		}

		app := server.New(server.Config{Addr: rt.cfg.Chain.NodeListen}, wsrpc.NewServer(node, node.Registry()))
		app.Run()
	},
}

// parseEndowment address=balance[:confidential]
func parseEndowment(spec string) (chain.AccountID, uint64, uint64, error) {
	addr, amounts, ok := strings.Cut(spec, "=")
	if !ok {
		return chain.AccountID{}, 0, 0, errors.New("缺少 '='")
	}
	id, err := chain.ParseAccountID(addr)
	if err != nil {
		return chain.AccountID{}, 0, 0, err
	}
	balanceText, confidentialText, _ := strings.Cut(amounts, ":")
	balance, err := strconv.ParseUint(balanceText, 10, 64)
	if err != nil {
		return chain.AccountID{}, 0, 0, fmt.Errorf("balance: %w", err)
	}
	var confidential uint64
	if confidentialText != "" {
		if confidential, err = strconv.ParseUint(confidentialText, 10, 64); err != nil {
			return chain.AccountID{}, 0, 0, fmt.Errorf("confidential: %w", err)
		}
	}
	return id, balance, confidential, nil
}

func init() {
	nodeCmd.Flags().StringSliceVar(&nodeEndowments, "endow", nil, "预置余额 address=balance[:confidential]，可重复")
	rootCmd.AddCommand(nodeCmd)
}
