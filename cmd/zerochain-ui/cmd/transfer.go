package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zakimal/zero-chain-ui/internal/model"
	"github.com/zakimal/zero-chain-ui/internal/service"
	"github.com/zakimal/zero-chain-ui/internal/status"
)

var (
	transferFrom   string
	transferTo     string
	transferAmount string
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "发起机密转账并跟踪到终态",
	Long: `--from 为本地账户名或地址，--to 为地址或地址簿中的名字。
每次状态变化输出一行，例如 "⚙ finalising… (2 of 3)"。`,
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svcs, err := rt.services(ctx)
		if err != nil {
			fmt.Printf("初始化失败: %v\n", err)
			os.Exit(1)
		}
		rec, err := svcs.transfers.Submit(ctx, service.TransferRequest{
			From:   transferFrom,
			To:     transferTo,
			Amount: transferAmount,
		})
		if err != nil {
			fmt.Printf("发起转账失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("转账 %s: %s -> %s, 金额 %s\n", rec.ID, rec.Sender, rec.Recipient, transferAmount)

		if err := followTransfer(ctx, svcs.transfers, rec.ID); err != nil {
			fmt.Printf("跟踪转账失败: %v\n", err)
			os.Exit(1)
		}

		final, err := svcs.transfers.Get(context.Background(), rec.ID)
		if err != nil {
			fmt.Printf("读取转账记录失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("---------------------------------------------------")
		fmt.Printf("状态:     %s\n", final.StatusText)
		if final.TxHash != "" {
			fmt.Printf("交易哈希: %s\n", final.TxHash)
		}
		if final.BlockHash != "" {
			fmt.Printf("区块:     %s\n", final.BlockHash)
		}
		if final.Status == model.TransferStatusFailed {
			os.Exit(1)
		}
	},
}

// followTransfer 每次状态或进度变化时输出一行标签，相同的行不重复输出
func followTransfer(ctx context.Context, transfers *service.TransferService, id string) error {
	w, err := transfers.Watch(id)
	if errors.Is(err, service.ErrNotActive) {
		return nil
	}
	if err != nil {
		return err
	}

	updates := make(chan struct{}, 1)
	notify := func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	}
	stopStatus := w.Status.Subscribe(func(status.TransactionStatus) { notify() })
	defer stopStatus()
	stopProgress := w.Progress.Subscribe(func(status.Progress) { notify() })
	defer stopProgress()

	opts := status.DefaultLabelOptions()
	var last string
	render := func() {
		st, ok := w.Status.Get()
		if !ok {
			return
		}
		p, _ := w.Progress.Get()
		if line := status.Label(&st, p, opts); line != last {
			last = line
			status.FprintLabel(os.Stdout, &st, p, opts)
		}
	}

	for {
		select {
		case <-updates:
			render()
		case <-w.Done:
			render()
			return nil
		case <-ctx.Done():
			fmt.Println("已停止跟踪，交易可能仍在链上处理")
			return nil
		}
	}
}

func init() {
	transferCmd.Flags().StringVar(&transferFrom, "from", "", "本地账户名或地址")
	transferCmd.Flags().StringVar(&transferTo, "to", "", "收款地址或地址簿名字")
	transferCmd.Flags().StringVar(&transferAmount, "amount", "", "转账金额")
	_ = transferCmd.MarkFlagRequired("from")
	_ = transferCmd.MarkFlagRequired("to")
	_ = transferCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(transferCmd)
}
