package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/zakimal/zero-chain-ui/internal/event"
	"github.com/zakimal/zero-chain-ui/internal/service/mq"
	"github.com/zakimal/zero-chain-ui/internal/status"
)

var eventsGroup string

// eventsCmd 订阅 serve 发布的转账状态事件
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "实时输出转账状态事件 (需要配置 mq.type)",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var rdb *redis.Client
		if rt.cfg.MQ.Type == "redis" {
			var err error
			if rdb, err = rt.redis(ctx); err != nil {
				fmt.Printf("连接 Redis 失败: %v\n", err)
				os.Exit(1)
			}
		}
		consumer, err := mq.NewConsumer(rt.cfg.MQ, rt.cfg.Kafka, rdb, eventsGroup, "events-"+uuid.NewString()[:8])
		if err != nil {
			fmt.Printf("初始化消费者失败: %v\n", err)
			os.Exit(1)
		}
		defer consumer.Close()

		fmt.Printf("正在监听 %s (Ctrl+C 退出)\n", rt.cfg.MQ.Topic)
		err = consumer.Subscribe(ctx, rt.cfg.MQ.Topic, func(msg *mq.Message) error {
			var ev event.TransferStatusEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				// 格式错误的消息直接确认，避免反复投递
				fmt.Printf("无法解析的事件 %s: %v\n", msg.ID, err)
				return nil
			}
			fmt.Println(formatEvent(ev))
			return nil
		})
		if err != nil {
			fmt.Printf("消费失败: %v\n", err)
			os.Exit(1)
		}
	},
}

// formatEvent 例如 "15:04:05 3f2a… broadcast finalising (1 of 3)"
func formatEvent(ev event.TransferStatusEvent) string {
	line := fmt.Sprintf("%s %s %-9s %s", ev.Timestamp.Local().Format("15:04:05"), ev.TransferID, ev.Status, ev.Text)
	if counter, ok := (status.Progress{Current: ev.Confirmations, Total: ev.Expected}).Label(); ok && !ev.Terminal {
		line += " (" + counter + ")"
	}
	if ev.Terminal && ev.TxHash != "" {
		line += " " + ev.TxHash
	}
	return line
}

func init() {
	eventsCmd.Flags().StringVar(&eventsGroup, "group", "zerochain-ui-events", "消费组名字")
	rootCmd.AddCommand(eventsCmd)
}
