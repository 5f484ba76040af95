package mq

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/pkg/config"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

// DefaultStreamMaxLen Redis Stream 保留的大致条数
const DefaultStreamMaxLen = 10000

// NewProducer 按 mq.type 选择实现。redis 类型需要 rdb 非空。
func NewProducer(cfg config.MQConfig, kafkaCfg config.KafkaConfig, rdb *redis.Client) (Producer, error) {
	switch cfg.Type {
	case "", "none":
		logger.Info("未配置消息队列，转账事件不会被发布")
		return NopProducer{}, nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("mq: redis producer needs a redis connection")
		}
		logger.Info("使用 Redis Streams 作为消息队列...", zap.String("topic", cfg.Topic))
		return NewRedisProducer(rdb, DefaultStreamMaxLen), nil
	case "kafka":
		if len(kafkaCfg.Brokers) == 0 {
			return nil, fmt.Errorf("mq: kafka producer needs at least one broker")
		}
		logger.Info("使用 Kafka 作为消息队列...", zap.Strings("brokers", kafkaCfg.Brokers), zap.String("topic", cfg.Topic))
		return NewKafkaProducer(kafkaCfg.Brokers), nil
	default:
		return nil, fmt.Errorf("mq: unknown type %q", cfg.Type)
	}
}

// NewConsumer 与 NewProducer 对应。mq.type 为 none 时返回错误，因为没有可消费的主题。
func NewConsumer(cfg config.MQConfig, kafkaCfg config.KafkaConfig, rdb *redis.Client, group, name string) (Consumer, error) {
	switch cfg.Type {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("mq: redis consumer needs a redis connection")
		}
		return NewRedisConsumer(rdb, group, name), nil
	case "kafka":
		if len(kafkaCfg.Brokers) == 0 {
			return nil, fmt.Errorf("mq: kafka consumer needs at least one broker")
		}
		return NewKafkaConsumer(kafkaCfg.Brokers, group), nil
	case "", "none":
		return nil, fmt.Errorf("mq: no message queue configured (mq.type)")
	default:
		return nil, fmt.Errorf("mq: unknown type %q", cfg.Type)
	}
}
