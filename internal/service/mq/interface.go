package mq

import "context"

// Producer 消息生产者
type Producer interface {
	// Publish 发送消息
	// topic: 主题 / Stream 名
	// key: 分区键 (Kafka)，同一笔转账的事件保持顺序
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// Message 消费到的一条消息
type Message struct {
	ID      string // Redis Stream ID 或 Kafka partition/offset
	Topic   string
	Key     string
	Payload []byte
}

// Consumer 消费者接口
type Consumer interface {
	// Subscribe 阻塞消费 topic 直到 ctx 结束。handler 返回 error 时不确认该消息。
	Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error
	Close() error
}

// NopProducer 未配置消息队列时使用，丢弃所有消息
type NopProducer struct{}

func (NopProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	return nil
}

func (NopProducer) Close() error { return nil }
