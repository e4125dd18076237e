package transport

import (
	"context"
	"errors"
)

var (
	ErrNotConnected = errors.New("transport: not connected")
	ErrBrokerClosed = errors.New("transport: broker closed")
)

// Handler 推送消息回调；同一频道内按服务端发送顺序调用
type Handler func(ctx context.Context, payload []byte)

// Subscription 一个频道订阅，连接断开后自动失效
type Subscription interface {
	Topic() string
	Unsubscribe() error
}

// Broker 发布/订阅通道的抽象
// Connect 不阻塞等待连接成功，连接状态通过 OnStateChange 通知（含重连）
type Broker interface {
	Connect(ctx context.Context, credential string) error
	Subscribe(topic string, h Handler) (Subscription, error)
	Publish(ctx context.Context, destination string, payload []byte) error
	Connected() bool
	OnStateChange(fn func(connected bool))
	Close() error
}
