package mocks

import (
	"Vibeshare/internal/transport"
	"context"
	"slices"
	"sync"
)

// Published 一条记录下来的上行消息
type Published struct {
	Destination string
	Payload     []byte
}

// FakeBroker 内存实现的 transport.Broker，推送通过 Deliver 同步投递
type FakeBroker struct {
	// ConnectErr 非空时 Connect 直接返回该错误
	ConnectErr error
	// ManualConnect 为 true 时 Connect 不自动进入已连接状态，需调用 SetConnected
	ManualConnect bool
	// SubscribeHook 非空时在每次 Subscribe 前调用，可用于阻塞订阅
	SubscribeHook func(topic string)

	mu          sync.Mutex
	connected   bool
	closed      bool
	credentials []string
	listeners   []func(bool)
	subs        map[*fakeSubscription]struct{}
	published   []Published
}

func NewFakeBroker() *FakeBroker {
	return &FakeBroker{subs: make(map[*fakeSubscription]struct{})}
}

func (b *FakeBroker) Connect(_ context.Context, credential string) error {
	if b.ConnectErr != nil {
		return b.ConnectErr
	}
	b.mu.Lock()
	b.credentials = append(b.credentials, credential)
	b.mu.Unlock()
	if !b.ManualConnect {
		b.SetConnected(true)
	}
	return nil
}

// SetConnected 模拟连接建立或断开；断开时当前订阅全部失效
func (b *FakeBroker) SetConnected(connected bool) {
	b.mu.Lock()
	b.connected = connected
	if !connected {
		b.subs = make(map[*fakeSubscription]struct{})
	}
	listeners := slices.Clone(b.listeners)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(connected)
	}
}

func (b *FakeBroker) OnStateChange(fn func(connected bool)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

func (b *FakeBroker) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *FakeBroker) Subscribe(topic string, h transport.Handler) (transport.Subscription, error) {
	if b.SubscribeHook != nil {
		b.SubscribeHook(topic)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, transport.ErrNotConnected
	}
	sub := &fakeSubscription{broker: b, topic: topic, handler: h}
	b.subs[sub] = struct{}{}
	return sub, nil
}

func (b *FakeBroker) Publish(_ context.Context, destination string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return transport.ErrNotConnected
	}
	b.published = append(b.published, Published{Destination: destination, Payload: slices.Clone(payload)})
	return nil
}

func (b *FakeBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.connected = false
	b.subs = make(map[*fakeSubscription]struct{})
	b.mu.Unlock()
	return nil
}

// Deliver 向订阅了 topic 的处理函数同步投递，返回投递次数
func (b *FakeBroker) Deliver(topic string, payload []byte) int {
	b.mu.Lock()
	var handlers []transport.Handler
	for sub := range b.subs {
		if sub.topic == topic {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(context.Background(), payload)
	}
	return len(handlers)
}

// Topics 当前有效订阅（排序，可重复）
func (b *FakeBroker) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	res := make([]string, 0, len(b.subs))
	for sub := range b.subs {
		res = append(res, sub.topic)
	}
	slices.Sort(res)
	return res
}

func (b *FakeBroker) Published() []Published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.published)
}

// PublishedTo 发往 destination 的消息体
func (b *FakeBroker) PublishedTo(destination string) [][]byte {
	var res [][]byte
	for _, p := range b.Published() {
		if p.Destination == destination {
			res = append(res, p.Payload)
		}
	}
	return res
}

func (b *FakeBroker) Credentials() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.credentials)
}

func (b *FakeBroker) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type fakeSubscription struct {
	broker  *FakeBroker
	topic   string
	handler transport.Handler
}

func (s *fakeSubscription) Topic() string { return s.topic }

func (s *fakeSubscription) Unsubscribe() error {
	s.broker.mu.Lock()
	delete(s.broker.subs, s)
	s.broker.mu.Unlock()
	return nil
}

var _ transport.Broker = (*FakeBroker)(nil)
