package transport

import (
	"Vibeshare/internal/api/config"
	"Vibeshare/internal/pkg/consts"
	"Vibeshare/internal/pkg/logger"
	"Vibeshare/internal/pkg/metrics"
	redispkg "Vibeshare/internal/pkg/redis"
	"Vibeshare/internal/pkg/security"
	"context"
	log "log/slog"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisEnvelope 发往 Redis 的上行消息，principal 用于服务端识别发送者
type RedisEnvelope struct {
	Principal string          `json:"principal"`
	Payload   json.RawMessage `json:"payload"`
}

// RedisBroker 以 Redis pub/sub 作为推送通道，供服务端机器人等进程内消费者使用
// 频道名见 redis.Channel；断线重连与重新订阅由 go-redis 的 PubSub 负责
type RedisBroker struct {
	cfg config.RedisConfig

	mu        sync.RWMutex
	rdb       *redis.Client
	pubsub    *redis.PubSub
	principal string
	handlers  map[string]map[*redisSubscription]struct{}
	listeners []func(bool)
	wg        sync.WaitGroup
	closed    bool
}

func NewRedisBroker(cfg config.RedisConfig) *RedisBroker {
	return &RedisBroker{
		cfg:      cfg,
		handlers: make(map[string]map[*redisSubscription]struct{}),
	}
}

// newRedisBrokerWithClient 使用已有客户端（测试）
func newRedisBrokerWithClient(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{
		rdb:      rdb,
		handlers: make(map[string]map[*redisSubscription]struct{}),
	}
}

func (s *RedisBroker) Connect(ctx context.Context, credential string) error {
	claims, err := security.InspectToken(credential)
	if err != nil {
		return err
	}
	principal := claims.Subject

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrBrokerClosed
	}
	if s.pubsub != nil {
		s.mu.Unlock()
		return nil
	}
	rdb := s.rdb
	s.mu.Unlock()

	if rdb == nil {
		if rdb, err = redispkg.NewClient(ctx, s.cfg); err != nil {
			return errors.Wrap(err, "redis connect")
		}
	}

	pubsub := rdb.Subscribe(context.WithoutCancel(ctx))

	s.mu.Lock()
	s.rdb = rdb
	s.pubsub = pubsub
	s.principal = principal
	s.mu.Unlock()

	s.wg.Add(1)
	go s.dispatch(pubsub.Channel())

	log.InfoContext(ctx, "Redis broker connected", "addr", s.cfg.Addr, "principal", principal)
	s.notify(true)
	return nil
}

func (s *RedisBroker) dispatch(ch <-chan *redis.Message) {
	defer s.wg.Done()
	for msg := range ch {
		s.mu.RLock()
		subs := make([]*redisSubscription, 0, len(s.handlers[msg.Channel]))
		for sub := range s.handlers[msg.Channel] {
			subs = append(subs, sub)
		}
		s.mu.RUnlock()

		for _, sub := range subs {
			sub.handler(logger.WithTraceID(context.Background(), consts.TracePrefixPush), []byte(msg.Payload))
		}
	}
}

func (s *RedisBroker) notify(connected bool) {
	metrics.SetTransportConnected(connected)
	s.mu.RLock()
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(connected)
	}
}

func (s *RedisBroker) OnStateChange(fn func(connected bool)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *RedisBroker) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pubsub != nil && !s.closed
}

func (s *RedisBroker) Subscribe(topic string, h Handler) (Subscription, error) {
	s.mu.Lock()
	if s.pubsub == nil || s.closed {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	channel, ok := redispkg.Channel(topic, s.principal)
	if !ok {
		s.mu.Unlock()
		return nil, errors.Errorf("redis broker: cannot resolve %s", topic)
	}
	sub := &redisSubscription{broker: s, topic: topic, channel: channel, handler: h}
	set, exists := s.handlers[channel]
	if !exists {
		set = make(map[*redisSubscription]struct{})
		s.handlers[channel] = set
	}
	set[sub] = struct{}{}
	pubsub := s.pubsub
	s.mu.Unlock()

	if !exists {
		if err := pubsub.Subscribe(context.Background(), channel); err != nil {
			s.remove(sub)
			return nil, errors.Wrapf(err, "subscribe %s", channel)
		}
	}
	return sub, nil
}

// remove 移除订阅，返回该频道是否已无订阅者
func (s *RedisBroker) remove(sub *redisSubscription) (*redis.PubSub, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.handlers[sub.channel]
	if !ok {
		return s.pubsub, false
	}
	if _, ok = set[sub]; !ok {
		return s.pubsub, false
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(s.handlers, sub.channel)
		return s.pubsub, true
	}
	return s.pubsub, false
}

func (s *RedisBroker) Publish(ctx context.Context, destination string, payload []byte) error {
	s.mu.RLock()
	rdb, principal, connected := s.rdb, s.principal, s.pubsub != nil && !s.closed
	s.mu.RUnlock()
	if !connected {
		return ErrNotConnected
	}

	channel, ok := redispkg.Channel(destination, principal)
	if !ok {
		return errors.Errorf("redis broker: cannot resolve %s", destination)
	}
	body, err := json.Marshal(&RedisEnvelope{Principal: principal, Payload: payload})
	if err != nil {
		return err
	}
	if err = rdb.Publish(ctx, channel, body).Err(); err != nil {
		return errors.Wrapf(err, "publish %s", channel)
	}
	return nil
}

func (s *RedisBroker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pubsub, rdb := s.pubsub, s.rdb
	s.mu.Unlock()

	var err error
	if pubsub != nil {
		err = pubsub.Close()
	}
	s.wg.Wait()
	if rdb != nil {
		if cerr := rdb.Close(); err == nil {
			err = cerr
		}
	}
	metrics.SetTransportConnected(false)
	return err
}

type redisSubscription struct {
	broker  *RedisBroker
	topic   string
	channel string
	handler Handler
}

func (s *redisSubscription) Topic() string { return s.topic }

func (s *redisSubscription) Unsubscribe() error {
	pubsub, last := s.broker.remove(s)
	if !last || pubsub == nil {
		return nil
	}
	return pubsub.Unsubscribe(context.Background(), s.channel)
}
