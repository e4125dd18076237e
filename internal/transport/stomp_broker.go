package transport

import (
	"Vibeshare/internal/api/config"
	"Vibeshare/internal/pkg/consts"
	"Vibeshare/internal/pkg/logger"
	"Vibeshare/internal/pkg/metrics"
	"Vibeshare/internal/pkg/stomp"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const defaultReconnectDelay = 5 * time.Second

// StompBroker STOMP over websocket，断线后按固定间隔重连
type StompBroker struct {
	url            string
	host           string
	heartbeat      time.Duration
	reconnectDelay time.Duration

	mu        sync.RWMutex
	conn      *stomp.Conn
	listeners []func(bool)
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

func NewStompBroker(cfg config.TransportConfig) *StompBroker {
	delay := time.Duration(cfg.ReconnectDelay) * time.Millisecond
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	return &StompBroker{
		url:            cfg.URL,
		host:           cfg.Host,
		heartbeat:      time.Duration(cfg.Heartbeat) * time.Millisecond,
		reconnectDelay: delay,
	}
}

// Connect 启动连接循环后立即返回
func (s *StompBroker) Connect(ctx context.Context, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrBrokerClosed
	}
	if s.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(runCtx, credential)
	return nil
}

func (s *StompBroker) run(ctx context.Context, credential string) {
	defer s.wg.Done()

	opts := stomp.Options{
		Host:      s.host,
		HeartBeat: s.heartbeat,
		Headers:   map[string]string{"Authorization": "Bearer " + credential},
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			metrics.IncTransportReconnect()
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnectDelay):
			}
		}

		conn, err := stomp.Dial(ctx, s.url, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WarnContext(ctx, "STOMP 连接失败，稍后重试", "url", s.url, "delay", s.reconnectDelay, "err", err)
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conn = conn
		s.mu.Unlock()

		log.InfoContext(ctx, "STOMP connected", "url", s.url)
		s.notify(true)

		select {
		case <-ctx.Done():
			_ = conn.Close()
			s.setDisconnected(conn)
			return
		case <-conn.Done():
		}

		log.WarnContext(ctx, "STOMP 连接断开", "err", conn.Err())
		s.setDisconnected(conn)
		s.notify(false)
	}
}

func (s *StompBroker) setDisconnected(conn *stomp.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
}

func (s *StompBroker) notify(connected bool) {
	metrics.SetTransportConnected(connected)
	s.mu.RLock()
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(connected)
	}
}

func (s *StompBroker) OnStateChange(fn func(connected bool)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *StompBroker) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

func (s *StompBroker) current() (*stomp.Conn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

// Subscribe 在当前连接上订阅；每条推送在独立的 push trace 下处理
func (s *StompBroker) Subscribe(topic string, h Handler) (Subscription, error) {
	conn, err := s.current()
	if err != nil {
		return nil, err
	}
	id, err := conn.Subscribe(topic, func(f *stomp.Frame) {
		h(logger.WithTraceID(context.Background(), consts.TracePrefixPush), f.Body)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "subscribe %s", topic)
	}
	return &stompSubscription{conn: conn, id: id, topic: topic}, nil
}

func (s *StompBroker) Publish(_ context.Context, destination string, payload []byte) error {
	conn, err := s.current()
	if err != nil {
		return err
	}
	if err = conn.Send(destination, "application/json", payload); err != nil {
		return errors.Wrapf(err, "publish %s", destination)
	}
	return nil
}

// Close 停止重连并断开
func (s *StompBroker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	metrics.SetTransportConnected(false)
	return nil
}

type stompSubscription struct {
	conn  *stomp.Conn
	id    string
	topic string
}

func (s *stompSubscription) Topic() string { return s.topic }

// Unsubscribe 所属连接已断开时为空操作
func (s *stompSubscription) Unsubscribe() error {
	select {
	case <-s.conn.Done():
		return nil
	default:
	}
	return s.conn.Unsubscribe(s.id)
}
