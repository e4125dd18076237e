package transport

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/model"
	"Vibeshare/internal/pkg/metrics"
	"context"
	"errors"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// State 会话连接状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

var ErrCredentialMissing = errors.New("transport: credential missing")

// EventHandler 推送事件的消费者
type EventHandler interface {
	HandlePresence(ctx context.Context, payload []byte)
	HandleUserMessage(ctx context.Context, payload []byte)
	HandleNotification(ctx context.Context, payload []byte)
	HandleConversationMessage(ctx context.Context, conversationID int64, payload []byte)
	HandleTyping(ctx context.Context, conversationID int64, payload []byte)
	HandleReadReceipt(ctx context.Context, conversationID int64, payload []byte)
}

// Session 管理一条推送连接上的会话级订阅与当前会话的订阅
type Session struct {
	broker  Broker
	handler EventHandler
	now     func() time.Time

	state atomic.Int32

	mu          sync.Mutex
	closed      bool
	active      *int64
	sessionSubs []Subscription
	convSubs    []Subscription
}

func NewSession(broker Broker, handler EventHandler) *Session {
	s := &Session{broker: broker, handler: handler, now: time.Now}
	broker.OnStateChange(s.onBrokerState)
	return s
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// ActiveConversation 当前订阅的会话
func (s *Session) ActiveConversation() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return 0, false
	}
	return *s.active, true
}

// Connect 发起连接，连接结果通过 broker 回调异步推进状态
func (s *Session) Connect(ctx context.Context, credential string) error {
	if credential == "" {
		return ErrCredentialMissing
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrBrokerClosed
	}
	s.mu.Unlock()

	s.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting))
	if err := s.broker.Connect(ctx, credential); err != nil {
		s.state.Store(int32(StateDisconnected))
		log.ErrorContext(ctx, "推送通道连接失败", "err", err)
		return err
	}
	return nil
}

func (s *Session) onBrokerState(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if !connected {
		// 旧订阅随连接失效，等待 broker 重连
		s.sessionSubs = nil
		s.convSubs = nil
		s.state.Store(int32(StateConnecting))
		return
	}

	s.state.Store(int32(StateConnected))
	s.unsubscribeLocked(s.sessionSubs)
	s.unsubscribeLocked(s.convSubs)
	s.sessionSubs = s.subscribeLocked([]subscribeSpec{
		{TopicUserStatus, s.handler.HandlePresence},
		{QueueUserMessages, s.handler.HandleUserMessage},
		{QueueUserNotifications, s.handler.HandleNotification},
	})
	s.convSubs = nil
	if s.active != nil {
		s.convSubs = s.subscribeConversationLocked(*s.active)
	}
}

type subscribeSpec struct {
	topic   string
	handler Handler
}

func (s *Session) subscribeLocked(specs []subscribeSpec) []Subscription {
	subs := make([]Subscription, 0, len(specs))
	for _, spec := range specs {
		sub, err := s.broker.Subscribe(spec.topic, spec.handler)
		if err != nil {
			log.Error("订阅失败", "topic", spec.topic, "err", err)
			continue
		}
		subs = append(subs, sub)
	}
	return subs
}

func (s *Session) subscribeConversationLocked(id int64) []Subscription {
	return s.subscribeLocked([]subscribeSpec{
		{ConversationTopic(id), func(ctx context.Context, payload []byte) {
			s.handler.HandleConversationMessage(ctx, id, payload)
		}},
		{TypingTopic(id), func(ctx context.Context, payload []byte) {
			s.handler.HandleTyping(ctx, id, payload)
		}},
		{ReadTopic(id), func(ctx context.Context, payload []byte) {
			s.handler.HandleReadReceipt(ctx, id, payload)
		}},
	})
}

func (s *Session) unsubscribeLocked(subs []Subscription) {
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn("取消订阅失败", "topic", sub.Topic(), "err", err)
		}
	}
}

// SetActiveConversation 切换当前会话的订阅，id 为 nil 表示关闭；重复设置同一会话不做任何事
func (s *Session) SetActiveConversation(id *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sameConversation(s.active, id) {
		return
	}
	s.unsubscribeLocked(s.convSubs)
	s.convSubs = nil

	if id == nil {
		s.active = nil
		return
	}
	v := *id
	s.active = &v
	if s.Connected() && !s.closed {
		s.convSubs = s.subscribeConversationLocked(v)
	}
}

// PublishMessage 已连接时发布消息，否则丢弃
func (s *Session) PublishMessage(ctx context.Context, conversationID int64, content string, typ model.MessageType, attachmentURL string) error {
	return s.publish(ctx, DestinationSendMessage, &dto.ChatSendPayload{
		ConversationID: conversationID,
		Content:        content,
		Type:           string(typ),
		AttachmentURL:  attachmentURL,
		Timestamp:      s.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

func (s *Session) PublishTyping(ctx context.Context, conversationID int64, isTyping bool) error {
	return s.publish(ctx, DestinationTyping, &dto.ChatTypingPayload{
		ConversationID: conversationID,
		IsTyping:       isTyping,
	})
}

func (s *Session) PublishReadReceipt(ctx context.Context, conversationID, messageID int64) error {
	return s.publish(ctx, DestinationReadReceipt, &dto.ChatReadPayload{
		MessageID:      messageID,
		ConversationID: conversationID,
	})
}

func (s *Session) publish(ctx context.Context, destination string, payload any) error {
	if !s.Connected() {
		log.DebugContext(ctx, "未连接，丢弃上行消息", "destination", destination)
		metrics.IncPublish(destination, metrics.PublishDropped)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err = s.broker.Publish(ctx, destination, body); err != nil {
		if errors.Is(err, ErrNotConnected) {
			metrics.IncPublish(destination, metrics.PublishDropped)
			return nil
		}
		metrics.IncPublish(destination, metrics.PublishFailed)
		log.WarnContext(ctx, "发布失败", "destination", destination, "err", err)
		return err
	}
	metrics.IncPublish(destination, metrics.PublishSent)
	return nil
}

// Close 取消全部订阅并断开
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.unsubscribeLocked(s.convSubs)
	s.unsubscribeLocked(s.sessionSubs)
	s.convSubs = nil
	s.sessionSubs = nil
	s.active = nil
	s.mu.Unlock()

	err := s.broker.Close()
	s.state.Store(int32(StateDisconnected))
	return err
}

func sameConversation(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
