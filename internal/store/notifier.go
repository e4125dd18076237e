package store

import (
	"Vibeshare/internal/model"
	"sync"
)

// EventType 状态变更事件类型
type EventType string

const (
	EventConversations EventType = "conversations"
	EventMessages      EventType = "messages"
	EventActive        EventType = "active"
	EventTyping        EventType = "typing"
	EventPresence      EventType = "presence"
	EventInteraction   EventType = "interaction"
	EventFollow        EventType = "follow"
	EventNotifications EventType = "notifications"
	EventAlert         EventType = "alert"
)

// AlertKind 区分消息提醒与其它通知提醒
type AlertKind string

const (
	AlertMessage      AlertKind = "MESSAGE"
	AlertNotification AlertKind = "NOTIFICATION"
)

// Alert 需要调用方以 toast 等形式展示的带外提醒
type Alert struct {
	Kind             AlertKind              `json:"kind"`
	NotificationType model.NotificationType `json:"notificationType,omitempty"`
	ConversationID   int64                  `json:"conversationId,omitempty"`
	Title            string                 `json:"title"`
	Body             string                 `json:"body"`
}

// Event 状态变更通知，UI 收到后重新读取对应的派生状态
type Event struct {
	Type           EventType `json:"type"`
	ConversationID int64     `json:"conversationId,omitempty"`
	PostID         int64     `json:"postId,omitempty"`
	UserID         int64     `json:"userId,omitempty"`
	Username       string    `json:"username,omitempty"`
	Alert          *Alert    `json:"alert,omitempty"`
}

// Notifier 事件扇出，慢订阅者会被丢弃事件而不是阻塞写入方
type Notifier struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[uint64]chan Event)}
}

// Subscribe 注册订阅者，返回事件通道与取消函数
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish 非阻塞投递
func (n *Notifier) Publish(e Event) {
	if n == nil {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
