package store

import "sync"

// NotificationStore 未读通知计数，不会小于 0
type NotificationStore struct {
	mu       sync.RWMutex
	unread   int
	notifier *Notifier
}

func NewNotificationStore(n *Notifier) *NotificationStore {
	return &NotificationStore{notifier: n}
}

func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

func (s *NotificationStore) SetUnreadCount(n int) {
	s.set(func(int) int { return n })
}

func (s *NotificationStore) Increment() {
	s.set(func(cur int) int { return cur + 1 })
}

func (s *NotificationStore) Decrement() {
	s.set(func(cur int) int { return cur - 1 })
}

func (s *NotificationStore) set(fn func(int) int) {
	s.mu.Lock()
	v := fn(s.unread)
	if v < 0 {
		v = 0
	}
	s.unread = v
	s.mu.Unlock()

	s.notifier.Publish(Event{Type: EventNotifications})
}
