package store

import (
	"Vibeshare/internal/model"
	"slices"
	"sync"
	"time"
)

// PresenceTracker 在线状态（按用户名）与输入状态（按会话+用户名）
type PresenceTracker struct {
	mu       sync.RWMutex
	online   map[string]model.PresenceStatus
	typing   map[int64]map[string]model.TypingStatus
	now      func() time.Time
	notifier *Notifier
}

func NewPresenceTracker(n *Notifier) *PresenceTracker {
	return &PresenceTracker{
		online:   make(map[string]model.PresenceStatus),
		typing:   make(map[int64]map[string]model.TypingStatus),
		now:      time.Now,
		notifier: n,
	}
}

// UpdatePresence 后写覆盖
func (p *PresenceTracker) UpdatePresence(status model.PresenceStatus) {
	p.mu.Lock()
	p.online[status.Username] = status
	p.mu.Unlock()

	p.notifier.Publish(Event{Type: EventPresence, Username: status.Username})
}

func (p *PresenceTracker) Presence(username string) (model.PresenceStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.online[username]
	return s, ok
}

// IsOnline 未收到过状态的用户视为离线
func (p *PresenceTracker) IsOnline(username string) bool {
	s, _ := p.Presence(username)
	return s.IsOnline
}

// UpdateTyping 记录输入状态
func (p *PresenceTracker) UpdateTyping(status model.TypingStatus) {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = p.now()
	}

	p.mu.Lock()
	users, ok := p.typing[status.ConversationID]
	if !ok {
		users = make(map[string]model.TypingStatus)
		p.typing[status.ConversationID] = users
	}
	users[status.Username] = status
	p.mu.Unlock()

	p.notifier.Publish(Event{Type: EventTyping, ConversationID: status.ConversationID, Username: status.Username})
}

func (p *PresenceTracker) IsTyping(convID int64, username string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.typing[convID][username].IsTyping
}

// TypingUsers 会话内正在输入的用户，按用户名排序
func (p *PresenceTracker) TypingUsers(convID int64) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res := make([]string, 0)
	for name, s := range p.typing[convID] {
		if s.IsTyping {
			res = append(res, name)
		}
	}
	slices.Sort(res)
	return res
}

// ExpireTyping 将超过 ttl 未刷新的输入状态置为 false，返回清理数量
func (p *PresenceTracker) ExpireTyping(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	deadline := p.now().Add(-ttl)
	var expired []model.TypingStatus

	p.mu.Lock()
	for _, users := range p.typing {
		for name, s := range users {
			if s.IsTyping && s.UpdatedAt.Before(deadline) {
				s.IsTyping = false
				users[name] = s
				expired = append(expired, s)
			}
		}
	}
	p.mu.Unlock()

	for _, s := range expired {
		p.notifier.Publish(Event{Type: EventTyping, ConversationID: s.ConversationID, Username: s.Username})
	}
	return len(expired)
}
