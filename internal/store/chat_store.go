package store

import (
	"Vibeshare/internal/model"
	"sync"
)

// ChatStore 聊天相关状态的聚合：目录、消息记录、在线/输入状态、当前会话、本地用户
type ChatStore struct {
	Directory *Directory
	Messages  *MessageLog
	Presence  *PresenceTracker

	mu       sync.RWMutex
	active   *int64
	self     model.User
	notifier *Notifier
}

func NewChatStore(n *Notifier) *ChatStore {
	return &ChatStore{
		Directory: NewDirectory(n),
		Messages:  NewMessageLog(n),
		Presence:  NewPresenceTracker(n),
		notifier:  n,
	}
}

// SetActive 设置当前会话，nil 表示关闭；返回是否发生变化
func (s *ChatStore) SetActive(id *int64) bool {
	s.mu.Lock()
	if sameID(s.active, id) {
		s.mu.Unlock()
		return false
	}
	if id == nil {
		s.active = nil
	} else {
		v := *id
		s.active = &v
	}
	s.mu.Unlock()

	evt := Event{Type: EventActive}
	if id != nil {
		evt.ConversationID = *id
	}
	s.notifier.Publish(evt)
	return true
}

// ActiveID 当前会话 ID
func (s *ChatStore) ActiveID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return 0, false
	}
	return *s.active, true
}

func (s *ChatStore) IsActive(convID int64) bool {
	id, ok := s.ActiveID()
	return ok && id == convID
}

func (s *ChatStore) SetSelf(u model.User) {
	s.mu.Lock()
	s.self = u
	s.mu.Unlock()
}

func (s *ChatStore) Self() model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.self
}

// ConversationViews 目录 + 每个会话的未读数
func (s *ChatStore) ConversationViews() []model.ConversationView {
	selfID := s.Self().ID
	convs := s.Directory.List()
	views := make([]model.ConversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, model.ConversationView{
			Conversation: c,
			UnreadCount:  s.Messages.UnreadCount(c.ID, selfID),
		})
	}
	return views
}

// TotalUnread 所有已加载会话的未读消息总数
func (s *ChatStore) TotalUnread() int {
	total := 0
	for _, v := range s.ConversationViews() {
		total += v.UnreadCount
	}
	return total
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
