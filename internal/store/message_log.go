package store

import (
	"Vibeshare/internal/model"
	"slices"
	"sync"
)

type conversationLog struct {
	messages []model.Message
	index    map[int64]int
}

func newConversationLog(capacity int) *conversationLog {
	return &conversationLog{
		messages: make([]model.Message, 0, capacity),
		index:    make(map[int64]int, capacity),
	}
}

func (l *conversationLog) add(msg model.Message) bool {
	if _, ok := l.index[msg.ID]; ok {
		return false
	}
	l.index[msg.ID] = len(l.messages)
	l.messages = append(l.messages, msg)
	return true
}

// MessageLog 每个会话一份有序消息记录，同一会话内消息 ID 唯一
// 快照为全量替换，推送为去重追加
type MessageLog struct {
	mu       sync.RWMutex
	logs     map[int64]*conversationLog
	notifier *Notifier
}

func NewMessageLog(n *Notifier) *MessageLog {
	return &MessageLog{logs: make(map[int64]*conversationLog), notifier: n}
}

// Replace 用 REST 快照覆盖会话记录，快照内重复 ID 只保留第一条
func (l *MessageLog) Replace(convID int64, msgs []model.Message) {
	log := newConversationLog(len(msgs))
	for _, m := range msgs {
		log.add(m)
	}

	l.mu.Lock()
	l.logs[convID] = log
	l.mu.Unlock()

	l.notifier.Publish(Event{Type: EventMessages, ConversationID: convID})
}

// Append 追加一条推送消息，ID 已存在时返回 false 且不做任何修改
func (l *MessageLog) Append(convID int64, msg model.Message) bool {
	l.mu.Lock()
	log, ok := l.logs[convID]
	if !ok {
		log = newConversationLog(8)
		l.logs[convID] = log
	}
	added := log.add(msg)
	l.mu.Unlock()

	if added {
		l.notifier.Publish(Event{Type: EventMessages, ConversationID: convID})
	}
	return added
}

// MarkRead 将消息标记为已读，消息不存在时不做任何事
func (l *MessageLog) MarkRead(convID, messageID int64) bool {
	l.mu.Lock()
	log, ok := l.logs[convID]
	if !ok {
		l.mu.Unlock()
		return false
	}
	idx, ok := log.index[messageID]
	if !ok {
		l.mu.Unlock()
		return false
	}
	changed := !log.messages[idx].IsRead
	log.messages[idx].IsRead = true
	l.mu.Unlock()

	if changed {
		l.notifier.Publish(Event{Type: EventMessages, ConversationID: convID})
	}
	return true
}

// Messages 返回会话记录副本，未加载过的会话返回 nil
func (l *MessageLog) Messages(convID int64) []model.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	log, ok := l.logs[convID]
	if !ok {
		return nil
	}
	return slices.Clone(log.messages)
}

func (l *MessageLog) Loaded(convID int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.logs[convID]
	return ok
}

// UnreadCount 他人发送且未读的消息数
func (l *MessageLog) UnreadCount(convID, selfID int64) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	log, ok := l.logs[convID]
	if !ok {
		return 0
	}
	n := 0
	for _, m := range log.messages {
		if !m.IsRead && m.SenderID != selfID {
			n++
		}
	}
	return n
}
