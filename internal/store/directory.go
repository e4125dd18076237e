package store

import (
	"Vibeshare/internal/model"
	"slices"
	"sync"
)

// Directory 会话目录，始终按最后一条消息时间倒序，无消息的会话排在最后
type Directory struct {
	mu       sync.RWMutex
	items    []model.Conversation
	notifier *Notifier
}

func NewDirectory(n *Notifier) *Directory {
	return &Directory{notifier: n}
}

// Replace 全量替换（REST 拉取结果），同 ID 只保留第一条
func (d *Directory) Replace(convs []model.Conversation) {
	items := make([]model.Conversation, 0, len(convs))
	seen := make(map[int64]struct{}, len(convs))
	for _, c := range convs {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		items = append(items, cloneConversation(c))
	}
	sortByRecency(items)

	d.mu.Lock()
	d.items = items
	d.mu.Unlock()

	d.notifier.Publish(Event{Type: EventConversations})
}

// UpdateLastMessage 更新会话预览并重新排序；会话不存在时插入占位会话
func (d *Directory) UpdateLastMessage(convID int64, msg model.Message) {
	m := msg

	d.mu.Lock()
	idx := d.indexOf(convID)
	if idx < 0 {
		d.items = append(d.items, model.Conversation{
			ID:          convID,
			LastMessage: &m,
			CreatedAt:   msg.Timestamp,
		})
	} else {
		d.items[idx].LastMessage = &m
	}
	sortByRecency(d.items)
	d.mu.Unlock()

	d.notifier.Publish(Event{Type: EventConversations, ConversationID: convID})
}

// Upsert 插入或覆盖单个会话
func (d *Directory) Upsert(conv model.Conversation) {
	c := cloneConversation(conv)

	d.mu.Lock()
	if idx := d.indexOf(conv.ID); idx >= 0 {
		if c.LastMessage == nil {
			c.LastMessage = d.items[idx].LastMessage
		}
		d.items[idx] = c
	} else {
		d.items = append(d.items, c)
	}
	sortByRecency(d.items)
	d.mu.Unlock()

	d.notifier.Publish(Event{Type: EventConversations, ConversationID: conv.ID})
}

func (d *Directory) Get(convID int64) (model.Conversation, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	idx := d.indexOf(convID)
	if idx < 0 {
		return model.Conversation{}, false
	}
	return cloneConversation(d.items[idx]), true
}

// List 返回当前顺序的副本
func (d *Directory) List() []model.Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res := make([]model.Conversation, 0, len(d.items))
	for _, c := range d.items {
		res = append(res, cloneConversation(c))
	}
	return res
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}

func (d *Directory) indexOf(convID int64) int {
	for i := range d.items {
		if d.items[i].ID == convID {
			return i
		}
	}
	return -1
}

func sortByRecency(items []model.Conversation) {
	slices.SortStableFunc(items, func(a, b model.Conversation) int {
		return b.LastActivity().Compare(a.LastActivity())
	})
}

func cloneConversation(c model.Conversation) model.Conversation {
	out := c
	if c.Participants != nil {
		out.Participants = slices.Clone(c.Participants)
	}
	if c.LastMessage != nil {
		m := *c.LastMessage
		out.LastMessage = &m
	}
	return out
}
