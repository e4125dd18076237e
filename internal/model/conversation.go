package model

import "time"

// Conversation 会话，目录中按最后一条消息时间倒序排列
type Conversation struct {
	ID           int64     `json:"id"`
	IsGroup      bool      `json:"isGroup"`
	ChatName     string    `json:"chatName,omitempty"`
	ChatImage    string    `json:"chatImage,omitempty"`
	Participants []User    `json:"participants"`
	LastMessage  *Message  `json:"lastMessage"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LastActivity 最后一条消息时间，没有消息时返回零值
func (c *Conversation) LastActivity() time.Time {
	if c.LastMessage == nil {
		return time.Time{}
	}
	return c.LastMessage.Timestamp
}

// ConversationView 目录项 + 派生的未读数
type ConversationView struct {
	Conversation
	UnreadCount int `json:"unreadCount"`
}
