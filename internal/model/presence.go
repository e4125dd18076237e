package model

import "time"

// PresenceStatus 用户在线状态，后写覆盖
type PresenceStatus struct {
	Username string    `json:"username"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// TypingStatus 会话内某用户的输入状态，不持久化
type TypingStatus struct {
	ConversationID int64     `json:"conversationId"`
	Username       string    `json:"username"`
	IsTyping       bool      `json:"isTyping"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ReadReceipt 已读回执
type ReadReceipt struct {
	ConversationID int64  `json:"conversationId"`
	MessageID      int64  `json:"messageId"`
	ReaderUsername string `json:"readerUsername"`
}
