package model

import "time"

// MessageType 消息类型
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
	MessageTypeVideo MessageType = "VIDEO"
	MessageTypeVoice MessageType = "VOICE"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeVoice:
		return true
	}
	return false
}

// Message 会话内的单条消息，会话内按 ID 唯一
type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversationId"`
	SenderID       int64       `json:"senderId"`
	SenderName     string      `json:"senderName"`
	Content        string      `json:"content"`
	Timestamp      time.Time   `json:"timestamp"`
	Type           MessageType `json:"type"`
	AttachmentURL  string      `json:"attachmentUrl,omitempty"`
	IsRead         bool        `json:"isRead"`
}
