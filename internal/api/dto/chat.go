package dto

// MessageDTO 后端消息（REST 与推送共用）
type MessageDTO struct {
	ID             int64     `json:"id" validate:"required"`
	ConversationID int64     `json:"conversationId"`
	SenderID       int64     `json:"senderId"`
	SenderName     string    `json:"senderName"`
	Content        string    `json:"content"`
	Timestamp      LocalTime `json:"timestamp"`
	Type           string    `json:"type" validate:"omitempty,oneof=TEXT IMAGE VIDEO VOICE"`
	AttachmentURL  string    `json:"attachmentUrl,omitempty"`
	IsRead         bool      `json:"isRead"`
}

// ConversationDTO 后端会话
type ConversationDTO struct {
	ID          int64       `json:"id" validate:"required"`
	IsGroup     bool        `json:"isGroup"`
	ChatName    string      `json:"chatName"`
	ChatImage   string      `json:"chatImage"`
	Users       []UserDTO   `json:"users"`
	LastMessage *MessageDTO `json:"lastMessage"`
	CreatedAt   LocalTime   `json:"createdAt"`
}

// ChatRequest 创建/获取会话请求
type ChatRequest struct {
	RecipientID int64   `json:"recipientId,omitempty" validate:"required_without=UserIDs"`
	UserIDs     []int64 `json:"userIds,omitempty" validate:"omitempty,min=1,dive,gt=0"`
	ChatName    string  `json:"chatName,omitempty" validate:"omitempty,max=100"`
	IsGroup     bool    `json:"isGroup"`
}

// TypingStatusDTO 输入状态推送
type TypingStatusDTO struct {
	Username       string `json:"username" validate:"required"`
	IsTyping       bool   `json:"isTyping"`
	ConversationID int64  `json:"conversationId"`
}

// UserStatusDTO 在线状态推送
type UserStatusDTO struct {
	Username string    `json:"username" validate:"required"`
	IsOnline bool      `json:"isOnline"`
	LastSeen LocalTime `json:"lastSeen"`
}

// ReadReceiptDTO 已读回执推送
type ReadReceiptDTO struct {
	MessageID      int64  `json:"messageId" validate:"required"`
	ConversationID int64  `json:"conversationId"`
	ReaderUsername string `json:"readerUsername"`
}

// ChatSendPayload /app/chat.send 发布体
type ChatSendPayload struct {
	ConversationID int64  `json:"conversationId"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	AttachmentURL  string `json:"attachmentUrl,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// ChatTypingPayload /app/chat.typing 发布体
type ChatTypingPayload struct {
	ConversationID int64 `json:"conversationId"`
	IsTyping       bool  `json:"isTyping"`
}

// ChatReadPayload /app/chat.read 发布体
type ChatReadPayload struct {
	MessageID      int64 `json:"messageId"`
	ConversationID int64 `json:"conversationId"`
}

// AttachmentDTO 附件上传结果
type AttachmentDTO struct {
	URL string `json:"url"`
}

// SendMessageReq 本地 API 发送消息
type SendMessageReq struct {
	Content       string `json:"content" binding:"max=5000"`
	Type          string `json:"type" binding:"omitempty,oneof=TEXT IMAGE VIDEO VOICE"`
	AttachmentURL string `json:"attachmentUrl"`
}

// TypingReq 本地 API 输入状态
type TypingReq struct {
	IsTyping bool `json:"isTyping"`
}

// SetActiveReq 本地 API 切换当前会话，conversationId 为空表示关闭
type SetActiveReq struct {
	ConversationID *int64 `json:"conversationId"`
	Refresh        *bool  `json:"refresh"` // 默认 true：切换后拉取消息快照
}

// MessagesDTO 会话消息记录 + 派生状态
type MessagesDTO struct {
	ConversationID int64    `json:"conversationId"`
	Messages       any      `json:"messages"`
	TypingUsers    []string `json:"typingUsers"`
	UnreadCount    int      `json:"unreadCount"`
}

// SessionDTO 推送会话状态
type SessionDTO struct {
	State                string `json:"state"`
	ActiveConversationID *int64 `json:"activeConversationId"`
	UserID               int64  `json:"userId"`
	Username             string `json:"username"`
	TotalUnread          int    `json:"totalUnread"`
	UnreadNotifications  int    `json:"unreadNotifications"`
}
