package dto

// NotificationDTO 后端通知
type NotificationDTO struct {
	ID            int64     `json:"id"`
	RecipientID   int64     `json:"recipientId"`
	ActorID       int64     `json:"actorId"`
	ActorUsername string    `json:"actorUsername"`
	Type          string    `json:"type" validate:"required,oneof=LIKE COMMENT FOLLOW MESSAGE"`
	Message       string    `json:"message"`
	SourceID      string    `json:"sourceId"`
	ReadFlag      bool      `json:"readFlag"`
	CreatedAt     LocalTime `json:"createdAt"`
}

// NotificationCreateDTO 创建通知请求
type NotificationCreateDTO struct {
	RecipientID int64  `json:"recipientId" validate:"required"`
	ActorID     int64  `json:"actorId" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=LIKE COMMENT FOLLOW MESSAGE"`
	Message     string `json:"message"`
	SourceID    string `json:"sourceId"`
}

// UnreadCountDTO 未读数返回
type UnreadCountDTO struct {
	UnreadCount int `json:"unreadCount"`
}
