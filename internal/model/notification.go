package model

import "time"

// NotificationType 通知类型
type NotificationType string

const (
	NotificationLike    NotificationType = "LIKE"
	NotificationComment NotificationType = "COMMENT"
	NotificationFollow  NotificationType = "FOLLOW"
	NotificationMessage NotificationType = "MESSAGE"
)

type Notification struct {
	ID            int64            `json:"id"`
	RecipientID   int64            `json:"recipientId"`
	ActorID       int64            `json:"actorId"`
	ActorUsername string           `json:"actorUsername"`
	Type          NotificationType `json:"type"`
	Message       string           `json:"message,omitempty"`
	SourceID      string           `json:"sourceId,omitempty"`
	ReadFlag      bool             `json:"readFlag"`
	CreatedAt     time.Time        `json:"createdAt"`
}
