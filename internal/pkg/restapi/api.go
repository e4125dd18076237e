package restapi

import (
	"Vibeshare/internal/api/dto"
	"context"
	"io"
)

// ChatAPI 聊天相关后端接口
type ChatAPI interface {
	GetConversations(ctx context.Context) ([]dto.ConversationDTO, error)
	CreateOrGetConversation(ctx context.Context, req *dto.ChatRequest) (*dto.ConversationDTO, error)
	GetMessages(ctx context.Context, conversationID int64) ([]dto.MessageDTO, error)
	UploadAttachment(ctx context.Context, filename string, r io.Reader) (string, error)
}

// PostActionAPI 帖子交互后端接口
type PostActionAPI interface {
	GetPost(ctx context.Context, postID int64) (*dto.PostDTO, error)
	LikePost(ctx context.Context, postID int64) (*dto.PostDTO, error)
	UnlikePost(ctx context.Context, postID int64) (*dto.PostDTO, error)
	AddBookmark(ctx context.Context, postID int64) error
	RemoveBookmark(ctx context.Context, postID int64) error
	GetBookmarks(ctx context.Context) ([]dto.BookmarkDTO, error)
	IsBookmarked(ctx context.Context, postID int64) (bool, error)
	GetComments(ctx context.Context, postID int64) ([]dto.CommentDTO, error)
	AddComment(ctx context.Context, req *dto.CommentCreateDTO) (*dto.CommentDTO, error)
	DeleteComment(ctx context.Context, commentID, userID int64) error
}

// UserAPI 用户相关后端接口
type UserAPI interface {
	Me(ctx context.Context) (*dto.UserDTO, error)
	Follow(ctx context.Context, userID int64) error
	Unfollow(ctx context.Context, userID int64) error
}

// NotificationAPI 通知后端接口
type NotificationAPI interface {
	GetUnreadNotifications(ctx context.Context, userID int64) ([]dto.NotificationDTO, error)
	MarkNotificationRead(ctx context.Context, notificationID int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) error
	CreateNotification(ctx context.Context, req *dto.NotificationCreateDTO) (*dto.NotificationDTO, error)
}

var (
	_ ChatAPI         = (*Client)(nil)
	_ PostActionAPI   = (*Client)(nil)
	_ UserAPI         = (*Client)(nil)
	_ NotificationAPI = (*Client)(nil)
)
