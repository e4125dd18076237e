package mocks

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/pkg/restapi"
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

type ChatAPIMock struct {
	mock.Mock
}

func (m *ChatAPIMock) GetConversations(ctx context.Context) ([]dto.ConversationDTO, error) {
	args := m.Called(ctx)
	var list []dto.ConversationDTO
	if val := args.Get(0); val != nil {
		list = val.([]dto.ConversationDTO)
	}
	return list, args.Error(1)
}

func (m *ChatAPIMock) CreateOrGetConversation(ctx context.Context, req *dto.ChatRequest) (*dto.ConversationDTO, error) {
	args := m.Called(ctx, req)
	var conv *dto.ConversationDTO
	if val := args.Get(0); val != nil {
		conv = val.(*dto.ConversationDTO)
	}
	return conv, args.Error(1)
}

func (m *ChatAPIMock) GetMessages(ctx context.Context, conversationID int64) ([]dto.MessageDTO, error) {
	args := m.Called(ctx, conversationID)
	var list []dto.MessageDTO
	if val := args.Get(0); val != nil {
		list = val.([]dto.MessageDTO)
	}
	return list, args.Error(1)
}

func (m *ChatAPIMock) UploadAttachment(ctx context.Context, filename string, r io.Reader) (string, error) {
	args := m.Called(ctx, filename, r)
	return args.String(0), args.Error(1)
}

type PostActionAPIMock struct {
	mock.Mock
}

func (m *PostActionAPIMock) GetPost(ctx context.Context, postID int64) (*dto.PostDTO, error) {
	args := m.Called(ctx, postID)
	return postArg(args.Get(0)), args.Error(1)
}

func (m *PostActionAPIMock) LikePost(ctx context.Context, postID int64) (*dto.PostDTO, error) {
	args := m.Called(ctx, postID)
	return postArg(args.Get(0)), args.Error(1)
}

func (m *PostActionAPIMock) UnlikePost(ctx context.Context, postID int64) (*dto.PostDTO, error) {
	args := m.Called(ctx, postID)
	return postArg(args.Get(0)), args.Error(1)
}

func (m *PostActionAPIMock) AddBookmark(ctx context.Context, postID int64) error {
	return m.Called(ctx, postID).Error(0)
}

func (m *PostActionAPIMock) RemoveBookmark(ctx context.Context, postID int64) error {
	return m.Called(ctx, postID).Error(0)
}

func (m *PostActionAPIMock) GetBookmarks(ctx context.Context) ([]dto.BookmarkDTO, error) {
	args := m.Called(ctx)
	var list []dto.BookmarkDTO
	if val := args.Get(0); val != nil {
		list = val.([]dto.BookmarkDTO)
	}
	return list, args.Error(1)
}

func (m *PostActionAPIMock) IsBookmarked(ctx context.Context, postID int64) (bool, error) {
	args := m.Called(ctx, postID)
	return args.Bool(0), args.Error(1)
}

func (m *PostActionAPIMock) GetComments(ctx context.Context, postID int64) ([]dto.CommentDTO, error) {
	args := m.Called(ctx, postID)
	var list []dto.CommentDTO
	if val := args.Get(0); val != nil {
		list = val.([]dto.CommentDTO)
	}
	return list, args.Error(1)
}

func (m *PostActionAPIMock) AddComment(ctx context.Context, req *dto.CommentCreateDTO) (*dto.CommentDTO, error) {
	args := m.Called(ctx, req)
	var comment *dto.CommentDTO
	if val := args.Get(0); val != nil {
		comment = val.(*dto.CommentDTO)
	}
	return comment, args.Error(1)
}

func (m *PostActionAPIMock) DeleteComment(ctx context.Context, commentID, userID int64) error {
	return m.Called(ctx, commentID, userID).Error(0)
}

func postArg(val any) *dto.PostDTO {
	if val == nil {
		return nil
	}
	return val.(*dto.PostDTO)
}

type UserAPIMock struct {
	mock.Mock
}

func (m *UserAPIMock) Me(ctx context.Context) (*dto.UserDTO, error) {
	args := m.Called(ctx)
	var user *dto.UserDTO
	if val := args.Get(0); val != nil {
		user = val.(*dto.UserDTO)
	}
	return user, args.Error(1)
}

func (m *UserAPIMock) Follow(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *UserAPIMock) Unfollow(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type NotificationAPIMock struct {
	mock.Mock
}

func (m *NotificationAPIMock) GetUnreadNotifications(ctx context.Context, userID int64) ([]dto.NotificationDTO, error) {
	args := m.Called(ctx, userID)
	var list []dto.NotificationDTO
	if val := args.Get(0); val != nil {
		list = val.([]dto.NotificationDTO)
	}
	return list, args.Error(1)
}

func (m *NotificationAPIMock) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	return m.Called(ctx, notificationID).Error(0)
}

func (m *NotificationAPIMock) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *NotificationAPIMock) CreateNotification(ctx context.Context, req *dto.NotificationCreateDTO) (*dto.NotificationDTO, error) {
	args := m.Called(ctx, req)
	var n *dto.NotificationDTO
	if val := args.Get(0); val != nil {
		n = val.(*dto.NotificationDTO)
	}
	return n, args.Error(1)
}

var (
	_ restapi.ChatAPI         = (*ChatAPIMock)(nil)
	_ restapi.PostActionAPI   = (*PostActionAPIMock)(nil)
	_ restapi.UserAPI         = (*UserAPIMock)(nil)
	_ restapi.NotificationAPI = (*NotificationAPIMock)(nil)
)
