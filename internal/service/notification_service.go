package service

import (
	"Vibeshare/internal/model"
	"Vibeshare/internal/pkg/restapi"
	"Vibeshare/internal/store"
	"context"
	log "log/slog"
)

// NotificationService 未读通知计数
type NotificationService interface {
	FetchUnreadCount(ctx context.Context) (int, error)
	UnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, notificationID int64) (int, error)
	MarkAllAsRead(ctx context.Context) error
	UnreadCount() int
}

type notificationServiceImpl struct {
	api           restapi.NotificationAPI
	notifications *store.NotificationStore
	self          SelfProvider
}

func NewNotificationService(api restapi.NotificationAPI, notifications *store.NotificationStore, self SelfProvider) NotificationService {
	return &notificationServiceImpl{
		api:           api,
		notifications: notifications,
		self:          self,
	}
}

func (s *notificationServiceImpl) selfID() (int64, error) {
	id := s.self.Self().ID
	if id == 0 {
		return 0, ErrSessionNotReady
	}
	return id, nil
}

// FetchUnreadCount 以服务端未读列表长度覆盖本地计数
func (s *notificationServiceImpl) FetchUnreadCount(ctx context.Context) (int, error) {
	list, err := s.UnreadNotifications(ctx)
	if err != nil {
		return s.notifications.UnreadCount(), err
	}
	s.notifications.SetUnreadCount(len(list))
	return len(list), nil
}

func (s *notificationServiceImpl) UnreadNotifications(ctx context.Context) ([]model.Notification, error) {
	userID, err := s.selfID()
	if err != nil {
		return nil, err
	}
	dtos, err := s.api.GetUnreadNotifications(ctx, userID)
	if err != nil {
		return nil, wrapErr(ErrFetchFailed, err)
	}
	res := make([]model.Notification, 0, len(dtos))
	for i := range dtos {
		n, err := toNotification(&dtos[i])
		if err != nil {
			log.WarnContext(ctx, "通知转换失败，已跳过", "notification_id", dtos[i].ID, "err", err)
			continue
		}
		res = append(res, n)
	}
	return res, nil
}

// MarkAsRead 标记单条已读，成功后计数 -1（不小于 0）
func (s *notificationServiceImpl) MarkAsRead(ctx context.Context, notificationID int64) (int, error) {
	if notificationID <= 0 {
		return s.notifications.UnreadCount(), ErrParamInvalid
	}
	if err := s.api.MarkNotificationRead(ctx, notificationID); err != nil {
		return s.notifications.UnreadCount(), wrapErr(ErrActionFailed, err)
	}
	s.notifications.Decrement()
	return s.notifications.UnreadCount(), nil
}

func (s *notificationServiceImpl) MarkAllAsRead(ctx context.Context) error {
	userID, err := s.selfID()
	if err != nil {
		return err
	}
	if err = s.api.MarkAllNotificationsRead(ctx, userID); err != nil {
		return wrapErr(ErrActionFailed, err)
	}
	s.notifications.SetUnreadCount(0)
	return nil
}

func (s *notificationServiceImpl) UnreadCount() int {
	return s.notifications.UnreadCount()
}
