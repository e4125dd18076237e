package restapi

import (
	"Vibeshare/internal/api/dto"
	"context"
	"fmt"
	"net/http"
)

func (c *Client) GetUnreadNotifications(ctx context.Context, userID int64) ([]dto.NotificationDTO, error) {
	var res []dto.NotificationDTO
	url := fmt.Sprintf("/api/notifications/user/%d/unread", userID)
	if err := c.do(ctx, "get_unread_notifications", c.request(), http.MethodGet, url, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	url := fmt.Sprintf("/api/notifications/%d/read", notificationID)
	return c.do(ctx, "mark_notification_read", c.request(), http.MethodPost, url, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	url := fmt.Sprintf("/api/notifications/user/%d/read-all", userID)
	return c.do(ctx, "mark_all_notifications_read", c.request(), http.MethodPost, url, nil)
}

func (c *Client) CreateNotification(ctx context.Context, req *dto.NotificationCreateDTO) (*dto.NotificationDTO, error) {
	var res dto.NotificationDTO
	if err := c.do(ctx, "create_notification", c.request().SetBody(req), http.MethodPost, "/api/notifications", &res); err != nil {
		return nil, err
	}
	return &res, nil
}
