package handler

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/pkg/response"
	"Vibeshare/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationSvc service.NotificationService
}

func NewNotificationHandler(s service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationSvc: s,
	}
}

// GetUnread 未读通知列表，同时刷新未读数
func (h *NotificationHandler) GetUnread(c *gin.Context) {
	if c.Query("count_only") == "true" {
		count, err := h.notificationSvc.FetchUnreadCount(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, dto.UnreadCountDTO{UnreadCount: count})
		return
	}

	list, err := h.notificationSvc.UnreadNotifications(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"notifications": list,
		"unreadCount":   h.notificationSvc.UnreadCount(),
	})
}

// MarkRead 标记单条已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	count, err := h.notificationSvc.MarkAsRead(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.UnreadCountDTO{UnreadCount: count})
}

// MarkAllRead 全部标记已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notificationSvc.MarkAllAsRead(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.UnreadCountDTO{UnreadCount: 0})
}
