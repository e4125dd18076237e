package handler

import (
	"Vibeshare/internal/pkg/response"
	"Vibeshare/internal/service"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	syncSvc service.SyncService
}

func NewSessionHandler(syncSvc service.SyncService) *SessionHandler {
	return &SessionHandler{syncSvc: syncSvc}
}

// GetSession 推送连接状态与当前用户
func (s *SessionHandler) GetSession(c *gin.Context) {
	response.Success(c, s.syncSvc.Session())
}
