package api

import "Vibeshare/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	ChatHandler         *handler.ChatHandler
	PostActionHandler   *handler.PostActionHandler
	UserFollowHandler   *handler.UserFollowHandler
	NotificationHandler *handler.NotificationHandler
	SessionHandler      *handler.SessionHandler
	WSHandler           *handler.WsHandler
}
