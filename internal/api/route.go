package api

import (
	"Vibeshare/internal/api/config"
	"Vibeshare/internal/api/middleware"
	"Vibeshare/internal/pkg/logger"
	"Vibeshare/internal/pkg/metrics"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware(config.Cfg.Server.AllowOrigins))
	logger.SetupGin(r)

	if config.Cfg.Metrics.Enabled {
		r.Use(metrics.HTTPMetricsMiddleware())
		r.GET(config.Cfg.Metrics.Path, metrics.Handler())
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		apiGroup.GET("/session", group.SessionHandler.GetSession)
		apiGroup.GET("/events", group.WSHandler.Events)

		chatGroup := apiGroup.Group("/chat")
		{
			chatGroup.GET("/conversations", group.ChatHandler.GetConversations)
			chatGroup.POST("/conversations", group.ChatHandler.StartConversation)
			chatGroup.POST("/conversations/refresh", group.ChatHandler.RefreshConversations)
			chatGroup.PUT("/active", group.ChatHandler.SetActive)
			chatGroup.GET("/messages/:conversation_id", group.ChatHandler.GetMessages)
			chatGroup.POST("/messages", group.ChatHandler.SendMessage)
			chatGroup.POST("/typing", group.ChatHandler.SendTyping)
			chatGroup.GET("/typing/:conversation_id", group.ChatHandler.GetTypingUsers)
			chatGroup.POST("/attachments", group.ChatHandler.SendAttachment)
			chatGroup.GET("/presence/:username", group.ChatHandler.GetPresence)
		}

		postGroup := apiGroup.Group("/posts/:post_id")
		{
			postGroup.GET("/interaction", group.PostActionHandler.GetInteraction)
			postGroup.POST("/like", group.PostActionHandler.LikePost)
			postGroup.POST("/save", group.PostActionHandler.SavePost)
			postGroup.POST("/comments", group.PostActionHandler.CreateComment)
			postGroup.DELETE("/comments/:comment_id", group.PostActionHandler.DeleteComment)
		}

		apiGroup.POST("/users/:user_id/follow", group.UserFollowHandler.Follow)

		notificationGroup := apiGroup.Group("/notifications")
		{
			notificationGroup.GET("/unread", group.NotificationHandler.GetUnread)
			notificationGroup.POST("/:id/read", group.NotificationHandler.MarkRead)
			notificationGroup.POST("/read-all", group.NotificationHandler.MarkAllRead)
		}
	}

	return r
}
