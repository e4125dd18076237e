package handler

import (
	"Vibeshare/internal/pkg/metrics"
	"Vibeshare/internal/store"
	log "log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	eventBuffer  = 256
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

type WsHandler struct {
	notifier *store.Notifier
	upgrader websocket.Upgrader
}

// NewWsHandler allowOrigins 为空时只接受同源页面，非浏览器客户端（无 Origin）总是放行
func NewWsHandler(notifier *store.Notifier, allowOrigins []string) *WsHandler {
	return &WsHandler{
		notifier: notifier,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin(allowOrigins)},
	}
}

func checkOrigin(allowOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowOrigins) > 0 {
			return slices.Contains(allowOrigins, origin)
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// Events 把本地状态变更事件推给 UI
func (s *WsHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()

	// 升级 Websocket
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(ctx, "WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	events, cancel := s.notifier.Subscribe(eventBuffer)
	defer cancel()

	metrics.IncEventStreamClients()
	defer metrics.DecEventStreamClients()
	log.InfoContext(ctx, "事件流连接已建立", "remote", c.Request.RemoteAddr)

	stopChan := make(chan struct{})

	// 读循环：监听客户端主动断开
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(stopChan)
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	// 写循环：转发状态事件
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				log.WarnContext(ctx, "事件序列化失败", "type", e.Type, "err", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err = conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.WarnContext(ctx, "事件推送失败", "err", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-stopChan:
			log.InfoContext(ctx, "事件流连接已断开", "remote", c.Request.RemoteAddr)
			return
		}
	}
}
