package api

import (
	"Vibeshare/internal/api/config"
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/api/handler"
	"Vibeshare/internal/mocks"
	"Vibeshare/internal/model"
	"Vibeshare/internal/pkg/security"
	"Vibeshare/internal/service"
	"Vibeshare/internal/store"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type routerFixture struct {
	engine          *gin.Engine
	syncSvc         service.SyncService
	chatAPI         *mocks.ChatAPIMock
	postAPI         *mocks.PostActionAPIMock
	userAPI         *mocks.UserAPIMock
	notificationAPI *mocks.NotificationAPIMock
	broker          *mocks.FakeBroker
	notifier        *store.Notifier
	chat            *store.ChatStore
}

func signedToken(t *testing.T) string {
	t.Helper()
	claims := &security.SessionClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newRouterFixture(t *testing.T, allowOrigins ...string) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.Cfg = &config.Config{Server: config.ServerConfig{AllowOrigins: allowOrigins}}

	f := &routerFixture{
		chatAPI:         &mocks.ChatAPIMock{},
		postAPI:         &mocks.PostActionAPIMock{},
		userAPI:         &mocks.UserAPIMock{},
		notificationAPI: &mocks.NotificationAPIMock{},
		broker:          mocks.NewFakeBroker(),
		notifier:        store.NewNotifier(),
	}
	f.chat = store.NewChatStore(f.notifier)
	notifications := store.NewNotificationStore(f.notifier)
	interactions := store.NewInteractionStore(f.notifier)

	f.syncSvc = service.NewSyncService(f.chatAPI, f.userAPI, security.NewStaticTokenProvider(signedToken(t)),
		f.broker, f.chat, notifications, f.notifier)
	actionSvc := service.NewInteractionService(f.postAPI, f.userAPI, f.notificationAPI, interactions, f.chat, true)
	notificationSvc := service.NewNotificationService(f.notificationAPI, notifications, f.chat)
	t.Cleanup(func() {
		_ = f.syncSvc.Close()
		actionSvc.Close()
	})

	f.engine = SetupRouter(&HandlersGroup{
		ChatHandler:         handler.NewChatHandler(f.syncSvc),
		PostActionHandler:   handler.NewPostActionHandler(actionSvc),
		UserFollowHandler:   handler.NewUserFollowHandler(actionSvc),
		NotificationHandler: handler.NewNotificationHandler(notificationSvc),
		SessionHandler:      handler.NewSessionHandler(f.syncSvc),
		WSHandler:           handler.NewWsHandler(f.notifier, config.Cfg.Server.AllowOrigins),
	})
	return f
}

func (f *routerFixture) start(t *testing.T, convs ...dto.ConversationDTO) {
	t.Helper()
	f.userAPI.On("Me", mock.Anything).Return(&dto.UserDTO{ID: 1, Username: "alice"}, nil)
	f.chatAPI.On("GetConversations", mock.Anything).Return(convs, nil).Once()
	require.NoError(t, f.syncSvc.Start(context.Background()))
}

func (f *routerFixture) do(t *testing.T, method, path string, body any) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestRouter_Ping(t *testing.T) {
	f := newRouterFixture(t)

	res := f.do(t, http.MethodGet, "/api/ping", nil)

	assert.Equal(t, 200, res.Code)
	assert.Equal(t, "pong", res.Message)
}

func TestRouter_TraceHeaderEchoed(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	w := httptest.NewRecorder()

	f.engine.ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get("X-Trace-ID"))
}

func TestRouter_TraceHeaderRegenerated(t *testing.T) {
	f := newRouterFixture(t)

	for _, in := range []string{"", "has space", strings.Repeat("a", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
		if in != "" {
			req.Header.Set("X-Trace-ID", in)
		}
		w := httptest.NewRecorder()
		f.engine.ServeHTTP(w, req)

		got := w.Header().Get("X-Trace-ID")
		assert.True(t, strings.HasPrefix(got, "http-"), got)
	}
}

func TestRouter_SessionBeforeAndAfterStart(t *testing.T) {
	f := newRouterFixture(t)

	res := f.do(t, http.MethodGet, "/api/session", nil)
	var before dto.SessionDTO
	require.NoError(t, json.Unmarshal(res.Data, &before))
	assert.Equal(t, "DISCONNECTED", before.State)

	f.start(t)
	res = f.do(t, http.MethodGet, "/api/session", nil)
	var after dto.SessionDTO
	require.NoError(t, json.Unmarshal(res.Data, &after))
	assert.Equal(t, "CONNECTED", after.State)
	assert.Equal(t, "alice", after.Username)
	assert.Nil(t, after.ActiveConversationID)
}

func TestRouter_OpenConversationReturnsSnapshot(t *testing.T) {
	f := newRouterFixture(t)
	f.start(t, dto.ConversationDTO{ID: 42, ChatName: "team"})
	f.chatAPI.On("GetMessages", mock.Anything, int64(42)).Return([]dto.MessageDTO{
		{ID: 1, ConversationID: 42, SenderID: 2, SenderName: "bob", Content: "hi", Timestamp: dto.LocalTime{Time: time.Now()}},
	}, nil)

	res := f.do(t, http.MethodPut, "/api/chat/active", gin.H{"conversationId": 42})
	require.Equal(t, 200, res.Code, res.Message)

	var snapshot struct {
		ConversationID int64           `json:"conversationId"`
		Messages       []model.Message `json:"messages"`
		UnreadCount    int             `json:"unreadCount"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &snapshot))
	assert.Equal(t, int64(42), snapshot.ConversationID)
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, "hi", snapshot.Messages[0].Content)
	assert.Equal(t, 1, snapshot.UnreadCount)

	res = f.do(t, http.MethodPut, "/api/chat/active", gin.H{"conversationId": nil})
	assert.Equal(t, 200, res.Code)
	_, active := f.chat.ActiveID()
	assert.False(t, active)
}

func TestRouter_BadParams(t *testing.T) {
	f := newRouterFixture(t)

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/chat/messages/abc", nil},
		{http.MethodPut, "/api/chat/active", gin.H{"conversationId": -3}},
		{http.MethodPost, "/api/chat/messages", gin.H{"content": "no conversation"}},
		{http.MethodPost, "/api/posts/0/like", nil},
		{http.MethodPost, "/api/users/x/follow", nil},
		{http.MethodPost, "/api/notifications/0/read", nil},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			res := f.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, service.BadRequest, res.Code)
		})
	}
}

func TestRouter_SendMessageWhileDisconnected(t *testing.T) {
	f := newRouterFixture(t)

	res := f.do(t, http.MethodPost, "/api/chat/messages", gin.H{"conversationId": 42, "content": "hello"})

	assert.Equal(t, service.ServiceUnavailable, res.Code)
	assert.Empty(t, f.broker.Published())
}

func TestRouter_SendMessagePublishes(t *testing.T) {
	f := newRouterFixture(t)
	f.start(t)

	res := f.do(t, http.MethodPost, "/api/chat/messages", gin.H{"conversationId": 42, "content": "hello"})

	require.Equal(t, 200, res.Code, res.Message)
	require.Len(t, f.broker.PublishedTo("/app/chat.send"), 1)
}

func TestRouter_LikeRollbackReturnsRestoredState(t *testing.T) {
	f := newRouterFixture(t)
	f.postAPI.On("LikePost", mock.Anything, int64(5)).Return(nil, errors.New("offline"))

	res := f.do(t, http.MethodPost, "/api/posts/5/like", gin.H{"liked": false, "likeCount": 10})

	assert.Equal(t, service.BadGateway, res.Code)
	var rec model.Interaction
	require.NoError(t, json.Unmarshal(res.Data, &rec))
	assert.False(t, rec.IsLiked)
	assert.Equal(t, int64(10), rec.LikesCount)
}

func TestRouter_LikeThenReadInteraction(t *testing.T) {
	f := newRouterFixture(t)
	liked := true
	f.postAPI.On("LikePost", mock.Anything, int64(5)).Return(&dto.PostDTO{ID: 5, Liked: &liked, LikeCount: 11}, nil)

	res := f.do(t, http.MethodPost, "/api/posts/5/like", gin.H{"liked": false, "likeCount": 10})
	require.Equal(t, 200, res.Code, res.Message)

	// 基线仍是旧值，以本地记录为准
	res = f.do(t, http.MethodGet, "/api/posts/5/interaction?liked=false&likeCount=10", nil)
	var rec model.Interaction
	require.NoError(t, json.Unmarshal(res.Data, &rec))
	assert.True(t, rec.IsLiked)
	assert.Equal(t, int64(11), rec.LikesCount)
}

func TestRouter_FollowSelfRejected(t *testing.T) {
	f := newRouterFixture(t)
	f.start(t)

	res := f.do(t, http.MethodPost, "/api/users/1/follow", nil)

	assert.Equal(t, service.BadRequest, res.Code)
	f.userAPI.AssertNotCalled(t, "Follow", mock.Anything, mock.Anything)
}

func TestRouter_NotificationCounters(t *testing.T) {
	f := newRouterFixture(t)
	f.start(t)
	f.notificationAPI.On("GetUnreadNotifications", mock.Anything, int64(1)).Return([]dto.NotificationDTO{
		{ID: 1, Type: "LIKE"}, {ID: 2, Type: "FOLLOW"},
	}, nil)
	f.notificationAPI.On("MarkNotificationRead", mock.Anything, int64(1)).Return(nil)

	res := f.do(t, http.MethodGet, "/api/notifications/unread?count_only=true", nil)
	var count dto.UnreadCountDTO
	require.NoError(t, json.Unmarshal(res.Data, &count))
	assert.Equal(t, 2, count.UnreadCount)

	res = f.do(t, http.MethodPost, "/api/notifications/1/read", nil)
	require.NoError(t, json.Unmarshal(res.Data, &count))
	assert.Equal(t, 1, count.UnreadCount)
}

func TestRouter_EventStream(t *testing.T) {
	f := newRouterFixture(t)
	srv := httptest.NewServer(f.engine)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/events", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	// 订阅在握手之后建立，持续发布直到收到
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				f.notifier.Publish(store.Event{Type: store.EventPresence, Username: "bob"})
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var e store.Event
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, store.EventPresence, e.Type)
	assert.Equal(t, "bob", e.Username)
}

func dialEvents(srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/events", header)
}

func TestRouter_EventStreamAllowList(t *testing.T) {
	f := newRouterFixture(t, "http://localhost:5173")
	srv := httptest.NewServer(f.engine)
	defer srv.Close()

	_, resp, err := dialEvents(srv, "https://evil.example")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dialEvents(srv, "http://localhost:5173")
	require.NoError(t, err)
	_ = conn.Close()
}

func TestRouter_EventStreamSameOriginByDefault(t *testing.T) {
	f := newRouterFixture(t)
	srv := httptest.NewServer(f.engine)
	defer srv.Close()

	_, resp, err := dialEvents(srv, "https://evil.example")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dialEvents(srv, srv.URL)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestRouter_CORSAllowList(t *testing.T) {
	f := newRouterFixture(t, "http://localhost:5173")

	for origin, want := range map[string]string{
		"http://localhost:5173": "http://localhost:5173",
		"https://evil.example":  "",
	} {
		req := httptest.NewRequest(http.MethodOptions, "/api/ping", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		f.engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, want, w.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}
