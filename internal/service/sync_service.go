package service

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/model"
	"Vibeshare/internal/pkg/metrics"
	"Vibeshare/internal/pkg/restapi"
	"Vibeshare/internal/pkg/security"
	"Vibeshare/internal/pkg/util"
	"Vibeshare/internal/store"
	"Vibeshare/internal/transport"
	"context"
	"errors"
	"io"
	log "log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SyncService 聊天同步：把推送事件与 REST 拉取结果应用到同一份本地状态
type SyncService interface {
	transport.EventHandler

	Start(ctx context.Context) error
	LoadConversations(ctx context.Context) error
	Conversations() []model.ConversationView
	StartConversation(ctx context.Context, req *dto.ChatRequest) (*model.Conversation, error)
	SetActiveConversation(ctx context.Context, id *int64, refresh bool) ([]model.Message, error)
	LoadMessages(ctx context.Context, conversationID int64) ([]model.Message, error)
	Messages(conversationID int64) *dto.MessagesDTO
	SendMessage(ctx context.Context, conversationID int64, req *dto.SendMessageReq) error
	SendAttachment(ctx context.Context, conversationID int64, filename string, r io.ReadSeeker, caption string) (*dto.AttachmentDTO, error)
	SendTyping(ctx context.Context, conversationID int64, isTyping bool) error
	Presence(username string) (model.PresenceStatus, bool)
	TypingUsers(conversationID int64) []string
	ExpireTyping(ttl time.Duration) int
	Session() *dto.SessionDTO
	Close() error
}

type syncServiceImpl struct {
	chatAPI       restapi.ChatAPI
	userAPI       restapi.UserAPI
	tokens        security.TokenProvider
	chat          *store.ChatStore
	notifications *store.NotificationStore
	notifier      *store.Notifier
	session       *transport.Session
	fetches       singleflight.Group
	switchMu      sync.Mutex
}

func NewSyncService(
	chatAPI restapi.ChatAPI,
	userAPI restapi.UserAPI,
	tokens security.TokenProvider,
	broker transport.Broker,
	chat *store.ChatStore,
	notifications *store.NotificationStore,
	notifier *store.Notifier,
) SyncService {
	s := &syncServiceImpl{
		chatAPI:       chatAPI,
		userAPI:       userAPI,
		tokens:        tokens,
		chat:          chat,
		notifications: notifications,
		notifier:      notifier,
	}
	s.session = transport.NewSession(broker, s)
	return s
}

// Start 拉取当前用户、建立推送连接并加载会话列表
// 会话列表拉取失败不影响启动，由定时任务或调用方重试
func (s *syncServiceImpl) Start(ctx context.Context) error {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return credentialErr(err)
	}

	me, err := s.userAPI.Me(ctx)
	if err != nil {
		return wrapErr(ErrFetchFailed, err)
	}
	s.chat.SetSelf(toUser(me))

	if err = s.session.Connect(ctx, token); err != nil {
		if errors.Is(err, transport.ErrCredentialMissing) {
			return ErrCredentialMissing
		}
		return wrapErr(ErrNotConnected, err)
	}

	if err = s.LoadConversations(ctx); err != nil {
		log.WarnContext(ctx, "初始会话列表拉取失败", "err", err)
	}
	log.InfoContext(ctx, "同步会话已启动", "user_id", me.ID, "username", me.Username)
	return nil
}

func credentialErr(err error) error {
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return ErrCredentialExpired
	case errors.Is(err, security.ErrTokenMissing):
		return ErrCredentialMissing
	}
	return wrapErr(ErrCredentialMissing, err)
}

// LoadConversations 全量替换会话目录；失败时保留原目录
func (s *syncServiceImpl) LoadConversations(ctx context.Context) error {
	dtos, err := s.chatAPI.GetConversations(ctx)
	if err != nil {
		return wrapErr(ErrFetchFailed, err)
	}
	convs, err := toConversations(dtos)
	if err != nil {
		return wrapErr(ErrFetchFailed, err)
	}
	s.chat.Directory.Replace(convs)
	return nil
}

func (s *syncServiceImpl) Conversations() []model.ConversationView {
	return s.chat.ConversationViews()
}

// StartConversation 创建或获取会话并放入目录
func (s *syncServiceImpl) StartConversation(ctx context.Context, req *dto.ChatRequest) (*model.Conversation, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, ErrParamInvalid
	}
	if req.RecipientID != 0 && req.RecipientID == s.chat.Self().ID {
		return nil, ErrTargetUserInvalid
	}

	res, err := s.chatAPI.CreateOrGetConversation(ctx, req)
	if err != nil {
		return nil, wrapErr(ErrFetchFailed, err)
	}
	conv, err := toConversation(res)
	if err != nil {
		return nil, wrapErr(ErrFetchFailed, err)
	}
	s.chat.Directory.Upsert(conv)
	return &conv, nil
}

// SetActiveConversation 切换当前会话：先切换订阅，再按需拉取消息快照
// id 为 nil 时关闭当前会话
func (s *syncServiceImpl) SetActiveConversation(ctx context.Context, id *int64, refresh bool) ([]model.Message, error) {
	s.switchMu.Lock()
	if s.chat.SetActive(id) {
		s.session.SetActiveConversation(id)
	}
	s.switchMu.Unlock()

	if id == nil {
		return nil, nil
	}
	if refresh || !s.chat.Messages.Loaded(*id) {
		return s.LoadMessages(ctx, *id)
	}
	return s.chat.Messages.Messages(*id), nil
}

// LoadMessages 拉取消息快照并全量替换该会话记录
// 相同会话的并发拉取合并为一次，共享的拉取不随单个调用方取消；返回时会话已不是当前会话则丢弃结果
func (s *syncServiceImpl) LoadMessages(ctx context.Context, conversationID int64) ([]model.Message, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.fetches.DoChan(strconv.FormatInt(conversationID, 10), func() (any, error) {
		dtos, err := s.chatAPI.GetMessages(fetchCtx, conversationID)
		if err != nil {
			return nil, err
		}
		return toMessages(dtos)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, wrapErr(ErrFetchFailed, res.Err)
	}
	v := res.Val

	if !s.chat.IsActive(conversationID) {
		active, _ := s.chat.ActiveID()
		log.InfoContext(ctx, ErrStaleFetch.Error(), "conversation_id", conversationID, "active_id", active)
		return nil, nil
	}
	s.chat.Messages.Replace(conversationID, v.([]model.Message))
	return s.chat.Messages.Messages(conversationID), nil
}

func (s *syncServiceImpl) Messages(conversationID int64) *dto.MessagesDTO {
	msgs := s.chat.Messages.Messages(conversationID)
	if msgs == nil {
		msgs = []model.Message{}
	}
	return &dto.MessagesDTO{
		ConversationID: conversationID,
		Messages:       msgs,
		TypingUsers:    s.chat.Presence.TypingUsers(conversationID),
		UnreadCount:    s.chat.Messages.UnreadCount(conversationID, s.chat.Self().ID),
	}
}

// SendMessage 发布消息，消息在服务端回显后才进入本地记录
func (s *syncServiceImpl) SendMessage(ctx context.Context, conversationID int64, req *dto.SendMessageReq) error {
	typ := model.MessageType(req.Type)
	if typ == "" {
		typ = model.MessageTypeText
	}
	if !typ.Valid() || conversationID <= 0 {
		return ErrParamInvalid
	}
	if strings.TrimSpace(req.Content) == "" && req.AttachmentURL == "" {
		return ErrParamInvalid
	}
	if !s.session.Connected() {
		return ErrNotConnected
	}
	return s.session.PublishMessage(ctx, conversationID, req.Content, typ, req.AttachmentURL)
}

// SendAttachment 上传附件后以附件消息发布
func (s *syncServiceImpl) SendAttachment(ctx context.Context, conversationID int64, filename string, r io.ReadSeeker, caption string) (*dto.AttachmentDTO, error) {
	if conversationID <= 0 {
		return nil, ErrParamInvalid
	}
	contentType, err := util.GetSafeContentType(r)
	if err != nil {
		return nil, ErrFileNotSupported
	}
	typ, err := util.AttachmentMessageType(contentType)
	if err != nil {
		return nil, ErrFileNotSupported
	}
	if !s.session.Connected() {
		return nil, ErrNotConnected
	}

	url, err := s.chatAPI.UploadAttachment(ctx, filename, r)
	if err != nil {
		return nil, wrapErr(ErrActionFailed, err)
	}
	if err = s.session.PublishMessage(ctx, conversationID, caption, typ, url); err != nil {
		return nil, wrapErr(ErrActionFailed, err)
	}
	return &dto.AttachmentDTO{URL: url}, nil
}

func (s *syncServiceImpl) SendTyping(ctx context.Context, conversationID int64, isTyping bool) error {
	return s.session.PublishTyping(ctx, conversationID, isTyping)
}

func (s *syncServiceImpl) Presence(username string) (model.PresenceStatus, bool) {
	return s.chat.Presence.Presence(username)
}

func (s *syncServiceImpl) TypingUsers(conversationID int64) []string {
	return s.chat.Presence.TypingUsers(conversationID)
}

func (s *syncServiceImpl) ExpireTyping(ttl time.Duration) int {
	return s.chat.Presence.ExpireTyping(ttl)
}

func (s *syncServiceImpl) Session() *dto.SessionDTO {
	self := s.chat.Self()
	res := &dto.SessionDTO{
		State:               s.session.State().String(),
		UserID:              self.ID,
		Username:            self.Username,
		TotalUnread:         s.chat.TotalUnread(),
		UnreadNotifications: s.notifications.UnreadCount(),
	}
	if id, ok := s.chat.ActiveID(); ok {
		res.ActiveConversationID = &id
	}
	return res
}

func (s *syncServiceImpl) Close() error {
	return s.session.Close()
}

// HandleUserMessage 用户私有队列上的新消息：更新目录预览，不在当前会话时发出提醒
func (s *syncServiceImpl) HandleUserMessage(ctx context.Context, payload []byte) {
	d, ok := decodePush[dto.MessageDTO](ctx, channelUserMessage, payload)
	if !ok {
		return
	}
	msg, err := toMessage(d)
	if err != nil || msg.ConversationID == 0 {
		log.WarnContext(ctx, "推送消息缺少会话 ID，已丢弃", "message_id", d.ID, "err", err)
		metrics.IncPushEvent(channelUserMessage, metrics.ResultMalformed)
		return
	}

	s.chat.Directory.UpdateLastMessage(msg.ConversationID, msg)
	if !s.chat.IsActive(msg.ConversationID) {
		s.notifier.Publish(store.Event{
			Type:           store.EventAlert,
			ConversationID: msg.ConversationID,
			Alert: &store.Alert{
				Kind:             store.AlertMessage,
				NotificationType: model.NotificationMessage,
				ConversationID:   msg.ConversationID,
				Title:            msg.SenderName,
				Body:             msg.Content,
			},
		})
	}
	metrics.IncPushEvent(channelUserMessage, metrics.ResultApplied)
}

// HandleConversationMessage 当前会话的新消息：去重追加，他人消息立即回执已读
func (s *syncServiceImpl) HandleConversationMessage(ctx context.Context, conversationID int64, payload []byte) {
	d, ok := decodePush[dto.MessageDTO](ctx, channelMessage, payload)
	if !ok {
		return
	}
	msg, err := toMessage(d)
	if err != nil {
		log.WarnContext(ctx, "推送消息转换失败，已丢弃", "err", err)
		metrics.IncPushEvent(channelMessage, metrics.ResultMalformed)
		return
	}
	msg.ConversationID = conversationID

	if !s.chat.Messages.Append(conversationID, msg) {
		log.DebugContext(ctx, "重复消息", "conversation_id", conversationID, "message_id", msg.ID)
		metrics.IncPushEvent(channelMessage, metrics.ResultDuplicate)
		return
	}
	s.chat.Directory.UpdateLastMessage(conversationID, msg)

	if msg.SenderID != s.chat.Self().ID {
		if err = s.session.PublishReadReceipt(ctx, conversationID, msg.ID); err != nil {
			log.WarnContext(ctx, "已读回执发送失败", "message_id", msg.ID, "err", err)
		}
	}
	metrics.IncPushEvent(channelMessage, metrics.ResultApplied)
}

// HandleTyping 输入状态，忽略自己的回显
func (s *syncServiceImpl) HandleTyping(ctx context.Context, conversationID int64, payload []byte) {
	d, ok := decodePush[dto.TypingStatusDTO](ctx, channelTyping, payload)
	if !ok {
		return
	}
	if d.Username == s.chat.Self().Username {
		metrics.IncPushEvent(channelTyping, metrics.ResultIgnored)
		return
	}
	s.chat.Presence.UpdateTyping(model.TypingStatus{
		ConversationID: conversationID,
		Username:       d.Username,
		IsTyping:       d.IsTyping,
	})
	metrics.IncPushEvent(channelTyping, metrics.ResultApplied)
}

// HandleReadReceipt 已读回执，消息不在记录中时不做任何事
func (s *syncServiceImpl) HandleReadReceipt(ctx context.Context, conversationID int64, payload []byte) {
	d, ok := decodePush[dto.ReadReceiptDTO](ctx, channelReadReceipt, payload)
	if !ok {
		return
	}
	if !s.chat.Messages.MarkRead(conversationID, d.MessageID) {
		metrics.IncPushEvent(channelReadReceipt, metrics.ResultIgnored)
		return
	}
	metrics.IncPushEvent(channelReadReceipt, metrics.ResultApplied)
}

func (s *syncServiceImpl) HandlePresence(ctx context.Context, payload []byte) {
	d, ok := decodePush[dto.UserStatusDTO](ctx, channelPresence, payload)
	if !ok {
		return
	}
	s.chat.Presence.UpdatePresence(toPresence(d))
	metrics.IncPushEvent(channelPresence, metrics.ResultApplied)
}

// HandleNotification 通知队列：未读数 +1 并按通知类型发出提醒
func (s *syncServiceImpl) HandleNotification(ctx context.Context, payload []byte) {
	d, ok := decodePush[dto.NotificationDTO](ctx, channelNotification, payload)
	if !ok {
		return
	}
	n, err := toNotification(d)
	if err != nil {
		metrics.IncPushEvent(channelNotification, metrics.ResultMalformed)
		return
	}

	s.notifications.Increment()
	kind := store.AlertNotification
	if n.Type == model.NotificationMessage {
		kind = store.AlertMessage
	}
	s.notifier.Publish(store.Event{
		Type: store.EventAlert,
		Alert: &store.Alert{
			Kind:             kind,
			NotificationType: n.Type,
			Title:            n.ActorUsername,
			Body:             n.Message,
		},
	})
	metrics.IncPushEvent(channelNotification, metrics.ResultApplied)
}
