package service

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/mocks"
	"Vibeshare/internal/model"
	"Vibeshare/internal/pkg/security"
	"Vibeshare/internal/store"
	"Vibeshare/internal/transport"
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T) string {
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

type syncFixture struct {
	svc           SyncService
	chatAPI       *mocks.ChatAPIMock
	userAPI       *mocks.UserAPIMock
	broker        *mocks.FakeBroker
	chat          *store.ChatStore
	notifications *store.NotificationStore
	events        <-chan store.Event
}

func newSyncFixture(t *testing.T, token string) *syncFixture {
	t.Helper()
	n := store.NewNotifier()
	events, cancel := n.Subscribe(256)
	t.Cleanup(cancel)

	f := &syncFixture{
		chatAPI:       &mocks.ChatAPIMock{},
		userAPI:       &mocks.UserAPIMock{},
		broker:        mocks.NewFakeBroker(),
		chat:          store.NewChatStore(n),
		notifications: store.NewNotificationStore(n),
		events:        events,
	}
	f.svc = NewSyncService(f.chatAPI, f.userAPI, security.NewStaticTokenProvider(token), f.broker, f.chat, f.notifications, n)
	t.Cleanup(func() { _ = f.svc.Close() })
	return f
}

// started 完成 Start：当前用户 alice(1)，会话列表为空
func newStartedSync(t *testing.T) *syncFixture {
	t.Helper()
	f := newSyncFixture(t, signToken(t))
	f.userAPI.On("Me", mock.Anything).Return(&dto.UserDTO{ID: 1, Username: "alice"}, nil)
	f.chatAPI.On("GetConversations", mock.Anything).Return([]dto.ConversationDTO{}, nil).Once()
	require.NoError(t, f.svc.Start(context.Background()))
	return f
}

func messageDTO(id, convID, senderID int64, sender string, offset time.Duration) dto.MessageDTO {
	return dto.MessageDTO{
		ID:             id,
		ConversationID: convID,
		SenderID:       senderID,
		SenderName:     sender,
		Content:        "m",
		Timestamp:      dto.LocalTime{Time: t0.Add(offset)},
		Type:           "TEXT",
	}
}

func payload(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func messageIDs(msgs []model.Message) []int64 {
	res := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, m.ID)
	}
	return res
}

func conversationIDs(views []model.ConversationView) []int64 {
	res := make([]int64, 0, len(views))
	for _, v := range views {
		res = append(res, v.ID)
	}
	return res
}

func drainAlerts(events <-chan store.Event) []store.Alert {
	var res []store.Alert
	for {
		select {
		case e := <-events:
			if e.Type == store.EventAlert && e.Alert != nil {
				res = append(res, *e.Alert)
			}
		default:
			return res
		}
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestSyncService_StartConnectsAndLoadsDirectory(t *testing.T) {
	f := newSyncFixture(t, signToken(t))
	f.userAPI.On("Me", mock.Anything).Return(&dto.UserDTO{ID: 1, Username: "alice"}, nil)
	a := messageDTO(10, 1, 2, "bob", time.Second)
	b := messageDTO(20, 2, 3, "carol", 5*time.Second)
	f.chatAPI.On("GetConversations", mock.Anything).Return([]dto.ConversationDTO{
		{ID: 1, Users: []dto.UserDTO{{ID: 2, Username: "bob"}}, LastMessage: &a},
		{ID: 2, Users: []dto.UserDTO{{ID: 3, Username: "carol"}}, LastMessage: &b},
		{ID: 3},
	}, nil)

	require.NoError(t, f.svc.Start(context.Background()))

	assert.Equal(t, []int64{2, 1, 3}, conversationIDs(f.svc.Conversations()))
	assert.Equal(t, model.User{ID: 1, Username: "alice"}, f.chat.Self())
	assert.Len(t, f.broker.Topics(), 3)
	assert.Equal(t, "CONNECTED", f.svc.Session().State)
	assert.Equal(t, "bob", f.svc.Conversations()[1].Participants[0].Username)
}

func TestSyncService_StartRequiresCredential(t *testing.T) {
	f := newSyncFixture(t, "")

	assert.ErrorIs(t, f.svc.Start(context.Background()), ErrCredentialMissing)
	assert.Empty(t, f.broker.Credentials())
	f.userAPI.AssertNotCalled(t, "Me", mock.Anything)
}

func TestSyncService_StartFailsWhenProfileUnavailable(t *testing.T) {
	f := newSyncFixture(t, signToken(t))
	f.userAPI.On("Me", mock.Anything).Return(nil, errors.New("boom"))

	err := f.svc.Start(context.Background())

	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Empty(t, f.broker.Credentials())
}

func TestSyncService_StartToleratesDirectoryFailure(t *testing.T) {
	f := newSyncFixture(t, signToken(t))
	f.userAPI.On("Me", mock.Anything).Return(&dto.UserDTO{ID: 1, Username: "alice"}, nil)
	f.chatAPI.On("GetConversations", mock.Anything).Return(nil, errors.New("503"))

	require.NoError(t, f.svc.Start(context.Background()))
	assert.Empty(t, f.svc.Conversations())
}

func TestSyncService_FailedRefetchKeepsDirectory(t *testing.T) {
	f := newStartedSync(t)
	f.chatAPI.On("GetConversations", mock.Anything).Return([]dto.ConversationDTO{{ID: 5}}, nil).Once()
	require.NoError(t, f.svc.LoadConversations(context.Background()))

	f.chatAPI.On("GetConversations", mock.Anything).Return(nil, errors.New("timeout")).Once()
	err := f.svc.LoadConversations(context.Background())

	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, []int64{5}, conversationIDs(f.svc.Conversations()))
}

func TestSyncService_OpenConversationScenario(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	f.chatAPI.On("GetMessages", mock.Anything, int64(42)).Return([]dto.MessageDTO{messageDTO(1, 42, 2, "bob", 0)}, nil).Once()
	f.chatAPI.On("GetMessages", mock.Anything, int64(7)).Return([]dto.MessageDTO{}, nil).Once()

	msgs, err := f.svc.SetActiveConversation(ctx, int64Ptr(42), true)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, messageIDs(msgs))

	f.broker.Deliver(transport.ConversationTopic(42), payload(t, messageDTO(1, 42, 2, "bob", 0)))
	f.broker.Deliver(transport.ConversationTopic(42), payload(t, messageDTO(2, 42, 2, "bob", time.Second)))

	_, err = f.svc.SetActiveConversation(ctx, int64Ptr(7), false)
	require.NoError(t, err)
	msgs, err = f.svc.SetActiveConversation(ctx, int64Ptr(42), false)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, messageIDs(msgs))
	f.chatAPI.AssertNumberOfCalls(t, "GetMessages", 2)
	assert.ElementsMatch(t, f.broker.Topics(), []string{
		transport.TopicUserStatus, transport.QueueUserMessages, transport.QueueUserNotifications,
		transport.ConversationTopic(42), transport.TypingTopic(42), transport.ReadTopic(42),
	})
}

func TestSyncService_SnapshotAbsorbsRacingPush(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	snapshot := []dto.MessageDTO{messageDTO(1, 42, 2, "bob", 0), messageDTO(2, 42, 2, "bob", time.Second)}
	f.chatAPI.On("GetMessages", mock.Anything, int64(42)).Return(snapshot, nil)

	f.chat.SetActive(int64Ptr(42))
	f.svc.HandleConversationMessage(ctx, 42, payload(t, snapshot[1]))
	msgs, err := f.svc.LoadMessages(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, messageIDs(msgs))
}

func TestSyncService_StaleFetchIsDropped(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	f.chatAPI.On("GetMessages", mock.Anything, int64(42)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]dto.MessageDTO{messageDTO(1, 42, 2, "bob", 0)}, nil).Once()
	f.chatAPI.On("GetMessages", mock.Anything, int64(7)).Return([]dto.MessageDTO{messageDTO(5, 7, 3, "carol", 0)}, nil).Once()

	type result struct {
		msgs []model.Message
		err  error
	}
	done := make(chan result, 1)
	go func() {
		msgs, err := f.svc.SetActiveConversation(ctx, int64Ptr(42), true)
		done <- result{msgs, err}
	}()
	<-started

	msgs, err := f.svc.SetActiveConversation(ctx, int64Ptr(7), true)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, messageIDs(msgs))
	close(release)

	res := <-done
	require.NoError(t, res.err)
	assert.Nil(t, res.msgs)
	assert.False(t, f.chat.Messages.Loaded(42))
	assert.Equal(t, []int64{5}, messageIDs(f.chat.Messages.Messages(7)))
}

func TestSyncService_FailedMessageFetchKeepsLog(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	f.chatAPI.On("GetMessages", mock.Anything, int64(42)).Return([]dto.MessageDTO{messageDTO(1, 42, 2, "bob", 0)}, nil).Once()
	f.chatAPI.On("GetMessages", mock.Anything, int64(42)).Return(nil, errors.New("502")).Once()

	_, err := f.svc.SetActiveConversation(ctx, int64Ptr(42), true)
	require.NoError(t, err)
	_, err = f.svc.SetActiveConversation(ctx, int64Ptr(42), true)

	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, []int64{1}, messageIDs(f.chat.Messages.Messages(42)))
}

func TestSyncService_AutoReadReceiptOnlyForOthers(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	f.chatAPI.On("GetMessages", mock.Anything, int64(42)).Return([]dto.MessageDTO{}, nil)
	_, err := f.svc.SetActiveConversation(ctx, int64Ptr(42), true)
	require.NoError(t, err)

	f.broker.Deliver(transport.ConversationTopic(42), payload(t, messageDTO(1, 42, 1, "alice", 0)))
	f.broker.Deliver(transport.ConversationTopic(42), payload(t, messageDTO(2, 42, 2, "bob", time.Second)))
	f.broker.Deliver(transport.ConversationTopic(42), payload(t, messageDTO(2, 42, 2, "bob", time.Second)))

	receipts := f.broker.PublishedTo(transport.DestinationReadReceipt)
	require.Len(t, receipts, 1)
	assert.JSONEq(t, `{"messageId":2,"conversationId":42}`, string(receipts[0]))

	conv, ok := f.chat.Directory.Get(42)
	require.True(t, ok)
	assert.Equal(t, int64(2), conv.LastMessage.ID)
}

func TestSyncService_ReadReceipts(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	f.chat.SetActive(int64Ptr(42))
	f.chat.Messages.Replace(42, []model.Message{{ID: 1, ConversationID: 42, SenderID: 1}})

	f.svc.HandleReadReceipt(ctx, 42, []byte(`{"messageId":99,"conversationId":42,"readerUsername":"bob"}`))
	f.svc.HandleReadReceipt(ctx, 42, []byte(`{"messageId":1,"conversationId":42,"readerUsername":"bob"}`))

	msgs := f.chat.Messages.Messages(42)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsRead)
}

func TestSyncService_TypingSuppressesSelf(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()

	f.svc.HandleTyping(ctx, 42, []byte(`{"conversationId":42,"username":"alice","isTyping":true}`))
	assert.Empty(t, f.svc.TypingUsers(42))

	f.svc.HandleTyping(ctx, 42, []byte(`{"conversationId":42,"username":"bob","isTyping":true}`))
	assert.Equal(t, []string{"bob"}, f.svc.TypingUsers(42))

	f.svc.HandleTyping(ctx, 42, []byte(`{"conversationId":42,"username":"bob","isTyping":false}`))
	assert.Empty(t, f.svc.TypingUsers(42))
}

func TestSyncService_PresenceLastWriteWins(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()

	f.broker.Deliver(transport.TopicUserStatus, []byte(`{"username":"bob","isOnline":true,"lastSeen":"2025-03-01T12:00:00"}`))
	f.broker.Deliver(transport.TopicUserStatus, []byte(`{"username":"bob","isOnline":false,"lastSeen":"2025-03-01T12:05:00"}`))
	f.svc.HandlePresence(ctx, []byte(`{"isOnline":true}`))

	status, ok := f.svc.Presence("bob")
	require.True(t, ok)
	assert.False(t, status.IsOnline)
	assert.True(t, time.Date(2025, 3, 1, 12, 5, 0, 0, time.Local).Equal(status.LastSeen))
}

func TestSyncService_UserQueueUpdatesPreviewAndAlerts(t *testing.T) {
	f := newStartedSync(t)
	a := messageDTO(10, 1, 2, "bob", time.Second)
	b := messageDTO(20, 2, 3, "carol", 5*time.Second)
	f.chatAPI.On("GetConversations", mock.Anything).Return([]dto.ConversationDTO{
		{ID: 1, LastMessage: &a},
		{ID: 2, LastMessage: &b},
	}, nil).Once()
	require.NoError(t, f.svc.LoadConversations(context.Background()))
	assert.Equal(t, []int64{2, 1}, conversationIDs(f.svc.Conversations()))
	f.chat.SetActive(int64Ptr(2))
	drainAlerts(f.events)

	f.broker.Deliver(transport.QueueUserMessages, payload(t, messageDTO(11, 1, 2, "bob", 10*time.Second)))
	f.broker.Deliver(transport.QueueUserMessages, payload(t, messageDTO(21, 2, 3, "carol", 11*time.Second)))

	assert.Equal(t, []int64{2, 1}, conversationIDs(f.svc.Conversations()))
	alerts := drainAlerts(f.events)
	require.Len(t, alerts, 1)
	assert.Equal(t, store.AlertMessage, alerts[0].Kind)
	assert.Equal(t, int64(1), alerts[0].ConversationID)
	assert.Equal(t, "bob", alerts[0].Title)
}

func TestSyncService_MalformedPushIsDiscarded(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	f.chat.SetActive(int64Ptr(42))
	f.chat.Messages.Replace(42, []model.Message{{ID: 1, ConversationID: 42}})

	f.svc.HandleConversationMessage(ctx, 42, []byte(`{not json`))
	f.svc.HandleConversationMessage(ctx, 42, []byte(`{"content":"no id"}`))
	f.svc.HandleUserMessage(ctx, []byte(`{"id":3}`))
	f.svc.HandleNotification(ctx, []byte(`{"type":"UNKNOWN"}`))

	assert.Equal(t, []int64{1}, messageIDs(f.chat.Messages.Messages(42)))
	assert.Zero(t, f.chat.Directory.Len())
	assert.Zero(t, f.notifications.UnreadCount())
	assert.Empty(t, f.broker.PublishedTo(transport.DestinationReadReceipt))
}

func TestSyncService_NotificationQueue(t *testing.T) {
	f := newStartedSync(t)
	drainAlerts(f.events)

	f.broker.Deliver(transport.QueueUserNotifications, []byte(`{"id":1,"type":"LIKE","actorUsername":"bob","message":"liked your post"}`))
	f.broker.Deliver(transport.QueueUserNotifications, []byte(`{"id":2,"type":"MESSAGE","actorUsername":"carol","message":"hi"}`))

	assert.Equal(t, 2, f.notifications.UnreadCount())
	alerts := drainAlerts(f.events)
	require.Len(t, alerts, 2)
	assert.Equal(t, store.AlertNotification, alerts[0].Kind)
	assert.Equal(t, model.NotificationLike, alerts[0].NotificationType)
	assert.Equal(t, store.AlertMessage, alerts[1].Kind)
}

func TestSyncService_SendMessage(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.SendMessage(ctx, 42, &dto.SendMessageReq{Content: "  "}), ErrParamInvalid)
	assert.ErrorIs(t, f.svc.SendMessage(ctx, 42, &dto.SendMessageReq{Content: "x", Type: "GIF"}), ErrParamInvalid)
	require.NoError(t, f.svc.SendMessage(ctx, 42, &dto.SendMessageReq{Content: "hello"}))

	sent := f.broker.PublishedTo(transport.DestinationSendMessage)
	require.Len(t, sent, 1)
	assert.Contains(t, string(sent[0]), `"type":"TEXT"`)
	assert.Empty(t, f.chat.Messages.Messages(42))

	f.broker.SetConnected(false)
	assert.ErrorIs(t, f.svc.SendMessage(ctx, 42, &dto.SendMessageReq{Content: "lost"}), ErrNotConnected)
	assert.NoError(t, f.svc.SendTyping(ctx, 42, true))
	assert.Len(t, f.broker.Published(), 1)
}

var pngHeader = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52}

func TestSyncService_SendAttachment(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	f.chatAPI.On("UploadAttachment", mock.Anything, "cat.png", mock.Anything).Return("https://cdn/cat.png", nil)

	res, err := f.svc.SendAttachment(ctx, 42, "cat.png", bytes.NewReader(pngHeader), "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/cat.png", res.URL)

	sent := f.broker.PublishedTo(transport.DestinationSendMessage)
	require.Len(t, sent, 1)
	var body dto.ChatSendPayload
	require.NoError(t, json.Unmarshal(sent[0], &body))
	assert.Equal(t, "IMAGE", body.Type)
	assert.Equal(t, "https://cdn/cat.png", body.AttachmentURL)

	_, err = f.svc.SendAttachment(ctx, 42, "notes.txt", bytes.NewReader([]byte("plain text")), "")
	assert.ErrorIs(t, err, ErrFileNotSupported)
	f.chatAPI.AssertNumberOfCalls(t, "UploadAttachment", 1)
}

func TestSyncService_StartConversation(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	req := &dto.ChatRequest{RecipientID: 2}
	f.chatAPI.On("CreateOrGetConversation", mock.Anything, req).Return(&dto.ConversationDTO{
		ID:    9,
		Users: []dto.UserDTO{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}},
	}, nil)

	conv, err := f.svc.StartConversation(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(9), conv.ID)
	assert.Len(t, conv.Participants, 2)
	assert.Equal(t, []int64{9}, conversationIDs(f.svc.Conversations()))

	_, err = f.svc.StartConversation(ctx, &dto.ChatRequest{RecipientID: 1})
	assert.ErrorIs(t, err, ErrTargetUserInvalid)
	_, err = f.svc.StartConversation(ctx, &dto.ChatRequest{})
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestSyncService_CloseConversation(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	f.chatAPI.On("GetMessages", mock.Anything, int64(42)).Return([]dto.MessageDTO{}, nil)
	_, err := f.svc.SetActiveConversation(ctx, int64Ptr(42), true)
	require.NoError(t, err)

	msgs, err := f.svc.SetActiveConversation(ctx, nil, false)
	require.NoError(t, err)
	assert.Nil(t, msgs)
	assert.Len(t, f.broker.Topics(), 3)
	assert.Nil(t, f.svc.Session().ActiveConversationID)
}

func TestSyncService_OverlappingSwitchesStayConsistent(t *testing.T) {
	f := newStartedSync(t)
	ctx := context.Background()
	f.chatAPI.On("GetMessages", mock.Anything, mock.Anything).Return([]dto.MessageDTO{}, nil)

	a, b := int64(1), int64(2)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.broker.SubscribeHook = func(topic string) {
		if topic == transport.ConversationTopic(a) {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
	}

	doneA := make(chan struct{})
	go func() {
		defer close(doneA)
		_, _ = f.svc.SetActiveConversation(ctx, &a, false)
	}()
	<-entered

	doneB := make(chan struct{})
	go func() {
		defer close(doneB)
		_, _ = f.svc.SetActiveConversation(ctx, &b, false)
	}()

	// 第一次切换完成前，第二次切换不能改动本地的当前会话
	time.Sleep(50 * time.Millisecond)
	active, ok := f.chat.ActiveID()
	require.True(t, ok)
	assert.Equal(t, a, active)
	select {
	case <-doneB:
		t.Fatal("second switch completed while the first was still subscribing")
	default:
	}
	close(release)
	<-doneA
	<-doneB

	active, ok = f.chat.ActiveID()
	require.True(t, ok)
	assert.Equal(t, b, active)
	topics := f.broker.Topics()
	assert.Contains(t, topics, transport.ConversationTopic(b))
	assert.NotContains(t, topics, transport.ConversationTopic(a))
}

func TestSyncService_SharedFetchOutlivesCancelledCaller(t *testing.T) {
	f := newStartedSync(t)
	id := int64(3)
	f.chat.SetActive(&id)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var fetchErrs []error
	f.chatAPI.On("GetMessages", mock.Anything, id).Run(func(args mock.Arguments) {
		once.Do(func() { close(started) })
		<-release
		mu.Lock()
		fetchErrs = append(fetchErrs, args.Get(0).(context.Context).Err())
		mu.Unlock()
	}).Return([]dto.MessageDTO{messageDTO(1, id, 2, "bob", 0)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := f.svc.LoadMessages(ctx, id)
		first <- err
	}()
	<-started

	second := make(chan []model.Message, 1)
	go func() {
		msgs, err := f.svc.LoadMessages(context.Background(), id)
		assert.NoError(t, err)
		second <- msgs
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	assert.Equal(t, []int64{1}, messageIDs(<-second))
	mu.Lock()
	defer mu.Unlock()
	for _, err := range fetchErrs {
		assert.NoError(t, err)
	}
}
