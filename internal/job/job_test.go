package job

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/mocks"
	"Vibeshare/internal/model"
	"Vibeshare/internal/pkg/security"
	"Vibeshare/internal/service"
	"Vibeshare/internal/store"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newSync(t *testing.T, chatAPI *mocks.ChatAPIMock, chat *store.ChatStore, n *store.Notifier) service.SyncService {
	t.Helper()
	svc := service.NewSyncService(chatAPI, &mocks.UserAPIMock{}, security.NewStaticTokenProvider(""),
		mocks.NewFakeBroker(), chat, store.NewNotificationStore(n), n)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestConversationResyncJob_SkipsBeforeSession(t *testing.T) {
	n := store.NewNotifier()
	chatAPI := &mocks.ChatAPIMock{}
	svc := newSync(t, chatAPI, store.NewChatStore(n), n)

	NewConversationResyncJob(svc).Run()

	chatAPI.AssertNotCalled(t, "GetConversations", mock.Anything)
}

func TestConversationResyncJob_ReloadsDirectory(t *testing.T) {
	n := store.NewNotifier()
	chat := store.NewChatStore(n)
	chat.SetSelf(model.User{ID: 1, Username: "alice"})
	chatAPI := &mocks.ChatAPIMock{}
	chatAPI.On("GetConversations", mock.Anything).Return([]dto.ConversationDTO{{ID: 7}, {ID: 8}}, nil).Once()
	chatAPI.On("GetConversations", mock.Anything).Return(nil, errors.New("offline")).Once()
	svc := newSync(t, chatAPI, chat, n)

	job := NewConversationResyncJob(svc)
	job.Run()
	assert.Len(t, svc.Conversations(), 2)

	// 拉取失败保留旧目录
	job.Run()
	assert.Len(t, svc.Conversations(), 2)
	chatAPI.AssertNumberOfCalls(t, "GetConversations", 2)
}

func TestBookmarkResyncJob(t *testing.T) {
	interactions := store.NewInteractionStore(store.NewNotifier())
	interactions.Set(model.Interaction{PostID: 3, IsSaved: false})
	postAPI := &mocks.PostActionAPIMock{}
	postAPI.On("GetBookmarks", mock.Anything).Return([]dto.BookmarkDTO{{PostID: 3}}, nil)
	self := store.NewChatStore(store.NewNotifier())
	svc := service.NewInteractionService(postAPI, &mocks.UserAPIMock{}, &mocks.NotificationAPIMock{}, interactions, self, true)

	NewBookmarkResyncJob(svc).Run()

	rec, ok := interactions.Lookup(3)
	assert.True(t, ok)
	assert.True(t, rec.IsSaved)
	postAPI.AssertExpectations(t)
}

func TestTypingSweepJob(t *testing.T) {
	n := store.NewNotifier()
	chat := store.NewChatStore(n)
	svc := newSync(t, &mocks.ChatAPIMock{}, chat, n)
	chat.Presence.UpdateTyping(model.TypingStatus{
		ConversationID: 42,
		Username:       "bob",
		IsTyping:       true,
		UpdatedAt:      time.Now().Add(-time.Minute),
	})

	NewTypingSweepJob(svc, 0).Run()
	assert.Equal(t, []string{"bob"}, svc.TypingUsers(42))

	NewTypingSweepJob(svc, 10*time.Second).Run()
	assert.Empty(t, svc.TypingUsers(42))
}
