package store

import (
	"Vibeshare/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationStore_NeverNegative(t *testing.T) {
	s := NewNotificationStore(nil)
	s.Decrement()
	assert.Equal(t, 0, s.UnreadCount())

	s.SetUnreadCount(2)
	s.Increment()
	s.Decrement()
	assert.Equal(t, 2, s.UnreadCount())

	s.SetUnreadCount(-5)
	assert.Equal(t, 0, s.UnreadCount())
}

func TestNotifier_FanOutAndCancel(t *testing.T) {
	n := NewNotifier()
	a, cancelA := n.Subscribe(4)
	b, cancelB := n.Subscribe(4)
	defer cancelB()

	n.Publish(Event{Type: EventNotifications})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case e := <-ch:
			assert.Equal(t, EventNotifications, e.Type)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
}

func TestNotifier_SlowSubscriberDoesNotBlock(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe(1)
	defer cancel()

	for i := 0; i < 10; i++ {
		n.Publish(Event{Type: EventTyping})
	}
	assert.Len(t, ch, 1)
}

func TestChatStore_ActiveConversation(t *testing.T) {
	n := NewNotifier()
	events, cancel := n.Subscribe(8)
	defer cancel()
	s := NewChatStore(n)

	id := int64(42)
	assert.True(t, s.SetActive(&id))
	assert.False(t, s.SetActive(&id))
	assert.True(t, s.IsActive(42))

	assert.True(t, s.SetActive(nil))
	_, ok := s.ActiveID()
	assert.False(t, ok)
	assert.False(t, s.SetActive(nil))

	require.Len(t, events, 2)
}

func TestChatStore_ConversationViews(t *testing.T) {
	s := NewChatStore(nil)
	s.SetSelf(model.User{ID: 1, Username: "me"})
	m := msgAt(1, 10, 0)
	m.SenderID = 2
	s.Directory.Replace([]model.Conversation{{ID: 10, LastMessage: &m}, {ID: 11}})
	s.Messages.Replace(10, []model.Message{m, msgAt(2, 10, time.Second)})

	views := s.ConversationViews()
	require.Len(t, views, 2)
	assert.Equal(t, 2, views[0].UnreadCount)
	assert.Equal(t, 0, views[1].UnreadCount)
	assert.Equal(t, 2, s.TotalUnread())
}
