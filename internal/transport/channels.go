package transport

import "strconv"

// 会话级频道：连接成功后即订阅，直到会话关闭
const (
	TopicUserStatus         = "/topic/user.status"
	QueueUserMessages       = "/user/queue/messages"
	QueueUserNotifications  = "/user/queue/notifications"
	DestinationSendMessage  = "/app/chat.send"
	DestinationTyping       = "/app/chat.typing"
	DestinationReadReceipt  = "/app/chat.read"
	conversationTopicPrefix = "/topic/conversation/"
)

// ConversationTopic 会话内新消息
func ConversationTopic(conversationID int64) string {
	return conversationTopicPrefix + strconv.FormatInt(conversationID, 10)
}

// TypingTopic 会话内输入状态
func TypingTopic(conversationID int64) string {
	return ConversationTopic(conversationID) + "/typing"
}

// ReadTopic 会话内已读回执
func ReadTopic(conversationID int64) string {
	return ConversationTopic(conversationID) + "/read"
}
