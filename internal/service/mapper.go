package service

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/model"
	"time"

	"github.com/jinzhu/copier"
)

var copyOption = copier.Option{
	Converters: []copier.TypeConverter{
		{
			SrcType: dto.LocalTime{},
			DstType: time.Time{},
			Fn: func(src interface{}) (interface{}, error) {
				return src.(dto.LocalTime).Time, nil
			},
		},
		{
			SrcType: "",
			DstType: model.MessageType(""),
			Fn: func(src interface{}) (interface{}, error) {
				return model.MessageType(src.(string)), nil
			},
		},
		{
			SrcType: "",
			DstType: model.NotificationType(""),
			Fn: func(src interface{}) (interface{}, error) {
				return model.NotificationType(src.(string)), nil
			},
		},
	},
}

func toMessage(src *dto.MessageDTO) (model.Message, error) {
	var msg model.Message
	if err := copier.CopyWithOption(&msg, src, copyOption); err != nil {
		return model.Message{}, err
	}
	if msg.Type == "" {
		msg.Type = model.MessageTypeText
	}
	return msg, nil
}

func toMessages(src []dto.MessageDTO) ([]model.Message, error) {
	res := make([]model.Message, 0, len(src))
	for i := range src {
		msg, err := toMessage(&src[i])
		if err != nil {
			return nil, err
		}
		res = append(res, msg)
	}
	return res, nil
}

func toUser(src *dto.UserDTO) model.User {
	var u model.User
	_ = copier.Copy(&u, src)
	return u
}

func toConversation(src *dto.ConversationDTO) (model.Conversation, error) {
	conv := model.Conversation{
		ID:           src.ID,
		IsGroup:      src.IsGroup,
		ChatName:     src.ChatName,
		ChatImage:    src.ChatImage,
		Participants: make([]model.User, 0, len(src.Users)),
		CreatedAt:    src.CreatedAt.Time,
	}
	for i := range src.Users {
		conv.Participants = append(conv.Participants, toUser(&src.Users[i]))
	}
	if src.LastMessage != nil {
		last, err := toMessage(src.LastMessage)
		if err != nil {
			return model.Conversation{}, err
		}
		if last.ConversationID == 0 {
			last.ConversationID = src.ID
		}
		conv.LastMessage = &last
	}
	return conv, nil
}

func toConversations(src []dto.ConversationDTO) ([]model.Conversation, error) {
	res := make([]model.Conversation, 0, len(src))
	for i := range src {
		conv, err := toConversation(&src[i])
		if err != nil {
			return nil, err
		}
		res = append(res, conv)
	}
	return res, nil
}

func toNotification(src *dto.NotificationDTO) (model.Notification, error) {
	var n model.Notification
	if err := copier.CopyWithOption(&n, src, copyOption); err != nil {
		return model.Notification{}, err
	}
	return n, nil
}

func toPresence(src *dto.UserStatusDTO) model.PresenceStatus {
	return model.PresenceStatus{
		Username: src.Username,
		IsOnline: src.IsOnline,
		LastSeen: src.LastSeen.Time,
	}
}
