package service

import (
	"Vibeshare/internal/pkg/metrics"
	"Vibeshare/internal/pkg/util"
	"context"
	"fmt"
	log "log/slog"

	"github.com/goccy/go-json"
)

// 推送事件的指标标签，按通道种类而不是具体 topic 区分
const (
	channelPresence     = "presence"
	channelUserMessage  = "user_message"
	channelNotification = "notification"
	channelMessage      = "conversation_message"
	channelTyping       = "typing"
	channelReadReceipt  = "read_receipt"
)

// decodePush 解析并校验推送负载，失败时记录日志并丢弃
func decodePush[T any](ctx context.Context, channel string, payload []byte) (*T, bool) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		log.WarnContext(ctx, "推送消息解析失败，已丢弃", "channel", channel, "err", err)
		metrics.IncPushEvent(channel, metrics.ResultMalformed)
		return nil, false
	}
	if err := util.ValidateDTO(&v); err != nil {
		log.WarnContext(ctx, "推送消息校验失败，已丢弃", "channel", channel, "err", err)
		metrics.IncPushEvent(channel, metrics.ResultMalformed)
		return nil, false
	}
	return &v, true
}

// wrapErr 将底层错误挂到业务错误上，errors.Is 对两者都成立
func wrapErr(kind error, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}
