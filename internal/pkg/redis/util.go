package redis

import (
	"Vibeshare/internal/pkg/consts"
	"strings"
)

const userDestinationPrefix = "/user/"

// Channel 将 STOMP 目的地映射为 Redis 频道
// principal 为空时用户私有目的地无法解析，返回 false
func Channel(destination, principal string) (string, bool) {
	if strings.HasPrefix(destination, userDestinationPrefix) {
		if principal == "" {
			return "", false
		}
		return consts.RedisUserChannelPrefix + principal + ":" + strings.TrimPrefix(destination, "/user"), true
	}
	return consts.RedisChannelPrefix + destination, true
}
