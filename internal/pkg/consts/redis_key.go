package consts

// Redis 推送通道的频道命名：会话/广播频道直接使用 STOMP 目的地，
// 用户私有队列 /user/queue/x 映射为 user:{principal}:/queue/x
const (
	RedisChannelPrefix     = "vibeshare:"
	RedisUserChannelPrefix = "vibeshare:user:"
)
