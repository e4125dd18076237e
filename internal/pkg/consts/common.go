package consts

const (
	MimePrefixImage = "image"
	MimePrefixAudio = "audio"
	MimePrefixVideo = "video"
)

const (
	// DefaultRequestFailedMessage 后端错误响应没有 message 字段时的兜底文案
	DefaultRequestFailedMessage = "Request failed"
)

const (
	TracePrefixHTTP = "http"
	TracePrefixPush = "push"
)
