package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	BadGateway          = 502
	ServiceUnavailable  = 503
)

var (
	ErrParamInvalid         = errors.New("参数错误")
	ErrFileNotSupported     = errors.New("不支持的文件类型")
	ErrConversationNotFound = errors.New("会话不存在")
	ErrPostNotFound         = errors.New("帖子不存在")
	ErrTargetUserInvalid    = errors.New("目标用户无效")
	ErrNotConnected         = errors.New("推送通道未连接")
	ErrSessionNotReady      = errors.New("会话尚未初始化")
	ErrCredentialMissing    = errors.New("缺少登录凭据")
	ErrCredentialExpired    = errors.New("登录凭据已过期")
	ErrFetchFailed          = errors.New("拉取数据失败，请稍后重试")
	ErrActionFailed         = errors.New("操作失败，已撤销")
	ErrStaleFetch           = errors.New("会话已切换，丢弃过期的消息列表")
	UnauthorizedError       = errors.New("权限不足")
	UnExpectedError         = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:         BadRequest,
	ErrFileNotSupported:     BadRequest,
	ErrConversationNotFound: NotFound,
	ErrPostNotFound:         NotFound,
	ErrTargetUserInvalid:    BadRequest,
	ErrNotConnected:         ServiceUnavailable,
	ErrSessionNotReady:      ServiceUnavailable,
	ErrCredentialMissing:    Unauthorized,
	ErrCredentialExpired:    Unauthorized,
	ErrFetchFailed:          BadGateway,
	ErrActionFailed:         BadGateway,
	ErrStaleFetch:           Conflict,
	UnauthorizedError:       Unauthorized,
	UnExpectedError:         InternalServerError,
}
