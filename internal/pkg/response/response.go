package response

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/service"
	"context"
	"errors"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	BadRequest          = 400
	InternalServerError = 500
	Timeout             = 504
)

// Success 成功返回封装
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// Fail 失败返回封装
func Fail(c *gin.Context, businessCode int, message string) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    businessCode,
		Message: message,
		Data:    nil,
	})
}

// FailWithData 失败但附带当前状态（如回滚后的交互记录）
func FailWithData(c *gin.Context, err error, data interface{}) {
	code, msg := resolve(c, err)
	c.JSON(http.StatusOK, dto.Response{
		Code:    code,
		Message: msg,
		Data:    data,
	})
}

// Error 处理错误
func Error(c *gin.Context, err error) {
	code, msg := resolve(c, err)
	Fail(c, code, msg)
}

func resolve(c *gin.Context, err error) (int, string) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return BadRequest, "参数错误"
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeError) {
		return BadRequest, "Json错误"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout, "请求超时"
	}

	if code, ok := service.ErrorMap[err]; ok {
		return code, err.Error()
	}
	// 包装过的错误按哨兵匹配
	for sentinel, code := range service.ErrorMap {
		if errors.Is(err, sentinel) {
			return code, err.Error()
		}
	}

	log.ErrorContext(c.Request.Context(), "Error", "err", err)
	return InternalServerError, service.UnExpectedError.Error()
}
