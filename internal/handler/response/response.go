// Package response API 的统一信封。业务错误也返回 HTTP 200，由 code 区分。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/pkg/errno"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

const (
	// RequestIDHeader 客户端可以自带，websocket 状态流与日志用它关联同一次操作
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"msg"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// RequestID 为每个请求分配 id，并回写到响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDOf 没有经过 RequestID 中间件时为空
func RequestIDOf(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	write(c, errno.OK.Code, errno.OK.Message, data)
}

// Error 未知错误 (10001) 记录日志，其他错误码是预期内的
func Error(c *gin.Context, err error) {
	code, msg := errno.Decode(err)
	if code == errno.InternalServerError.Code {
		logger.Error("request failed",
			zap.String("request_id", RequestIDOf(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	write(c, code, msg, gin.H{})
}

func write(c *gin.Context, code int, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      code,
		Message:   msg,
		Data:      data,
		RequestID: RequestIDOf(c),
	})
}
