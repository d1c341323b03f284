// Package response 统一的 JSON 信封：{code, message, data, details, request_id}。
// code 为 0 表示成功，其余为业务错误码（5 位，前两位区分模块）。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeOK       = 0
	CodeInternal = 50000

	requestIDKey = "request_id"
)

// Response 统一响应结构
type Response struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// write 写出信封并附带当前请求 ID，便于客户端报错时对应服务端日志
func write(c *gin.Context, status int, body Response) {
	body.RequestID = c.GetString(requestIDKey)
	c.JSON(status, body)
}

// ── 成功 ──

func OK(c *gin.Context, data any) {
	write(c, http.StatusOK, Response{Code: CodeOK, Message: "success", Data: data})
}

func Created(c *gin.Context, data any) {
	write(c, http.StatusCreated, Response{Code: CodeOK, Message: "success", Data: data})
}

// ── 错误 ──

// Error 通用错误响应
func Error(c *gin.Context, status, code int, message string) {
	write(c, status, Response{Code: code, Message: message})
}

// ErrorWithDetails 附带面向开发者的详情（如解析器报错）
func ErrorWithDetails(c *gin.Context, status, code int, message, details string) {
	write(c, status, Response{Code: code, Message: message, Details: details})
}

func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

func TooManyRequests(c *gin.Context, code int, message string) {
	Error(c, http.StatusTooManyRequests, code, message)
}

func ServiceUnavailable(c *gin.Context, code int, message string) {
	Error(c, http.StatusServiceUnavailable, code, message)
}

// InternalError 500，不向客户端暴露内部错误
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "服务器内部错误")
}
