package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reinieltalplacido/classalign/pkg/response"
)

// 与 middleware 写入的上下文键保持一致
const (
	ctxUserID    = "user_id"
	ctxTokenID   = "token_id"
	ctxTokenExp  = "token_exp"
	ctxSessionID = "session_id"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// tokenFromContext 当前 Access Token 的 JTI、会话 ID 与过期时间
func tokenFromContext(c *gin.Context) (jti, sessionID string, exp time.Time) {
	v, _ := c.Get(ctxTokenExp)
	exp, _ = v.(time.Time)
	return c.GetString(ctxTokenID), c.GetString(ctxSessionID), exp
}
