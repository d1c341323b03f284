package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reinieltalplacido/classalign/pkg/jwt"
	"github.com/reinieltalplacido/classalign/pkg/response"
)

// 认证成功后写入 gin.Context 的键，handler 通过同名键读取
const (
	ctxUserID    = "user_id"
	ctxEmail     = "email"
	ctxTokenID   = "token_id"
	ctxTokenExp  = "token_exp"
	ctxSessionID = "session_id"
)

// TokenChecker 查询 Token 是否已登出（由 pkg/redis 实现）
type TokenChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token
// checker 为 nil 时跳过黑名单检查
func JWTAuth(jwtMgr *jwt.Manager, checker TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		authenticate(c, jwtMgr, checker, parts[1])
	}
}

// QueryTokenAuth 从查询参数 token 读取 Access Token
// 浏览器的 WebSocket 握手无法携带自定义请求头
func QueryTokenAuth(jwtMgr *jwt.Manager, checker TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.Unauthorized(c, 10002, "缺少 token 参数")
			c.Abort()
			return
		}

		authenticate(c, jwtMgr, checker, token)
	}
}

func authenticate(c *gin.Context, jwtMgr *jwt.Manager, checker TokenChecker, token string) {
	claims, err := jwtMgr.ParseAs(token, jwt.TokenTypeAccess)
	switch {
	case errors.Is(err, jwt.ErrTokenWrongType):
		response.Unauthorized(c, 10002, "Token 类型无效")
		c.Abort()
		return
	case err != nil:
		response.Unauthorized(c, 10002, "Token 无效或已过期")
		c.Abort()
		return
	}

	// 单个令牌或整条会话已吊销；Redis 出错时降级放行
	if checker != nil {
		for _, key := range []string{claims.ID, claims.SessionID} {
			if key == "" {
				continue
			}
			revoked, err := checker.IsBlacklisted(c.Request.Context(), key)
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "Token 已失效，请重新登录")
				c.Abort()
				return
			}
		}
	}

	// 将用户信息注入上下文
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxEmail, claims.Email)
	c.Set(ctxTokenID, claims.ID)
	c.Set(ctxSessionID, claims.SessionID)
	if claims.ExpiresAt != nil {
		c.Set(ctxTokenExp, claims.ExpiresAt.Time)
	}

	c.Next()
}
