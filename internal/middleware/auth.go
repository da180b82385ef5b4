package middleware

import (
	"blackhorse_backend/internal/config"
	"blackhorse_backend/internal/service"
	"blackhorse_backend/internal/util"
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 解析令牌并解析会话：会话被吊销（封禁下线、登出、
// 整库导入）或会员已不存在时直接 401，封禁生效中返回结构化封禁响应。
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		cfg := c.MustGet("config").(*config.Config)
		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if claims.Role == util.RoleAdmin {
			if !auth.ResolveAdminSession(claims) {
				util.Unauthorized(c)
				c.Abort()
				return
			}
			c.Set("claims", claims)
			c.Next()
			return
		}

		user, err := auth.ResolveSession(c.Request.Context(), claims)
		if err != nil {
			var banErr *util.BanError
			if errors.As(err, &banErr) {
				util.Banned(c, banErr)
			} else {
				util.Unauthorized(c)
			}
			c.Abort()
			return
		}
		// 会话已被吊销（封禁下线、登出、导入清场）
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Set("currentUser", user)
		c.Next()
	}
}

// AdminMiddleware 仅放行管理员角色的令牌
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetClaimsFromContext(c)
		if claims == nil || claims.Role != util.RoleAdmin {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActivityMiddleware 会员的任何已认证请求都顺带刷新活跃时间，
// 写入放在请求路径之外异步完成
func ActivityMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetClaimsFromContext(c)
		if claims != nil && claims.Role == util.RoleMember {
			userID := claims.UserID
			// 请求结束会取消请求上下文，心跳用独立上下文
			go func() {
				auth.Heartbeat(context.Background(), userID)
			}()
		}
		c.Next()
	}
}
