package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opdss/tabexport/jwt"
)

// UserKey 认证通过后 *jwt.TokenPayload 在 gin.Context 中的 key
const UserKey = "user"

// JwtAuth 校验 Authorization: Bearer <token>，refresh token 不能用于访问接口
func JwtAuth(j *jwt.Jwt) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		payload, err := j.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abort(c, http.StatusUnauthorized, "token expired")
				return
			}
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if payload.Refresh {
			abort(c, http.StatusUnauthorized, "refresh token not allowed")
			return
		}
		c.Set(UserKey, payload)
		c.Next()
	}
}

// CurrentUser 当前登录用户，未认证时返回 nil
func CurrentUser(c *gin.Context) *jwt.TokenPayload {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	p, _ := v.(*jwt.TokenPayload)
	return p
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
