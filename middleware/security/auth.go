package security

import (
	"strings"

	"PPLink/tools/apiresp"
	"PPLink/tools/errs"
	jwtsec "PPLink/tools/security"

	"github.com/gin-gonic/gin"
)

// —— context key ——
// 后续模块统一用这几个 key 读取
const (
	PPCtxUserIDKey   = "userID"
	PPCtxUserNameKey = "userName"
)

// Middleware verifies the bearer JWT and stores the caller in the gin context.
func Middleware(opts jwtsec.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := jwtsec.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			// 兼容 ?token=xxx（浏览器直连下载等场景）
			token = strings.TrimSpace(c.Query("token"))
		}
		claims, err := jwtsec.Verify(opts, token)
		if err != nil {
			apiresp.Fail(c, err)
			return
		}
		c.Set(PPCtxUserIDKey, claims.UserID())
		c.Set(PPCtxUserNameKey, claims.Name)
		c.Next()
	}
}

// UserID returns the authenticated caller id, empty outside authenticated routes.
func UserID(c *gin.Context) string {
	return c.GetString(PPCtxUserIDKey)
}

func UserName(c *gin.Context) string {
	return c.GetString(PPCtxUserNameKey)
}

// MustUserID is for handlers mounted behind Middleware.
func MustUserID(c *gin.Context) (string, error) {
	id := UserID(c)
	if id == "" {
		return "", errs.ErrTokenMissing.Wrap()
	}
	return id, nil
}
