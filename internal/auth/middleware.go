package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/login-app/internal/logging"
	"github.com/yourusername/login-app/internal/session"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザー名を共有するためのキーです。
const ContextUserKey = "auth.user"

// RequireLogin は認証済みセッションだけを通すミドルウェアです。
// 未認証の場合はログイン画面へリダイレクトします。
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := session.Username(sessions.Default(c))
		if username == "" {
			c.Redirect(http.StatusFound, pathEntry)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, username)
		c.Next()
	}
}

// EnsureSession は初回アクセス時に匿名セッションを保存し、トークンを発行します。
func EnsureSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		if session.IsNew(s) {
			session.Touch(s)
			if err := s.Save(); err != nil {
				logging.FromContext(c.Request.Context()).Warn("failed to create session", "error", err)
			}
		}
		c.Next()
	}
}
